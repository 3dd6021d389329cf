package controller

import (
	"time"

	"heartwise/internal/cardiac"
)

type State string

const (
	Idle        State = "idle"
	Loading     State = "loading"
	Ready       State = "ready"
	AlertRaised State = "alertRaised"
)

type Action string

const (
	ActionPredict  Action = "predictRisk"
	ActionEstimate Action = "estimateTime"
)

// Defaults shown before the first reading or result arrives.
const (
	InitialHeartRate     = 72
	InitialRiskLevel     = cardiac.RiskLow
	InitialEstimatedTime = "N/A"
)

// Alert is the dismissible emergency notice.
type Alert struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

var emergencyAlert = Alert{
	Title:       "Emergency Alert",
	Description: "High heart attack risk detected. Contact emergency services.",
}

// View is the state a client renders.
type View struct {
	State           State               `json:"state"`
	HeartRate       float64             `json:"heartRate"`
	RiskLevel       cardiac.RiskLevel   `json:"riskLevel"`
	EstimatedTime   string              `json:"estimatedTime"`
	Explanation     string              `json:"explanation,omitempty"`
	ConfidenceLevel *float64            `json:"confidenceLevel,omitempty"`
	Rationale       string              `json:"rationale,omitempty"`
	UserData        cardiac.UserProfile `json:"userData"`
	Loading         bool                `json:"loading"`
	InFlight        Action              `json:"inFlight,omitempty"`
	AlertVisible    bool                `json:"alertVisible"`
	Alert           *Alert              `json:"alert,omitempty"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func (v View) clone() View {
	if v.ConfidenceLevel != nil {
		c := *v.ConfidenceLevel
		v.ConfidenceLevel = &c
	}
	if v.Alert != nil {
		a := *v.Alert
		v.Alert = &a
	}
	return v
}

func initialView(profile cardiac.UserProfile, now time.Time) View {
	return View{
		State:         Idle,
		HeartRate:     InitialHeartRate,
		RiskLevel:     InitialRiskLevel,
		EstimatedTime: InitialEstimatedTime,
		UserData:      profile,
		UpdatedAt:     now,
	}
}
