// Package cardiac holds the heart-attack risk model: the request builders,
// the two inference capabilities and the service that runs them.
package cardiac

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArgument reports caller input that cannot form a request.
var ErrInvalidArgument = errors.New("invalid argument")

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskLevels lists the accepted levels in ascending order.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh}

func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// ParseRiskLevel accepts the three levels case-insensitively.
func ParseRiskLevel(s string) (RiskLevel, error) {
	l := RiskLevel(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: risk level %q", ErrInvalidArgument, s)
	}
	return l, nil
}

func riskLevelNames() []string {
	out := make([]string, len(RiskLevels))
	for i, l := range RiskLevels {
		out[i] = string(l)
	}
	return out
}

// UserProfile is free text such as age, gender and medical history.
type UserProfile string

// DefaultUserProfile is the profile shown before the user edits it.
const DefaultUserProfile UserProfile = "Age: 30, Gender: Male, Medical History: None"

type RiskPrediction struct {
	RiskLevel           RiskLevel `json:"riskLevel"`
	EstimatedTimeWindow string    `json:"estimatedTimeWindow"`
	Explanation         string    `json:"explanation"`
}

func (p RiskPrediction) Validate() error {
	if !p.RiskLevel.Valid() {
		return fmt.Errorf("riskLevel %q is not one of low, medium, high", p.RiskLevel)
	}
	return nil
}

type TimeEstimate struct {
	EstimatedTimeWindow string    `json:"estimatedTimeWindow"`
	RiskLevel           RiskLevel `json:"riskLevel"`
	ConfidenceLevel     float64   `json:"confidenceLevel"`
	Rationale           string    `json:"rationale"`
}

func (e TimeEstimate) Validate() error {
	if !e.RiskLevel.Valid() {
		return fmt.Errorf("riskLevel %q is not one of low, medium, high", e.RiskLevel)
	}
	if e.ConfidenceLevel < 0 || e.ConfidenceLevel > 1 {
		return fmt.Errorf("confidenceLevel %v outside [0,1]", e.ConfidenceLevel)
	}
	return nil
}
