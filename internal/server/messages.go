package server

import (
	"heartwise/internal/controller"
	"heartwise/internal/heartrate"
)

const ServiceName = "heartwise.v1.HeartWiseService"

const (
	ProcedureGetState     = "/" + ServiceName + "/GetState"
	ProcedureGetReading   = "/" + ServiceName + "/GetReading"
	ProcedurePredictRisk  = "/" + ServiceName + "/PredictRisk"
	ProcedureEstimateTime = "/" + ServiceName + "/EstimateTime"
	ProcedureDismissAlert = "/" + ServiceName + "/DismissAlert"
	ProcedureSetProfile   = "/" + ServiceName + "/SetProfile"
)

type GetStateRequest struct{}

type GetReadingRequest struct{}

type ReadingResponse struct {
	Reading heartrate.Reading `json:"reading"`
}

// PredictRiskRequest predicts for UserData, or for the stored profile when
// it is omitted.
type PredictRiskRequest struct {
	UserData *string `json:"userData,omitempty"`
}

type EstimateTimeRequest struct {
	HeartRateBPM         *float64 `json:"heartRateBpm,omitempty"`
	HeartRateVariability *float64 `json:"heartRateVariability,omitempty"`
	UserData             *string  `json:"userData,omitempty"`
}

type DismissAlertRequest struct{}

type SetProfileRequest struct {
	UserData string `json:"userData"`
}

// StateResponse carries the view after the call.
type StateResponse struct {
	View controller.View `json:"view"`
}
