package cardiac

import (
	"heartwise/internal/inference"
	llmclient "heartwise/internal/llmClient"
	"heartwise/internal/prompt"
)

const (
	CapabilityPredictRisk  = "predictHeartAttackRisk"
	CapabilityEstimateTime = "estimateTimeToHeartAttack"
)

func riskLevelSchema(desc string) *llmclient.Schema {
	return llmclient.Enum(desc, riskLevelNames()...)
}

// PredictRiskCapability classifies overall risk from the profile and the
// current reading.
func PredictRiskCapability() inference.Capability {
	return inference.Capability{
		Name: CapabilityPredictRisk,
		Prompt: prompt.Spec{
			Purpose:    "Given the user data and heart rate information in INPUT, predict the user's heart attack risk.",
			Background: "userData is free text such as age, gender, medical history and lifestyle. heartRateData holds the current bpm and the time it was measured.",
			Instructions: []string{
				"Consider heart rate variability when determining risk.",
				"Classify the overall risk as low, medium or high.",
				"Give an estimated time window before a potential heart attack and the reasoning behind the prediction.",
			},
			Constraints: []string{
				"Keep estimatedTimeWindow reasonable: the higher the risk, the shorter the window; a low risk allows a longer window.",
				"If there is not enough data, make a reasonable estimate and state in the explanation that it is based on limited information.",
				"riskLevel must be exactly one of low, medium, high.",
			},
			OutputFormat: "A single JSON object with the fields riskLevel, estimatedTimeWindow and explanation.",
			Language:     "English",
		},
		Output: llmclient.Object("Heart attack risk prediction",
			llmclient.Required("riskLevel", riskLevelSchema("The predicted heart attack risk level.")),
			llmclient.Required("estimatedTimeWindow", llmclient.String("An estimated time window before a potential heart attack might occur.")),
			llmclient.Required("explanation", llmclient.String("Explanation of why the model gave this prediction.")),
		),
	}
}

// EstimateTimeCapability estimates the time window and a confidence from a
// bpm value with optional variability and profile.
func EstimateTimeCapability() inference.Capability {
	return inference.Capability{
		Name: CapabilityEstimateTime,
		Prompt: prompt.Spec{
			Purpose:    "Given the heart rate data and user information in INPUT, estimate the time window before a potential heart attack.",
			Background: "heartRateBpm is the current heart rate in beats per minute. heartRateVariability and userData are optional and may be absent.",
			Instructions: []string{
				"Estimate the time window before a potential heart attack (hours, days or weeks).",
				"Give the risk level (low, medium, high) and the rationale behind the estimation.",
				"Report how confident you are as a number between 0 and 1.",
			},
			Constraints: []string{
				"The higher the risk, the shorter the time window.",
				"If fields are missing, make a reasonable estimate and say in the rationale that data was limited.",
				"confidenceLevel must lie in [0,1].",
			},
			OutputFormat: "A single JSON object with the fields estimatedTimeWindow, riskLevel, confidenceLevel and rationale.",
			Language:     "English",
		},
		Output: llmclient.Object("Time to heart attack estimate",
			llmclient.Required("estimatedTimeWindow", llmclient.String("An estimated time window (e.g., hours, days, weeks) before a potential heart attack.")),
			llmclient.Required("riskLevel", riskLevelSchema("The risk level of a potential heart attack.")),
			llmclient.Required("confidenceLevel", llmclient.Number("A value between 0 and 1 indicating the confidence level.").Between(0, 1)),
			llmclient.Required("rationale", llmclient.String("The rationale behind the time window estimation and risk level.")),
		),
	}
}
