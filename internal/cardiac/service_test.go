package cardiac

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heartwise/internal/heartrate"
	"heartwise/internal/inference"
	"heartwise/internal/llm"
)

func newTestService(bpm float64, fake *llm.FakeClient) *Service {
	src := heartrate.NewStubSource(bpm).WithClock(func() time.Time { return fixedNow })
	return NewService(src, inference.New(fake, nil), nil)
}

func TestPredictRisk_HighRiskScenario(t *testing.T) {
	fake := llm.NewFakeClient().ScriptJSON(CapabilityPredictRisk,
		`{"riskLevel":"high","estimatedTimeWindow":"within 24 hours","explanation":"elevated resting rate with prior cardiac event"}`)
	svc := newTestService(130, fake)

	got, err := svc.PredictRisk(context.Background(), "Age: 70, smoker, prior cardiac event")
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, got.RiskLevel)
	assert.Equal(t, "within 24 hours", got.EstimatedTimeWindow)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	req, ok := calls[0].Input.(PredictionRequest)
	require.True(t, ok, "input type %T", calls[0].Input)
	assert.Equal(t, 130.0, req.HeartRateData.BPM)
	assert.Equal(t, fixedNow, req.HeartRateData.Timestamp)
	assert.Equal(t, "Age: 70, smoker, prior cardiac event", req.UserData)
	assert.Contains(t, calls[0].Prompt, "Consider heart rate variability")
	assert.Contains(t, calls[0].Prompt, `"bpm": 130`)
}

func TestEstimateTime_LowRiskScenario(t *testing.T) {
	fake := llm.NewFakeClient().ScriptJSON(CapabilityEstimateTime,
		`{"riskLevel":"low","estimatedTimeWindow":"no immediate risk","confidenceLevel":0.4,"rationale":"limited data"}`)
	svc := newTestService(72, fake)

	got, err := svc.EstimateTime(context.Background(), EstimationInput{BPM: ptr(65.0)})
	require.NoError(t, err)
	assert.Equal(t, TimeEstimate{
		EstimatedTimeWindow: "no immediate risk",
		RiskLevel:           RiskLow,
		ConfidenceLevel:     0.4,
		Rationale:           "limited data",
	}, got)

	req := fake.Calls()[0].Input.(EstimationRequest)
	assert.Equal(t, 65.0, req.HeartRateBPM, "explicit bpm must reach the gateway")
	assert.Nil(t, req.UserData)
	assert.Nil(t, req.HeartRateVariability)
}

func TestEstimateTime_OmittedBPMUsesSource(t *testing.T) {
	fake := llm.NewFakeClient()
	svc := newTestService(97, fake)

	_, err := svc.EstimateTime(context.Background(), EstimationInput{})
	require.NoError(t, err)
	req := fake.Calls()[0].Input.(EstimationRequest)
	assert.Equal(t, 97.0, req.HeartRateBPM)
}

func TestPredictRisk_RejectsUnknownRiskLevel(t *testing.T) {
	for _, level := range []string{"extreme", "HIGH", ""} {
		fake := llm.NewFakeClient().ScriptJSON(CapabilityPredictRisk,
			`{"riskLevel":"`+level+`","estimatedTimeWindow":"soon","explanation":"x"}`)
		_, err := newTestService(72, fake).PredictRisk(context.Background(), DefaultUserProfile)
		assert.ErrorIs(t, err, inference.ErrValidationMismatch, level)
		assert.ErrorIs(t, err, inference.ErrGatewayFailure, level)
	}
}

func TestEstimateTime_ConfidenceBounds(t *testing.T) {
	cases := []struct {
		confidence string
		ok         bool
	}{
		{"0", true},
		{"1", true},
		{"0.73", true},
		{"-0.01", false},
		{"1.2", false},
		{"42", false},
	}
	for _, tc := range cases {
		fake := llm.NewFakeClient().ScriptJSON(CapabilityEstimateTime,
			`{"riskLevel":"medium","estimatedTimeWindow":"weeks","confidenceLevel":`+tc.confidence+`,"rationale":"r"}`)
		_, err := newTestService(72, fake).EstimateTime(context.Background(), EstimationInput{})
		if tc.ok {
			assert.NoError(t, err, tc.confidence)
		} else {
			assert.ErrorIs(t, err, inference.ErrValidationMismatch, tc.confidence)
		}
	}
}

func TestService_GatewayFailureSurfaces(t *testing.T) {
	fake := llm.NewFakeClient().Script(CapabilityPredictRisk, llm.FakeResponse{Raw: []byte("I cannot answer that")})
	got, err := newTestService(72, fake).PredictRisk(context.Background(), "")
	assert.ErrorIs(t, err, inference.ErrGatewayFailure)
	assert.NotErrorIs(t, err, inference.ErrValidationMismatch)
	assert.Equal(t, RiskPrediction{}, got)
}

func TestService_InvalidArgumentSkipsGateway(t *testing.T) {
	fake := llm.NewFakeClient()
	_, err := newTestService(72, fake).EstimateTime(context.Background(), EstimationInput{BPM: ptr(-1.0)})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Empty(t, fake.Calls())
}

func TestCapabilitiesRenderFromDefaults(t *testing.T) {
	fake := llm.NewFakeClient()
	svc := newTestService(125, fake)

	p, err := svc.PredictRisk(context.Background(), DefaultUserProfile)
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, p.RiskLevel)

	e, err := svc.EstimateTime(context.Background(), EstimationInput{BPM: ptr(60.0)})
	require.NoError(t, err)
	assert.Equal(t, RiskLow, e.RiskLevel)
	assert.InDelta(t, 0.4, e.ConfidenceLevel, 1e-9)
}
