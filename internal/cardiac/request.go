package cardiac

import (
	"context"
	"fmt"
	"math"

	"heartwise/internal/heartrate"
)

// PredictionRequest is the input of the risk prediction capability.
type PredictionRequest struct {
	UserData      string            `json:"userData"`
	HeartRateData heartrate.Reading `json:"heartRateData"`
}

// EstimationRequest is the input of the time estimation capability.
type EstimationRequest struct {
	HeartRateBPM         float64  `json:"heartRateBpm"`
	HeartRateVariability *float64 `json:"heartRateVariability,omitempty"`
	UserData             *string  `json:"userData,omitempty"`
}

// EstimationInput carries the caller's optional estimation arguments.
// A nil BPM means "use the current reading".
type EstimationInput struct {
	BPM         *float64
	Variability *float64
	Profile     *UserProfile
}

// Builder composes capability inputs from caller arguments and the
// heart-rate source.
type Builder struct {
	source heartrate.Source
}

func NewBuilder(source heartrate.Source) *Builder {
	return &Builder{source: source}
}

// BuildPredictionRequest attaches the current reading to profile.
func (b *Builder) BuildPredictionRequest(ctx context.Context, profile UserProfile) (PredictionRequest, error) {
	r, err := heartrate.Read(ctx, b.source)
	if err != nil {
		return PredictionRequest{}, err
	}
	return PredictionRequest{UserData: string(profile), HeartRateData: r}, nil
}

// BuildEstimationRequest resolves the effective bpm: the explicit argument
// when present, otherwise the source reading. The source is not queried when
// the caller supplies bpm.
func (b *Builder) BuildEstimationRequest(ctx context.Context, in EstimationInput) (EstimationRequest, error) {
	bpm, err := b.effectiveBPM(ctx, in.BPM)
	if err != nil {
		return EstimationRequest{}, err
	}
	req := EstimationRequest{HeartRateBPM: bpm}
	if in.Variability != nil {
		v := *in.Variability
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return EstimationRequest{}, fmt.Errorf("%w: heart rate variability %v", ErrInvalidArgument, v)
		}
		req.HeartRateVariability = &v
	}
	if in.Profile != nil {
		s := string(*in.Profile)
		req.UserData = &s
	}
	return req, nil
}

func (b *Builder) effectiveBPM(ctx context.Context, explicit *float64) (float64, error) {
	if explicit != nil {
		v := *explicit
		if !(v > 0) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: heart rate bpm must be positive, got %v", ErrInvalidArgument, v)
		}
		return v, nil
	}
	r, err := heartrate.Read(ctx, b.source)
	if err != nil {
		return 0, err
	}
	return r.BPM, nil
}
