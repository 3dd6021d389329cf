package cardiac

import (
	"context"

	"go.uber.org/zap"

	"heartwise/internal/heartrate"
	"heartwise/internal/inference"
	"heartwise/internal/logger"
)

// Service runs the two capabilities against an inference gateway.
type Service struct {
	builder  *Builder
	invoker  inference.Invoker
	log      *zap.Logger
	predict  inference.Capability
	estimate inference.Capability
}

func NewService(source heartrate.Source, invoker inference.Invoker, log *zap.Logger) *Service {
	return &Service{
		builder:  NewBuilder(source),
		invoker:  invoker,
		log:      logger.OrNop(log),
		predict:  PredictRiskCapability(),
		estimate: EstimateTimeCapability(),
	}
}

// Reading returns the current heart-rate reading.
func (s *Service) Reading(ctx context.Context) (heartrate.Reading, error) {
	return heartrate.Read(ctx, s.builder.source)
}

// PredictRisk builds a prediction request for profile and asks the gateway
// to classify it.
func (s *Service) PredictRisk(ctx context.Context, profile UserProfile) (RiskPrediction, error) {
	req, err := s.builder.BuildPredictionRequest(ctx, profile)
	if err != nil {
		return RiskPrediction{}, err
	}
	var out RiskPrediction
	if err := s.invoker.Invoke(ctx, s.predict, req, &out); err != nil {
		return RiskPrediction{}, err
	}
	s.log.Info("risk predicted",
		zap.Float64("bpm", req.HeartRateData.BPM),
		zap.String("risk_level", string(out.RiskLevel)),
	)
	return out, nil
}

// EstimateTime builds an estimation request from in and asks the gateway
// for a time window.
func (s *Service) EstimateTime(ctx context.Context, in EstimationInput) (TimeEstimate, error) {
	req, err := s.builder.BuildEstimationRequest(ctx, in)
	if err != nil {
		return TimeEstimate{}, err
	}
	var out TimeEstimate
	if err := s.invoker.Invoke(ctx, s.estimate, req, &out); err != nil {
		return TimeEstimate{}, err
	}
	s.log.Info("time estimated",
		zap.Float64("bpm", req.HeartRateBPM),
		zap.String("risk_level", string(out.RiskLevel)),
		zap.Float64("confidence", out.ConfidenceLevel),
	)
	return out, nil
}
