package server

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"go.uber.org/zap"

	"heartwise/internal/cardiac"
	"heartwise/internal/controller"
	"heartwise/internal/heartrate"
	"heartwise/internal/inference"
	"heartwise/internal/logger"
)

// Handler serves HeartWiseService over connect.
type Handler struct {
	ctrl   *controller.Controller
	source heartrate.Source
	log    *zap.Logger
}

func NewHandler(ctrl *controller.Controller, source heartrate.Source, log *zap.Logger) *Handler {
	return &Handler{ctrl: ctrl, source: source, log: logger.OrNop(log)}
}

func (h *Handler) GetState(_ context.Context, _ *connect.Request[GetStateRequest]) (*connect.Response[StateResponse], error) {
	return connect.NewResponse(&StateResponse{View: h.ctrl.Snapshot()}), nil
}

func (h *Handler) GetReading(ctx context.Context, _ *connect.Request[GetReadingRequest]) (*connect.Response[ReadingResponse], error) {
	r, err := heartrate.Read(ctx, h.source)
	if err != nil {
		return nil, h.toConnectError("GetReading", err)
	}
	return connect.NewResponse(&ReadingResponse{Reading: r}), nil
}

func (h *Handler) PredictRisk(ctx context.Context, req *connect.Request[PredictRiskRequest]) (*connect.Response[StateResponse], error) {
	var profile *cardiac.UserProfile
	if req.Msg.UserData != nil {
		p := cardiac.UserProfile(*req.Msg.UserData)
		profile = &p
	}
	v, err := h.ctrl.PredictRisk(ctx, profile)
	if err != nil {
		return nil, h.toConnectError("PredictRisk", err)
	}
	return connect.NewResponse(&StateResponse{View: v}), nil
}

func (h *Handler) EstimateTime(ctx context.Context, req *connect.Request[EstimateTimeRequest]) (*connect.Response[StateResponse], error) {
	in := cardiac.EstimationInput{
		BPM:         req.Msg.HeartRateBPM,
		Variability: req.Msg.HeartRateVariability,
	}
	if req.Msg.UserData != nil {
		p := cardiac.UserProfile(*req.Msg.UserData)
		in.Profile = &p
	}
	v, err := h.ctrl.EstimateTime(ctx, in)
	if err != nil {
		return nil, h.toConnectError("EstimateTime", err)
	}
	return connect.NewResponse(&StateResponse{View: v}), nil
}

func (h *Handler) DismissAlert(_ context.Context, _ *connect.Request[DismissAlertRequest]) (*connect.Response[StateResponse], error) {
	return connect.NewResponse(&StateResponse{View: h.ctrl.DismissAlert()}), nil
}

func (h *Handler) SetProfile(_ context.Context, req *connect.Request[SetProfileRequest]) (*connect.Response[StateResponse], error) {
	v, err := h.ctrl.SetProfile(cardiac.UserProfile(req.Msg.UserData))
	if err != nil {
		return nil, h.toConnectError("SetProfile", err)
	}
	return connect.NewResponse(&StateResponse{View: v}), nil
}

func (h *Handler) toConnectError(op string, err error) error {
	code := codeFor(err)
	if code == connect.CodeInternal {
		h.log.Error("rpc failed", zap.String("op", op), zap.Error(err))
	} else {
		h.log.Info("rpc rejected", zap.String("op", op), zap.String("code", code.String()), zap.Error(err))
	}
	return connect.NewError(code, fmt.Errorf("%s: %w", op, err))
}

func codeFor(err error) connect.Code {
	switch {
	case errors.Is(err, cardiac.ErrInvalidArgument):
		return connect.CodeInvalidArgument
	case errors.Is(err, controller.ErrBusy):
		return connect.CodeFailedPrecondition
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, inference.ErrValidationMismatch):
		return connect.CodeInternal
	case errors.Is(err, inference.ErrGatewayFailure):
		return connect.CodeUnavailable
	case errors.Is(err, heartrate.ErrSourceUnavailable):
		return connect.CodeUnavailable
	default:
		return connect.CodeInternal
	}
}
