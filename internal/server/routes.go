package server

import (
	"net/http"

	"connectrpc.com/connect"
	"go.uber.org/zap"

	"heartwise/internal/logger"
)

func NewMux(h *Handler, events *EventsHandler, log *zap.Logger) http.Handler {
	log = logger.OrNop(log)
	opts := []connect.HandlerOption{connect.WithCodec(jsonCodec{})}
	mux := http.NewServeMux()

	// RPC Handlers
	mux.Handle(ProcedureGetState, connect.NewUnaryHandler(ProcedureGetState, h.GetState, opts...))
	mux.Handle(ProcedureGetReading, connect.NewUnaryHandler(ProcedureGetReading, h.GetReading, opts...))
	mux.Handle(ProcedurePredictRisk, connect.NewUnaryHandler(ProcedurePredictRisk, h.PredictRisk, opts...))
	mux.Handle(ProcedureEstimateTime, connect.NewUnaryHandler(ProcedureEstimateTime, h.EstimateTime, opts...))
	mux.Handle(ProcedureDismissAlert, connect.NewUnaryHandler(ProcedureDismissAlert, h.DismissAlert, opts...))
	mux.Handle(ProcedureSetProfile, connect.NewUnaryHandler(ProcedureSetProfile, h.SetProfile, opts...))

	// Event stream
	mux.HandleFunc("GET /events", events.HandleEvents)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	// Middleware
	return AccessLog(log, CORS(mux))
}
