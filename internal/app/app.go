package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"heartwise/internal/cardiac"
	"heartwise/internal/config"
	"heartwise/internal/controller"
	"heartwise/internal/heartrate"
	"heartwise/internal/inference"
	"heartwise/internal/llm"
	llmclient "heartwise/internal/llmClient"
	"heartwise/internal/logger"
	"heartwise/internal/notify"
	"heartwise/internal/server"
)

const shutdownTimeout = 5 * time.Second

// App holds the wired components of one HeartWise process.
type App struct {
	Config     *config.Config
	Log        *zap.Logger
	Source     heartrate.Source
	LLM        llmclient.LLMClient
	Service    *cardiac.Service
	Hub        *notify.Hub
	Controller *controller.Controller

	server *server.Server
}

// Option adjusts wiring before the components are built.
type Option func(*llm.Options)

// WithFakeLLM makes the fake provider answer with f.
func WithFakeLLM(f *llm.FakeClient) Option {
	return func(o *llm.Options) { o.Fake = f }
}

// WithPromptHook observes every prompt sent to the backend.
func WithPromptHook(h llm.PromptHook) Option {
	return func(o *llm.Options) { o.Hook = h }
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is nil")
	}
	log = logger.OrNop(log)

	llmOpts := llm.Options{
		Provider:     cfg.LLM.Provider,
		GeminiAPIKey: cfg.LLM.GeminiAPIKey,
		GeminiModel:  cfg.LLM.GeminiModel,
		GroqAPIKey:   cfg.LLM.GroqAPIKey,
		GroqModel:    cfg.LLM.GroqModel,
		GroqBaseURL:  cfg.LLM.GroqBaseURL,
		RPS:          cfg.LLM.RPS,
		Burst:        cfg.LLM.Burst,
		Timeout:      cfg.LLM.Timeout,
		Logger:       log.Named("llm"),
	}
	for _, opt := range opts {
		opt(&llmOpts)
	}
	client, err := llm.NewClient(ctx, llmOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open inference backend: %w", err)
	}

	hub, err := notify.NewHub(cfg.EventHistory, log.Named("notify"))
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to create event hub: %w", err)
	}

	// Dependencies
	source := heartrate.NewStubSource(cfg.HeartRate.StubBPM)
	gateway := inference.New(client, log.Named("inference"))
	svc := cardiac.NewService(source, gateway, log.Named("cardiac"))
	ctrl := controller.New(svc,
		controller.WithLogger(log.Named("controller")),
		controller.WithNotifier(hub),
		controller.WithProfile(cardiac.UserProfile(cfg.DefaultUserData)),
	)

	// Routing & Server
	handler := server.NewHandler(ctrl, source, log.Named("rpc"))
	events := server.NewEventsHandler(hub, log.Named("events"))
	mux := server.NewMux(handler, events, log.Named("http"))

	return &App{
		Config:     cfg,
		Log:        log,
		Source:     source,
		LLM:        client,
		Service:    svc,
		Hub:        hub,
		Controller: ctrl,
		server:     server.New(cfg.Port, mux, log),
	}, nil
}

// Init reads the first heart rate. A failed read keeps the defaults and is
// only logged.
func (a *App) Init(ctx context.Context) {
	if err := a.Controller.Init(ctx); err != nil {
		a.Log.Warn("starting without a heart rate reading", zap.Error(err))
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	return a.run(ctx, a.server.Start)
}

// RunListener is Run on an existing listener.
func (a *App) RunListener(ctx context.Context, l net.Listener) error {
	return a.run(ctx, func() error { return a.server.Serve(l) })
}

func (a *App) run(ctx context.Context, serve func() error) error {
	a.Init(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(serve)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})
	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Shutdown stops the server and releases the backend. Safe to call once
// per App.
func (a *App) Shutdown(ctx context.Context) error {
	a.Hub.Close()
	err := a.server.Shutdown(ctx)
	if cerr := a.LLM.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Close releases resources of an App that never ran.
func (a *App) Close() error {
	a.Hub.Close()
	return a.LLM.Close()
}
