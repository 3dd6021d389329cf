package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	llmclient "heartwise/internal/llmClient"
)

const (
	ProviderAuto   = "auto"
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
	ProviderFake   = "fake"
)

// Options selects and decorates the inference backend.
type Options struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string
	GroqModel    string
	GroqBaseURL  string
	RPS          float64
	Burst        int
	Timeout      time.Duration
	Logger       *zap.Logger
	Hook         PromptHook
	// Fake overrides the client used for the "fake" provider.
	Fake *FakeClient
}

// ResolveProvider turns "auto" (or empty) into a concrete provider: gemini
// when a Gemini key is set, groq when a Groq key is set, fake otherwise.
func (o Options) ResolveProvider() string {
	p := strings.ToLower(strings.TrimSpace(o.Provider))
	if p != "" && p != ProviderAuto {
		return p
	}
	switch {
	case strings.TrimSpace(o.GeminiAPIKey) != "":
		return ProviderGemini
	case strings.TrimSpace(o.GroqAPIKey) != "":
		return ProviderGroq
	default:
		return ProviderFake
	}
}

// NewClient opens the selected backend and wraps it with the standard
// middleware chain: logging -> timeout -> rate limit -> hooks -> backend.
// No retry layer: a failed call surfaces at once.
func NewClient(ctx context.Context, opts Options) (llmclient.LLMClient, error) {
	reg := llmclient.NewRegistry()
	if err := reg.Register(ProviderGemini, func(ctx context.Context) (llmclient.LLMClient, error) {
		return llmclient.NewGeminiClient(ctx, opts.GeminiAPIKey, opts.GeminiModel)
	}); err != nil {
		return nil, err
	}
	if err := reg.Register(ProviderGroq, func(context.Context) (llmclient.LLMClient, error) {
		return llmclient.NewGroqClient(opts.GroqAPIKey, opts.GroqModel, opts.GroqBaseURL, opts.Timeout)
	}); err != nil {
		return nil, err
	}
	if err := reg.Register(ProviderFake, func(context.Context) (llmclient.LLMClient, error) {
		if opts.Fake != nil {
			return opts.Fake, nil
		}
		return NewFakeClient(), nil
	}); err != nil {
		return nil, err
	}

	provider := opts.ResolveProvider()
	base, err := reg.Open(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("llm: open %s client: %w", provider, err)
	}
	if opts.Logger != nil {
		opts.Logger.Info("inference backend ready", zap.String("provider", provider), zap.String("client", base.Name()))
	}
	return Wrap(base,
		WithLogging(opts.Logger),
		Timeout(opts.Timeout),
		RateLimit(opts.RPS, opts.Burst),
		WithHooks(opts.Hook),
	), nil
}
