package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	llmclient "heartwise/internal/llmClient"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns
// (rate limiting, timeouts, logging, hooks).
type Middleware func(llmclient.LLMClient) llmclient.LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.LLMClient, mws ...Middleware) llmclient.LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		out = mws[i](out)
	}
	return out
}

// -------- Rate Limiting --------

// RateLimit limits request rate with a token bucket.
// If rps <= 0, the limiter is disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	next llmclient.LLMClient
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}

func (c *rateLimited) GenerateJSON(ctx context.Context, prompt string, input any, schema *llmclient.Schema) (json.RawMessage, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return c.next.GenerateJSON(ctx, prompt, input, schema)
}

// -------- Timeout --------

// Timeout bounds every call with d. If d <= 0, calls are not bounded.
func Timeout(d time.Duration) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		if d <= 0 {
			return next
		}
		return &timeoutClient{next: next, d: d}
	}
}

type timeoutClient struct {
	next llmclient.LLMClient
	d    time.Duration
}

func (c *timeoutClient) Name() string { return c.next.Name() }
func (c *timeoutClient) Close() error { return c.next.Close() }

func (c *timeoutClient) GenerateJSON(ctx context.Context, prompt string, input any, schema *llmclient.Schema) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.d)
	defer cancel()

	type result struct {
		raw json.RawMessage
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := c.next.GenerateJSON(ctx, prompt, input, schema)
		done <- result{raw: raw, err: err}
	}()
	select {
	case r := <-done:
		return r.raw, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", c.next.Name(), ctx.Err())
	}
}

// -------- Logging --------

// WithLogging logs request size, latency and errors per capability.
// A nil logger disables logging.
func WithLogging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.LLMClient
	log  *zap.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) GenerateJSON(ctx context.Context, prompt string, input any, schema *llmclient.Schema) (json.RawMessage, error) {
	in, _ := json.Marshal(input)
	fields := []zap.Field{
		zap.String("capability", CapabilityFrom(ctx)),
		zap.String("client", l.next.Name()),
	}
	l.log.Debug("LLM request", append(fields,
		zap.Int("bytes", len(prompt)+len(in)),
		zap.Int("approx_tokens", CountTokens(prompt)+CountTokens(string(in))),
	)...)

	start := time.Now()
	raw, err := l.next.GenerateJSON(ctx, prompt, input, schema)
	fields = append(fields, zap.Duration("elapsed", time.Since(start)))
	if aware, ok := l.next.(llmclient.RateLimitHeaderAware); ok {
		if h, ok := aware.LastRateLimitHeaders(); ok {
			fields = append(fields, zap.Int("remaining_requests", h.RemainingRequests), zap.Int("remaining_tokens", h.RemainingTokens))
		}
	}
	if err != nil {
		l.log.Warn("LLM error", append(fields, zap.Error(err))...)
		return raw, err
	}
	l.log.Info("LLM response", append(fields, zap.Int("response_bytes", len(raw)))...)
	return raw, nil
}

// -------- Hooks --------

// WithHooks calls hook.Before/After around GenerateJSON. A hook attached to
// the context via ContextWithHook takes precedence over the static one.
func WithHooks(hook PromptHook) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &hooked{next: next, hook: hook}
	}
}

type hooked struct {
	next llmclient.LLMClient
	hook PromptHook
}

func (h *hooked) Name() string { return h.next.Name() }
func (h *hooked) Close() error { return h.next.Close() }

func (h *hooked) GenerateJSON(ctx context.Context, prompt string, input any, schema *llmclient.Schema) (json.RawMessage, error) {
	hook := HookFrom(ctx)
	if hook == nil {
		hook = h.hook
	}
	if hook != nil {
		hook.Before(ctx, CapabilityFrom(ctx), prompt, input)
	}
	raw, err := h.next.GenerateJSON(ctx, prompt, input, schema)
	if hook != nil {
		hook.After(ctx, CapabilityFrom(ctx), raw, err)
	}
	return raw, err
}
