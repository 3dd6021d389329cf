package llm

import (
	"context"
	"encoding/json"
	"strings"
)

type PromptHook interface {
	Before(ctx context.Context, capability, prompt string, input any)
	After(ctx context.Context, capability string, raw json.RawMessage, err error)
}

type ctxKeyHook struct{}
type ctxKeyCapability struct{}

// ContextWithHook attaches a PromptHook to ctx for the hook middleware.
func ContextWithHook(ctx context.Context, hook PromptHook) context.Context {
	return context.WithValue(ctx, ctxKeyHook{}, hook)
}

// HookFrom returns the hook stored in the context.
func HookFrom(ctx context.Context) PromptHook {
	if v := ctx.Value(ctxKeyHook{}); v != nil {
		if h, ok := v.(PromptHook); ok {
			return h
		}
	}
	return nil
}

// WithCapability tags ctx with the capability name of the request in flight.
func WithCapability(ctx context.Context, capability string) context.Context {
	return context.WithValue(ctx, ctxKeyCapability{}, strings.TrimSpace(capability))
}

// CapabilityFrom returns the capability name stored in the context.
func CapabilityFrom(ctx context.Context) string {
	if v := ctx.Value(ctxKeyCapability{}); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "unknown"
}

// CountTokens provides a rough token count for log lines.
// It counts whitespace-delimited words and falls back to a character-based heuristic.
func CountTokens(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	if words := strings.Fields(text); len(words) > 0 {
		return len(words)
	}
	return max(len(text)/4, 1)
}
