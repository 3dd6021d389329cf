package llmclient

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ClientFactory opens a backend client.
type ClientFactory func(ctx context.Context) (LLMClient, error)

// Registry maps provider names to client factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ClientFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ClientFactory)}
}

func (r *Registry) Register(provider string, factory ClientFactory) error {
	key := normalizeProvider(provider)
	if key == "" {
		return fmt.Errorf("llmclient: provider name is empty")
	}
	if factory == nil {
		return fmt.Errorf("llmclient: factory for %q is nil", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[key]; dup {
		return fmt.Errorf("llmclient: provider %q already registered", key)
	}
	r.factories[key] = factory
	return nil
}

func (r *Registry) Open(ctx context.Context, provider string) (LLMClient, error) {
	key := normalizeProvider(provider)
	r.mu.RLock()
	f, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("llmclient: unknown provider %q (known: %s)", key, strings.Join(r.Providers(), ", "))
	}
	return f(ctx)
}

func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalizeProvider(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}
