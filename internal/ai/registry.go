package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/suPer8Hu/standup-agent/internal/config"
)

type ProviderFactory func(ctx context.Context, model string) (Provider, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

func (r *Registry) Register(name string, f ProviderFactory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(ctx context.Context, name string, model string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider: %s", name)
	}
	return f(ctx, model)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for n := range r.factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NewConfiguredRegistry registers every provider the service knows about,
// each defaulting to the model named in cfg.
func NewConfiguredRegistry(cfg config.AIConfig) *Registry {
	reg := NewRegistry()
	reg.Register("gemini", func(ctx context.Context, model string) (Provider, error) {
		if strings.TrimSpace(model) == "" {
			model = cfg.GeminiModel
		}
		return NewGeminiProvider(ctx, cfg.GoogleAPIKey, model)
	})
	reg.Register("ollama", func(_ context.Context, model string) (Provider, error) {
		if strings.TrimSpace(model) == "" {
			model = cfg.OllamaModel
		}
		return NewOllamaProvider(cfg.OllamaBaseURL, model), nil
	})
	reg.Register("openrouter", func(_ context.Context, model string) (Provider, error) {
		if strings.TrimSpace(model) == "" {
			model = cfg.OpenRouterModel
		}
		return NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, model,
			cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})
	return reg
}
