package fastmcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Provider is a pluggable component that participates in the server
// lifecycle: caches, state services, tenancy resolvers and similar
// cross-cutting collaborators. Providers are registered during bootstrap and
// notified in registration order (reverse order on the way down).
type Provider interface {
	Name() string
	// Initialize prepares the provider. A failure here is fatal to startup.
	Initialize(ctx context.Context) error
	OnStart(ctx context.Context) error
	OnSessionStart(ctx context.Context, sessionID string) error
	OnSessionEnd(ctx context.Context, sessionID string) error
	OnStop(ctx context.Context) error
	// Cleanup releases resources. Called after OnStop, errors are logged.
	Cleanup(ctx context.Context) error
}

// Registry coordinates provider lifecycles. It is constructed once during
// process bootstrap and passed by reference into the dispatch pipeline;
// there is deliberately no package-level instance.
type Registry struct {
	log *slog.Logger

	mu        sync.RWMutex
	providers []Provider
}

// NewRegistry constructs an empty Registry logging to h (nil discards).
func NewRegistry(h slog.Handler) *Registry {
	if h == nil {
		h = slog.DiscardHandler
	}
	return &Registry{log: slog.New(h)}
}

// Register appends a provider. Registration order defines notification
// order.
func (r *Registry) Register(p Provider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	r.providers = append(r.providers, p)
	r.mu.Unlock()
}

func (r *Registry) snapshot() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Initialize initializes all providers in order. The first failure aborts
// startup.
func (r *Registry) Initialize(ctx context.Context) error {
	for _, p := range r.snapshot() {
		if err := p.Initialize(ctx); err != nil {
			return fmt.Errorf("initialize provider %s: %w", p.Name(), err)
		}
	}
	return nil
}

// Start notifies all providers that the server is serving.
func (r *Registry) Start(ctx context.Context) error {
	for _, p := range r.snapshot() {
		if err := p.OnStart(ctx); err != nil {
			return fmt.Errorf("start provider %s: %w", p.Name(), err)
		}
	}
	return nil
}

// SessionStarted notifies providers of a new session. Errors are logged,
// not fatal: one misbehaving provider must not break session setup.
func (r *Registry) SessionStarted(ctx context.Context, sessionID string) {
	for _, p := range r.snapshot() {
		if err := p.OnSessionStart(ctx, sessionID); err != nil {
			r.log.Warn("provider session-start failed",
				slog.String("provider", p.Name()),
				slog.String("session_id", sessionID),
				slog.String("err", err.Error()))
		}
	}
}

// SessionEnded notifies providers that a session closed.
func (r *Registry) SessionEnded(ctx context.Context, sessionID string) {
	for _, p := range r.snapshot() {
		if err := p.OnSessionEnd(ctx, sessionID); err != nil {
			r.log.Warn("provider session-end failed",
				slog.String("provider", p.Name()),
				slog.String("session_id", sessionID),
				slog.String("err", err.Error()))
		}
	}
}

// Stop notifies providers of shutdown and runs Cleanup, in reverse
// registration order. All providers are attempted; errors are logged.
func (r *Registry) Stop(ctx context.Context) {
	providers := r.snapshot()
	for i := len(providers) - 1; i >= 0; i-- {
		p := providers[i]
		if err := p.OnStop(ctx); err != nil {
			r.log.Warn("provider stop failed",
				slog.String("provider", p.Name()),
				slog.String("err", err.Error()))
		}
		if err := p.Cleanup(ctx); err != nil {
			r.log.Warn("provider cleanup failed",
				slog.String("provider", p.Name()),
				slog.String("err", err.Error()))
		}
	}
}

// ProviderBase is a no-op Provider implementation meant for embedding so
// concrete providers only override the notifications they care about.
type ProviderBase struct{ ProviderName string }

func (b ProviderBase) Name() string                               { return b.ProviderName }
func (ProviderBase) Initialize(context.Context) error             { return nil }
func (ProviderBase) OnStart(context.Context) error                { return nil }
func (ProviderBase) OnSessionStart(context.Context, string) error { return nil }
func (ProviderBase) OnSessionEnd(context.Context, string) error   { return nil }
func (ProviderBase) OnStop(context.Context) error                 { return nil }
func (ProviderBase) Cleanup(context.Context) error                { return nil }
