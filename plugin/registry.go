package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/provider"
	"github.com/xraph/streamfee/subscriber"
	"github.com/xraph/streamfee/types"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onProviderRegistered   []OnProviderRegistered
	onSubscriberRegistered []OnSubscriberRegistered
	onSubscribed           []OnSubscribed
	onUnsubscribed         []OnUnsubscribed
	onDeposited            []OnDeposited
	onFeesWithdrawn        []OnFeesWithdrawn
	onProviderSuspended    []OnProviderSuspended
	onSubscriberSlashed    []OnSubscriberSlashed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnProviderRegistered); ok {
		r.onProviderRegistered = append(r.onProviderRegistered, v)
	}
	if v, ok := p.(OnSubscriberRegistered); ok {
		r.onSubscriberRegistered = append(r.onSubscriberRegistered, v)
	}
	if v, ok := p.(OnSubscribed); ok {
		r.onSubscribed = append(r.onSubscribed, v)
	}
	if v, ok := p.(OnUnsubscribed); ok {
		r.onUnsubscribed = append(r.onUnsubscribed, v)
	}
	if v, ok := p.(OnDeposited); ok {
		r.onDeposited = append(r.onDeposited, v)
	}
	if v, ok := p.(OnFeesWithdrawn); ok {
		r.onFeesWithdrawn = append(r.onFeesWithdrawn, v)
	}
	if v, ok := p.(OnProviderSuspended); ok {
		r.onProviderSuspended = append(r.onProviderSuspended, v)
	}
	if v, ok := p.(OnSubscriberSlashed); ok {
		r.onSubscriberSlashed = append(r.onSubscriberSlashed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnProviderRegistered", reflect.TypeFor[OnProviderRegistered]()},
	{"OnSubscriberRegistered", reflect.TypeFor[OnSubscriberRegistered]()},
	{"OnSubscribed", reflect.TypeFor[OnSubscribed]()},
	{"OnUnsubscribed", reflect.TypeFor[OnUnsubscribed]()},
	{"OnDeposited", reflect.TypeFor[OnDeposited]()},
	{"OnFeesWithdrawn", reflect.TypeFor[OnFeesWithdrawn]()},
	{"OnProviderSuspended", reflect.TypeFor[OnProviderSuspended]()},
	{"OnSubscriberSlashed", reflect.TypeFor[OnSubscriberSlashed]()},
}

func implementedInterfaces(p Plugin) []string {
	var out []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			out = append(out, h.name)
		}
	}
	return out
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit calls fn for every plugin in hooks, logging failures.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, hooks []T, fn func(T) error) {
	for _, p := range hooks {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// snapshot returns a hook list read under the lock.
func snapshot[T any](r *Registry, list *[]T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *list
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	emit(ctx, r, "OnInit", snapshot(r, &r.onInit), func(p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", snapshot(r, &r.onShutdown), func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitProviderRegistered emits a provider registered event.
func (r *Registry) EmitProviderRegistered(ctx context.Context, pr *provider.Provider) {
	emit(ctx, r, "OnProviderRegistered", snapshot(r, &r.onProviderRegistered), func(p OnProviderRegistered) error {
		return p.OnProviderRegistered(ctx, pr)
	})
}

// EmitSubscriberRegistered emits a subscriber registered event.
func (r *Registry) EmitSubscriberRegistered(ctx context.Context, s *subscriber.Subscriber) {
	emit(ctx, r, "OnSubscriberRegistered", snapshot(r, &r.onSubscriberRegistered), func(p OnSubscriberRegistered) error {
		return p.OnSubscriberRegistered(ctx, s)
	})
}

// EmitSubscribed emits a subscribed event.
func (r *Registry) EmitSubscribed(ctx context.Context, subscriberID id.SubscriberID, providerID id.ProviderID) {
	emit(ctx, r, "OnSubscribed", snapshot(r, &r.onSubscribed), func(p OnSubscribed) error {
		return p.OnSubscribed(ctx, subscriberID, providerID)
	})
}

// EmitUnsubscribed emits an unsubscribed event.
func (r *Registry) EmitUnsubscribed(ctx context.Context, subscriberID id.SubscriberID, providerID id.ProviderID) {
	emit(ctx, r, "OnUnsubscribed", snapshot(r, &r.onUnsubscribed), func(p OnUnsubscribed) error {
		return p.OnUnsubscribed(ctx, subscriberID, providerID)
	})
}

// EmitDeposited emits a deposit event.
func (r *Registry) EmitDeposited(ctx context.Context, subscriberID id.SubscriberID, amount types.Amount) {
	emit(ctx, r, "OnDeposited", snapshot(r, &r.onDeposited), func(p OnDeposited) error {
		return p.OnDeposited(ctx, subscriberID, amount)
	})
}

// EmitFeesWithdrawn emits a provider payout event.
func (r *Registry) EmitFeesWithdrawn(ctx context.Context, providerID id.ProviderID, recipient string, amount types.Amount) {
	emit(ctx, r, "OnFeesWithdrawn", snapshot(r, &r.onFeesWithdrawn), func(p OnFeesWithdrawn) error {
		return p.OnFeesWithdrawn(ctx, providerID, recipient, amount)
	})
}

// EmitProviderSuspended emits a suspension event.
func (r *Registry) EmitProviderSuspended(ctx context.Context, providerID id.ProviderID, suspendedAt time.Time) {
	emit(ctx, r, "OnProviderSuspended", snapshot(r, &r.onProviderSuspended), func(p OnProviderSuspended) error {
		return p.OnProviderSuspended(ctx, providerID, suspendedAt)
	})
}

// EmitSubscriberSlashed emits a slash event.
func (r *Registry) EmitSubscriberSlashed(ctx context.Context, subscriberID id.SubscriberID, recipient string, reward types.Amount, evicted int) {
	emit(ctx, r, "OnSubscriberSlashed", snapshot(r, &r.onSubscriberSlashed), func(p OnSubscriberSlashed) error {
		return p.OnSubscriberSlashed(ctx, subscriberID, recipient, reward, evicted)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block settlement.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
