// Package plugin provides an extensible plugin system for streamfee.
// Plugins hook into settlement events after they have been committed.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/provider"
	"github.com/xraph/streamfee/subscriber"
	"github.com/xraph/streamfee/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Registration hooks
// ──────────────────────────────────────────────────

// OnProviderRegistered is called after a provider record is created.
type OnProviderRegistered interface {
	Plugin
	OnProviderRegistered(ctx context.Context, p *provider.Provider) error
}

// OnSubscriberRegistered is called after a subscriber record is created
// and its deposit pulled into custody.
type OnSubscriberRegistered interface {
	Plugin
	OnSubscriberRegistered(ctx context.Context, s *subscriber.Subscriber) error
}

// ──────────────────────────────────────────────────
// Subscription hooks
// ──────────────────────────────────────────────────

// OnSubscribed is called after a subscriber joins a provider.
type OnSubscribed interface {
	Plugin
	OnSubscribed(ctx context.Context, subscriberID id.SubscriberID, providerID id.ProviderID) error
}

// OnUnsubscribed is called after a subscriber leaves a provider.
type OnUnsubscribed interface {
	Plugin
	OnUnsubscribed(ctx context.Context, subscriberID id.SubscriberID, providerID id.ProviderID) error
}

// ──────────────────────────────────────────────────
// Funds hooks
// ──────────────────────────────────────────────────

// OnDeposited is called after a top-up lands on a subscriber balance.
type OnDeposited interface {
	Plugin
	OnDeposited(ctx context.Context, subscriberID id.SubscriberID, amount types.Amount) error
}

// OnFeesWithdrawn is called after a provider payout, including the final
// payout made on suspension.
type OnFeesWithdrawn interface {
	Plugin
	OnFeesWithdrawn(ctx context.Context, providerID id.ProviderID, recipient string, amount types.Amount) error
}

// OnProviderSuspended is called after the Active to Suspended transition.
type OnProviderSuspended interface {
	Plugin
	OnProviderSuspended(ctx context.Context, providerID id.ProviderID, suspendedAt time.Time) error
}

// OnSubscriberSlashed is called after an insolvent subscriber has been
// cleared. evicted is the number of subscriptions removed.
type OnSubscriberSlashed interface {
	Plugin
	OnSubscriberSlashed(ctx context.Context, subscriberID id.SubscriberID, recipient string, reward types.Amount, evicted int) error
}
