// Package audithook bridges streamfee settlement events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit system. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/plugin"
	"github.com/xraph/streamfee/provider"
	"github.com/xraph/streamfee/subscriber"
	"github.com/xraph/streamfee/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnProviderRegistered   = (*Extension)(nil)
	_ plugin.OnSubscriberRegistered = (*Extension)(nil)
	_ plugin.OnSubscribed           = (*Extension)(nil)
	_ plugin.OnUnsubscribed         = (*Extension)(nil)
	_ plugin.OnDeposited            = (*Extension)(nil)
	_ plugin.OnFeesWithdrawn        = (*Extension)(nil)
	_ plugin.OnProviderSuspended    = (*Extension)(nil)
	_ plugin.OnSubscriberSlashed    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry of the audit trail.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges settlement events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Account hooks
// ──────────────────────────────────────────────────

// OnProviderRegistered implements plugin.OnProviderRegistered.
func (e *Extension) OnProviderRegistered(ctx context.Context, p *provider.Provider) error {
	return e.record(ctx, ActionProviderRegistered, SeverityInfo,
		ResourceProvider, p.ID.String(), CategoryAccount,
		"owner", p.Owner,
		"fee_per_second", p.FeePerSecond.String(),
	)
}

// OnSubscriberRegistered implements plugin.OnSubscriberRegistered.
func (e *Extension) OnSubscriberRegistered(ctx context.Context, s *subscriber.Subscriber) error {
	return e.record(ctx, ActionSubscriberRegistered, SeverityInfo,
		ResourceSubscriber, s.ID.String(), CategoryAccount,
		"owner", s.Owner,
		"deposit", s.Balance.String(),
	)
}

// ──────────────────────────────────────────────────
// Subscription hooks
// ──────────────────────────────────────────────────

// OnSubscribed implements plugin.OnSubscribed.
func (e *Extension) OnSubscribed(ctx context.Context, subscriberID id.SubscriberID, providerID id.ProviderID) error {
	return e.record(ctx, ActionSubscribed, SeverityInfo,
		ResourceSubscription, subscriberID.String(), CategorySubscription,
		"provider_id", providerID.String(),
	)
}

// OnUnsubscribed implements plugin.OnUnsubscribed.
func (e *Extension) OnUnsubscribed(ctx context.Context, subscriberID id.SubscriberID, providerID id.ProviderID) error {
	return e.record(ctx, ActionUnsubscribed, SeverityInfo,
		ResourceSubscription, subscriberID.String(), CategorySubscription,
		"provider_id", providerID.String(),
	)
}

// ──────────────────────────────────────────────────
// Funds hooks
// ──────────────────────────────────────────────────

// OnDeposited implements plugin.OnDeposited.
func (e *Extension) OnDeposited(ctx context.Context, subscriberID id.SubscriberID, amount types.Amount) error {
	return e.record(ctx, ActionDeposited, SeverityInfo,
		ResourceSubscriber, subscriberID.String(), CategoryPayment,
		"amount", amount.String(),
	)
}

// OnFeesWithdrawn implements plugin.OnFeesWithdrawn.
func (e *Extension) OnFeesWithdrawn(ctx context.Context, providerID id.ProviderID, recipient string, amount types.Amount) error {
	return e.record(ctx, ActionFeesWithdrawn, SeverityInfo,
		ResourceProvider, providerID.String(), CategoryPayment,
		"recipient", recipient,
		"amount", amount.String(),
	)
}

// ──────────────────────────────────────────────────
// Enforcement hooks
// ──────────────────────────────────────────────────

// OnProviderSuspended implements plugin.OnProviderSuspended.
func (e *Extension) OnProviderSuspended(ctx context.Context, providerID id.ProviderID, suspendedAt time.Time) error {
	return e.record(ctx, ActionProviderSuspended, SeverityWarning,
		ResourceProvider, providerID.String(), CategoryEnforcement,
		"suspended_at", suspendedAt.UTC().Format(time.RFC3339),
	)
}

// OnSubscriberSlashed implements plugin.OnSubscriberSlashed.
func (e *Extension) OnSubscriberSlashed(ctx context.Context, subscriberID id.SubscriberID, recipient string, reward types.Amount, evicted int) error {
	return e.record(ctx, ActionSubscriberSlashed, SeverityCritical,
		ResourceSubscriber, subscriberID.String(), CategoryEnforcement,
		"recipient", recipient,
		"reward", reward.String(),
		"evicted", evicted,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// Recorder failures are logged and never fail the hook.
func (e *Extension) record(
	ctx context.Context,
	action, severity string,
	resource, resourceID, category string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    OutcomeSuccess,
		Severity:   severity,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
