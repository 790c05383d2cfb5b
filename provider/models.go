// Package provider defines provider accounts: metered services charging a
// fixed fee per second to every current subscriber.
package provider

import (
	"time"

	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/types"
)

// Status is the lifecycle state of a provider.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Provider is the ledger record for one provider.
type Provider struct {
	types.Entity
	ID              id.ProviderID `json:"id"`
	Owner           string        `json:"owner"`
	FeePerSecond    types.Amount  `json:"fee_per_second"`
	SubscriberCount int64         `json:"subscriber_count"`
	PendingFees     types.Amount  `json:"pending_fees"`
	FeesCollected   types.Amount  `json:"fees_collected"`
	LastUpdated     time.Time     `json:"last_updated"`
	Status          Status        `json:"status"`
	// SuspendedAt is nil while the provider is active (the "infinite"
	// suspension time). It is set once and never cleared.
	SuspendedAt *time.Time `json:"suspended_at,omitempty"`
}

// New creates an active provider record registered at now.
func New(providerID id.ProviderID, owner string, feePerSecond types.Amount, now time.Time) *Provider {
	return &Provider{
		Entity:        types.NewEntity(now),
		ID:            providerID,
		Owner:         owner,
		FeePerSecond:  feePerSecond,
		PendingFees:   types.Zero(),
		FeesCollected: types.Zero(),
		LastUpdated:   now,
		Status:        StatusActive,
	}
}

// IsActive reports whether the provider still accepts subscribers.
func (p *Provider) IsActive() bool { return p.Status == StatusActive }

// IsSuspended reports whether the provider has been suspended.
func (p *Provider) IsSuspended() bool { return p.Status == StatusSuspended }

// TotalEarned is the lifetime value accrued to the provider as of its last
// settlement.
func (p *Provider) TotalEarned() types.Amount {
	return types.OrZero(p.PendingFees).Add(types.OrZero(p.FeesCollected))
}

// Clone returns a deep copy.
func (p *Provider) Clone() *Provider {
	c := *p
	if p.SuspendedAt != nil {
		t := *p.SuspendedAt
		c.SuspendedAt = &t
	}
	return &c
}

// Earnings is a read-only projection of a provider's revenue.
type Earnings struct {
	ProviderID    id.ProviderID `json:"provider_id"`
	PendingFees   types.Amount  `json:"pending_fees"`
	FeesCollected types.Amount  `json:"fees_collected"`
	Total         types.Amount  `json:"total"`
	AsOf          time.Time     `json:"as_of"`
}
