package store

import (
	"context"

	"github.com/xraph/streamfee/provider"
	"github.com/xraph/streamfee/subscriber"
)

// Store is the unified storage interface for the streamfee ledger.
type Store interface {
	provider.Store
	subscriber.Store

	// Commit writes every record in b or none of them.
	Commit(ctx context.Context, b *Batch) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Batch is the changeset of one settlement operation: the full post-image
// of every record the operation touched. Records are keyed by id; putting
// the same id twice keeps the last version.
type Batch struct {
	providers   []*provider.Provider
	subscribers []*subscriber.Subscriber
	pIndex      map[string]int
	sIndex      map[string]int
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{
		pIndex: make(map[string]int),
		sIndex: make(map[string]int),
	}
}

// PutProvider stages p.
func (b *Batch) PutProvider(p *provider.Provider) {
	key := p.ID.String()
	if i, ok := b.pIndex[key]; ok {
		b.providers[i] = p
		return
	}
	b.pIndex[key] = len(b.providers)
	b.providers = append(b.providers, p)
}

// PutSubscriber stages s.
func (b *Batch) PutSubscriber(s *subscriber.Subscriber) {
	key := s.ID.String()
	if i, ok := b.sIndex[key]; ok {
		b.subscribers[i] = s
		return
	}
	b.sIndex[key] = len(b.subscribers)
	b.subscribers = append(b.subscribers, s)
}

// Providers returns the staged providers in insertion order.
func (b *Batch) Providers() []*provider.Provider { return b.providers }

// Subscribers returns the staged subscribers in insertion order.
func (b *Batch) Subscribers() []*subscriber.Subscriber { return b.subscribers }

// ProviderKeys returns the string ids of the staged providers.
func (b *Batch) ProviderKeys() []string {
	out := make([]string, len(b.providers))
	for i, p := range b.providers {
		out[i] = p.ID.String()
	}
	return out
}

// SubscriberKeys returns the string ids of the staged subscribers.
func (b *Batch) SubscriberKeys() []string {
	out := make([]string, len(b.subscribers))
	for i, s := range b.subscribers {
		out[i] = s.ID.String()
	}
	return out
}

// Len returns the number of staged records.
func (b *Batch) Len() int { return len(b.providers) + len(b.subscribers) }

// Clone returns a batch holding deep copies of every staged record.
func (b *Batch) Clone() *Batch {
	c := NewBatch()
	for _, p := range b.providers {
		c.PutProvider(p.Clone())
	}
	for _, s := range b.subscribers {
		c.PutSubscriber(s.Clone())
	}
	return c
}
