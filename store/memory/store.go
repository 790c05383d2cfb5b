// Package memory implements store.Store in process memory. Records are
// copied on the way in and on the way out, so callers never share state
// with the ledger and a Commit is visible all at once.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/xraph/streamfee"
	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/provider"
	"github.com/xraph/streamfee/store"
	"github.com/xraph/streamfee/subscriber"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	providers   map[string]*provider.Provider
	subscribers map[string]*subscriber.Subscriber
	closed      bool
}

func New() *Store {
	return &Store{
		providers:   make(map[string]*provider.Provider),
		subscribers: make(map[string]*subscriber.Subscriber),
	}
}

// Provider Store implementation
func (s *Store) CreateProvider(_ context.Context, p *provider.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return streamfee.ErrStoreClosed
	}
	if _, exists := s.providers[p.ID.String()]; exists {
		return streamfee.ErrProviderExists
	}
	s.providers[p.ID.String()] = p.Clone()
	return nil
}

func (s *Store) GetProvider(_ context.Context, providerID id.ProviderID) (*provider.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.providers[providerID.String()]; ok {
		return p.Clone(), nil
	}
	return nil, streamfee.ErrProviderNotFound
}

func (s *Store) ListProviders(_ context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*provider.Provider, 0)
	for _, p := range s.providers {
		if opts.Status != "" && p.Status != opts.Status {
			continue
		}
		if opts.Owner != "" && p.Owner != opts.Owner {
			continue
		}
		result = append(result, p.Clone())
	}
	slices.SortFunc(result, func(a, b *provider.Provider) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return page(result, opts.Offset, opts.Limit), nil
}

// Subscriber Store implementation
func (s *Store) CreateSubscriber(_ context.Context, sub *subscriber.Subscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return streamfee.ErrStoreClosed
	}
	if _, exists := s.subscribers[sub.ID.String()]; exists {
		return streamfee.ErrSubscriberExists
	}
	s.subscribers[sub.ID.String()] = sub.Clone()
	return nil
}

func (s *Store) GetSubscriber(_ context.Context, subscriberID id.SubscriberID) (*subscriber.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subscribers[subscriberID.String()]; ok {
		return sub.Clone(), nil
	}
	return nil, streamfee.ErrSubscriberNotFound
}

func (s *Store) ListSubscribers(_ context.Context, opts subscriber.ListOpts) ([]*subscriber.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscriber.Subscriber, 0)
	for _, sub := range s.subscribers {
		if opts.Owner != "" && sub.Owner != opts.Owner {
			continue
		}
		result = append(result, sub.Clone())
	}
	slices.SortFunc(result, func(a, b *subscriber.Subscriber) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return page(result, opts.Offset, opts.Limit), nil
}

// Commit validates every record first and only then swaps them in, all
// under the write lock.
func (s *Store) Commit(_ context.Context, b *store.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return streamfee.ErrStoreClosed
	}
	for _, p := range b.Providers() {
		if _, ok := s.providers[p.ID.String()]; !ok {
			return streamfee.ErrProviderNotFound
		}
	}
	for _, sub := range b.Subscribers() {
		if _, ok := s.subscribers[sub.ID.String()]; !ok {
			return streamfee.ErrSubscriberNotFound
		}
	}

	for _, p := range b.Providers() {
		s.providers[p.ID.String()] = p.Clone()
	}
	for _, sub := range b.Subscribers() {
		s.subscribers[sub.ID.String()] = sub.Clone()
	}
	return nil
}

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return streamfee.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// page applies offset and limit the way the SQL backends do: values that
// are not positive are ignored.
func page[T any](items []T, offset, limit int) []T {
	start := max(offset, 0)
	if start > len(items) {
		start = len(items)
	}
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return items[start:end]
}
