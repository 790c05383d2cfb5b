package store

import (
	"testing"
	"time"

	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/provider"
	"github.com/xraph/streamfee/subscriber"
	"github.com/xraph/streamfee/types"
)

func TestBatchKeepsLastVersion(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pid := id.NewProviderID()

	b := NewBatch()
	first := provider.New(pid, "alice", types.Units(1), now)
	second := first.Clone()
	second.SubscriberCount = 3

	b.PutProvider(first)
	b.PutProvider(second)
	b.PutSubscriber(subscriber.New(id.NewSubscriberID(), "bob", types.Units(5), now))

	if b.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", b.Len())
	}
	if got := b.Providers()[0].SubscriberCount; got != 3 {
		t.Errorf("expected last put to win, got count %d", got)
	}
}

func TestBatchClone(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBatch()
	s := subscriber.New(id.NewSubscriberID(), "bob", types.Units(5), now)
	b.PutSubscriber(s)

	c := b.Clone()
	c.Subscribers()[0].Balance = types.Units(1)

	if !s.Balance.Equal(types.Units(5)) {
		t.Errorf("clone shares records with the original: %s", s.Balance)
	}
}

func TestBatchKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := provider.New(id.NewProviderID(), "alice", types.Units(1), now)
	s := subscriber.New(id.NewSubscriberID(), "bob", types.Units(5), now)

	b := NewBatch()
	b.PutSubscriber(s)
	b.PutProvider(p)
	b.PutProvider(p.Clone())

	if got := b.ProviderKeys(); len(got) != 1 || got[0] != p.ID.String() {
		t.Errorf("ProviderKeys: got %v", got)
	}
	if got := b.SubscriberKeys(); len(got) != 1 || got[0] != s.ID.String() {
		t.Errorf("SubscriberKeys: got %v", got)
	}
	if got := NewBatch().ProviderKeys(); len(got) != 0 {
		t.Errorf("empty batch: got %v", got)
	}
}
