package mongo

import (
	"testing"
	"time"

	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/provider"
	"github.com/xraph/streamfee/subscriber"
	"github.com/xraph/streamfee/types"
)

func TestProviderModelRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	p := provider.New(id.NewProviderID(), "alice", types.Units(3), now)
	p.SubscriberCount = 2
	p.PendingFees = types.Units(600)

	got, err := fromProviderModel(toProviderModel(p))
	if err != nil {
		t.Fatalf("fromProviderModel: %v", err)
	}
	if got.ID.String() != p.ID.String() || got.SubscriberCount != 2 || !got.IsActive() {
		t.Errorf("fields lost: %+v", got)
	}
	if !got.PendingFees.Equal(types.Units(600)) || !got.FeesCollected.IsZero() {
		t.Errorf("amounts lost: pending=%s collected=%s", got.PendingFees, got.FeesCollected)
	}
	if got.SuspendedAt != nil {
		t.Errorf("active provider gained a suspension time: %v", got.SuspendedAt)
	}
}

func TestSubscriberModelRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := id.NewProviderID()

	s := subscriber.New(id.NewSubscriberID(), "bob", types.Units(1000), now)
	s.Subscriptions = subscriber.NewSet(a)
	s.AggregateFeePerSecond = types.Units(3)

	m := toSubscriberModel(s)
	if len(m.Subscriptions) != 1 || m.Subscriptions[0] != a.String() {
		t.Fatalf("subscriptions not flattened: %v", m.Subscriptions)
	}

	got, err := fromSubscriberModel(m)
	if err != nil {
		t.Fatalf("fromSubscriberModel: %v", err)
	}
	if !got.Balance.Equal(types.Units(1000)) || !got.AggregateFeePerSecond.Equal(types.Units(3)) || !got.IsSubscribed(a) {
		t.Errorf("fields lost: %+v", got)
	}
}

func TestParseAmounts(t *testing.T) {
	got, err := parseAmounts("a", "1", "b", "-2")
	if err != nil {
		t.Fatalf("parseAmounts: %v", err)
	}
	if len(got) != 2 || !got[0].Equal(types.Units(1)) || !got[1].Equal(types.Units(-2)) {
		t.Errorf("got %v", got)
	}

	if _, err := parseAmounts("a", "1", "b", "x"); err == nil {
		t.Error("expected error for malformed amount")
	}
}

func TestMigrationIndexesCoverCollections(t *testing.T) {
	idx := migrationIndexes()
	for _, col := range []string{colProviders, colSubscribers} {
		if len(idx[col]) == 0 {
			t.Errorf("no indexes for %s", col)
		}
	}
}
