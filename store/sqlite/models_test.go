package sqlite

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
	suspended := now.Add(time.Hour)

	p := provider.New(id.NewProviderID(), "alice", types.MustParseAmount("123456789012345678901234"), now)
	p.SubscriberCount = 4
	p.PendingFees = types.Units(70)
	p.FeesCollected = types.Units(30)
	p.Status = provider.StatusSuspended
	p.SuspendedAt = &suspended

	m := toProviderModel(p)
	if m.Kind != kindProvider || m.Subscriptions != "[]" {
		t.Fatalf("unexpected model %+v", m)
	}

	got, err := fromProviderModel(m)
	if err != nil {
		t.Fatalf("fromProviderModel: %v", err)
	}
	if got.ID.String() != p.ID.String() || got.Owner != "alice" || got.SubscriberCount != 4 {
		t.Errorf("identity fields lost: %+v", got)
	}
	if !got.FeePerSecond.Equal(p.FeePerSecond) || !got.PendingFees.Equal(types.Units(70)) || !got.FeesCollected.Equal(types.Units(30)) {
		t.Errorf("amounts lost: fee=%s pending=%s collected=%s", got.FeePerSecond, got.PendingFees, got.FeesCollected)
	}
	if got.SuspendedAt == nil || !got.SuspendedAt.Equal(suspended) || !got.IsSuspended() {
		t.Errorf("suspension lost: %v %s", got.SuspendedAt, got.Status)
	}
}

func TestSubscriberModelRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a, b := id.NewProviderID(), id.NewProviderID()

	s := subscriber.New(id.NewSubscriberID(), "bob", types.Units(-25), now)
	s.Subscriptions = subscriber.NewSet(a, b)
	s.AggregateFeePerSecond = types.Units(9)

	m, err := toSubscriberModel(s)
	if err != nil {
		t.Fatalf("toSubscriberModel: %v", err)
	}
	if m.Kind != kindSubscriber {
		t.Errorf("kind: got %q", m.Kind)
	}

	got, err := fromSubscriberModel(m)
	if err != nil {
		t.Fatalf("fromSubscriberModel: %v", err)
	}
	if !got.Balance.Equal(types.Units(-25)) || !got.AggregateFeePerSecond.Equal(types.Units(9)) {
		t.Errorf("amounts lost: balance=%s rate=%s", got.Balance, got.AggregateFeePerSecond)
	}
	if got.Subscriptions.Len() != 2 || !got.IsSubscribed(a) || !got.IsSubscribed(b) {
		t.Errorf("subscriptions lost: %v", id.Strings(got.Subscriptions.Items()))
	}
	if !got.LastUpdated.Equal(now) {
		t.Errorf("LastUpdated: got %v", got.LastUpdated)
	}
}

func TestFromModelRejectsCorruptRows(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"provider id of wrong kind", func() error {
			_, err := fromProviderModel(&accountModel{ID: id.NewSubscriberID().String()})
			return err
		}},
		{"provider fee not a number", func() error {
			_, err := fromProviderModel(&accountModel{ID: id.NewProviderID().String(), FeePerSecond: "ten"})
			return err
		}},
		{"subscriber balance not a number", func() error {
			_, err := fromSubscriberModel(&accountModel{ID: id.NewSubscriberID().String(), Balance: "1.5"})
			return err
		}},
		{"subscriber set holds a subscriber id", func() error {
			_, err := fromSubscriberModel(&accountModel{
				ID:            id.NewSubscriberID().String(),
				Subscriptions: `["` + id.NewSubscriberID().String() + `"]`,
			})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.fn() == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBatchModelsOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := provider.New(id.NewProviderID(), "alice", types.Units(1), now)
	s := subscriber.New(id.NewSubscriberID(), "bob", types.Units(5), now)

	models, err := batchModels([]*provider.Provider{p}, []*subscriber.Subscriber{s})
	if err != nil {
		t.Fatalf("batchModels: %v", err)
	}
	if len(models) != 2 || models[0].ID != p.ID.String() || models[1].ID != s.ID.String() {
		t.Errorf("unexpected rows %+v", models)
	}
}
