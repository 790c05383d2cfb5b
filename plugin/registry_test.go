package plugin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/types"
)

type recorder struct {
	mu     sync.Mutex
	name   string
	events []string
	fail   bool
	block  bool
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) record(event string) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	if r.block {
		time.Sleep(time.Second)
	}
	if r.fail {
		return errors.New("boom")
	}
	return nil
}

func (r *recorder) OnSubscribed(_ context.Context, _ id.SubscriberID, _ id.ProviderID) error {
	return r.record("subscribed")
}

func (r *recorder) OnDeposited(_ context.Context, _ id.SubscriberID, _ types.Amount) error {
	return r.record("deposited")
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func quietRegistry() *Registry {
	return NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := quietRegistry()
	if err := r.Register(&recorder{name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&recorder{name: "a"}); err == nil {
		t.Error("expected duplicate registration error")
	}
	if r.Count() != 1 || r.Get("a") == nil || r.Get("b") != nil {
		t.Errorf("unexpected registry state: %d plugins", r.Count())
	}
}

func TestDispatchOnlyToImplementers(t *testing.T) {
	r := quietRegistry()
	rec := &recorder{name: "rec"}
	_ = r.Register(rec)

	ctx := context.Background()
	r.EmitSubscribed(ctx, id.NewSubscriberID(), id.NewProviderID())
	r.EmitDeposited(ctx, id.NewSubscriberID(), types.Units(5))
	r.EmitFeesWithdrawn(ctx, id.NewProviderID(), "alice", types.Units(1))

	got := rec.seen()
	if len(got) != 2 || got[0] != "subscribed" || got[1] != "deposited" {
		t.Errorf("unexpected events %v", got)
	}
}

func TestFailingPluginDoesNotStopOthers(t *testing.T) {
	r := quietRegistry()
	bad := &recorder{name: "bad", fail: true}
	good := &recorder{name: "good"}
	_ = r.Register(bad)
	_ = r.Register(good)

	r.EmitDeposited(context.Background(), id.NewSubscriberID(), types.Units(1))

	if len(good.seen()) != 1 {
		t.Error("good plugin was not called after a failing one")
	}
}

func TestSlowPluginTimesOut(t *testing.T) {
	r := quietRegistry().WithTimeout(10 * time.Millisecond)
	slow := &recorder{name: "slow", block: true}
	_ = r.Register(slow)

	start := time.Now()
	r.EmitDeposited(context.Background(), id.NewSubscriberID(), types.Units(1))
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("emit blocked for %s", elapsed)
	}
}

func TestImplementedInterfaces(t *testing.T) {
	got := implementedInterfaces(&recorder{})
	if len(got) != 2 {
		t.Errorf("got %v", got)
	}
}
