package streamfee_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/streamfee"
	"github.com/xraph/streamfee/custody"
	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/oracle"
	"github.com/xraph/streamfee/provider"
	"github.com/xraph/streamfee/store"
	"github.com/xraph/streamfee/store/memory"
	"github.com/xraph/streamfee/subscriber"
	"github.com/xraph/streamfee/types"
)

var epoch = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// At moves the clock to epoch + secs.
func (c *fakeClock) At(secs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = epoch.Add(time.Duration(secs) * time.Second)
}

func (c *fakeClock) Advance(secs int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Duration(secs) * time.Second)
}

// flakyStore fails Commit while failCommit is set.
type flakyStore struct {
	*memory.Store
	failCommit bool
}

func (s *flakyStore) Commit(ctx context.Context, b *store.Batch) error {
	if s.failCommit {
		return errors.New("disk full")
	}
	return s.Store.Commit(ctx, b)
}

// flakyVault fails Push while failPush is set.
type flakyVault struct {
	*custody.Vault
	failPush bool
}

func (v *flakyVault) Push(ctx context.Context, to string, amount types.Amount) error {
	if v.failPush {
		return errors.New("bridge offline")
	}
	return v.Vault.Push(ctx, to, amount)
}

type harness struct {
	t      *testing.T
	engine *streamfee.Engine
	clock  *fakeClock
	store  *flakyStore
	vault  *flakyVault
}

// Thresholds used by the harness: token has no decimals and is worth one
// reference unit, so a fee of 1/s is worth 2,592,000 per month.
const (
	testMinMonthly = 2_592_000
	testMinDeposit = 100
	testSlashAt    = 100
)

func newHarness(t *testing.T, opts ...streamfee.Option) *harness {
	t.Helper()

	h := &harness{
		t:     t,
		clock: &fakeClock{now: epoch},
		store: &flakyStore{Store: memory.New()},
		vault: &flakyVault{Vault: custody.NewVault()},
	}
	base := []streamfee.Option{
		streamfee.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		streamfee.WithClock(h.clock),
		streamfee.WithTokenDecimals(0),
		streamfee.WithThresholds(types.Units(testMinMonthly), types.Units(testMinDeposit)),
		streamfee.WithSlashThreshold(types.Units(testSlashAt)),
	}
	h.engine = streamfee.New(h.store, oracle.Static{Value: types.Units(1)}, h.vault, append(base, opts...)...)
	if err := h.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return h
}

func as(owner string) context.Context {
	return streamfee.WithCaller(context.Background(), owner)
}

func (h *harness) provider(owner string, fee int64) id.ProviderID {
	h.t.Helper()
	p, err := h.engine.RegisterProvider(as(owner), id.Nil, types.Units(fee))
	if err != nil {
		h.t.Fatalf("RegisterProvider: %v", err)
	}
	return p.ID
}

func (h *harness) subscriber(owner string, deposit int64) id.SubscriberID {
	h.t.Helper()
	h.vault.Fund(owner, types.Units(deposit))
	s, err := h.engine.RegisterSubscriber(as(owner), id.Nil, types.Units(deposit))
	if err != nil {
		h.t.Fatalf("RegisterSubscriber: %v", err)
	}
	return s.ID
}

func (h *harness) subscribe(owner string, sid id.SubscriberID, pid id.ProviderID, claimed ...id.ProviderID) {
	h.t.Helper()
	if err := h.engine.Subscribe(as(owner), sid, pid, claimed); err != nil {
		h.t.Fatalf("Subscribe: %v", err)
	}
}

func (h *harness) storedProvider(pid id.ProviderID) *provider.Provider {
	h.t.Helper()
	p, err := h.store.GetProvider(context.Background(), pid)
	if err != nil {
		h.t.Fatalf("GetProvider: %v", err)
	}
	return p
}

func (h *harness) storedSubscriber(sid id.SubscriberID) *subscriber.Subscriber {
	h.t.Helper()
	s, err := h.store.GetSubscriber(context.Background(), sid)
	if err != nil {
		h.t.Fatalf("GetSubscriber: %v", err)
	}
	return s
}

func wantAmount(t *testing.T, what string, got types.Amount, want int64) {
	t.Helper()
	if !got.Equal(types.Units(want)) {
		t.Errorf("%s: got %s, want %d", what, got, want)
	}
}
