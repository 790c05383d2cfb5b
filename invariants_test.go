package streamfee_test

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/provider"
	"github.com/xraph/streamfee/subscriber"
	"github.com/xraph/streamfee/types"
)

type world struct {
	h           *harness
	faker       *gofakeit.Faker
	providers   []id.ProviderID
	owners      map[string]string
	subscribers []id.SubscriberID

	// unclaimed makes some settlements skip their suspension claims.
	unclaimed bool
}

func newWorld(t *testing.T, seed uint64) *world {
	w := &world{
		h:      newHarness(t),
		faker:  gofakeit.New(seed),
		owners: make(map[string]string),
	}
	for i := 0; i < 5; i++ {
		owner := "provider-" + w.faker.LetterN(6)
		pid := w.h.provider(owner, int64(w.faker.IntRange(1, 9)))
		w.providers = append(w.providers, pid)
		w.owners[pid.String()] = owner
	}
	for i := 0; i < 8; i++ {
		owner := "subscriber-" + w.faker.LetterN(6)
		sid := w.h.subscriber(owner, int64(w.faker.IntRange(200, 5000)))
		w.subscribers = append(w.subscribers, sid)
		w.owners[sid.String()] = owner
	}
	w.h.vault.Fund("whale", types.Units(1_000_000_000))
	return w
}

func (w *world) pickProvider() id.ProviderID {
	return w.providers[w.faker.IntRange(0, len(w.providers)-1)]
}

func (w *world) pickSubscriber() id.SubscriberID {
	return w.subscribers[w.faker.IntRange(0, len(w.subscribers)-1)]
}

// suspendedClaims returns every suspended provider sid is subscribed to.
func (w *world) suspendedClaims(sid id.SubscriberID) []id.ProviderID {
	s := w.h.storedSubscriber(sid)
	var out []id.ProviderID
	for _, pid := range s.Subscriptions.Items() {
		if w.h.storedProvider(pid).IsSuspended() {
			out = append(out, pid)
		}
	}
	return out
}

// claims is what the subscriber's owner passes as the claim list. With
// unclaimed set, a third of the calls settle without claiming.
func (w *world) claims(sid id.SubscriberID) []id.ProviderID {
	if w.unclaimed && w.faker.IntRange(0, 2) == 0 {
		return nil
	}
	return w.suspendedClaims(sid)
}

// step runs one random operation. Precondition failures are expected and
// ignored; the invariants must hold regardless.
func (w *world) step(allowSuspend bool) {
	w.h.clock.Advance(w.faker.IntRange(0, 30))
	sid := w.pickSubscriber()
	pid := w.pickProvider()
	sOwner := as(w.owners[sid.String()])

	switch op := w.faker.IntRange(0, 9); {
	case op <= 2:
		_ = w.h.engine.Subscribe(sOwner, sid, pid, w.claims(sid))
	case op <= 4:
		_ = w.h.engine.Unsubscribe(sOwner, sid, pid, w.claims(sid))
	case op == 5:
		_ = w.h.engine.Deposit(as("whale"), sid, types.Units(int64(w.faker.IntRange(1, 500))))
	case op == 6:
		_, _ = w.h.engine.WithdrawProviderFees(as(w.owners[pid.String()]), pid, "treasury")
	case op == 7:
		if len(w.suspendedClaims(sid)) == 0 {
			_, _ = w.h.engine.SlashSubscriber(context.Background(), sid, "slasher")
		}
	case op == 8:
		if allowSuspend && w.faker.IntRange(0, 4) == 0 {
			_, _ = w.h.engine.SuspendProvider(as(w.owners[pid.String()]), pid, "treasury")
		}
	default:
		_, _ = w.h.engine.GetSubscriberData(context.Background(), sid, w.suspendedClaims(sid))
	}
}

func (w *world) records(t *testing.T) ([]*provider.Provider, []*subscriber.Subscriber) {
	t.Helper()
	ps, err := w.h.engine.ListProviders(context.Background(), provider.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	ss, err := w.h.engine.ListSubscribers(context.Background(), subscriber.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	return ps, ss
}

func (w *world) checkRateAndCount(t *testing.T, step int) {
	t.Helper()
	ps, ss := w.records(t)

	fees := make(map[string]types.Amount, len(ps))
	counts := make(map[string]int64, len(ps))
	for _, p := range ps {
		fees[p.ID.String()] = p.FeePerSecond
	}
	for _, s := range ss {
		sum := types.Zero()
		for _, pid := range s.Subscriptions.Items() {
			sum = sum.Add(fees[pid.String()])
			counts[pid.String()]++
		}
		if !sum.Equal(s.AggregateFeePerSecond) {
			t.Fatalf("step %d: subscriber %s rate %s, sum of fees %s", step, s.ID, s.AggregateFeePerSecond, sum)
		}
	}
	for _, p := range ps {
		if p.SubscriberCount != counts[p.ID.String()] {
			t.Fatalf("step %d: provider %s count %d, members %d", step, p.ID, p.SubscriberCount, counts[p.ID.String()])
		}
	}
}

func TestRateAndCountInvariants(t *testing.T) {
	for _, seed := range []uint64{1, 7, 42, 1234} {
		w := newWorld(t, seed)
		for i := 0; i < 300; i++ {
			w.step(true)
			w.checkRateAndCount(t, i)
		}
	}
}

// Without suspensions every second charged to a subscriber is earned by a
// provider, so custody always equals settled balances plus pending fees.
func TestFundConservation(t *testing.T) {
	for _, seed := range []uint64{3, 99} {
		w := newWorld(t, seed)
		for i := 0; i < 200; i++ {
			w.step(false)

			total := types.Zero()
			for _, sid := range w.subscribers {
				view, err := w.h.engine.GetSubscriberData(context.Background(), sid, nil)
				if err != nil {
					t.Fatal(err)
				}
				total = total.Add(view.Subscriber.Balance)
			}
			for _, pid := range w.providers {
				earnings, err := w.h.engine.GetProviderEarnings(context.Background(), pid)
				if err != nil {
					t.Fatal(err)
				}
				total = total.Add(earnings.PendingFees)
			}
			if held := w.h.vault.Held(); !held.Equal(total) {
				t.Fatalf("step %d: custody %s, ledger %s", i, held, total)
			}
		}
	}
}

// With suspensions, the ledger is whole once every suspended provider is
// claimed, even when earlier settlements skipped their claims.
func TestFundConservationWithClaims(t *testing.T) {
	for _, seed := range []uint64{2024, 5, 77} {
		w := newWorld(t, seed)
		w.unclaimed = true
		for i := 0; i < 250; i++ {
			w.step(true)

			total := types.Zero()
			for _, sid := range w.subscribers {
				view, err := w.h.engine.GetSubscriberData(context.Background(), sid, w.suspendedClaims(sid))
				if err != nil {
					t.Fatal(err)
				}
				total = total.Add(view.Subscriber.Balance)
			}
			for _, pid := range w.providers {
				earnings, err := w.h.engine.GetProviderEarnings(context.Background(), pid)
				if err != nil {
					t.Fatal(err)
				}
				total = total.Add(earnings.PendingFees)
			}
			if held := w.h.vault.Held(); !held.Equal(total) {
				t.Fatalf("seed %d step %d: custody %s, ledger %s", seed, i, held, total)
			}
		}
	}
}

// Repeated settlement at t1 < t2 < t3 charges the same as one settlement
// from t1 to t3.
func TestSettlementHasNoGaps(t *testing.T) {
	faker := gofakeit.New(11)
	h := newHarness(t)

	pid := h.provider("alice", int64(faker.IntRange(1, 5)))
	a := h.subscriber("bob", 100_000)
	b := h.subscriber("carol", 100_000)
	h.subscribe("bob", a, pid)
	h.subscribe("carol", b, pid)

	for i := 0; i < 20; i++ {
		h.clock.Advance(faker.IntRange(1, 60))
		// Slashing a solvent subscriber only settles it.
		if _, err := h.engine.SlashSubscriber(context.Background(), a, "x"); err != nil {
			t.Fatal(err)
		}
	}

	if got, want := h.storedSubscriber(a).Balance, mustBalance(t, h, b); !got.Equal(want) {
		t.Errorf("stepwise %s != single %s", got, want)
	}
}

func mustBalance(t *testing.T, h *harness, sid id.SubscriberID) types.Amount {
	t.Helper()
	v, err := h.engine.GetSubscriberDepositValue(context.Background(), sid, nil)
	if err != nil {
		t.Fatal(err)
	}
	return v
}
