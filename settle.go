package streamfee

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/streamfee/accrual"
	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/provider"
	"github.com/xraph/streamfee/store"
	"github.com/xraph/streamfee/subscriber"
	"github.com/xraph/streamfee/types"
)

// unitOfWork stages one operation. Records are loaded once, mutated as
// private copies and committed together; the pre-images are kept so a
// failed payout can put the ledger back.
type unitOfWork struct {
	e     *Engine
	now   time.Time
	batch *store.Batch

	providers map[string]*provider.Provider
	original  map[string]*provider.Provider
	subOrig   map[string]*subscriber.Subscriber
}

func (e *Engine) begin() *unitOfWork {
	return &unitOfWork{
		e:         e,
		now:       e.now(),
		batch:     store.NewBatch(),
		providers: make(map[string]*provider.Provider),
		original:  make(map[string]*provider.Provider),
		subOrig:   make(map[string]*subscriber.Subscriber),
	}
}

// provider returns the working copy of a provider, loading it on first use.
func (u *unitOfWork) provider(ctx context.Context, providerID id.ProviderID) (*provider.Provider, error) {
	key := providerID.String()
	if p, ok := u.providers[key]; ok {
		return p, nil
	}
	p, err := u.e.store.GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	u.original[key] = p.Clone()
	u.providers[key] = p
	return p, nil
}

func (u *unitOfWork) subscriber(ctx context.Context, subscriberID id.SubscriberID) (*subscriber.Subscriber, error) {
	s, err := u.e.store.GetSubscriber(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	u.subOrig[s.ID.String()] = s.Clone()
	return s, nil
}

// claims loads every claimed provider that exists. Unknown ids are left
// for accrual to reject.
func (u *unitOfWork) claims(ctx context.Context, claimed []id.ProviderID) error {
	for _, pid := range claimed {
		if pid.Prefix() != id.PrefixProvider {
			return ValidationError{Field: "claimed_suspended_ids", Message: fmt.Sprintf("%q is not a provider id", pid.String())}
		}
		if _, err := u.provider(ctx, pid); err != nil && !IsNotFound(err) {
			return err
		}
	}
	return nil
}

func (u *unitOfWork) lookup() accrual.Lookup {
	return accrual.MapLookup(u.providers)
}

// settleProvider settles p to now and stages it.
func (u *unitOfWork) settleProvider(p *provider.Provider) {
	accrual.SettleProvider(p, u.now)
	u.batch.PutProvider(p)
}

// settleSubscriber settles s to now with the given suspension claims and
// applies evictions to both sides. Each evicted provider is settled before
// its count drops so that accrual up to its suspension uses the old count.
func (u *unitOfWork) settleSubscriber(ctx context.Context, s *subscriber.Subscriber, claimed []id.ProviderID) (accrual.SubscriberState, error) {
	if err := u.claims(ctx, claimed); err != nil {
		return accrual.SubscriberState{}, err
	}
	st, err := accrual.ComputeSubscriberState(s, u.now, claimed, u.lookup())
	if err != nil {
		return accrual.SubscriberState{}, err
	}

	for _, pid := range st.Evict {
		p := u.providers[pid.String()]
		u.settleProvider(p)
		p.SubscriberCount--
	}
	accrual.Apply(s, st)
	u.batch.PutSubscriber(s)
	return st, nil
}

// join adds p to s's subscriptions.
func (u *unitOfWork) join(s *subscriber.Subscriber, p *provider.Provider) {
	u.settleProvider(p)
	p.SubscriberCount++
	s.Subscriptions.Add(p.ID)
	s.AggregateFeePerSecond = types.OrZero(s.AggregateFeePerSecond).Add(p.FeePerSecond)
	u.batch.PutSubscriber(s)
}

// leave removes p from s's subscriptions. It reports false when s was not
// subscribed to p.
func (u *unitOfWork) leave(s *subscriber.Subscriber, p *provider.Provider) bool {
	if !s.Subscriptions.Remove(p.ID) {
		return false
	}
	u.settleProvider(p)
	p.SubscriberCount--
	s.AggregateFeePerSecond = types.OrZero(s.AggregateFeePerSecond).Sub(p.FeePerSecond)
	u.batch.PutSubscriber(s)
	return true
}

// commit writes the staged batch.
func (u *unitOfWork) commit(ctx context.Context, op string) error {
	if err := u.e.store.Commit(ctx, u.batch); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCommitFailed, op, err)
	}
	u.e.logger.Debug("settlement committed",
		"op", op,
		"providers", len(u.batch.Providers()),
		"subscribers", len(u.batch.Subscribers()),
		"at", u.now,
	)
	return nil
}

// rollback re-commits the pre-image of every staged record.
func (u *unitOfWork) rollback(ctx context.Context) error {
	pre := store.NewBatch()
	for _, p := range u.batch.Providers() {
		if orig, ok := u.original[p.ID.String()]; ok {
			pre.PutProvider(orig)
		}
	}
	for _, s := range u.batch.Subscribers() {
		if orig, ok := u.subOrig[s.ID.String()]; ok {
			pre.PutSubscriber(orig)
		}
	}
	return u.e.store.Commit(ctx, pre)
}

// payout commits the batch and then pushes amount to recipient. A failed
// push rolls the ledger back to its pre-image.
func (u *unitOfWork) payout(ctx context.Context, op, recipient string, amount types.Amount) error {
	if err := u.commit(ctx, op); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return nil
	}
	if err := u.e.custody.Push(ctx, recipient, amount); err != nil {
		transferErr := fmt.Errorf("%w: %s: %w", ErrTransferFailed, op, err)
		if rbErr := u.rollback(context.WithoutCancel(ctx)); rbErr != nil {
			u.e.logger.Error("rollback after failed payout",
				"op", op,
				"recipient", recipient,
				"amount", amount.String(),
				"error", rbErr,
			)
			return errors.Join(transferErr, rbErr)
		}
		return transferErr
	}
	return nil
}

// pull moves amount from the caller into custody before anything is
// committed. The returned refund function returns the funds when the
// commit that follows fails.
func (e *Engine) pull(ctx context.Context, op, from string, amount types.Amount) (func(error) error, error) {
	if err := e.custody.Pull(ctx, from, amount); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransferFailed, op, err)
	}
	refund := func(cause error) error {
		if err := e.custody.Push(context.WithoutCancel(ctx), from, amount); err != nil {
			e.logger.Error("refund after failed commit",
				"op", op,
				"account", from,
				"amount", amount.String(),
				"error", err,
			)
			return errors.Join(cause, err)
		}
		return cause
	}
	return refund, nil
}
