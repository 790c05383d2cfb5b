package streamfee

import (
	"context"

	"github.com/xraph/streamfee/accrual"
	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/provider"
	"github.com/xraph/streamfee/subscriber"
	"github.com/xraph/streamfee/types"
)

// Read projections run the same settlement math as the mutating
// operations against private copies and never commit.

// GetProviderData returns the provider record settled as of now.
func (e *Engine) GetProviderData(ctx context.Context, providerID id.ProviderID) (*provider.Provider, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.store.GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	accrual.SettleProvider(p, e.now())
	return p, nil
}

// GetProviderEarnings returns the provider's pending and collected fees
// settled as of now.
func (e *Engine) GetProviderEarnings(ctx context.Context, providerID id.ProviderID) (*provider.Earnings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.store.GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	pending := accrual.ProviderPendingFees(p, now)
	collected := types.OrZero(p.FeesCollected)
	return &provider.Earnings{
		ProviderID:    p.ID,
		PendingFees:   pending,
		FeesCollected: collected,
		Total:         pending.Add(collected),
		AsOf:          now,
	}, nil
}

// GetSubscriberData returns the subscriber settled as of now with claimed
// applied: suspended claims are refunded and removed from the returned
// subscriptions. The stored record is not changed; the evictions are
// persisted by the subscriber's next mutating call.
func (e *Engine) GetSubscriberData(ctx context.Context, subscriberID id.SubscriberID, claimed []id.ProviderID) (*subscriber.View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u := e.begin()
	s, err := u.subscriber(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	st, err := u.settleSubscriber(ctx, s, claimed)
	if err != nil {
		return nil, err
	}
	return &subscriber.View{
		Subscriber: s,
		Evicted:    st.Evict,
		Refund:     st.Credit,
		AsOf:       u.now,
	}, nil
}

// GetSubscriberDepositValue returns the subscriber's balance settled as of
// now with claimed applied, in payment token units.
func (e *Engine) GetSubscriberDepositValue(ctx context.Context, subscriberID id.SubscriberID, claimed []id.ProviderID) (types.Amount, error) {
	view, err := e.GetSubscriberData(ctx, subscriberID, claimed)
	if err != nil {
		return types.Zero(), err
	}
	return view.Subscriber.Balance, nil
}

// IsSlashable reports whether SlashSubscriber would clear the subscriber
// right now.
func (e *Engine) IsSlashable(ctx context.Context, subscriberID id.SubscriberID) (bool, error) {
	view, err := e.GetSubscriberData(ctx, subscriberID, nil)
	if err != nil {
		return false, err
	}
	return accrual.Slashable(view.Subscriber.Balance, e.slashThreshold), nil
}

// ListProviders returns stored provider records without settlement.
func (e *Engine) ListProviders(ctx context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	return e.store.ListProviders(ctx, opts)
}

// ListSubscribers returns stored subscriber records without settlement.
func (e *Engine) ListSubscribers(ctx context.Context, opts subscriber.ListOpts) ([]*subscriber.Subscriber, error) {
	return e.store.ListSubscribers(ctx, opts)
}
