package streamfee

import (
	"context"
	"fmt"
	"slices"

	"github.com/xraph/streamfee/accrual"
	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/provider"
	"github.com/xraph/streamfee/subscriber"
	"github.com/xraph/streamfee/types"
)

// ──────────────────────────────────────────────────
// Registration
// ──────────────────────────────────────────────────

// RegisterProvider creates an active provider owned by the caller. A nil
// providerID is replaced with a new one. The 30-day revenue at
// feePerSecond must be worth at least the configured minimum.
func (e *Engine) RegisterProvider(ctx context.Context, providerID id.ProviderID, feePerSecond types.Amount) (*provider.Provider, error) {
	ev := e.lock()
	defer e.unlock(ev)

	owner, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if providerID, err = ensureID(providerID, id.PrefixProvider); err != nil {
		return nil, err
	}
	if feePerSecond.IsNil() || feePerSecond.IsNegative() {
		return nil, ValidationError{Field: "fee_per_second", Message: "must not be negative"}
	}

	if _, err := e.store.GetProvider(ctx, providerID); err == nil {
		return nil, ErrProviderExists
	} else if !IsNotFound(err) {
		return nil, err
	}

	monthly := feePerSecond.MulRaw(MonthSeconds)
	if err := e.checkValue(ctx, monthly, e.minMonthlyRevenue, ErrFeeTooLow); err != nil {
		return nil, err
	}

	p := provider.New(providerID, owner, feePerSecond, e.now())
	if err := e.store.CreateProvider(ctx, p); err != nil {
		return nil, err
	}

	e.logger.Debug("provider registered",
		"provider_id", p.ID.String(),
		"owner", owner,
		"fee_per_second", feePerSecond.String(),
	)
	ev.add(func() { e.plugins.EmitProviderRegistered(ctx, p.Clone()) })
	return p, nil
}

// RegisterSubscriber creates a subscriber owned by the caller, funded with
// deposit pulled from the caller. A nil subscriberID is replaced with a new
// one.
func (e *Engine) RegisterSubscriber(ctx context.Context, subscriberID id.SubscriberID, deposit types.Amount) (*subscriber.Subscriber, error) {
	ev := e.lock()
	defer e.unlock(ev)

	owner, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if subscriberID, err = ensureID(subscriberID, id.PrefixSubscriber); err != nil {
		return nil, err
	}
	if deposit.IsNil() || deposit.IsNegative() {
		return nil, ValidationError{Field: "deposit", Message: "must not be negative"}
	}

	if _, err := e.store.GetSubscriber(ctx, subscriberID); err == nil {
		return nil, ErrSubscriberExists
	} else if !IsNotFound(err) {
		return nil, err
	}

	if err := e.checkValue(ctx, deposit, e.minDepositValue, ErrDepositTooLow); err != nil {
		return nil, err
	}

	refund, err := e.pull(ctx, "register_subscriber", owner, deposit)
	if err != nil {
		return nil, err
	}
	s := subscriber.New(subscriberID, owner, deposit, e.now())
	if err := e.store.CreateSubscriber(ctx, s); err != nil {
		return nil, refund(err)
	}

	e.logger.Debug("subscriber registered",
		"subscriber_id", s.ID.String(),
		"owner", owner,
		"deposit", deposit.String(),
	)
	ev.add(func() { e.plugins.EmitSubscriberRegistered(ctx, s.Clone()) })
	return s, nil
}

// checkValue prices amount with the oracle and fails with tooLow when the
// reference value is below minimum. Oracle errors fail the operation.
func (e *Engine) checkValue(ctx context.Context, amount, minimum types.Amount, tooLow error) error {
	price, err := e.oracle.PaymentTokenPrice(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPriceUnavailable, err)
	}
	if value := price.Quote(amount, e.tokenDecimals); value.LT(minimum) {
		return fmt.Errorf("%w: value %s below %s", tooLow,
			types.FormatUnits(value, ReferenceDecimals),
			types.FormatUnits(minimum, ReferenceDecimals))
	}
	return nil
}

func containsID(ids []id.ID, v id.ID) bool {
	return slices.ContainsFunc(ids, func(x id.ID) bool { return x.String() == v.String() })
}

func ensureID(v id.ID, prefix id.Prefix) (id.ID, error) {
	if v.IsNil() {
		return id.New(prefix), nil
	}
	if v.Prefix() != prefix {
		return id.Nil, ValidationError{Field: "id", Message: fmt.Sprintf("expected prefix %q, got %q", prefix, v.Prefix())}
	}
	return v, nil
}

// ──────────────────────────────────────────────────
// Subscriptions
// ──────────────────────────────────────────────────

// Subscribe settles the subscriber (applying any valid suspension claims)
// and the provider, then adds the provider to the subscriber's set.
// Only the subscriber's owner may subscribe.
func (e *Engine) Subscribe(ctx context.Context, subscriberID id.SubscriberID, providerID id.ProviderID, claimed []id.ProviderID) error {
	ev := e.lock()
	defer e.unlock(ev)

	u := e.begin()
	p, err := u.provider(ctx, providerID)
	if err != nil {
		return err
	}
	if !p.IsActive() {
		return ErrProviderSuspended
	}

	s, err := u.subscriber(ctx, subscriberID)
	if err != nil {
		return err
	}
	if err := requireOwner(ctx, s.Owner); err != nil {
		return err
	}
	if s.IsSubscribed(providerID) {
		return ErrAlreadySubscribed
	}

	if _, err := u.settleSubscriber(ctx, s, claimed); err != nil {
		return err
	}
	u.join(s, p)

	if err := u.commit(ctx, "subscribe"); err != nil {
		return err
	}
	ev.add(func() { e.plugins.EmitSubscribed(ctx, subscriberID, providerID) })
	return nil
}

// Unsubscribe settles both sides and removes the provider from the
// subscriber's set. A suspended provider is always claimed, so leaving it
// refunds the time since its suspension. If the same call's claims evict
// the provider, it is removed once and the call succeeds.
func (e *Engine) Unsubscribe(ctx context.Context, subscriberID id.SubscriberID, providerID id.ProviderID, claimed []id.ProviderID) error {
	ev := e.lock()
	defer e.unlock(ev)

	u := e.begin()
	p, err := u.provider(ctx, providerID)
	if err != nil {
		return err
	}

	s, err := u.subscriber(ctx, subscriberID)
	if err != nil {
		return err
	}
	if err := requireOwner(ctx, s.Owner); err != nil {
		return err
	}
	if !s.IsSubscribed(providerID) {
		return ErrNotSubscribed
	}
	if p.IsSuspended() && !containsID(claimed, providerID) {
		claimed = append(slices.Clone(claimed), providerID)
	}

	if _, err := u.settleSubscriber(ctx, s, claimed); err != nil {
		return err
	}
	u.leave(s, p)

	if err := u.commit(ctx, "unsubscribe"); err != nil {
		return err
	}
	ev.add(func() { e.plugins.EmitUnsubscribed(ctx, subscriberID, providerID) })
	return nil
}

// ──────────────────────────────────────────────────
// Funds
// ──────────────────────────────────────────────────

// Deposit pulls amount from the caller and adds it to the subscriber's
// balance. Any caller may top up any subscriber. No time-based settlement
// happens and LastUpdated does not move.
func (e *Engine) Deposit(ctx context.Context, subscriberID id.SubscriberID, amount types.Amount) error {
	ev := e.lock()
	defer e.unlock(ev)

	from, err := requireCaller(ctx)
	if err != nil {
		return err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ValidationError{Field: "amount", Message: "must be positive"}
	}

	u := e.begin()
	s, err := u.subscriber(ctx, subscriberID)
	if err != nil {
		return err
	}
	s.Balance = types.OrZero(s.Balance).Add(amount)
	s.Touch(u.now)
	u.batch.PutSubscriber(s)

	refund, err := e.pull(ctx, "deposit", from, amount)
	if err != nil {
		return err
	}
	if err := u.commit(ctx, "deposit"); err != nil {
		return refund(err)
	}
	ev.add(func() { e.plugins.EmitDeposited(ctx, subscriberID, amount) })
	return nil
}

// WithdrawProviderFees settles the provider and pays its entire pending
// fees to recipient. Only the provider's owner may withdraw.
func (e *Engine) WithdrawProviderFees(ctx context.Context, providerID id.ProviderID, recipient string) (types.Amount, error) {
	ev := e.lock()
	defer e.unlock(ev)

	if recipient == "" {
		return types.Zero(), ValidationError{Field: "recipient", Message: "required"}
	}

	u := e.begin()
	p, err := u.provider(ctx, providerID)
	if err != nil {
		return types.Zero(), err
	}
	if err := requireOwner(ctx, p.Owner); err != nil {
		return types.Zero(), err
	}

	amount := u.collect(p)
	if err := u.payout(ctx, "withdraw_provider_fees", recipient, amount); err != nil {
		return types.Zero(), err
	}
	ev.add(func() { e.plugins.EmitFeesWithdrawn(ctx, providerID, recipient, amount) })
	return amount, nil
}

// SuspendProvider moves the provider from Active to Suspended at now and
// pays out everything accrued up to that instant. Suspension is terminal.
func (e *Engine) SuspendProvider(ctx context.Context, providerID id.ProviderID, recipient string) (types.Amount, error) {
	ev := e.lock()
	defer e.unlock(ev)

	if recipient == "" {
		return types.Zero(), ValidationError{Field: "recipient", Message: "required"}
	}

	u := e.begin()
	p, err := u.provider(ctx, providerID)
	if err != nil {
		return types.Zero(), err
	}
	if err := requireOwner(ctx, p.Owner); err != nil {
		return types.Zero(), err
	}
	if !p.IsActive() {
		return types.Zero(), ErrAlreadySuspended
	}

	// Settle while still active, then freeze accrual at now.
	accrual.SettleProvider(p, u.now)
	suspendedAt := u.now
	p.Status = provider.StatusSuspended
	p.SuspendedAt = &suspendedAt

	amount := u.collect(p)
	if err := u.payout(ctx, "suspend_provider", recipient, amount); err != nil {
		return types.Zero(), err
	}

	e.logger.Debug("provider suspended",
		"provider_id", providerID.String(),
		"suspended_at", suspendedAt,
		"subscribers", p.SubscriberCount,
		"final_payout", amount.String(),
	)
	ev.add(func() { e.plugins.EmitProviderSuspended(ctx, providerID, suspendedAt) })
	ev.add(func() { e.plugins.EmitFeesWithdrawn(ctx, providerID, recipient, amount) })
	return amount, nil
}

// ReactivateProvider is not supported: suspension is one-way.
func (e *Engine) ReactivateProvider(_ context.Context, _ id.ProviderID) error {
	return fmt.Errorf("%w: provider reactivation", ErrNotImplemented)
}

// collect settles p and moves its pending fees into FeesCollected,
// returning the amount to pay out.
func (u *unitOfWork) collect(p *provider.Provider) types.Amount {
	u.settleProvider(p)
	amount := p.PendingFees
	p.FeesCollected = types.OrZero(p.FeesCollected).Add(amount)
	p.PendingFees = types.Zero()
	return amount
}

// ──────────────────────────────────────────────────
// Slashing
// ──────────────────────────────────────────────────

// SlashResult reports the outcome of SlashSubscriber.
type SlashResult struct {
	// Slashed is true when the settled balance was below the threshold.
	Slashed bool
	// Reward is the amount paid to the slasher.
	Reward types.Amount
	// Evicted is the number of subscriptions removed.
	Evicted int
	// Balance is the subscriber's balance after the call. It is negative
	// when the subscriber ran into debt before being slashed.
	Balance types.Amount
}

// SlashSubscriber settles the subscriber without suspension claims. If the
// settled balance is below the slash threshold, every subscription is
// removed and the remaining positive balance is paid to recipient.
// Otherwise only the settled balance is committed. Anyone may call it.
func (e *Engine) SlashSubscriber(ctx context.Context, subscriberID id.SubscriberID, recipient string) (*SlashResult, error) {
	ev := e.lock()
	defer e.unlock(ev)

	if recipient == "" {
		return nil, ValidationError{Field: "recipient", Message: "required"}
	}

	u := e.begin()
	s, err := u.subscriber(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	st, err := u.settleSubscriber(ctx, s, nil)
	if err != nil {
		return nil, err
	}

	res := &SlashResult{Reward: types.Zero()}
	if !accrual.Slashable(st.Balance, e.slashThreshold) {
		if err := u.commit(ctx, "slash_subscriber"); err != nil {
			return nil, err
		}
		res.Balance = s.Balance
		return res, nil
	}

	for _, pid := range s.Subscriptions.Items() {
		p, err := u.provider(ctx, pid)
		if err != nil {
			return nil, fmt.Errorf("slash %s: subscription %s: %w", subscriberID, pid, err)
		}
		u.settleProvider(p)
		p.SubscriberCount--
		res.Evicted++
	}
	s.Subscriptions.Clear()
	s.AggregateFeePerSecond = types.Zero()

	res.Slashed = true
	res.Reward = types.Positive(s.Balance)
	s.Balance = s.Balance.Sub(res.Reward)
	res.Balance = s.Balance
	u.batch.PutSubscriber(s)

	if err := u.payout(ctx, "slash_subscriber", recipient, res.Reward); err != nil {
		return nil, err
	}

	e.logger.Debug("subscriber slashed",
		"subscriber_id", subscriberID.String(),
		"recipient", recipient,
		"reward", res.Reward.String(),
		"evicted", res.Evicted,
		"balance", res.Balance.String(),
	)
	ev.add(func() { e.plugins.EmitSubscriberSlashed(ctx, subscriberID, recipient, res.Reward, res.Evicted) })
	return res, nil
}
