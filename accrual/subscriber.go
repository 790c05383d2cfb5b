package accrual

import (
	"time"

	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/subscriber"
	"github.com/xraph/streamfee/types"
)

// SubscriberState is a subscriber's balance settled as of LastUpdated.
type SubscriberState struct {
	Balance     types.Amount
	LastUpdated time.Time
	// Charge is the base charge over all current subscriptions.
	Charge types.Amount
	Refund
}

// ComputeSubscriberState settles s as of now.
//
//	balance + refund - (now - lastUpdated) * aggregateFeePerSecond
//
// The base charge covers every current subscription, including the ones
// about to be evicted; the refund cancels their post-suspension share.
func ComputeSubscriberState(s *subscriber.Subscriber, now time.Time, claimed []id.ProviderID, lookup Lookup) (SubscriberState, error) {
	refund, err := SuspensionRefund(s, now, claimed, lookup)
	if err != nil {
		return SubscriberState{}, err
	}

	charge := Elapsed(s.LastUpdated, now).Mul(types.OrZero(s.AggregateFeePerSecond))
	last := s.LastUpdated
	if now.After(last) {
		last = now
	}
	return SubscriberState{
		Balance:     types.OrZero(s.Balance).Add(refund.Credit).Sub(charge),
		LastUpdated: last,
		Charge:      charge,
		Refund:      refund,
	}, nil
}

// Apply writes st into s: the settled balance and timestamp, and removal of
// every evicted provider together with its rate.
func Apply(s *subscriber.Subscriber, st SubscriberState) {
	s.Balance = st.Balance
	s.LastUpdated = st.LastUpdated
	rate := types.OrZero(s.AggregateFeePerSecond)
	for _, pid := range st.Evict {
		s.Subscriptions.Remove(pid)
	}
	if len(st.Evict) > 0 {
		rate = rate.Sub(st.EvictedRate)
	}
	s.AggregateFeePerSecond = rate
	s.Touch(st.LastUpdated)
}
