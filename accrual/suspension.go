package accrual

import (
	"fmt"
	"time"

	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/provider"
	"github.com/xraph/streamfee/subscriber"
	"github.com/xraph/streamfee/types"
)

// Lookup resolves a provider id against a ledger snapshot.
type Lookup func(providerID id.ProviderID) (*provider.Provider, bool)

// MapLookup adapts a map keyed by id string to a Lookup.
func MapLookup(m map[string]*provider.Provider) Lookup {
	return func(providerID id.ProviderID) (*provider.Provider, bool) {
		p, ok := m[providerID.String()]
		return p, ok
	}
}

// Refund is the outcome of validating a suspension claim list.
type Refund struct {
	// Credit cancels the post-suspension share of the base charge.
	Credit types.Amount
	// Evict lists the claimed providers that are actually suspended.
	Evict []id.ProviderID
	// EvictedRate is the sum of FeePerSecond over Evict.
	EvictedRate types.Amount
}

// SuspensionRefund validates claimed against s and computes the refund for
// every claimed provider that is suspended.
//
// The refund for one provider covers [suspendedAt, now) at that provider's
// FeePerSecond. The rate stays in AggregateFeePerSecond until the claim
// evicts it, so every settlement since the suspension charged it, whether
// or not that settlement carried a claim. Claimed providers that are still
// active are validated but contribute nothing and stay subscribed.
func SuspensionRefund(s *subscriber.Subscriber, now time.Time, claimed []id.ProviderID, lookup Lookup) (Refund, error) {
	out := Refund{Credit: types.Zero(), EvictedRate: types.Zero()}
	if len(claimed) == 0 {
		return out, nil
	}

	seen := make(map[string]struct{}, len(claimed))
	for _, pid := range claimed {
		key := pid.String()
		if _, dup := seen[key]; dup {
			return Refund{}, fmt.Errorf("%w: %s", ErrDuplicateClaim, key)
		}
		seen[key] = struct{}{}

		p, ok := lookup(pid)
		if !ok {
			return Refund{}, fmt.Errorf("%w: %s", ErrUnknownProvider, key)
		}
		if !s.IsSubscribed(pid) {
			return Refund{}, fmt.Errorf("%w: %s", ErrNotSubscribed, key)
		}
		if !p.IsSuspended() || p.SuspendedAt == nil {
			continue
		}

		fee := types.OrZero(p.FeePerSecond)
		out.Credit = out.Credit.Add(Elapsed(*p.SuspendedAt, now).Mul(fee))
		out.Evict = append(out.Evict, pid)
		out.EvictedRate = out.EvictedRate.Add(fee)
	}
	return out, nil
}
