// Package accrual computes lazily settled balances.
//
// Nothing in this package performs I/O or mutates its inputs unless the
// function name says so (Settle*, Apply). Given the same records and the
// same instant, every function returns the same result, which is what lets
// read projections and mutating operations share one code path.
//
// Time is measured in whole seconds. Callers are expected to truncate now
// to the second; sub-second components are discarded here as well.
package accrual

import (
	"time"

	"github.com/xraph/streamfee/provider"
	"github.com/xraph/streamfee/types"
)

// Elapsed returns the whole seconds from from to to as an Amount.
// Negative intervals are clamped to zero.
func Elapsed(from, to time.Time) types.Amount {
	secs := int64(to.Sub(from) / time.Second)
	if secs <= 0 {
		return types.Zero()
	}
	return types.Units(secs)
}

// EffectiveNow caps now at the provider's suspension instant.
func EffectiveNow(p *provider.Provider, now time.Time) time.Time {
	if p.SuspendedAt != nil && p.SuspendedAt.Before(now) {
		return *p.SuspendedAt
	}
	return now
}

// ProviderPendingFees returns the provider's pending fees settled as of now.
//
//	pending + (min(now, suspendedAt) - lastUpdated) * subscriberCount * feePerSecond
func ProviderPendingFees(p *provider.Provider, now time.Time) types.Amount {
	pending := types.OrZero(p.PendingFees)
	if p.SubscriberCount <= 0 {
		return pending
	}
	elapsed := Elapsed(p.LastUpdated, EffectiveNow(p, now))
	if elapsed.IsZero() {
		return pending
	}
	accrued := elapsed.MulRaw(p.SubscriberCount).Mul(types.OrZero(p.FeePerSecond))
	return pending.Add(accrued)
}

// SettleProvider writes the settled pending fees into p and advances
// LastUpdated to now. LastUpdated never moves backwards.
func SettleProvider(p *provider.Provider, now time.Time) {
	p.PendingFees = ProviderPendingFees(p, now)
	if now.After(p.LastUpdated) {
		p.LastUpdated = now
	}
	p.Touch(now)
}

// Slashable reports whether a settled balance is below the slash threshold.
func Slashable(balance, threshold types.Amount) bool {
	return types.OrZero(balance).LT(types.OrZero(threshold))
}
