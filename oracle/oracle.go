// Package oracle provides payment token prices for threshold checks.
//
// Prices are fixed-point integers in the smallest unit of the reference
// currency per whole payment token. Every implementation fails closed: an
// unavailable, stale or non-positive price is an error, never a default.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/streamfee/types"
)

var (
	ErrUnavailable  = errors.New("oracle: price unavailable")
	ErrStalePrice   = errors.New("oracle: price is stale")
	ErrInvalidPrice = errors.New("oracle: invalid price")
)

// Oracle returns the current reference value of one whole payment token.
type Oracle interface {
	PaymentTokenPrice(ctx context.Context) (Price, error)
}

// Price is a reference-currency quote for one whole payment token.
type Price struct {
	Value     types.Amount `json:"value"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Quote converts amount (in smallest token units) to reference units:
// amount * Value / 10^tokenDecimals, rounded down.
func (p Price) Quote(amount types.Amount, tokenDecimals uint32) types.Amount {
	return types.OrZero(amount).Mul(types.OrZero(p.Value)).Quo(types.Pow10(tokenDecimals))
}

func validate(p Price) error {
	if p.Value.IsNil() || !p.Value.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidPrice, types.OrZero(p.Value))
	}
	return nil
}

// Static always returns the same price. Intended for tests and for tokens
// pegged by construction.
type Static struct {
	Value types.Amount
}

func (s Static) PaymentTokenPrice(_ context.Context) (Price, error) {
	p := Price{Value: s.Value, UpdatedAt: time.Now().UTC()}
	if err := validate(p); err != nil {
		return Price{}, err
	}
	return p, nil
}

// Feed holds the last price published by an external updater and refuses
// to serve it once it is older than MaxAge.
type Feed struct {
	mu     sync.RWMutex
	last   *Price
	maxAge time.Duration
	now    func() time.Time
}

// FeedOption configures a Feed.
type FeedOption func(*Feed)

// WithClock overrides the wall clock used for staleness checks.
func WithClock(now func() time.Time) FeedOption {
	return func(f *Feed) { f.now = now }
}

// NewFeed creates an empty feed. A non-positive maxAge disables staleness
// checks.
func NewFeed(maxAge time.Duration, opts ...FeedOption) *Feed {
	f := &Feed{maxAge: maxAge, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Publish records a new price observed at updatedAt. Out-of-order updates
// older than the current price are ignored.
func (f *Feed) Publish(value types.Amount, updatedAt time.Time) error {
	p := Price{Value: value, UpdatedAt: updatedAt.UTC()}
	if err := validate(p); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.last != nil && updatedAt.Before(f.last.UpdatedAt) {
		return nil
	}
	f.last = &p
	return nil
}

func (f *Feed) PaymentTokenPrice(ctx context.Context) (Price, error) {
	if err := ctx.Err(); err != nil {
		return Price{}, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.last == nil {
		return Price{}, ErrUnavailable
	}
	if f.maxAge > 0 {
		if age := f.now().Sub(f.last.UpdatedAt); age > f.maxAge {
			return Price{}, fmt.Errorf("%w: age %s exceeds %s", ErrStalePrice, age.Truncate(time.Second), f.maxAge)
		}
	}
	return *f.last, nil
}
