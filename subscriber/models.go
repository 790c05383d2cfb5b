// Package subscriber defines subscriber accounts: prepaid balances drawn
// down continuously by every provider the subscriber is subscribed to.
package subscriber

import (
	"time"

	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/types"
)

// Subscriber is the ledger record for one subscriber.
type Subscriber struct {
	types.Entity
	ID    id.SubscriberID `json:"id"`
	Owner string          `json:"owner"`
	// Balance is signed; a negative value is debt left behind by a late slash.
	Balance       types.Amount `json:"balance"`
	Subscriptions Set          `json:"subscriptions"`
	// AggregateFeePerSecond is maintained incrementally and always equals
	// the sum of FeePerSecond over Subscriptions.
	AggregateFeePerSecond types.Amount `json:"aggregate_fee_per_second"`
	LastUpdated           time.Time    `json:"last_updated"`
}

// New creates a subscriber record funded with deposit at now.
func New(subscriberID id.SubscriberID, owner string, deposit types.Amount, now time.Time) *Subscriber {
	return &Subscriber{
		Entity:                types.NewEntity(now),
		ID:                    subscriberID,
		Owner:                 owner,
		Balance:               deposit,
		AggregateFeePerSecond: types.Zero(),
		LastUpdated:           now,
	}
}

// IsSubscribed reports whether providerID is in the subscription set.
func (s *Subscriber) IsSubscribed(providerID id.ProviderID) bool {
	return s.Subscriptions.Contains(providerID)
}

// Clone returns a deep copy.
func (s *Subscriber) Clone() *Subscriber {
	c := *s
	c.Subscriptions = s.Subscriptions.Clone()
	return &c
}

// View is a read-only projection of a subscriber settled as of AsOf.
type View struct {
	Subscriber *Subscriber `json:"subscriber"`
	// Evicted lists claimed providers that are suspended; they are already
	// removed from Subscriber in the projection.
	Evicted []id.ProviderID `json:"evicted,omitempty"`
	// Refund is the credit granted for the post-suspension period.
	Refund types.Amount `json:"refund"`
	AsOf   time.Time    `json:"as_of"`
}
