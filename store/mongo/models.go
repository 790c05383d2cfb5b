package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/provider"
	"github.com/xraph/streamfee/subscriber"
	"github.com/xraph/streamfee/types"
)

// ==================== Provider models ====================

type providerModel struct {
	grove.BaseModel `grove:"table:streamfee_providers"`

	ID              string     `grove:"id,pk"            bson:"_id"`
	Owner           string     `grove:"owner"            bson:"owner"`
	Status          string     `grove:"status"           bson:"status"`
	FeePerSecond    string     `grove:"fee_per_second"   bson:"fee_per_second"`
	SubscriberCount int64      `grove:"subscriber_count" bson:"subscriber_count"`
	PendingFees     string     `grove:"pending_fees"     bson:"pending_fees"`
	FeesCollected   string     `grove:"fees_collected"   bson:"fees_collected"`
	SuspendedAt     *time.Time `grove:"suspended_at"     bson:"suspended_at,omitempty"`
	LastUpdated     time.Time  `grove:"last_updated"     bson:"last_updated"`
	CreatedAt       time.Time  `grove:"created_at"       bson:"created_at"`
	UpdatedAt       time.Time  `grove:"updated_at"       bson:"updated_at"`
}

func toProviderModel(p *provider.Provider) *providerModel {
	return &providerModel{
		ID:              p.ID.String(),
		Owner:           p.Owner,
		Status:          string(p.Status),
		FeePerSecond:    types.OrZero(p.FeePerSecond).String(),
		SubscriberCount: p.SubscriberCount,
		PendingFees:     types.OrZero(p.PendingFees).String(),
		FeesCollected:   types.OrZero(p.FeesCollected).String(),
		SuspendedAt:     p.SuspendedAt,
		LastUpdated:     p.LastUpdated,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func fromProviderModel(m *providerModel) (*provider.Provider, error) {
	providerID, err := id.ParseProviderID(m.ID)
	if err != nil {
		return nil, err
	}

	amounts, err := parseAmounts(
		"fee_per_second", m.FeePerSecond,
		"pending_fees", m.PendingFees,
		"fees_collected", m.FeesCollected,
	)
	if err != nil {
		return nil, err
	}

	var suspendedAt *time.Time
	if m.SuspendedAt != nil {
		t := m.SuspendedAt.UTC()
		suspendedAt = &t
	}

	return &provider.Provider{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:              providerID,
		Owner:           m.Owner,
		FeePerSecond:    amounts[0],
		SubscriberCount: m.SubscriberCount,
		PendingFees:     amounts[1],
		FeesCollected:   amounts[2],
		LastUpdated:     m.LastUpdated.UTC(),
		Status:          provider.Status(m.Status),
		SuspendedAt:     suspendedAt,
	}, nil
}

// ==================== Subscriber models ====================

type subscriberModel struct {
	grove.BaseModel `grove:"table:streamfee_subscribers"`

	ID            string    `grove:"id,pk"         bson:"_id"`
	Owner         string    `grove:"owner"         bson:"owner"`
	Balance       string    `grove:"balance"       bson:"balance"`
	Subscriptions []string  `grove:"subscriptions" bson:"subscriptions"`
	AggregateFee  string    `grove:"aggregate_fee" bson:"aggregate_fee"`
	LastUpdated   time.Time `grove:"last_updated"  bson:"last_updated"`
	CreatedAt     time.Time `grove:"created_at"    bson:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"    bson:"updated_at"`
}

func toSubscriberModel(s *subscriber.Subscriber) *subscriberModel {
	return &subscriberModel{
		ID:            s.ID.String(),
		Owner:         s.Owner,
		Balance:       types.OrZero(s.Balance).String(),
		Subscriptions: id.Strings(s.Subscriptions.Items()),
		AggregateFee:  types.OrZero(s.AggregateFeePerSecond).String(),
		LastUpdated:   s.LastUpdated,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func fromSubscriberModel(m *subscriberModel) (*subscriber.Subscriber, error) {
	subscriberID, err := id.ParseSubscriberID(m.ID)
	if err != nil {
		return nil, err
	}

	amounts, err := parseAmounts(
		"balance", m.Balance,
		"aggregate_fee", m.AggregateFee,
	)
	if err != nil {
		return nil, err
	}

	providers, err := id.ParseList(m.Subscriptions, id.PrefixProvider)
	if err != nil {
		return nil, fmt.Errorf("subscriptions: %w", err)
	}

	return &subscriber.Subscriber{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:                    subscriberID,
		Owner:                 m.Owner,
		Balance:               amounts[0],
		Subscriptions:         subscriber.NewSet(providers...),
		AggregateFeePerSecond: amounts[1],
		LastUpdated:           m.LastUpdated.UTC(),
	}, nil
}

// parseAmounts parses name/value pairs in order.
func parseAmounts(pairs ...string) ([]types.Amount, error) {
	out := make([]types.Amount, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		v, err := types.ParseAmount(pairs[i+1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pairs[i], err)
		}
		out = append(out, v)
	}
	return out, nil
}
