package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/provider"
	"github.com/xraph/streamfee/subscriber"
	"github.com/xraph/streamfee/types"
)

// Account kinds stored in the kind column.
const (
	kindProvider   = "provider"
	kindSubscriber = "subscriber"
)

// accountModel is one row of streamfee_accounts. SQLite has no JSON column
// type, so the subscription set is kept as JSON text. Amounts are decimal
// strings to stay exact beyond 64 bits.
type accountModel struct {
	grove.BaseModel `grove:"table:streamfee_accounts"`

	ID              string     `grove:"id,pk"`
	Kind            string     `grove:"kind"`
	Owner           string     `grove:"owner"`
	Status          string     `grove:"status"`
	FeePerSecond    string     `grove:"fee_per_second"`
	SubscriberCount int64      `grove:"subscriber_count"`
	PendingFees     string     `grove:"pending_fees"`
	FeesCollected   string     `grove:"fees_collected"`
	SuspendedAt     *time.Time `grove:"suspended_at"`
	Balance         string     `grove:"balance"`
	AggregateFee    string     `grove:"aggregate_fee"`
	Subscriptions   string     `grove:"subscriptions"`
	LastUpdated     time.Time  `grove:"last_updated"`
	CreatedAt       time.Time  `grove:"created_at"`
	UpdatedAt       time.Time  `grove:"updated_at"`
}

// ==================== Provider models ====================

func toProviderModel(p *provider.Provider) *accountModel {
	return &accountModel{
		ID:              p.ID.String(),
		Kind:            kindProvider,
		Owner:           p.Owner,
		Status:          string(p.Status),
		FeePerSecond:    types.OrZero(p.FeePerSecond).String(),
		SubscriberCount: p.SubscriberCount,
		PendingFees:     types.OrZero(p.PendingFees).String(),
		FeesCollected:   types.OrZero(p.FeesCollected).String(),
		SuspendedAt:     p.SuspendedAt,
		Balance:         "0",
		AggregateFee:    "0",
		Subscriptions:   "[]",
		LastUpdated:     p.LastUpdated,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func fromProviderModel(m *accountModel) (*provider.Provider, error) {
	providerID, err := id.ParseProviderID(m.ID)
	if err != nil {
		return nil, err
	}

	fee, err := types.ParseAmount(m.FeePerSecond)
	if err != nil {
		return nil, fmt.Errorf("fee_per_second: %w", err)
	}
	pending, err := types.ParseAmount(m.PendingFees)
	if err != nil {
		return nil, fmt.Errorf("pending_fees: %w", err)
	}
	collected, err := types.ParseAmount(m.FeesCollected)
	if err != nil {
		return nil, fmt.Errorf("fees_collected: %w", err)
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
		FeePerSecond:    fee,
		SubscriberCount: m.SubscriberCount,
		PendingFees:     pending,
		FeesCollected:   collected,
		LastUpdated:     m.LastUpdated.UTC(),
		Status:          provider.Status(m.Status),
		SuspendedAt:     suspendedAt,
	}, nil
}

// ==================== Subscriber models ====================

func toSubscriberModel(s *subscriber.Subscriber) (*accountModel, error) {
	subs, err := json.Marshal(s.Subscriptions)
	if err != nil {
		return nil, err
	}

	return &accountModel{
		ID:              s.ID.String(),
		Kind:            kindSubscriber,
		Owner:           s.Owner,
		FeePerSecond:    "0",
		SubscriberCount: 0,
		PendingFees:     "0",
		FeesCollected:   "0",
		Balance:         types.OrZero(s.Balance).String(),
		AggregateFee:    types.OrZero(s.AggregateFeePerSecond).String(),
		Subscriptions:   string(subs),
		LastUpdated:     s.LastUpdated,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}, nil
}

func fromSubscriberModel(m *accountModel) (*subscriber.Subscriber, error) {
	subscriberID, err := id.ParseSubscriberID(m.ID)
	if err != nil {
		return nil, err
	}

	balance, err := types.ParseAmount(m.Balance)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	aggregate, err := types.ParseAmount(m.AggregateFee)
	if err != nil {
		return nil, fmt.Errorf("aggregate_fee: %w", err)
	}

	var subs subscriber.Set
	if m.Subscriptions != "" {
		if err := json.Unmarshal([]byte(m.Subscriptions), &subs); err != nil {
			return nil, fmt.Errorf("subscriptions: %w", err)
		}
	}

	return &subscriber.Subscriber{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:                    subscriberID,
		Owner:                 m.Owner,
		Balance:               balance,
		Subscriptions:         subs,
		AggregateFeePerSecond: aggregate,
		LastUpdated:           m.LastUpdated.UTC(),
	}, nil
}

// batchModels flattens a batch into rows, providers first.
func batchModels(providers []*provider.Provider, subscribers []*subscriber.Subscriber) ([]accountModel, error) {
	models := make([]accountModel, 0, len(providers)+len(subscribers))
	for _, p := range providers {
		models = append(models, *toProviderModel(p))
	}
	for _, s := range subscribers {
		m, err := toSubscriberModel(s)
		if err != nil {
			return nil, err
		}
		models = append(models, *m)
	}
	return models, nil
}
