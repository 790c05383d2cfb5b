// Package observability provides a metrics extension for streamfee that
// records settlement event counts and payout sizes via a MetricFactory.
package observability

import (
	"context"
	"math/big"
	"time"

	"github.com/xraph/streamfee/id"
	"github.com/xraph/streamfee/plugin"
	"github.com/xraph/streamfee/provider"
	"github.com/xraph/streamfee/subscriber"
	"github.com/xraph/streamfee/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnProviderRegistered   = (*MetricsExtension)(nil)
	_ plugin.OnSubscriberRegistered = (*MetricsExtension)(nil)
	_ plugin.OnSubscribed           = (*MetricsExtension)(nil)
	_ plugin.OnUnsubscribed         = (*MetricsExtension)(nil)
	_ plugin.OnDeposited            = (*MetricsExtension)(nil)
	_ plugin.OnFeesWithdrawn        = (*MetricsExtension)(nil)
	_ plugin.OnProviderSuspended    = (*MetricsExtension)(nil)
	_ plugin.OnSubscriberSlashed    = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records settlement metrics.
// Register it as an engine plugin to track them automatically.
type MetricsExtension struct {
	factory MetricFactory

	// Registration metrics
	ProviderRegistered   Counter
	SubscriberRegistered Counter
	InitialDeposit       Histogram

	// Subscription metrics
	Subscribed   Counter
	Unsubscribed Counter

	// Funds metrics
	Deposits        Counter
	DepositAmount   Histogram
	FeesWithdrawn   Counter
	WithdrawnAmount Histogram

	// Enforcement metrics
	ProviderSuspended Counter
	SubscriberSlashed Counter
	SlashReward       Histogram
	SlashEvictions    Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Registration metrics
		ProviderRegistered:   factory.Counter("streamfee.provider.registered"),
		SubscriberRegistered: factory.Counter("streamfee.subscriber.registered"),
		InitialDeposit:       factory.Histogram("streamfee.subscriber.initial_deposit"),

		// Subscription metrics
		Subscribed:   factory.Counter("streamfee.subscription.created"),
		Unsubscribed: factory.Counter("streamfee.subscription.removed"),

		// Funds metrics
		Deposits:        factory.Counter("streamfee.deposit.count"),
		DepositAmount:   factory.Histogram("streamfee.deposit.amount"),
		FeesWithdrawn:   factory.Counter("streamfee.withdrawal.count"),
		WithdrawnAmount: factory.Histogram("streamfee.withdrawal.amount"),

		// Enforcement metrics
		ProviderSuspended: factory.Counter("streamfee.provider.suspended"),
		SubscriberSlashed: factory.Counter("streamfee.subscriber.slashed"),
		SlashReward:       factory.Histogram("streamfee.slash.reward"),
		SlashEvictions:    factory.Counter("streamfee.slash.evictions"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// OnProviderRegistered implements plugin.OnProviderRegistered.
func (m *MetricsExtension) OnProviderRegistered(_ context.Context, _ *provider.Provider) error {
	m.ProviderRegistered.Inc()
	return nil
}

// OnSubscriberRegistered implements plugin.OnSubscriberRegistered.
func (m *MetricsExtension) OnSubscriberRegistered(_ context.Context, s *subscriber.Subscriber) error {
	m.SubscriberRegistered.Inc()
	m.InitialDeposit.Observe(toFloat(s.Balance))
	return nil
}

// OnSubscribed implements plugin.OnSubscribed.
func (m *MetricsExtension) OnSubscribed(_ context.Context, _ id.SubscriberID, _ id.ProviderID) error {
	m.Subscribed.Inc()
	return nil
}

// OnUnsubscribed implements plugin.OnUnsubscribed.
func (m *MetricsExtension) OnUnsubscribed(_ context.Context, _ id.SubscriberID, _ id.ProviderID) error {
	m.Unsubscribed.Inc()
	return nil
}

// OnDeposited implements plugin.OnDeposited.
func (m *MetricsExtension) OnDeposited(_ context.Context, _ id.SubscriberID, amount types.Amount) error {
	m.Deposits.Inc()
	m.DepositAmount.Observe(toFloat(amount))
	return nil
}

// OnFeesWithdrawn implements plugin.OnFeesWithdrawn.
func (m *MetricsExtension) OnFeesWithdrawn(_ context.Context, _ id.ProviderID, _ string, amount types.Amount) error {
	m.FeesWithdrawn.Inc()
	m.WithdrawnAmount.Observe(toFloat(amount))
	return nil
}

// OnProviderSuspended implements plugin.OnProviderSuspended.
func (m *MetricsExtension) OnProviderSuspended(_ context.Context, _ id.ProviderID, _ time.Time) error {
	m.ProviderSuspended.Inc()
	return nil
}

// OnSubscriberSlashed implements plugin.OnSubscriberSlashed.
func (m *MetricsExtension) OnSubscriberSlashed(_ context.Context, _ id.SubscriberID, _ string, reward types.Amount, evicted int) error {
	m.SubscriberSlashed.Inc()
	m.SlashReward.Observe(toFloat(reward))
	m.SlashEvictions.Add(float64(evicted))
	return nil
}

// toFloat converts an amount for observation. Precision loss above 2^53
// is acceptable for histograms.
func toFloat(a types.Amount) float64 {
	a = types.OrZero(a)
	f, _ := new(big.Float).SetInt(a.BigInt()).Float64()
	return f
}
