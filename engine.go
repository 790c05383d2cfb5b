package streamfee

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/streamfee/custody"
	"github.com/xraph/streamfee/oracle"
	"github.com/xraph/streamfee/plugin"
	"github.com/xraph/streamfee/store"
	"github.com/xraph/streamfee/types"
)

// Default thresholds.
const (
	DefaultTokenDecimals uint32 = 18
	// ReferenceDecimals is the fixed-point precision of reference-currency
	// values returned by the oracle and used by the minimums below.
	ReferenceDecimals uint32 = 8

	// MonthSeconds is the 30-day window used for the provider fee minimum.
	MonthSeconds int64 = 30 * 24 * 60 * 60
)

var (
	// DefaultSlashThreshold is one whole token at 18 decimals.
	DefaultSlashThreshold = types.Whole(1, DefaultTokenDecimals)
	// DefaultMinMonthlyRevenue is 10 reference units.
	DefaultMinMonthlyRevenue = types.Whole(10, ReferenceDecimals)
	// DefaultMinDepositValue is 10 reference units.
	DefaultMinDepositValue = types.Whole(10, ReferenceDecimals)
)

// Engine is the settlement engine. Every public method runs as one
// serialized, all-or-nothing step against the store.
type Engine struct {
	mu sync.Mutex

	store   store.Store
	oracle  oracle.Oracle
	custody custody.Custodian
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   Clock

	// Configuration
	slashThreshold    types.Amount
	minMonthlyRevenue types.Amount
	minDepositValue   types.Amount
	tokenDecimals     uint32
	skipMigrate       bool
}

// New creates a new Engine backed by s, pricing thresholds with o and
// moving funds through c.
func New(s store.Store, o oracle.Oracle, c custody.Custodian, opts ...Option) *Engine {
	e := &Engine{
		store:             s,
		oracle:            o,
		custody:           c,
		plugins:           plugin.NewRegistry(),
		logger:            slog.Default(),
		clock:             SystemClock{},
		slashThreshold:    DefaultSlashThreshold,
		minMonthlyRevenue: DefaultMinMonthlyRevenue,
		minDepositValue:   DefaultMinDepositValue,
		tokenDecimals:     DefaultTokenDecimals,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.plugins.WithTimeout(d)
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithSlashThreshold sets the balance below which a subscriber may be slashed.
func WithSlashThreshold(threshold types.Amount) Option {
	return func(e *Engine) {
		e.slashThreshold = types.OrZero(threshold)
	}
}

// WithThresholds sets the registration minimums, in reference units.
func WithThresholds(minMonthlyRevenue, minDepositValue types.Amount) Option {
	return func(e *Engine) {
		e.minMonthlyRevenue = types.OrZero(minMonthlyRevenue)
		e.minDepositValue = types.OrZero(minDepositValue)
	}
}

// WithTokenDecimals sets the payment token's decimals.
func WithTokenDecimals(decimals uint32) Option {
	return func(e *Engine) {
		e.tokenDecimals = decimals
	}
}

// WithoutMigrate makes Start leave the schema alone.
func WithoutMigrate() Option {
	return func(e *Engine) {
		e.skipMigrate = true
	}
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// SlashThreshold returns the configured slash threshold.
func (e *Engine) SlashThreshold() types.Amount { return e.slashThreshold }

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if !e.skipMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return err
		}
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("streamfee started",
		"slash_threshold", e.slashThreshold.String(),
		"min_monthly_revenue", types.FormatUnits(e.minMonthlyRevenue, ReferenceDecimals),
		"min_deposit_value", types.FormatUnits(e.minDepositValue, ReferenceDecimals),
		"token_decimals", e.tokenDecimals,
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	e.logger.Info("streamfee stopped")
	return e.store.Close()
}

// events holds plugin notifications queued by an operation.
type events []func()

func (ev *events) add(fn func()) { *ev = append(*ev, fn) }

// lock serializes an operation. Hooks queued on the returned events run
// in unlock, after the engine lock is released, so plugins may call back
// into the engine.
func (e *Engine) lock() *events {
	e.mu.Lock()
	return &events{}
}

func (e *Engine) unlock(ev *events) {
	e.mu.Unlock()
	for _, fn := range *ev {
		fn()
	}
}

// now returns the current settlement instant in whole UTC seconds.
func (e *Engine) now() time.Time {
	return e.clock.Now().UTC().Truncate(time.Second)
}
