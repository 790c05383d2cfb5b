package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/streamfee"
	"github.com/xraph/streamfee/custody"
	"github.com/xraph/streamfee/oracle"
	"github.com/xraph/streamfee/plugin"
	"github.com/xraph/streamfee/store"
	"github.com/xraph/streamfee/store/mongo"
	"github.com/xraph/streamfee/store/postgres"
	"github.com/xraph/streamfee/store/sqlite"
)

// Option configures the streamfee Forge extension.
type Option func(*Extension)

// WithStore sets the store for the settlement engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithPostgres backs the engine with a PostgreSQL grove database.
func WithPostgres(db *grove.DB) Option {
	return func(e *Extension) { e.store = postgres.New(db) }
}

// WithSQLite backs the engine with a SQLite grove database.
func WithSQLite(db *grove.DB) Option {
	return func(e *Extension) { e.store = sqlite.New(db) }
}

// WithMongo backs the engine with a MongoDB grove database.
func WithMongo(db *grove.DB) Option {
	return func(e *Extension) { e.store = mongo.New(db) }
}

// WithOracle sets the payment token price source. When unset, the
// extension creates an oracle.Feed that the host publishes prices to.
func WithOracle(o oracle.Oracle) Option {
	return func(e *Extension) { e.oracle = o }
}

// WithCustodian sets the token custodian. When unset, an in-process
// custody.Vault is used.
func WithCustodian(c custody.Custodian) Option {
	return func(e *Extension) { e.custodian = c }
}

// WithEngineOption passes a streamfee.Option through to the underlying engine.
func WithEngineOption(opt streamfee.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a streamfee plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, streamfee.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithSlashThreshold sets the slash threshold in smallest token units.
func WithSlashThreshold(threshold string) Option {
	return func(e *Extension) { e.config.SlashThreshold = threshold }
}

// WithThresholds sets the registration minimums in reference units.
func WithThresholds(minMonthlyRevenue, minDepositValue string) Option {
	return func(e *Extension) {
		e.config.MinMonthlyRevenue = minMonthlyRevenue
		e.config.MinDepositValue = minDepositValue
	}
}

// WithTokenDecimals sets the payment token's precision.
func WithTokenDecimals(decimals uint32) Option {
	return func(e *Extension) { e.config.TokenDecimals = &decimals }
}

// WithOracleMaxAge sets how long a published price stays usable.
func WithOracleMaxAge(d time.Duration) Option {
	return func(e *Extension) { e.config.OracleMaxAge = d }
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}
