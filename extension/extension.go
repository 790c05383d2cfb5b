// Package extension provides the Forge extension adapter for streamfee.
//
// It implements the forge.Extension interface to integrate the settlement
// engine into a Forge application with DI registration and lifecycle
// management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.streamfee" or
// "streamfee" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/streamfee"
	"github.com/xraph/streamfee/custody"
	"github.com/xraph/streamfee/oracle"
	"github.com/xraph/streamfee/store"
	"github.com/xraph/streamfee/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "streamfee"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Lazy-settlement per-second subscription billing"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the streamfee engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *streamfee.Engine
	store      store.Store
	oracle     oracle.Oracle
	custodian  custody.Custodian
	engineOpts []streamfee.Option
}

// New creates a new streamfee Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying settlement engine.
// This is nil until Register is called.
func (e *Extension) Engine() *streamfee.Engine { return e.engine }

// Oracle returns the price source in use. When no oracle was configured
// this is an *oracle.Feed the host publishes prices to.
func (e *Extension) Oracle() oracle.Oracle { return e.oracle }

// Custodian returns the custodian in use.
func (e *Extension) Custodian() custody.Custodian { return e.custodian }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	opts, err := e.buildEngineOpts()
	if err != nil {
		return err
	}

	e.applyDefaults()

	eng := streamfee.New(e.store, e.oracle, e.custodian, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*streamfee.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("streamfee: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("streamfee: store not initialized")
	}
	return e.store.Ping(ctx)
}

// applyDefaults fills in collaborators that were not provided.
func (e *Extension) applyDefaults() {
	if e.store == nil {
		e.store = memory.New()
	}
	if e.oracle == nil {
		e.oracle = oracle.NewFeed(e.config.OracleMaxAge)
	}
	if e.custodian == nil {
		e.custodian = custody.NewVault()
	}
}

// buildEngineOpts constructs streamfee.Option values from the resolved config.
func (e *Extension) buildEngineOpts() ([]streamfee.Option, error) {
	slash, minMonthly, minDeposit, err := e.config.thresholds()
	if err != nil {
		return nil, fmt.Errorf("streamfee: invalid configuration: %w", err)
	}

	opts := make([]streamfee.Option, 0, len(e.engineOpts)+5)
	opts = append(opts,
		streamfee.WithSlashThreshold(slash),
		streamfee.WithThresholds(minMonthly, minDeposit),
		streamfee.WithTokenDecimals(e.config.tokenDecimals()),
		streamfee.WithPluginTimeout(e.config.PluginTimeout),
	)
	if e.config.DisableMigrate {
		opts = append(opts, streamfee.WithoutMigrate())
	}

	// Pass-through options win over config-derived ones.
	opts = append(opts, e.engineOpts...)

	return opts, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("streamfee: configuration is required but not found in config files; " +
				"ensure 'extensions.streamfee' or 'streamfee' key exists in your config")
		}

		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("streamfee: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("slash_threshold", e.config.SlashThreshold),
		forge.F("min_monthly_revenue", e.config.MinMonthlyRevenue),
		forge.F("min_deposit_value", e.config.MinDepositValue),
		forge.F("token_decimals", e.config.tokenDecimals()),
		forge.F("oracle_max_age", e.config.OracleMaxAge),
		forge.F("plugin_timeout", e.config.PluginTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions." + ExtensionName, ExtensionName} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("streamfee: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("streamfee: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.SlashThreshold == "" {
		cfg.SlashThreshold = defaults.SlashThreshold
	}
	if cfg.MinMonthlyRevenue == "" {
		cfg.MinMonthlyRevenue = defaults.MinMonthlyRevenue
	}
	if cfg.MinDepositValue == "" {
		cfg.MinDepositValue = defaults.MinDepositValue
	}
	if cfg.TokenDecimals == nil {
		cfg.TokenDecimals = defaults.TokenDecimals
	}
	if cfg.OracleMaxAge == 0 {
		cfg.OracleMaxAge = defaults.OracleMaxAge
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	if yamlConfig.SlashThreshold == "" {
		yamlConfig.SlashThreshold = programmaticConfig.SlashThreshold
	}
	if yamlConfig.MinMonthlyRevenue == "" {
		yamlConfig.MinMonthlyRevenue = programmaticConfig.MinMonthlyRevenue
	}
	if yamlConfig.MinDepositValue == "" {
		yamlConfig.MinDepositValue = programmaticConfig.MinDepositValue
	}
	if yamlConfig.TokenDecimals == nil {
		yamlConfig.TokenDecimals = programmaticConfig.TokenDecimals
	}
	if yamlConfig.OracleMaxAge == 0 {
		yamlConfig.OracleMaxAge = programmaticConfig.OracleMaxAge
	}
	if yamlConfig.PluginTimeout == 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	return mergeWithDefaults(yamlConfig)
}
