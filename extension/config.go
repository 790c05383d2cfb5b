package extension

import (
	"fmt"
	"time"

	"github.com/xraph/streamfee"
	"github.com/xraph/streamfee/types"
)

// Config holds the streamfee extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.streamfee" or "streamfee" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// SlashThreshold is the settled balance, in smallest token units,
	// below which a subscriber may be slashed (default: one whole token).
	SlashThreshold string `json:"slash_threshold" mapstructure:"slash_threshold" yaml:"slash_threshold"`

	// MinMonthlyRevenue is the minimum value of a provider's fee over
	// 30 days, in reference units with 8 decimals (default: 10.00000000).
	MinMonthlyRevenue string `json:"min_monthly_revenue" mapstructure:"min_monthly_revenue" yaml:"min_monthly_revenue"`

	// MinDepositValue is the minimum value of a subscriber's initial
	// deposit, in reference units with 8 decimals (default: 10.00000000).
	MinDepositValue string `json:"min_deposit_value" mapstructure:"min_deposit_value" yaml:"min_deposit_value"`

	// TokenDecimals is the payment token's precision (default: 18). Unset
	// is nil, so an explicit 0 is kept.
	TokenDecimals *uint32 `json:"token_decimals" mapstructure:"token_decimals" yaml:"token_decimals"`

	// OracleMaxAge is how old a published price may be before the default
	// price feed refuses to quote it (default: 1h).
	OracleMaxAge time.Duration `json:"oracle_max_age" mapstructure:"oracle_max_age" yaml:"oracle_max_age"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SlashThreshold:    types.Whole(1, 18).String(),
		MinMonthlyRevenue: types.Whole(10, 8).String(),
		MinDepositValue:   types.Whole(10, 8).String(),
		TokenDecimals:     decimals(streamfee.DefaultTokenDecimals),
		OracleMaxAge:      time.Hour,
		PluginTimeout:     5 * time.Second,
	}
}

func decimals(d uint32) *uint32 { return &d }

// tokenDecimals returns the configured precision or the default.
func (c Config) tokenDecimals() uint32 {
	if c.TokenDecimals == nil {
		return streamfee.DefaultTokenDecimals
	}
	return *c.TokenDecimals
}

// thresholds parses the amount fields.
func (c Config) thresholds() (slash, minMonthly, minDeposit types.Amount, err error) {
	if slash, err = types.ParseAmount(c.SlashThreshold); err != nil {
		return slash, minMonthly, minDeposit, fmt.Errorf("slash_threshold: %w", err)
	}
	if minMonthly, err = types.ParseAmount(c.MinMonthlyRevenue); err != nil {
		return slash, minMonthly, minDeposit, fmt.Errorf("min_monthly_revenue: %w", err)
	}
	if minDeposit, err = types.ParseAmount(c.MinDepositValue); err != nil {
		return slash, minMonthly, minDeposit, fmt.Errorf("min_deposit_value: %w", err)
	}
	if slash.IsNegative() || minMonthly.IsNegative() || minDeposit.IsNegative() {
		return slash, minMonthly, minDeposit, fmt.Errorf("thresholds must not be negative")
	}
	return slash, minMonthly, minDeposit, nil
}
