// Package config defines the two-section YAML configuration for the
// liquidity engine: which markets exist and which wallets trade which
// markets. Wallet secrets are never read from this file — see
// internal/keys for how private key material and per-wallet limits are
// loaded from the environment.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/InjectiveLabs/testnet-liquidity-engine/pkg/types"
)

// Config is the top-level configuration. Maps directly onto the YAML file.
type Config struct {
	DryRun  bool                      `mapstructure:"dry_run"`
	Chain   ChainConfig               `mapstructure:"chain"`
	Logging LoggingConfig             `mapstructure:"logging"`
	Wallets map[string]WalletSection  `mapstructure:"wallets"`
	Markets map[string]MarketSection  `mapstructure:"markets"`
}

// ChainConfig points at the testnet and mainnet chain endpoints.
type ChainConfig struct {
	TestnetRESTURL string        `mapstructure:"testnet_rest_url"`
	MainnetRESTURL string        `mapstructure:"mainnet_rest_url"`
	MainnetWSURL   string        `mapstructure:"mainnet_ws_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WalletSection is the per-wallet entry under the `wallets:` key.
// Enablement, key material, and order caps come from the environment
// (internal/keys); this file only says which markets a wallet trades.
type WalletSection struct {
	Markets []string `mapstructure:"markets"`
}

// MarketSection is the per-symbol entry under the `markets:` key.
// It maps 1:1 onto types.Market plus the planner-facing MarketParams.
type MarketSection struct {
	TestnetMarketID       string  `mapstructure:"testnet_market_id"` // hex-encoded
	MainnetMarketID       string  `mapstructure:"mainnet_market_id"` // hex-encoded
	Type                  string  `mapstructure:"type"`              // "SPOT" | "DERIVATIVE"
	BaseOrderSize         float64 `mapstructure:"base_order_size"`
	BaseSpreadBps         int     `mapstructure:"base_spread_bps"`
	MinSpreadBps          int     `mapstructure:"min_spread_bps"`
	MaxSpreadBps          int     `mapstructure:"max_spread_bps"`
	DeviationThresholdBps int     `mapstructure:"deviation_threshold_bps"`
	MinPriceTick          float64 `mapstructure:"min_price_tick"`
	MinQuantityTick       float64 `mapstructure:"min_quantity_tick"`
	MinNotional           float64 `mapstructure:"min_notional"`
	BaseDecimals          int     `mapstructure:"base_decimals"`
	QuoteDecimals         int     `mapstructure:"quote_decimals"`
	PriceScale            int     `mapstructure:"price_scale"`

	PriceRefreshInterval time.Duration `mapstructure:"price_refresh_interval"`
	CycleInterval        time.Duration `mapstructure:"cycle_interval"`
}

// Load reads config from a YAML file. There are no sensitive fields in this
// file (keys live in the environment, see internal/keys). Any key read from
// the file can be overridden by an environment variable with the LIQUIDITY_
// prefix (e.g. LIQUIDITY_DRY_RUN); no key replacer is set, so nested keys
// map to dotted names such as LIQUIDITY_LOGGING.LEVEL.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("LIQUIDITY")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Chain.RequestTimeout == 0 {
		cfg.Chain.RequestTimeout = 10 * time.Second
	}

	return &cfg, nil
}

// Validate checks structural validity of every market and wallet entry,
// collecting all problems instead of stopping at the first one.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Markets) == 0 {
		errs = append(errs, errors.New("markets: at least one market must be configured"))
	}
	for symbol, m := range c.Markets {
		if err := m.validate(); err != nil {
			errs = append(errs, fmt.Errorf("markets.%s: %w", symbol, err))
		}
	}

	for walletID, w := range c.Wallets {
		if len(w.Markets) == 0 {
			errs = append(errs, fmt.Errorf("wallets.%s: markets list is empty", walletID))
			continue
		}
		for _, symbol := range w.Markets {
			if _, ok := c.Markets[symbol]; !ok {
				errs = append(errs, fmt.Errorf("wallets.%s: unknown market %q", walletID, symbol))
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (m MarketSection) validate() error {
	var errs []error

	switch types.MarketType(m.Type) {
	case types.Spot, types.Derivative:
	default:
		errs = append(errs, fmt.Errorf("type must be SPOT or DERIVATIVE, got %q", m.Type))
	}

	if _, err := hex.DecodeString(m.TestnetMarketID); err != nil {
		errs = append(errs, fmt.Errorf("testnet_market_id must be hex: %w", err))
	}
	if _, err := hex.DecodeString(m.MainnetMarketID); err != nil {
		errs = append(errs, fmt.Errorf("mainnet_market_id must be hex: %w", err))
	}
	if m.BaseDecimals <= 0 {
		errs = append(errs, errors.New("base_decimals must be positive"))
	}
	if m.QuoteDecimals <= 0 {
		errs = append(errs, errors.New("quote_decimals must be positive"))
	}
	if m.MinPriceTick <= 0 {
		errs = append(errs, errors.New("min_price_tick must be positive"))
	}
	if m.MinQuantityTick <= 0 {
		errs = append(errs, errors.New("min_quantity_tick must be positive"))
	}
	if m.MinNotional <= 0 {
		errs = append(errs, errors.New("min_notional must be positive"))
	}
	if m.BaseOrderSize <= 0 {
		errs = append(errs, errors.New("base_order_size must be positive"))
	}
	if m.PriceScale <= 0 {
		errs = append(errs, errors.New("price_scale must be positive"))
	}
	if m.MinSpreadBps <= 0 || m.MaxSpreadBps <= m.MinSpreadBps {
		errs = append(errs, errors.New("min_spread_bps/max_spread_bps must satisfy 0 < min < max"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ToMarketParams converts the YAML section into the planner-facing params,
// applying defaults for the two interval fields.
func (m MarketSection) ToMarketParams() types.MarketParams {
	refresh := m.PriceRefreshInterval
	if refresh == 0 {
		refresh = 5 * time.Second
	}
	cycle := m.CycleInterval
	if cycle == 0 {
		cycle = 15 * time.Second
	}
	return types.MarketParams{
		BaseOrderSize:         m.BaseOrderSize,
		BaseSpreadBps:         m.BaseSpreadBps,
		MinSpreadBps:          m.MinSpreadBps,
		MaxSpreadBps:          m.MaxSpreadBps,
		DeviationThresholdBps: m.DeviationThresholdBps,
		PriceRefreshInterval:  refresh,
		CycleInterval:         cycle,
	}
}
