// Package catalog holds the immutable, per-market static metadata loaded
// once at startup: tick sizes, decimals, scale, and the opaque testnet/
// mainnet market identifiers. Once built, a Catalog is read-only and safe
// for concurrent use by every worker.
package catalog

import (
	"encoding/hex"
	"fmt"

	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/config"
	"github.com/InjectiveLabs/testnet-liquidity-engine/pkg/types"
)

// UnknownMarket is returned by Lookup when a symbol has no catalog entry.
type UnknownMarket struct {
	Symbol string
}

func (e *UnknownMarket) Error() string {
	return fmt.Sprintf("catalog: unknown market %q", e.Symbol)
}

// Catalog is the loaded, validated set of markets plus each wallet's
// enabled market list.
type Catalog struct {
	markets map[string]types.Market
	wallets map[string][]string // walletId -> symbols
}

// Load builds a Catalog from a validated Config. Config.Validate must have
// been called first; Load re-checks decode errors defensively but assumes
// structural validity has already been established.
func Load(cfg *config.Config) (*Catalog, error) {
	markets := make(map[string]types.Market, len(cfg.Markets))
	for symbol, m := range cfg.Markets {
		testnetID, err := hex.DecodeString(m.TestnetMarketID)
		if err != nil {
			return nil, fmt.Errorf("catalog: market %s: decode testnet_market_id: %w", symbol, err)
		}
		mainnetID, err := hex.DecodeString(m.MainnetMarketID)
		if err != nil {
			return nil, fmt.Errorf("catalog: market %s: decode mainnet_market_id: %w", symbol, err)
		}

		market := types.Market{
			Symbol:          symbol,
			Type:            types.MarketType(m.Type),
			TestnetMarketID: testnetID,
			MainnetMarketID: mainnetID,
			PriceScale:      m.PriceScale,
			BaseDecimals:    m.BaseDecimals,
			QuoteDecimals:   m.QuoteDecimals,
			MinPriceTick:    m.MinPriceTick,
			MinQuantityTick: m.MinQuantityTick,
			MinNotional:     m.MinNotional,
		}
		if err := validateMarket(market); err != nil {
			return nil, fmt.Errorf("catalog: market %s: %w", symbol, err)
		}
		markets[symbol] = market
	}

	wallets := make(map[string][]string, len(cfg.Wallets))
	for walletID, w := range cfg.Wallets {
		for _, symbol := range w.Markets {
			if _, ok := markets[symbol]; !ok {
				return nil, fmt.Errorf("catalog: wallet %s references unknown market %q", walletID, symbol)
			}
		}
		wallets[walletID] = append([]string(nil), w.Markets...)
	}

	return &Catalog{markets: markets, wallets: wallets}, nil
}

func validateMarket(m types.Market) error {
	switch m.Type {
	case types.Spot, types.Derivative:
	default:
		return fmt.Errorf("invalid market type %q", m.Type)
	}
	if m.BaseDecimals <= 0 || m.QuoteDecimals <= 0 {
		return fmt.Errorf("decimals must be positive")
	}
	if m.MinPriceTick <= 0 || m.MinQuantityTick <= 0 {
		return fmt.Errorf("ticks must be positive")
	}
	if m.MinNotional <= 0 {
		return fmt.Errorf("minNotional must be positive")
	}
	return nil
}

// Lookup returns the static metadata for symbol, or UnknownMarket.
func (c *Catalog) Lookup(symbol string) (types.Market, error) {
	m, ok := c.markets[symbol]
	if !ok {
		return types.Market{}, &UnknownMarket{Symbol: symbol}
	}
	return m, nil
}

// EnabledMarkets returns the Market metadata for every symbol configured
// for walletID, in the order listed in the config.
func (c *Catalog) EnabledMarkets(walletID string) ([]types.Market, error) {
	symbols, ok := c.wallets[walletID]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown wallet %q", walletID)
	}
	out := make([]types.Market, 0, len(symbols))
	for _, symbol := range symbols {
		m, err := c.Lookup(symbol)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
