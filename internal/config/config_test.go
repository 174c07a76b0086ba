package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testYAML = `
dry_run: true
chain:
  testnet_rest_url: "https://testnet.example.com"
  mainnet_rest_url: "https://mainnet.example.com"
  mainnet_ws_url: "wss://mainnet.example.com/ws"
logging:
  level: debug
  format: json
wallets:
  w0:
    markets: ["INJ/USDT"]
markets:
  INJ/USDT:
    testnet_market_id: "aa"
    mainnet_market_id: "bb"
    type: SPOT
    base_order_size: 15
    base_spread_bps: 20
    min_spread_bps: 10
    max_spread_bps: 500
    deviation_threshold_bps: 1500
    min_price_tick: 0.0001
    min_quantity_tick: 0.01
    min_notional: 1
    base_decimals: 18
    quote_decimals: 6
    price_scale: 12
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAndValidate(t *testing.T) {
	t.Parallel()

	path := writeTempConfig(t, testYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if !cfg.DryRun {
		t.Error("DryRun should be true")
	}
	m, ok := cfg.Markets["INJ/USDT"]
	if !ok {
		t.Fatal("missing market INJ/USDT")
	}
	if m.PriceScale != 12 {
		t.Errorf("PriceScale = %d, want 12", m.PriceScale)
	}

	params := m.ToMarketParams()
	if params.CycleInterval.Seconds() != 15 {
		t.Errorf("default CycleInterval = %v, want 15s", params.CycleInterval)
	}
}

func TestValidateUnknownMarketReference(t *testing.T) {
	t.Parallel()

	path := writeTempConfig(t, testYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Wallets["w1"] = WalletSection{Markets: []string{"DOES/NOTEXIST"}}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown market reference")
	}
}

func TestValidateRejectsBadMarket(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		m    MarketSection
	}{
		{"bad type", MarketSection{Type: "FUTURES", TestnetMarketID: "aa", MainnetMarketID: "bb", BaseDecimals: 1, QuoteDecimals: 1, MinPriceTick: 1, MinQuantityTick: 1, MinNotional: 1, BaseOrderSize: 1, PriceScale: 1, MinSpreadBps: 1, MaxSpreadBps: 2}},
		{"bad hex", MarketSection{Type: "SPOT", TestnetMarketID: "zz", MainnetMarketID: "bb", BaseDecimals: 1, QuoteDecimals: 1, MinPriceTick: 1, MinQuantityTick: 1, MinNotional: 1, BaseOrderSize: 1, PriceScale: 1, MinSpreadBps: 1, MaxSpreadBps: 2}},
		{"zero tick", MarketSection{Type: "SPOT", TestnetMarketID: "aa", MainnetMarketID: "bb", BaseDecimals: 1, QuoteDecimals: 1, MinPriceTick: 0, MinQuantityTick: 1, MinNotional: 1, BaseOrderSize: 1, PriceScale: 1, MinSpreadBps: 1, MaxSpreadBps: 2}},
		{"inverted spread bounds", MarketSection{Type: "SPOT", TestnetMarketID: "aa", MainnetMarketID: "bb", BaseDecimals: 1, QuoteDecimals: 1, MinPriceTick: 1, MinQuantityTick: 1, MinNotional: 1, BaseOrderSize: 1, PriceScale: 1, MinSpreadBps: 500, MaxSpreadBps: 10}},
	}

	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.m.validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
