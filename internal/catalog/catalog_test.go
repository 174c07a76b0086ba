package catalog

import (
	"testing"

	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Markets: map[string]config.MarketSection{
			"INJ/USDT": {
				TestnetMarketID: "aa", MainnetMarketID: "bb", Type: "SPOT",
				BaseOrderSize: 15, MinSpreadBps: 10, MaxSpreadBps: 500,
				MinPriceTick: 0.0001, MinQuantityTick: 0.01, MinNotional: 1,
				BaseDecimals: 18, QuoteDecimals: 6, PriceScale: 12,
			},
		},
		Wallets: map[string]config.WalletSection{
			"w0": {Markets: []string{"INJ/USDT"}},
		},
	}
}

func TestLoadAndLookup(t *testing.T) {
	t.Parallel()

	cat, err := Load(testConfig())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	m, err := cat.Lookup("INJ/USDT")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if m.PriceScale != 12 {
		t.Errorf("PriceScale = %d, want 12", m.PriceScale)
	}

	if _, err := cat.Lookup("DOES/NOTEXIST"); err == nil {
		t.Fatal("expected UnknownMarket error")
	} else if _, ok := err.(*UnknownMarket); !ok {
		t.Errorf("error type = %T, want *UnknownMarket", err)
	}
}

func TestEnabledMarkets(t *testing.T) {
	t.Parallel()

	cat, err := Load(testConfig())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	markets, err := cat.EnabledMarkets("w0")
	if err != nil {
		t.Fatalf("EnabledMarkets() error = %v", err)
	}
	if len(markets) != 1 || markets[0].Symbol != "INJ/USDT" {
		t.Errorf("EnabledMarkets() = %+v", markets)
	}

	if _, err := cat.EnabledMarkets("nope"); err == nil {
		t.Fatal("expected error for unknown wallet")
	}
}

func TestLoadRejectsUnknownWalletMarket(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Wallets["w1"] = config.WalletSection{Markets: []string{"GHOST/USDT"}}

	if _, err := Load(cfg); err == nil {
		t.Fatal("expected error referencing unknown market")
	}
}
