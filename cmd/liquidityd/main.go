// liquidityd is the process entry point: loads config and wallet secrets,
// wires one Worker per enabled wallet behind a Supervisor, and runs until
// SIGINT/SIGTERM.
//
// Exit codes: 0 clean shutdown, 2 configuration error, 3 unknown wallet or
// market, 4 a wallet worker could not be started. Chain connectivity is not
// probed or retried during startup, so a chain outage does not produce 4.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/catalog"
	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/chain"
	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/config"
	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/keys"
	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/persist"
	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/supervisor"
)

const (
	exitOK           = 0
	exitConfigError  = 2
	exitUnknownEntry = 3
	exitChainFatal   = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("LIQUIDITYD_CONFIG"); p != "" {
		cfgPath = p
	}

	keys.LoadDotEnv(".env")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		return exitConfigError
	}
	for walletID, section := range cfg.Wallets {
		for _, symbol := range section.Markets {
			if _, ok := cfg.Markets[symbol]; !ok {
				slog.Error("wallet references unknown market", "wallet", walletID, "market", symbol)
				return exitUnknownEntry
			}
		}
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		return exitConfigError
	}

	setupLogger(cfg.Logging.Level, cfg.Logging.Format)

	cat, err := catalog.Load(cfg)
	if err != nil {
		slog.Error("failed to build market catalog", "error", err)
		return exitConfigError
	}

	wallets, err := keys.LoadWallets()
	if err != nil {
		slog.Error("failed to load wallets from environment", "error", err)
		return exitConfigError
	}
	if len(wallets) == 0 {
		slog.Error("no enabled wallets found in environment")
		return exitConfigError
	}

	store, err := persist.NewStore("data/sequences")
	if err != nil {
		slog.Error("failed to open sequence checkpoint store", "error", err)
		return exitConfigError
	}

	client := chain.NewRESTClient(
		cfg.Chain.TestnetRESTURL,
		cfg.Chain.MainnetRESTURL,
		cfg.Chain.RequestTimeout,
		chain.WithDryRun(cfg.DryRun),
	)

	for _, w := range wallets {
		signer, err := chain.NewECDSASigner(string(w.PrivateKey))
		if err != nil {
			slog.Error("failed to derive signer for wallet", "wallet", w.Config.WalletID, "error", err)
			return exitConfigError
		}
		client.RegisterSigner(w.Config.WalletID, signer)
	}

	sup := supervisor.New(cat, client, store, cfg.Chain.MainnetWSURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, w := range wallets {
		section, ok := cfg.Wallets[w.Config.WalletID]
		if !ok {
			slog.Error("wallet has no markets section in config", "wallet", w.Config.WalletID)
			return exitUnknownEntry
		}

		params := make(supervisor.WalletMarketParams, len(section.Markets))
		for _, symbol := range section.Markets {
			marketCfg, ok := cfg.Markets[symbol]
			if !ok {
				slog.Error("wallet references unknown market", "wallet", w.Config.WalletID, "market", symbol)
				return exitUnknownEntry
			}
			params[symbol] = marketCfg.ToMarketParams()
		}

		wallet := w.Config
		wallet.Markets = section.Markets

		seed := time.Now().UnixNano()
		if err := sup.StartWorker(ctx, wallet, params, seed); err != nil {
			slog.Error("failed to start worker", "wallet", wallet.WalletID, "error", err)
			return exitChainFatal
		}
		slog.Info("worker started", "wallet", wallet.WalletID, "markets", section.Markets)
	}

	if cfg.DryRun {
		slog.Warn("DRY-RUN MODE — no transactions will be broadcast")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received shutdown signal", "signal", sig.String())

	sup.StopAll()
	cancel()

	return exitOK
}

func setupLogger(level, format string) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: slogLevel}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
