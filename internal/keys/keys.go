// Package keys loads wallet credentials from the environment, never from
// the YAML config file. It is the sole holder of private key material.
package keys

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/InjectiveLabs/testnet-liquidity-engine/pkg/types"
)

// SecretString wraps a secret so that it can never be printed, formatted,
// or logged by accident. Both String() and LogValue() redact the value.
type SecretString string

func (SecretString) String() string { return "[redacted]" }

func (s SecretString) LogValue() slog.Value {
	return slog.StringValue("[redacted]")
}

// Wallet is a loaded wallet: its config plus its private key material.
type Wallet struct {
	Config     types.WalletConfig
	PrivateKey SecretString
}

// LoadDotEnv preloads a .env file (if present) into the process environment
// before LoadWallets reads it. Missing files are not an error — this is
// for local/dev convenience only.
func LoadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "path", path, "error", err)
	}
}

// LoadWallets reads WALLET_<N>_PRIVATE_KEY / _NAME / _ENABLED / _MAX_ORDERS
// for N = 0, 1, 2, ... until a gap (missing private key) is found. Disabled
// wallets are dropped from the result. Markets are attached later by the
// caller from the config's wallets.<id>.markets section — this provider
// knows nothing about market assignment.
func LoadWallets() ([]Wallet, error) {
	var wallets []Wallet

	for n := 0; ; n++ {
		privKey, ok := os.LookupEnv(fmt.Sprintf("WALLET_%d_PRIVATE_KEY", n))
		if !ok || privKey == "" {
			break
		}

		name := os.Getenv(fmt.Sprintf("WALLET_%d_NAME", n))
		if name == "" {
			name = fmt.Sprintf("wallet-%d", n)
		}

		enabled := true
		if v := os.Getenv(fmt.Sprintf("WALLET_%d_ENABLED", n)); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("keys: WALLET_%d_ENABLED is not a bool: %w", n, err)
			}
			enabled = parsed
		}

		maxOrders := 200
		if v := os.Getenv(fmt.Sprintf("WALLET_%d_MAX_ORDERS", n)); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("keys: WALLET_%d_MAX_ORDERS is not an int: %w", n, err)
			}
			maxOrders = parsed
		}

		if !enabled {
			continue
		}

		wallets = append(wallets, Wallet{
			Config: types.WalletConfig{
				WalletID:      name,
				Enabled:       enabled,
				MaxOpenOrders: maxOrders,
			},
			PrivateKey: SecretString(privKey),
		})
	}

	return wallets, nil
}
