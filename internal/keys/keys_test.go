package keys

import (
	"os"
	"testing"
)

func clearWalletEnv(t *testing.T) {
	t.Helper()
	for n := 0; n < 5; n++ {
		for _, suffix := range []string{"PRIVATE_KEY", "NAME", "ENABLED", "MAX_ORDERS"} {
			t.Setenv(envName(n, suffix), "")
			os.Unsetenv(envName(n, suffix))
		}
	}
}

func envName(n int, suffix string) string {
	return "WALLET_" + itoa(n) + "_" + suffix
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func TestLoadWalletsStopsAtGap(t *testing.T) {
	clearWalletEnv(t)
	t.Setenv("WALLET_0_PRIVATE_KEY", "deadbeef")
	t.Setenv("WALLET_0_NAME", "primary")
	// WALLET_1 intentionally absent — loading must stop here.
	t.Setenv("WALLET_2_PRIVATE_KEY", "shouldnotappear")

	wallets, err := LoadWallets()
	if err != nil {
		t.Fatalf("LoadWallets() error = %v", err)
	}
	if len(wallets) != 1 {
		t.Fatalf("len(wallets) = %d, want 1", len(wallets))
	}
	if wallets[0].Config.WalletID != "primary" {
		t.Errorf("WalletID = %q, want primary", wallets[0].Config.WalletID)
	}
	if wallets[0].PrivateKey.String() != "[redacted]" {
		t.Error("PrivateKey.String() must redact")
	}
}

func TestLoadWalletsFiltersDisabled(t *testing.T) {
	clearWalletEnv(t)
	t.Setenv("WALLET_0_PRIVATE_KEY", "deadbeef")
	t.Setenv("WALLET_0_ENABLED", "false")

	wallets, err := LoadWallets()
	if err != nil {
		t.Fatalf("LoadWallets() error = %v", err)
	}
	if len(wallets) != 0 {
		t.Fatalf("len(wallets) = %d, want 0 (disabled wallet should be dropped)", len(wallets))
	}
}

func TestLoadWalletsMaxOrdersDefault(t *testing.T) {
	clearWalletEnv(t)
	t.Setenv("WALLET_0_PRIVATE_KEY", "deadbeef")

	wallets, err := LoadWallets()
	if err != nil {
		t.Fatalf("LoadWallets() error = %v", err)
	}
	if len(wallets) != 1 || wallets[0].Config.MaxOpenOrders != 200 {
		t.Fatalf("wallets = %+v", wallets)
	}
}
