package chain

import (
	"context"
	"testing"

	"github.com/InjectiveLabs/testnet-liquidity-engine/pkg/types"
)

const testPrivateKeyHex = "fad9c8855b740a0b7ed4c221dbad0f33a83a49cad6b3fe8d5817ac83d38b6a0"

func TestNewECDSASignerDerivesAddress(t *testing.T) {
	t.Parallel()

	signer, err := NewECDSASigner(testPrivateKeyHex)
	if err != nil {
		t.Fatalf("NewECDSASigner() error = %v", err)
	}
	if signer.Address() == "" {
		t.Error("Address() should not be empty")
	}

	// A "0x"-prefixed key must parse identically to the bare hex form.
	prefixed, err := NewECDSASigner("0x" + testPrivateKeyHex)
	if err != nil {
		t.Fatalf("NewECDSASigner(prefixed) error = %v", err)
	}
	if prefixed.Address() != signer.Address() {
		t.Errorf("address mismatch: %s vs %s", prefixed.Address(), signer.Address())
	}
}

func TestECDSASignerRejectsInvalidKey(t *testing.T) {
	t.Parallel()

	if _, err := NewECDSASigner("not-hex"); err == nil {
		t.Fatal("expected error for invalid private key")
	}
}

func TestECDSASignerSignProducesNonEmptyEnvelope(t *testing.T) {
	t.Parallel()

	signer, err := NewECDSASigner(testPrivateKeyHex)
	if err != nil {
		t.Fatalf("NewECDSASigner() error = %v", err)
	}

	creates := []types.CreateIntent{{Side: types.BUY, PriceHuman: 24.56, QuantityHuman: 15}}
	tx, err := signer.Sign(context.Background(), "w0", 7, creates, nil, types.Spot)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if len(tx.Bytes) == 0 {
		t.Error("Sign() produced empty envelope")
	}
}
