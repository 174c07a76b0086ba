package chain

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/InjectiveLabs/testnet-liquidity-engine/pkg/types"
)

// Signer turns an already-scaled batch into a signed, chain-ready
// transaction. Full cosmos-SDK amino/protobuf signing is out of this
// module's scope (ChainClient is opaque at that boundary) — ECDSASigner
// only derives wallet identity and produces a placeholder envelope
// sufficient for the dry-run and testing paths this module exercises.
type Signer interface {
	Address() string
	Sign(ctx context.Context, wallet string, sequence uint64, creates []types.CreateIntent, cancels []types.CancelRef, marketType types.MarketType) (types.SignedTx, error)
}

// ECDSASigner derives a wallet's on-chain address from a hex-encoded
// secp256k1 private key, the same way the teacher's auth.go derives an
// Ethereum address via crypto.HexToECDSA/PubkeyToAddress.
type ECDSASigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewECDSASigner parses a hex private key (with or without a leading "0x").
func NewECDSASigner(hexKey string) (*ECDSASigner, error) {
	key, err := crypto.HexToECDSA(trimHexPrefix(hexKey))
	if err != nil {
		return nil, fmt.Errorf("chain: parse private key: %w", err)
	}
	return &ECDSASigner{
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *ECDSASigner) Address() string {
	return s.address.Hex()
}

// envelope is the placeholder signed-batch wire shape: enough structure to
// exercise TxBuilder, SequenceController, and BroadcastBatch end to end in
// dry-run mode without depending on the real chain's amino/protobuf codec.
type envelope struct {
	Wallet     string              `json:"wallet"`
	Sequence   uint64              `json:"sequence"`
	MarketType types.MarketType    `json:"market_type"`
	Creates    []types.CreateIntent `json:"creates"`
	Cancels    []types.CancelRef   `json:"cancels"`
	Signature  []byte              `json:"signature"`
}

// Sign serializes the batch and produces an ECDSA signature over its hash.
func (s *ECDSASigner) Sign(_ context.Context, wallet string, sequence uint64, creates []types.CreateIntent, cancels []types.CancelRef, marketType types.MarketType) (types.SignedTx, error) {
	env := envelope{
		Wallet:     wallet,
		Sequence:   sequence,
		MarketType: marketType,
		Creates:    creates,
		Cancels:    cancels,
	}

	unsigned, err := json.Marshal(env)
	if err != nil {
		return types.SignedTx{}, fmt.Errorf("chain: marshal envelope: %w", err)
	}

	hash := crypto.Keccak256(unsigned)
	sig, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return types.SignedTx{}, fmt.Errorf("chain: sign envelope: %w", err)
	}
	env.Signature = sig

	signed, err := json.Marshal(env)
	if err != nil {
		return types.SignedTx{}, fmt.Errorf("chain: marshal signed envelope: %w", err)
	}

	return types.SignedTx{Bytes: signed}, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
