// Package orderbookview implements OrderbookView: fetches testnet
// orderbook depth and a wallet's own open orders. Both operations may
// surface TransientFailure, in which case the caller skips the cycle
// rather than guessing.
package orderbookview

import (
	"context"
	"fmt"

	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/chain"
	"github.com/InjectiveLabs/testnet-liquidity-engine/pkg/types"
)

// TransientFailure wraps an underlying fetch error to mark it as
// cycle-skippable rather than fatal.
type TransientFailure struct {
	Op  string
	Err error
}

func (e *TransientFailure) Error() string {
	return fmt.Sprintf("orderbookview: %s: %v", e.Op, e.Err)
}

func (e *TransientFailure) Unwrap() error { return e.Err }

// View fetches orderbook depth and own-order state from the chain.
type View struct {
	client chain.Client
}

// New builds a View backed by client.
func New(client chain.Client) *View {
	return &View{client: client}
}

// OwnOrders returns the wallet's live orders on one market.
func (v *View) OwnOrders(ctx context.Context, wallet string, market types.Market) ([]types.OpenOrder, error) {
	orders, err := v.client.QueryOpenOrders(ctx, wallet, market.TestnetMarketID)
	if err != nil {
		return nil, &TransientFailure{Op: "ownOrders", Err: err}
	}
	return orders, nil
}

// Snapshot returns market-wide depth plus the count of orders within ±5%
// of referencePrice.
func (v *View) Snapshot(ctx context.Context, market types.Market, referencePrice float64) (types.OrderbookSnapshot, error) {
	snap, err := v.client.QueryOrderbook(ctx, market.TestnetMarketID, referencePrice)
	if err != nil {
		return types.OrderbookSnapshot{}, &TransientFailure{Op: "snapshot", Err: err}
	}
	snap.Market = market.Symbol
	return snap, nil
}
