package orderbookview

import (
	"context"
	"errors"
	"testing"

	"github.com/InjectiveLabs/testnet-liquidity-engine/pkg/types"
)

type fakeClient struct {
	orders  []types.OpenOrder
	snap    types.OrderbookSnapshot
	ordErr  error
	snapErr error
}

func (f *fakeClient) QueryAccountSequence(ctx context.Context, address string) (uint64, error) {
	return 0, nil
}
func (f *fakeClient) QueryOpenOrders(ctx context.Context, address string, marketID []byte) ([]types.OpenOrder, error) {
	return f.orders, f.ordErr
}
func (f *fakeClient) QueryOrderbook(ctx context.Context, marketID []byte, refPrice float64) (types.OrderbookSnapshot, error) {
	return f.snap, f.snapErr
}
func (f *fakeClient) QueryMid(ctx context.Context, marketID []byte, mainnet bool) (types.Price, error) {
	return types.Unavailable, nil
}
func (f *fakeClient) BroadcastBatch(ctx context.Context, tx types.SignedTx) (types.TxResult, error) {
	return types.TxResult{}, nil
}
func (f *fakeClient) BuildSignedBatch(ctx context.Context, wallet string, sequence uint64, creates []types.CreateIntent, cancels []types.CancelRef, marketType types.MarketType) (types.SignedTx, error) {
	return types.SignedTx{}, nil
}

var testMarket = types.Market{Symbol: "INJ/USDT"}

func TestOwnOrdersReturnsTransientFailureOnError(t *testing.T) {
	t.Parallel()

	client := &fakeClient{ordErr: errors.New("timeout")}
	v := New(client)

	_, err := v.OwnOrders(context.Background(), "w0", testMarket)
	var tf *TransientFailure
	if !errors.As(err, &tf) {
		t.Fatalf("expected *TransientFailure, got %v (%T)", err, err)
	}
}

func TestSnapshotAttachesMarketSymbol(t *testing.T) {
	t.Parallel()

	client := &fakeClient{snap: types.OrderbookSnapshot{TotalOrders: 5}}
	v := New(client)

	snap, err := v.Snapshot(context.Background(), testMarket, 24.5)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.Market != "INJ/USDT" {
		t.Errorf("Market = %q, want INJ/USDT", snap.Market)
	}
	if snap.TotalOrders != 5 {
		t.Errorf("TotalOrders = %d, want 5", snap.TotalOrders)
	}
}
