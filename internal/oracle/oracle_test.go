package oracle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/InjectiveLabs/testnet-liquidity-engine/pkg/types"
)

type fakeClient struct {
	calls int32
	price types.Price
	err   error
}

func (f *fakeClient) QueryAccountSequence(ctx context.Context, address string) (uint64, error) {
	return 0, nil
}
func (f *fakeClient) QueryOpenOrders(ctx context.Context, address string, marketID []byte) ([]types.OpenOrder, error) {
	return nil, nil
}
func (f *fakeClient) QueryOrderbook(ctx context.Context, marketID []byte, refPrice float64) (types.OrderbookSnapshot, error) {
	return types.OrderbookSnapshot{}, nil
}
func (f *fakeClient) QueryMid(ctx context.Context, marketID []byte, mainnet bool) (types.Price, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return types.Unavailable, f.err
	}
	return f.price, nil
}
func (f *fakeClient) BroadcastBatch(ctx context.Context, tx types.SignedTx) (types.TxResult, error) {
	return types.TxResult{}, nil
}
func (f *fakeClient) BuildSignedBatch(ctx context.Context, wallet string, sequence uint64, creates []types.CreateIntent, cancels []types.CancelRef, marketType types.MarketType) (types.SignedTx, error) {
	return types.SignedTx{}, nil
}

var testMarket = types.Market{Symbol: "INJ/USDT"}

func TestMainnetMidCachesWithinInterval(t *testing.T) {
	t.Parallel()

	client := &fakeClient{price: types.Price{Value: 24.56, Available: true}}
	o := New(client, nil, 50*time.Millisecond)

	p1 := o.MainnetMid(context.Background(), testMarket)
	p2 := o.MainnetMid(context.Background(), testMarket)

	if !p1.Available || p1.Value != 24.56 {
		t.Fatalf("first MainnetMid() = %+v", p1)
	}
	if p2 != p1 {
		t.Errorf("second call should be served from cache: %+v vs %+v", p2, p1)
	}
	if atomic.LoadInt32(&client.calls) != 1 {
		t.Errorf("client calls = %d, want 1 (second call should hit cache)", client.calls)
	}
}

func TestMainnetMidReSamplesAfterTTL(t *testing.T) {
	t.Parallel()

	client := &fakeClient{price: types.Price{Value: 24.56, Available: true}}
	o := New(client, nil, 10*time.Millisecond)

	o.MainnetMid(context.Background(), testMarket)
	time.Sleep(20 * time.Millisecond)
	o.MainnetMid(context.Background(), testMarket)

	if atomic.LoadInt32(&client.calls) != 2 {
		t.Errorf("client calls = %d, want 2 (cache should expire)", client.calls)
	}
}

func TestMainnetMidUnavailableOnError(t *testing.T) {
	t.Parallel()

	client := &fakeClient{err: errors.New("connection refused")}
	o := New(client, nil, time.Second)

	price := o.MainnetMid(context.Background(), testMarket)
	if price.Available {
		t.Errorf("expected Unavailable on fetch error, got %+v", price)
	}
}

func TestTestnetMidIndependentCacheFromMainnet(t *testing.T) {
	t.Parallel()

	client := &fakeClient{price: types.Price{Value: 20.0, Available: true}}
	o := New(client, nil, time.Second)

	o.MainnetMid(context.Background(), testMarket)
	o.TestnetMid(context.Background(), testMarket)

	if atomic.LoadInt32(&client.calls) != 2 {
		t.Errorf("client calls = %d, want 2 (mainnet and testnet cached separately)", client.calls)
	}
}
