package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/catalog"
	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/config"
	"github.com/InjectiveLabs/testnet-liquidity-engine/pkg/types"
)

type fakeClient struct{}

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
	return types.Price{Value: 10, Available: true}, nil
}
func (f *fakeClient) BroadcastBatch(ctx context.Context, tx types.SignedTx) (types.TxResult, error) {
	return types.TxResult{OK: true, TxHash: "hash"}, nil
}
func (f *fakeClient) BuildSignedBatch(ctx context.Context, wallet string, sequence uint64, creates []types.CreateIntent, cancels []types.CancelRef, marketType types.MarketType) (types.SignedTx, error) {
	return types.SignedTx{Bytes: []byte("tx")}, nil
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cfg := &config.Config{
		Markets: map[string]config.MarketSection{
			"INJ/USDT": {
				TestnetMarketID: "aa", MainnetMarketID: "bb", Type: "SPOT",
				BaseDecimals: 18, QuoteDecimals: 6, PriceScale: 12,
				MinPriceTick: 0.0001, MinQuantityTick: 0.01, MinNotional: 1,
			},
		},
		Wallets: map[string]config.WalletSection{
			"w0": {Markets: []string{"INJ/USDT"}},
		},
	}
	cat, err := catalog.Load(cfg)
	if err != nil {
		t.Fatalf("catalog.Load() error = %v", err)
	}
	return cat
}

func TestStartWorkerThenStopWorker(t *testing.T) {
	t.Parallel()

	s := New(testCatalog(t), &fakeClient{}, nil, "")
	wallet := types.WalletConfig{WalletID: "w0", MaxOpenOrders: 50}
	params := WalletMarketParams{"INJ/USDT": {BaseOrderSize: 15, CycleInterval: 5 * time.Millisecond}}

	if err := s.StartWorker(context.Background(), wallet, params, 1); err != nil {
		t.Fatalf("StartWorker() error = %v", err)
	}

	if err := s.StartWorker(context.Background(), wallet, params, 1); err == nil {
		t.Error("expected error starting an already-running wallet worker")
	}

	time.Sleep(20 * time.Millisecond)
	status, err := s.WorkerStatus("w0")
	if err != nil {
		t.Fatalf("WorkerStatus() error = %v", err)
	}
	if status.State == "" {
		t.Error("expected a non-empty worker state")
	}

	if err := s.StopWorker("w0", true); err != nil {
		t.Fatalf("StopWorker() error = %v", err)
	}
	if _, err := s.WorkerStatus("w0"); err == nil {
		t.Error("expected error after stopping the worker")
	}
}

func TestStartWorkerUnknownWallet(t *testing.T) {
	t.Parallel()

	s := New(testCatalog(t), &fakeClient{}, nil, "")
	wallet := types.WalletConfig{WalletID: "ghost"}

	if err := s.StartWorker(context.Background(), wallet, nil, 1); err == nil {
		t.Error("expected error starting a worker for an unconfigured wallet")
	}
}

func TestStopAllStopsEveryWorker(t *testing.T) {
	t.Parallel()

	s := New(testCatalog(t), &fakeClient{}, nil, "")
	wallet := types.WalletConfig{WalletID: "w0", MaxOpenOrders: 50}
	params := WalletMarketParams{"INJ/USDT": {BaseOrderSize: 15, CycleInterval: 5 * time.Millisecond}}

	if err := s.StartWorker(context.Background(), wallet, params, 1); err != nil {
		t.Fatalf("StartWorker() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.StopAll()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("StopAll did not return in time")
	}

	if _, err := s.WorkerStatus("w0"); err == nil {
		t.Error("expected no running workers after StopAll")
	}
}
