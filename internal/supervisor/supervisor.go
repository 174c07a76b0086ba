// Package supervisor provides the minimal Supervisor surface needed to
// run the engine: one worker per enabled wallet, started from the static
// wallets.*.markets config set rather than a dynamically scanned market
// set. No HTTP/WS dashboard is exposed — WorkerStatus is a plain method;
// cmd/liquidityd does not call it, only the tests do.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/catalog"
	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/chain"
	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/oracle"
	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/orderbookview"
	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/persist"
	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/sequence"
	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/worker"
	"github.com/InjectiveLabs/testnet-liquidity-engine/pkg/types"
)

// WalletMarketParams supplies the per-market MarketParams for one wallet,
// keyed by symbol — assembled by the caller from config.MarketSection.
type WalletMarketParams map[string]types.MarketParams

// Supervisor starts and stops one Worker per enabled wallet, adapted from
// the teacher's engine reconcile loop but driven entirely by the static
// config set rather than dynamic market discovery.
type Supervisor struct {
	catalog   *catalog.Catalog
	client    chain.Client
	store     *persist.Store
	mainnetWS string // empty disables streaming warm-cache feeds

	mu      sync.Mutex
	workers map[string]*runningWorker
	wg      sync.WaitGroup
}

type runningWorker struct {
	w      *worker.Worker
	cancel context.CancelFunc
}

// New builds a Supervisor. store may be nil to disable sequence
// checkpointing. mainnetWS may be empty, in which case oracles fall back to
// direct REST polling instead of a warm WS-fed book.
func New(cat *catalog.Catalog, client chain.Client, store *persist.Store, mainnetWS string) *Supervisor {
	return &Supervisor{
		catalog:   cat,
		client:    client,
		store:     store,
		mainnetWS: mainnetWS,
		workers:   make(map[string]*runningWorker),
	}
}

// StartWorker launches a worker for walletID if one is not already
// running. seed is the per-worker RNG seed (use a fixed value for
// deterministic test runs, a random one otherwise). params supplies the
// per-market planner tuning.
func (s *Supervisor) StartWorker(ctx context.Context, wallet types.WalletConfig, params WalletMarketParams, seed int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workers[wallet.WalletID]; exists {
		return fmt.Errorf("supervisor: worker for wallet %q already running", wallet.WalletID)
	}

	markets, err := s.catalog.EnabledMarkets(wallet.WalletID)
	if err != nil {
		return fmt.Errorf("supervisor: %w", err)
	}
	if len(markets) == 0 {
		return fmt.Errorf("supervisor: wallet %q has no enabled markets", wallet.WalletID)
	}

	workerCtx, cancel := context.WithCancel(ctx)

	books := make(map[string]*chain.Book, len(markets))
	for _, m := range markets {
		book := chain.NewBook()
		books[m.Symbol] = book

		if s.mainnetWS == "" {
			continue
		}
		feed := chain.NewWSFeed(s.mainnetWS, m.MainnetMarketID, book)
		s.wg.Add(1)
		go func(symbol string) {
			defer s.wg.Done()
			if err := feed.Run(workerCtx); err != nil && workerCtx.Err() == nil {
				slog.Warn("supervisor: ws feed exited", "wallet", wallet.WalletID, "market", symbol, "error", err)
			}
		}(m.Symbol)
	}

	o := oracle.New(s.client, books, params.refreshIntervalOrDefault(markets[0].Symbol))
	view := orderbookview.New(s.client)

	query := func(ctx context.Context) (uint64, error) {
		return s.client.QueryAccountSequence(ctx, wallet.WalletID)
	}
	var checkpointer sequence.Checkpointer
	if s.store != nil {
		checkpointer = s.store
	}
	seqController := sequence.New(wallet.WalletID, query, checkpointer)

	w := worker.New(wallet, markets, map[string]types.MarketParams(params), s.client, o, view, seqController, seed)

	s.workers[wallet.WalletID] = &runningWorker{w: w, cancel: cancel}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := w.Run(workerCtx); err != nil {
			slog.Error("supervisor: worker exited with error", "wallet", wallet.WalletID, "error", err)
		}
	}()

	return nil
}

func (p WalletMarketParams) refreshIntervalOrDefault(symbol string) time.Duration {
	if v, ok := p[symbol]; ok && v.PriceRefreshInterval > 0 {
		return v.PriceRefreshInterval
	}
	return 5 * time.Second
}

// StopWorker stops the named wallet's worker. graceful=true waits for the
// current cycle to finish (Worker.Stop's normal behavior); this
// implementation always stops gracefully since WalletWorker never
// supports a hard-abort mid-lease per spec.md §5.
func (s *Supervisor) StopWorker(walletID string, graceful bool) error {
	s.mu.Lock()
	rw, ok := s.workers[walletID]
	if ok {
		delete(s.workers, walletID)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("supervisor: no running worker for wallet %q", walletID)
	}

	rw.w.Stop()
	rw.cancel()
	return nil
}

// WorkerStatus reports state/uptime/lastCycleAt/lastError for walletID.
func (s *Supervisor) WorkerStatus(walletID string) (worker.Status, error) {
	s.mu.Lock()
	rw, ok := s.workers[walletID]
	s.mu.Unlock()

	if !ok {
		return worker.Status{}, fmt.Errorf("supervisor: no running worker for wallet %q", walletID)
	}
	return rw.w.Status(), nil
}

// StopAll stops every running worker and waits for all of them to exit.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.workers))
	for id := range s.workers {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		if err := s.StopWorker(id, true); err != nil {
			slog.Warn("supervisor: stop worker failed", "wallet", id, "error", err)
		}
	}
	s.wg.Wait()
}
