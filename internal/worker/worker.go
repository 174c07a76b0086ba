// Package worker implements WalletWorker: the per-wallet control loop
// tying PriceOracle, OrderbookView, SequenceController, TxBuilder, and
// Planner together. It owns the retry policy, circuit breaker, and
// graceful shutdown for one wallet.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/chain"
	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/oracle"
	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/orderbookview"
	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/planner"
	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/sequence"
	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/txbuilder"
	"github.com/InjectiveLabs/testnet-liquidity-engine/pkg/types"
)

// State is one of the explicit lifecycle states a worker moves through.
type State string

const (
	StateStarting State = "STARTING"
	StateRunning  State = "RUNNING"
	StateCooling  State = "COOLING"
	StateStopping State = "STOPPING"
	StateStopped  State = "STOPPED"
)

const (
	refreshCheckInterval = 30 * time.Second
	coolingSleep         = 10 * time.Second
	defaultCycleInterval = 15 * time.Second
	maxRetries           = 3
)

// Status is the read-only snapshot returned by the Supervisor surface.
type Status struct {
	State       State
	UptimeSince time.Time
	LastCycleAt time.Time
	LastError   string
}

// Worker runs one wallet's control loop across all of its configured
// markets, round-robin, one market per cycle, so that sequence numbers
// stay strictly serialized per account.
type Worker struct {
	wallet  types.WalletConfig
	markets []types.Market
	params  map[string]types.MarketParams // symbol -> params

	oracle  *oracle.Oracle
	view    *orderbookview.View
	planner *planner.Planner
	builder *txbuilder.Builder
	chain   chain.Client
	seq     *sequence.Controller
	rng     *rand.Rand

	mu             sync.Mutex
	state          State
	startedAt      time.Time
	lastCycleAt    time.Time
	lastErr        string
	maintainStage  map[string]int // symbol -> rotating stage index

	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs a Worker for one wallet. seed drives the per-worker RNG
// used by Planner, so the same seed reproduces the same sequence of plans.
func New(
	wallet types.WalletConfig,
	markets []types.Market,
	params map[string]types.MarketParams,
	client chain.Client,
	oracle *oracle.Oracle,
	view *orderbookview.View,
	seqController *sequence.Controller,
	seed int64,
) *Worker {
	return &Worker{
		wallet:        wallet,
		markets:       markets,
		params:        params,
		oracle:        oracle,
		view:          view,
		planner:       planner.New(),
		builder:       txbuilder.New(),
		chain:         client,
		seq:           seqController,
		rng:           rand.New(rand.NewSource(seed)),
		state:         StateStarting,
		maintainStage: make(map[string]int),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Status returns a snapshot of the worker's current state.
func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{
		State:       w.state,
		UptimeSince: w.startedAt,
		LastCycleAt: w.lastCycleAt,
		LastError:   w.lastErr,
	}
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	prev := w.state
	w.state = s
	w.mu.Unlock()
	slog.Info("worker: state transition", "wallet", w.wallet.WalletID, "from", prev, "to", s)
}

func (w *Worker) setError(err error) {
	w.mu.Lock()
	if err != nil {
		w.lastErr = err.Error()
	} else {
		w.lastErr = ""
	}
	w.mu.Unlock()
}

// Run executes the STARTING -> RUNNING -> ... -> STOPPED state machine
// until ctx is cancelled. It blocks until shutdown completes.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	w.startedAt = time.Now()
	w.mu.Unlock()
	defer close(w.doneCh)

	if err := w.start(ctx); err != nil {
		w.setState(StateStopped)
		return err
	}

	marketIdx := 0
	lastRefresh := time.Now()

	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			return nil
		case <-w.stopCh:
			w.shutdown()
			return nil
		default:
		}

		if len(w.markets) == 0 {
			w.shutdown()
			return errors.New("worker: no enabled markets")
		}

		market := w.markets[marketIdx%len(w.markets)]
		marketIdx++

		w.setState(StateRunning)
		w.runCycle(ctx, market)

		if time.Since(lastRefresh) >= refreshCheckInterval {
			w.seq.Refresh(ctx, false)
			if err := w.seq.CheckDrift(ctx); err != nil {
				slog.Warn("worker: drift check failed", "wallet", w.wallet.WalletID, "error", err)
			}
			lastRefresh = time.Now()
		}

		if w.seq.Tripped() {
			w.cool(ctx)
		}

		if !sleepOrStop(ctx, w.stopCh, w.cycleInterval(market.Symbol)) {
			w.shutdown()
			return nil
		}
	}
}

func (w *Worker) cycleInterval(symbol string) time.Duration {
	if p, ok := w.params[symbol]; ok && p.CycleInterval > 0 {
		return p.CycleInterval
	}
	return defaultCycleInterval
}

func (w *Worker) start(ctx context.Context) error {
	w.seq.Refresh(ctx, true)
	if len(w.markets) == 0 {
		return errors.New("worker: startup requires at least one enabled market")
	}
	w.setState(StateRunning)
	return nil
}

// runCycle executes one full planning+broadcast cycle for market. Errors
// are absorbed into worker state (lastErr) rather than propagated — only
// Run's top-level loop decides whether to stop.
func (w *Worker) runCycle(ctx context.Context, market types.Market) {
	w.mu.Lock()
	w.lastCycleAt = time.Now()
	w.mu.Unlock()

	mainnetMid := w.oracle.MainnetMid(ctx, market)
	testnetMid := w.oracle.TestnetMid(ctx, market)
	sample := types.PriceSample{
		Market:     market.Symbol,
		MainnetMid: mainnetMid,
		TestnetMid: testnetMid,
		SampledAt:  time.Now(),
	}

	var refPrice float64
	if mainnetMid.Available {
		refPrice = mainnetMid.Value
	}

	snapshot, err := w.view.Snapshot(ctx, market, refPrice)
	if err != nil {
		slog.Warn("worker: snapshot fetch failed, skipping cycle", "wallet", w.wallet.WalletID, "market", market.Symbol, "error", err)
		w.setError(err)
		return
	}

	openOrders, err := w.view.OwnOrders(ctx, w.wallet.WalletID, market)
	if err != nil {
		slog.Warn("worker: own-orders fetch failed, skipping cycle", "wallet", w.wallet.WalletID, "market", market.Symbol, "error", err)
		w.setError(err)
		return
	}

	params := w.params[market.Symbol]
	stageIdx := w.nextMaintainStage(market.Symbol)

	plan := w.planner.Plan(w.rng, sample, snapshot, openOrders, params, market.MinPriceTick, w.wallet.MaxOpenOrders, stageIdx)
	if plan.IsEmpty() {
		w.setError(nil)
		return
	}

	creates, cancels, err := w.builder.Prepare(market, plan, openOrders)
	if errors.Is(err, txbuilder.ErrNothingToDo) {
		w.setError(nil)
		return
	}
	if err != nil {
		w.setError(err)
		return
	}

	w.broadcastWithRetry(ctx, market, creates, cancels)
}

func (w *Worker) nextMaintainStage(symbol string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := w.maintainStage[symbol]
	w.maintainStage[symbol] = idx + 1
	return idx
}

// broadcastWithRetry drives the SequenceController lease up to maxRetries
// times, honoring the wait durations the controller's classification
// prescribes between attempts. creates/cancels must already be scaled and
// filtered (via Builder.Prepare) before this is called — ErrNothingToDo is
// handled by the caller outside the lease, so a sequence number is only
// ever consumed when there is something to broadcast.
func (w *Worker) broadcastWithRetry(ctx context.Context, market types.Market, creates []types.CreateIntent, cancels []types.CancelRef) {
	for attempt := 1; attempt <= maxRetries; attempt++ {
		result := w.seq.WithSequence(ctx, func(ctx context.Context, seq uint64) error {
			signedTx, err := w.chain.BuildSignedBatch(ctx, w.wallet.WalletID, seq, creates, cancels, market.Type)
			if err != nil {
				return err
			}

			txResult, err := w.chain.BroadcastBatch(ctx, signedTx)
			if err != nil {
				return err
			}
			if !txResult.OK {
				return errors.New(txResult.RawLog)
			}
			return nil
		})

		switch result.Classification {
		case sequence.Success:
			w.setError(nil)
			return
		case sequence.Fatal:
			w.setError(result.Err)
			return
		case sequence.Retryable:
			w.setError(result.Err)
			if attempt == maxRetries {
				return
			}
			if result.Wait > 0 {
				if !sleepOrStop(ctx, w.stopCh, result.Wait) {
					return
				}
			}
		}
	}
}

// cool sleeps for the circuit-breaker cooldown, forces a sequence refresh,
// and resets the consecutive-error counter before returning to RUNNING.
func (w *Worker) cool(ctx context.Context) {
	w.setState(StateCooling)
	sleepOrStop(ctx, w.stopCh, coolingSleep)
	w.seq.Refresh(ctx, true)
	w.seq.ResetErrors()
	w.setState(StateRunning)
}

// Stop signals the worker to finish its current cycle and exit. It does
// not force-cancel an in-flight withSequence lease — that lease is
// bounded by the broadcast timeout and always completes on its own.
func (w *Worker) Stop() {
	w.setState(StateStopping)
	close(w.stopCh)
	<-w.doneCh
}

func (w *Worker) shutdown() {
	w.setState(StateStopped)
}

func sleepOrStop(ctx context.Context, stopCh <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-stopCh:
		return false
	case <-timer.C:
		return true
	}
}
