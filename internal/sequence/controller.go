// Package sequence implements SequenceController: the exclusive-access
// primitive that keeps a wallet's signing sequence number correct under
// concurrent cycle restarts, transient network errors, and chain-side
// reorderings. This is the subtle part of the engine — every other
// component either reads immutable metadata or produces per-cycle values
// discarded at the end of the cycle; this one owns long-lived mutable
// state that must never be touched by two goroutines at once.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/InjectiveLabs/testnet-liquidity-engine/pkg/types"
)

// Classification is the outcome of one withSequence attempt.
type Classification int

const (
	Success Classification = iota
	Retryable
	Fatal
)

func (c Classification) String() string {
	switch c {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result is returned by withSequence: the classification plus however
// long the caller should wait before retrying (zero if none).
type Result struct {
	Classification Classification
	Wait           time.Duration
	Err            error
}

// QuerySequence fetches the authoritative next sequence number from the
// chain. Implemented by chain.RESTClient.QueryAccountSequence.
type QuerySequence func(ctx context.Context) (uint64, error)

// Checkpointer persists and restores SequenceState across restarts.
// Implemented by persist.Store.
type Checkpointer interface {
	SaveSequence(walletID string, state types.SequenceState) error
	LoadSequence(walletID string) (types.SequenceState, error)
}

const (
	refreshInterval     = 30 * time.Second
	driftThreshold      = 2
	tripThreshold       = 3
	sequenceMismatchWait = 3 * time.Second
	timeoutHeightWait    = 5 * time.Second
)

// Controller owns one wallet's sequence number. Mutual exclusion on
// withSequence is enforced by a buffered channel of capacity 1 used as a
// single-holder lease: acquire = receive from the channel, release = send
// back into it. This is the idiomatic alternative to holding a mutex
// across an entire network round trip.
type Controller struct {
	walletID string
	query    QuerySequence
	store    Checkpointer

	lease chan struct{}

	mu    sync.Mutex
	state types.SequenceState
}

// New constructs a Controller for walletID. query fetches the
// authoritative sequence from the chain; store may be nil to disable
// checkpointing.
func New(walletID string, query QuerySequence, store Checkpointer) *Controller {
	c := &Controller{
		walletID: walletID,
		query:    query,
		store:    store,
		lease:    make(chan struct{}, 1),
	}
	c.lease <- struct{}{} // lease starts available

	if store != nil {
		if saved, err := store.LoadSequence(walletID); err == nil && saved.Value > 0 {
			c.state = saved
		}
	}
	return c
}

// Value returns the current local sequence value. Reads outside the
// controller's own API are otherwise forbidden by convention; this is a
// read-only snapshot for status reporting.
func (c *Controller) Value() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Value
}

// Tripped reports whether the consecutive-error circuit breaker is open.
func (c *Controller) Tripped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ConsecutiveErrors >= tripThreshold
}

// WithSequence acquires the exclusive lease, invokes fn with the current
// sequence value, and updates state based on fn's outcome. Exactly one
// WithSequence call may be in flight for a given wallet; a second
// concurrent call blocks on the lease channel until the first releases it.
func (c *Controller) WithSequence(ctx context.Context, fn func(ctx context.Context, seq uint64) error) Result {
	select {
	case <-c.lease:
	case <-ctx.Done():
		return Result{Classification: Fatal, Err: ctx.Err()}
	}
	defer func() { c.lease <- struct{}{} }()

	c.mu.Lock()
	seq := c.state.Value
	c.mu.Unlock()

	err := fn(ctx, seq)
	return c.classify(ctx, err, seq)
}

func (c *Controller) classify(ctx context.Context, err error, seq uint64) Result {
	if err == nil {
		c.mu.Lock()
		c.state.Value = seq + 1
		c.state.ConsecutiveErrors = 0
		c.mu.Unlock()
		c.checkpoint()
		return Result{Classification: Success}
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "sequence mismatch") || strings.Contains(msg, "account sequence"):
		c.Refresh(ctx, true)
		c.bumpErrors()
		return Result{Classification: Retryable, Wait: sequenceMismatchWait, Err: err}

	case strings.Contains(msg, "timeout height"):
		c.bumpErrors()
		return Result{Classification: Retryable, Wait: timeoutHeightWait, Err: err}

	default:
		attempts := c.bumpErrors()
		if attempts >= tripThreshold {
			return Result{Classification: Fatal, Err: err}
		}
		return Result{Classification: Retryable, Err: err}
	}
}

func (c *Controller) bumpErrors() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ConsecutiveErrors++
	n := c.state.ConsecutiveErrors
	return n
}

// Refresh queries the chain for the authoritative sequence number and
// adopts it. If not forced and the last refresh was under 30s ago, this is
// a no-op. A query failure leaves state unchanged.
func (c *Controller) Refresh(ctx context.Context, force bool) {
	c.mu.Lock()
	sinceLast := time.Since(c.state.LastRefreshedAt)
	c.mu.Unlock()

	if !force && sinceLast < refreshInterval {
		return
	}

	authoritative, err := c.query(ctx)
	if err != nil {
		slog.Warn("sequence: refresh failed, state unchanged", "wallet", c.walletID, "error", err)
		return
	}

	c.mu.Lock()
	c.state.Value = authoritative
	c.state.LastRefreshedAt = time.Now()
	c.mu.Unlock()
	c.checkpoint()
}

// CheckDrift queries the authoritative sequence and, if it differs from
// the local value by more than 2, overwrites the local value and logs the
// correction.
func (c *Controller) CheckDrift(ctx context.Context) error {
	authoritative, err := c.query(ctx)
	if err != nil {
		return fmt.Errorf("sequence: check drift: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var drift int64
	if authoritative >= c.state.Value {
		drift = int64(authoritative - c.state.Value)
	} else {
		drift = int64(c.state.Value - authoritative)
	}
	if drift > driftThreshold {
		slog.Warn("sequence: drift detected, overwriting local value",
			"wallet", c.walletID, "local", c.state.Value, "authoritative", authoritative, "drift", drift)
		c.state.Value = authoritative
	}
	return nil
}

// ResetErrors clears the consecutive-error counter, used when the worker
// exits COOLING and returns to RUNNING.
func (c *Controller) ResetErrors() {
	c.mu.Lock()
	c.state.ConsecutiveErrors = 0
	c.mu.Unlock()
}

func (c *Controller) checkpoint() {
	if c.store == nil {
		return
	}
	c.mu.Lock()
	snapshot := c.state
	snapshot.PersistedAt = time.Now()
	c.mu.Unlock()

	if err := c.store.SaveSequence(c.walletID, snapshot); err != nil {
		slog.Warn("sequence: checkpoint failed", "wallet", c.walletID, "error", err)
	}
}

// ErrLeaseContention is returned only by TryAcquire — WithSequence blocks
// rather than erroring on contention — so callers can detect the
// invariant-violation case of attempting a second concurrent acquisition.
var ErrLeaseContention = errors.New("sequence: lease already held")

// TryAcquire attempts a non-blocking lease acquisition, returning
// ErrLeaseContention if another WithSequence call currently holds it. Used
// by tests proving mutual exclusion.
func (c *Controller) TryAcquire() (release func(), err error) {
	select {
	case <-c.lease:
		return func() { c.lease <- struct{}{} }, nil
	default:
		return nil, ErrLeaseContention
	}
}
