// Package chain implements the opaque ChainClient boundary: REST queries
// against an Injective-style testnet/mainnet order-book exchange, batched
// create/cancel broadcasts, and a streaming mid-price feed for mainnet.
package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/InjectiveLabs/testnet-liquidity-engine/pkg/types"
)

// Client is the interface every consumer in the core depends on. Only
// RESTClient implements it in this module, but nothing outside this
// package knows that.
type Client interface {
	QueryAccountSequence(ctx context.Context, address string) (uint64, error)
	QueryOpenOrders(ctx context.Context, address string, marketID []byte) ([]types.OpenOrder, error)
	QueryOrderbook(ctx context.Context, marketID []byte, refPrice float64) (types.OrderbookSnapshot, error)
	QueryMid(ctx context.Context, marketID []byte, mainnet bool) (types.Price, error)
	BroadcastBatch(ctx context.Context, tx types.SignedTx) (types.TxResult, error)
	BuildSignedBatch(ctx context.Context, wallet string, sequence uint64, creates []types.CreateIntent, cancels []types.CancelRef, marketType types.MarketType) (types.SignedTx, error)
}

// RESTClient is the concrete Client backed by an HTTP REST/LCD + Exchange
// API endpoint, modeled the way the teacher wraps resty.Client with a
// dry-run short-circuit and per-category rate limiting.
type RESTClient struct {
	testnet *resty.Client
	mainnet *resty.Client
	rl      *RateLimiter
	dryRun  bool

	mu      sync.RWMutex
	signers map[string]Signer // wallet ID -> signer, registered by the supervisor at startup
}

// Option configures a RESTClient.
type Option func(*RESTClient)

// WithDryRun makes BroadcastBatch short-circuit with a fake success instead
// of hitting the network — used for local testing and CI.
func WithDryRun(dryRun bool) Option {
	return func(c *RESTClient) { c.dryRun = dryRun }
}

// NewRESTClient builds a client pointed at the given testnet/mainnet base
// URLs. Each wallet's signer must be registered separately via
// RegisterSigner before that wallet can broadcast — one RESTClient is
// shared across every wallet worker, but each wallet signs with its own key.
func NewRESTClient(testnetURL, mainnetURL string, timeout time.Duration, opts ...Option) *RESTClient {
	c := &RESTClient{
		testnet: resty.New().SetBaseURL(testnetURL).SetTimeout(timeout),
		mainnet: resty.New().SetBaseURL(mainnetURL).SetTimeout(timeout),
		rl:      NewRateLimiter(),
		signers: make(map[string]Signer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterSigner associates walletID with the Signer that derives and signs
// for it, so BuildSignedBatch can look it up by the wallet string TxBuilder
// already threads through every call.
func (c *RESTClient) RegisterSigner(walletID string, signer Signer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signers[walletID] = signer
}

type accountSequenceResponse struct {
	Sequence uint64 `json:"sequence"`
}

// QueryAccountSequence fetches the authoritative next sequence number for
// address from the testnet LCD.
func (c *RESTClient) QueryAccountSequence(ctx context.Context, address string) (uint64, error) {
	if err := c.rl.Queries.Wait(ctx); err != nil {
		return 0, err
	}

	var body accountSequenceResponse
	resp, err := c.testnet.R().
		SetContext(ctx).
		SetResult(&body).
		Get(fmt.Sprintf("/cosmos/auth/v1beta1/accounts/%s/sequence", address))
	if err != nil {
		return 0, fmt.Errorf("chain: query account sequence: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("chain: query account sequence: status %d: %s", resp.StatusCode(), resp.String())
	}
	return body.Sequence, nil
}

type openOrdersResponse struct {
	Orders []types.OpenOrder `json:"orders"`
}

// QueryOpenOrders fetches the wallet's own live orders on one market.
func (c *RESTClient) QueryOpenOrders(ctx context.Context, address string, marketID []byte) ([]types.OpenOrder, error) {
	if err := c.rl.BookReads.Wait(ctx); err != nil {
		return nil, err
	}

	var body openOrdersResponse
	resp, err := c.testnet.R().
		SetContext(ctx).
		SetQueryParam("subaccount", address).
		SetQueryParam("market_id", hexMarketID(marketID)).
		SetResult(&body).
		Get("/exchange/orders")
	if err != nil {
		return nil, fmt.Errorf("chain: query open orders: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("chain: query open orders: status %d: %s", resp.StatusCode(), resp.String())
	}
	return body.Orders, nil
}

type orderbookResponse struct {
	BestBid     float64 `json:"best_bid"`
	BestAsk     float64 `json:"best_ask"`
	TotalOrders int     `json:"total_orders"`
}

// QueryOrderbook fetches market-wide depth and counts orders within ±5%
// of refPrice.
func (c *RESTClient) QueryOrderbook(ctx context.Context, marketID []byte, refPrice float64) (types.OrderbookSnapshot, error) {
	if err := c.rl.BookReads.Wait(ctx); err != nil {
		return types.OrderbookSnapshot{}, err
	}

	var body orderbookResponse
	resp, err := c.testnet.R().
		SetContext(ctx).
		SetQueryParam("market_id", hexMarketID(marketID)).
		SetResult(&body).
		Get("/exchange/orderbook")
	if err != nil {
		return types.OrderbookSnapshot{}, fmt.Errorf("chain: query orderbook: %w", err)
	}
	if resp.IsError() {
		return types.OrderbookSnapshot{}, fmt.Errorf("chain: query orderbook: status %d: %s", resp.StatusCode(), resp.String())
	}

	near, err := c.nearCount(ctx, marketID, refPrice)
	if err != nil {
		slog.Warn("chain: near-price count failed, using 0", "error", err)
		near = 0
	}

	return types.OrderbookSnapshot{
		BestBid:         body.BestBid,
		BestAsk:         body.BestAsk,
		TotalOrders:     body.TotalOrders,
		OrdersNearPrice: near,
		SampledAt:       time.Now(),
	}, nil
}

type nearCountResponse struct {
	Count int `json:"count"`
}

func (c *RESTClient) nearCount(ctx context.Context, marketID []byte, refPrice float64) (int, error) {
	var body nearCountResponse
	resp, err := c.testnet.R().
		SetContext(ctx).
		SetQueryParam("market_id", hexMarketID(marketID)).
		SetQueryParam("ref_price", fmt.Sprintf("%f", refPrice)).
		SetQueryParam("pct", "0.05").
		SetResult(&body).
		Get("/exchange/orderbook/near_count")
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())
	}
	return body.Count, nil
}

type midResponse struct {
	LastTrade *float64 `json:"last_trade"`
	BestBid   float64  `json:"best_bid"`
	BestAsk   float64  `json:"best_ask"`
}

// QueryMid fetches a mid-price, preferring the last trade when it is
// coherent with the book. mainnet selects which network's endpoint is
// queried — Oracle calls this once per side with the matching flag.
func (c *RESTClient) QueryMid(ctx context.Context, marketID []byte, mainnet bool) (types.Price, error) {
	if err := c.rl.Queries.Wait(ctx); err != nil {
		return types.Unavailable, err
	}

	target := c.testnet
	if mainnet {
		target = c.mainnet
	}

	var body midResponse
	resp, err := target.R().
		SetContext(ctx).
		SetQueryParam("market_id", hexMarketID(marketID)).
		SetResult(&body).
		Get("/exchange/mid")
	if err != nil {
		return types.Unavailable, fmt.Errorf("chain: query mid: %w", err)
	}
	if resp.IsError() {
		return types.Unavailable, fmt.Errorf("chain: query mid: status %d: %s", resp.StatusCode(), resp.String())
	}

	return resolveMid(body.LastTrade, body.BestBid, body.BestAsk), nil
}

// resolveMid implements PriceOracle's mid-price preference rule: use the
// last trade if present and within 5% of the book mid, else the book mid,
// else Unavailable.
func resolveMid(lastTrade *float64, bestBid, bestAsk float64) types.Price {
	if bestBid <= 0 && bestAsk <= 0 {
		if lastTrade != nil && *lastTrade > 0 {
			return types.Price{Value: *lastTrade, Available: true}
		}
		return types.Unavailable
	}
	bookMid := (bestBid + bestAsk) / 2
	if bookMid <= 0 {
		return types.Unavailable
	}
	if lastTrade != nil {
		deviation := abs(*lastTrade-bookMid) / bookMid
		if deviation <= 0.05 {
			return types.Price{Value: *lastTrade, Available: true}
		}
	}
	return types.Price{Value: bookMid, Available: true}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// BroadcastBatch submits a signed transaction. In dry-run mode it returns
// a fake success without touching the network.
func (c *RESTClient) BroadcastBatch(ctx context.Context, tx types.SignedTx) (types.TxResult, error) {
	if c.dryRun {
		return types.TxResult{OK: true, Code: 0, TxHash: "dryrun-" + fmt.Sprint(time.Now().UnixNano())}, nil
	}

	if err := c.rl.Broadcasts.Wait(ctx); err != nil {
		return types.TxResult{}, err
	}

	resp, err := c.testnet.R().
		SetContext(ctx).
		SetBody(map[string]string{"tx_bytes": string(tx.Bytes)}).
		Post("/cosmos/tx/v1beta1/txs")
	if err != nil {
		return types.TxResult{}, fmt.Errorf("chain: broadcast: %w", err)
	}

	var result types.TxResult
	if jsonErr := json.Unmarshal(resp.Body(), &result); jsonErr != nil {
		return types.TxResult{}, fmt.Errorf("chain: broadcast: decode response: %w", jsonErr)
	}
	return result, nil
}

// BuildSignedBatch delegates to wallet's registered Signer to produce a
// signed, chain-ready transaction envelope from an already-scaled batch.
// Scaling itself is TxBuilder's job; this method only looks up the signer
// and wraps/signs.
func (c *RESTClient) BuildSignedBatch(ctx context.Context, wallet string, sequence uint64, creates []types.CreateIntent, cancels []types.CancelRef, marketType types.MarketType) (types.SignedTx, error) {
	c.mu.RLock()
	signer, ok := c.signers[wallet]
	c.mu.RUnlock()
	if !ok {
		return types.SignedTx{}, fmt.Errorf("chain: no signer registered for wallet %q", wallet)
	}
	return signer.Sign(ctx, wallet, sequence, creates, cancels, marketType)
}

func hexMarketID(id []byte) string {
	return fmt.Sprintf("%x", id)
}
