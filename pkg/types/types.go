// Package types defines shared data structures used across all packages.
//
// This is the common vocabulary for the engine — markets, wallets, price
// samples, orders, and the action plans the strategy layer produces. It has
// no dependencies on internal packages, so it can be imported by any layer.
package types

import "time"

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side represents the direction of an order: BUY or SELL.
type Side string

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"
)

// MarketType distinguishes the two on-chain order-book product types.
// Spot and derivative markets scale prices differently (see Market.PriceScale)
// and are built into differently-shaped signed batches by TxBuilder.
type MarketType string

const (
	Spot       MarketType = "SPOT"
	Derivative MarketType = "DERIVATIVE"
)

// OrderState mirrors the lifecycle of a resting order as reported by the chain.
type OrderState string

const (
	Booked  OrderState = "BOOKED"
	Partial OrderState = "PARTIAL"
	Active  OrderState = "ACTIVE"
)

// Phase is the action an ActionPlan commits to for one planning cycle.
type Phase string

const (
	PhaseMove     Phase = "MOVE"
	PhaseBuild    Phase = "BUILD"
	PhaseMaintain Phase = "MAINTAIN"
	PhaseIdle     Phase = "IDLE"
)

// ————————————————————————————————————————————————————————————————————————
// Market metadata
// ————————————————————————————————————————————————————————————————————————

// Market is static, immutable-after-load metadata for one tradeable symbol.
type Market struct {
	Symbol string // e.g. "INJ/USDT"
	Type   MarketType

	TestnetMarketID []byte // opaque on-chain market identifier (testnet)
	MainnetMarketID []byte // opaque on-chain market identifier (mainnet)

	// PriceScale is the power-of-ten exponent used to convert a human price
	// into on-chain integer units: chainPrice = humanPrice * 10^PriceScale.
	// Conventionally 12 for spot, 18 for derivative markets, 1 when quote
	// and base share decimals.
	PriceScale int

	BaseDecimals  int
	QuoteDecimals int

	MinPriceTick    float64
	MinQuantityTick float64
	MinNotional     float64
}

// WalletConfig is the per-wallet configuration loaded at startup.
// Private key material is held only by KeyProvider, never copied here.
type WalletConfig struct {
	WalletID      string
	Enabled       bool
	MaxOpenOrders int
	Markets       []string // symbols this wallet trades
}

// MarketParams tunes the planner's behavior for one (wallet, market) pair.
type MarketParams struct {
	BaseOrderSize         float64 // quote units
	BaseSpreadBps         int
	MinSpreadBps          int
	MaxSpreadBps          int
	DeviationThresholdBps int // gap above which price correction engages
	PriceRefreshInterval  time.Duration
	CycleInterval         time.Duration
}

// ————————————————————————————————————————————————————————————————————————
// Per-cycle data
// ————————————————————————————————————————————————————————————————————————

// Price is a sampled mid-price. Available is false when the venue could not
// produce one for this cycle — never a stale guess.
type Price struct {
	Value     float64
	Available bool
}

// Unavailable is the canonical "no price" value.
var Unavailable = Price{Available: false}

// PriceSample bundles one cycle's mainnet and testnet mid-price reads.
type PriceSample struct {
	Market     string
	MainnetMid Price
	TestnetMid Price
	SampledAt  time.Time
}

// OpenOrder is one of the wallet's own live orders, mirrored from the chain.
type OpenOrder struct {
	OrderHash      string
	Side           Side
	Price          float64
	Quantity       float64
	FilledQuantity float64
	State          OrderState
}

// OrderbookSnapshot is a point-in-time view of one market's depth.
type OrderbookSnapshot struct {
	Market          string
	BestBid         float64
	BestAsk         float64
	TotalOrders     int
	OrdersNearPrice int // count within ±5% of the reference price passed to snapshot()
	SampledAt       time.Time
}

// CreateIntent is a planner-produced order in human units; TxBuilder scales it.
type CreateIntent struct {
	Side          Side
	PriceHuman    float64
	QuantityHuman float64
}

// CancelRef selects one of the wallet's own open orders for cancellation.
// Cancel refs are advisory: a stale ref (order already gone) is dropped
// silently by TxBuilder rather than failing the whole batch.
type CancelRef struct {
	OrderHash string
}

// ActionPlan is the Planner's output for one cycle.
type ActionPlan struct {
	Phase     Phase
	Creates   []CreateIntent
	Cancels   []CancelRef
	Rationale string
}

// IsEmpty reports whether the plan has nothing to do.
func (p ActionPlan) IsEmpty() bool {
	return len(p.Creates) == 0 && len(p.Cancels) == 0
}

// ————————————————————————————————————————————————————————————————————————
// Sequence / broadcast
// ————————————————————————————————————————————————————————————————————————

// SequenceState is the controller's view of a wallet's signing sequence.
type SequenceState struct {
	Value             uint64
	LastRefreshedAt   time.Time
	ConsecutiveErrors int
	PersistedAt       time.Time
}

// TxResult is what the chain returns for a broadcast batch.
type TxResult struct {
	OK     bool
	Code   uint32
	RawLog string
	TxHash string
}

// SignedTx is an opaque, chain-ready signed transaction blob.
type SignedTx struct {
	Bytes []byte
}

// ————————————————————————————————————————————————————————————————————————
// WebSocket feed events (mainnet streaming price path)
// ————————————————————————————————————————————————————————————————————————
// These map to the JSON messages sent over the exchange's public market
// WebSocket channel: "trades" (last trade prints) and "orderbook" (L1 deltas).
// Only the mainnet side streams in this deployment — see oracle package.

// WSTradeEvent is a last-trade print for a market.
type WSTradeEvent struct {
	EventType string  `json:"event_type"` // always "trade"
	MarketID  string  `json:"market_id"`
	Price     string  `json:"price"`
	Quantity  string  `json:"quantity"`
	Timestamp string  `json:"timestamp"`
}

// WSOrderbookEvent is an incremental best-bid/best-ask update for a market.
type WSOrderbookEvent struct {
	EventType string `json:"event_type"` // always "orderbook"
	MarketID  string `json:"market_id"`
	BestBid   string `json:"best_bid"`
	BestAsk   string `json:"best_ask"`
	Timestamp string `json:"timestamp"`
}

// WSSubscribeMsg is the subscription message sent when connecting to the feed.
type WSSubscribeMsg struct {
	Type      string   `json:"type"` // "market"
	MarketIDs []string `json:"market_ids"`
}

// WSUpdateMsg dynamically subscribes/unsubscribes after the initial connection.
type WSUpdateMsg struct {
	MarketIDs []string `json:"market_ids"`
	Operation string   `json:"operation"` // "subscribe" or "unsubscribe"
}
