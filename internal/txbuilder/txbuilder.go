// Package txbuilder implements TxBuilder: turns an ActionPlan plus a
// sequence lease into a single signed batched transaction, scaling human
// prices/quantities into on-chain units with exact decimal arithmetic
// (shopspring/decimal) to avoid accumulating rounding error across the
// tick/notional checks.
package txbuilder

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/chain"
	"github.com/InjectiveLabs/testnet-liquidity-engine/pkg/types"
)

// ErrNothingToDo is returned when, after rejecting invalid creates and
// stale cancels, the plan has nothing left to broadcast. The caller skips
// the broadcast without consuming a sequence number.
var ErrNothingToDo = errors.New("txbuilder: plan has no valid creates or cancels")

// Builder scales an ActionPlan's human-unit intents into on-chain units
// and delegates the actual signed-envelope construction to ChainClient.
type Builder struct{}

// New returns a Builder. It has no state — every call is a pure function
// of its arguments plus the market's static tick/scale metadata.
func New() *Builder {
	return &Builder{}
}

// Prepare scales plan's creates into on-chain units and drops any cancel
// whose OrderHash is not in knownOrders (cancels are advisory, not a batch
// failure). Returns ErrNothingToDo if nothing survives validation. Callers
// that drive a sequence lease must call Prepare before acquiring it — a
// plan that resolves to nothing must not consume a sequence number, and
// that only ever shows up after scaling/filtering, not from plan.IsEmpty().
func (b *Builder) Prepare(
	market types.Market,
	plan types.ActionPlan,
	knownOrders []types.OpenOrder,
) ([]types.CreateIntent, []types.CancelRef, error) {
	creates := b.scaleCreates(plan.Creates, market)
	cancels := filterKnownCancels(plan.Cancels, knownOrders)

	if len(creates) == 0 && len(cancels) == 0 {
		return nil, nil, ErrNothingToDo
	}
	return creates, cancels, nil
}

// Build validates and scales plan against market via Prepare, then asks
// client to produce a signed transaction for wallet at sequence. Returns
// ErrNothingToDo if nothing survives validation.
func (b *Builder) Build(
	ctx context.Context,
	client chain.Client,
	wallet string,
	sequence uint64,
	market types.Market,
	plan types.ActionPlan,
	knownOrders []types.OpenOrder,
) (types.SignedTx, error) {
	creates, cancels, err := b.Prepare(market, plan, knownOrders)
	if err != nil {
		return types.SignedTx{}, err
	}
	return client.BuildSignedBatch(ctx, wallet, sequence, creates, cancels, market.Type)
}

// scaleCreates rounds each intent's price inward to the market's tick
// (BUY down, SELL up) and its quantity down to the quantity tick, then
// drops anything that lands on zero quantity or below minNotional.
func (b *Builder) scaleCreates(intents []types.CreateIntent, market types.Market) []types.CreateIntent {
	priceScaleFactor := decimal.New(1, int32(market.PriceScale))
	baseScaleFactor := decimal.New(1, int32(market.BaseDecimals))
	minPriceTick := decimal.NewFromFloat(market.MinPriceTick)
	minQtyTick := decimal.NewFromFloat(market.MinQuantityTick)
	minNotional := decimal.NewFromFloat(market.MinNotional)

	out := make([]types.CreateIntent, 0, len(intents))
	for _, intent := range intents {
		chainPrice := scalePrice(decimal.NewFromFloat(intent.PriceHuman), priceScaleFactor, minPriceTick, intent.Side)
		chainQty := scaleQuantity(decimal.NewFromFloat(intent.QuantityHuman), baseScaleFactor, minQtyTick)

		if chainQty.IsZero() {
			continue
		}
		notional := chainPrice.Mul(chainQty)
		if notional.LessThan(minNotional) {
			continue
		}

		out = append(out, types.CreateIntent{
			Side:          intent.Side,
			PriceHuman:    mustFloat(chainPrice),
			QuantityHuman: mustFloat(chainQty),
		})
	}
	return dedupe(out, minPriceTick)
}

// scalePrice implements chainPrice = round(priceHuman * scale / tick) * tick,
// with the round() replaced by the round-inward rule: BUY rounds down
// (less aggressive than intended only by rounding toward the book),
// SELL rounds up.
func scalePrice(priceHuman, scale, tick decimal.Decimal, side types.Side) decimal.Decimal {
	if tick.IsZero() {
		return priceHuman.Mul(scale)
	}
	units := priceHuman.Mul(scale).Div(tick)
	var rounded decimal.Decimal
	if side == types.BUY {
		rounded = units.Floor()
	} else {
		rounded = units.Ceil()
	}
	return rounded.Mul(tick)
}

// scaleQuantity implements chainQty = floor(quantityHuman * scale / tick) * tick.
func scaleQuantity(qtyHuman, scale, tick decimal.Decimal) decimal.Decimal {
	if tick.IsZero() {
		return qtyHuman.Mul(scale)
	}
	units := qtyHuman.Mul(scale).Div(tick).Floor()
	return units.Mul(tick)
}

// dedupe drops creates whose side matches an already-kept create and whose
// price falls in the same minPriceTick bucket (floor(price/tick)); prices
// one or more ticks apart are kept. It backs up the Planner's own
// within-one-tick dedupe against open orders (this is a
// second line of defense — the Planner itself should not emit duplicates,
// but TxBuilder enforces it at the boundary regardless of caller).
func dedupe(intents []types.CreateIntent, tick decimal.Decimal) []types.CreateIntent {
	type key struct {
		side   types.Side
		bucket string
	}
	seen := make(map[key]bool, len(intents))
	out := make([]types.CreateIntent, 0, len(intents))

	for _, intent := range intents {
		price := decimal.NewFromFloat(intent.PriceHuman)
		var bucket string
		if tick.IsZero() {
			bucket = price.String()
		} else {
			bucket = price.Div(tick).Floor().String()
		}
		k := key{side: intent.Side, bucket: bucket}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, intent)
	}
	return out
}

// filterKnownCancels drops any CancelRef whose OrderHash is not present in
// knownOrders — a stale cancel is a silent no-op, not a batch failure.
func filterKnownCancels(cancels []types.CancelRef, knownOrders []types.OpenOrder) []types.CancelRef {
	known := make(map[string]bool, len(knownOrders))
	for _, o := range knownOrders {
		known[o.OrderHash] = true
	}

	out := make([]types.CancelRef, 0, len(cancels))
	for _, c := range cancels {
		if known[c.OrderHash] {
			out = append(out, c)
		}
	}
	return out
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
