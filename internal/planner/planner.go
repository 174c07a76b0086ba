// Package planner implements the Planner: classifies market state from a
// PriceSample and OrderbookSnapshot, then produces an ActionPlan via one
// of three phase strategies (MOVE, BUILD, MAINTAIN). All randomization is
// driven by a per-worker seeded *rand.Rand passed in explicitly, so that
// replaying the same inputs and seed reproduces the same plan.
package planner

import (
	"math"
	"math/rand"
	"sort"

	"github.com/InjectiveLabs/testnet-liquidity-engine/pkg/types"
)

const nearPricePct = 0.05

// buildTier describes one of BUILD's five spread bands.
type buildTier struct {
	minPct, maxPct float64
	levels         int
	sizeMultiplier float64
}

var buildTiers = []buildTier{
	{0.0001, 0.001, 5, 0.8},
	{0.001, 0.005, 5, 1.3},
	{0.005, 0.015, 2, 2.0},
	{0.015, 0.030, 1, 3.0},
	{0.030, 0.050, 1, 4.5},
}

// maintainStages rotates cycle-to-cycle; index is tracked per (wallet,
// market) by the caller via the stage argument to Plan.
var maintainStages = []struct{ minPct, maxPct float64 }{
	{0.005, 0.015},
	{0.015, 0.030},
	{0.030, 0.050},
	{0.050, 0.080},
}

// Planner produces ActionPlans. It holds no mutable state of its own —
// the rotating MAINTAIN stage index lives in the caller (WalletWorker),
// which is the one thing in this package that has per-cycle memory.
type Planner struct{}

// New returns a Planner.
func New() *Planner {
	return &Planner{}
}

// Plan classifies state and dispatches to the matching phase strategy.
// maintainStage selects which depth-stage band the MAINTAIN phase uses
// this cycle (the caller rotates it cycle-to-cycle).
func (p *Planner) Plan(
	rng *rand.Rand,
	sample types.PriceSample,
	snapshot types.OrderbookSnapshot,
	openOrders []types.OpenOrder,
	params types.MarketParams,
	minPriceTick float64,
	maxOpenOrders int,
	maintainStage int,
) types.ActionPlan {
	if !sample.MainnetMid.Available {
		return types.ActionPlan{Phase: types.PhaseIdle, Rationale: "mainnet mid unavailable"}
	}

	mainnetMid := sample.MainnetMid.Value
	phase, rationale := classifyPhase(sample, snapshot)

	var plan types.ActionPlan
	switch phase {
	case types.PhaseMove:
		plan = p.planMove(rng, mainnetMid, sample.TestnetMid, openOrders, params, rationale)
	case types.PhaseBuild:
		plan = p.planBuild(rng, mainnetMid, params, maxOpenOrders, len(openOrders), rationale)
	default:
		plan = p.planMaintain(rng, mainnetMid, openOrders, params, maintainStage, rationale)
	}

	plan.Creates = dedupeAgainstOpenOrders(plan.Creates, openOrders, minPriceTick)
	return plan
}

// dedupeAgainstOpenOrders drops any create whose side and price match an
// existing open order within one minPriceTick, per the Planner's stated
// edge case.
func dedupeAgainstOpenOrders(creates []types.CreateIntent, openOrders []types.OpenOrder, minPriceTick float64) []types.CreateIntent {
	if minPriceTick <= 0 || len(openOrders) == 0 {
		return creates
	}

	out := make([]types.CreateIntent, 0, len(creates))
	for _, c := range creates {
		duplicate := false
		for _, o := range openOrders {
			if o.Side == c.Side && math.Abs(o.Price-c.PriceHuman) <= minPriceTick {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, c)
		}
	}
	return out
}

func classifyPhase(sample types.PriceSample, snapshot types.OrderbookSnapshot) (types.Phase, string) {
	if !sample.TestnetMid.Available {
		return types.PhaseBuild, "testnet mid unavailable, building depth against mainnet reference"
	}

	gap := math.Abs(sample.TestnetMid.Value-sample.MainnetMid.Value) / sample.MainnetMid.Value
	total := snapshot.TotalOrders
	near := snapshot.OrdersNearPrice

	if gap > 0.15 && total >= 30 {
		return types.PhaseMove, "gap exceeds 15% with sufficient depth to correct"
	}
	if total < 50 || near < 20 {
		return types.PhaseBuild, "insufficient depth"
	}
	return types.PhaseMaintain, "gap and depth within normal range"
}

// planMove shifts price toward mainnet: cancels the farthest own orders and
// creates tight-spread orders on the correcting side.
func (p *Planner) planMove(rng *rand.Rand, mainnetMid float64, testnetMid types.Price, openOrders []types.OpenOrder, params types.MarketParams, rationale string) types.ActionPlan {
	side := types.BUY
	if testnetMid.Available && testnetMid.Value > mainnetMid {
		side = types.SELL
	}

	numCancels := 8 + rng.Intn(5)  // 8..12
	numCreates := 6 + rng.Intn(5)  // 6..10

	cancels := farthestOrders(openOrders, mainnetMid, numCancels)

	creates := make([]types.CreateIntent, 0, numCreates)
	for i := 0; i < numCreates; i++ {
		spreadPct := 0.001 + rng.Float64()*(0.01-0.001)
		price := priceAtSpread(mainnetMid, spreadPct, side)
		size := (0.5 + rng.Float64()*0.5) * params.BaseOrderSize
		creates = append(creates, types.CreateIntent{Side: side, PriceHuman: price, QuantityHuman: size})
	}

	return types.ActionPlan{Phase: types.PhaseMove, Creates: creates, Cancels: cancels, Rationale: rationale}
}

// planBuild produces the five-tier staircase, 14 creates per side, then
// truncates from the widest tier inward until the projected open-order
// count (existingOpenOrders + creates) is at or under maxOpenOrders.
func (p *Planner) planBuild(rng *rand.Rand, mainnetMid float64, params types.MarketParams, maxOpenOrders, existingOpenOrders int, rationale string) types.ActionPlan {
	var creates []types.CreateIntent

	for _, tier := range buildTiers {
		for _, side := range []types.Side{types.BUY, types.SELL} {
			for i := 0; i < tier.levels; i++ {
				spreadPct := tier.minPct + rng.Float64()*(tier.maxPct-tier.minPct)
				price := priceAtSpread(mainnetMid, spreadPct, side)
				jitter := 0.9 + rng.Float64()*0.2 // ±10%
				size := tier.sizeMultiplier * params.BaseOrderSize * jitter
				creates = append(creates, types.CreateIntent{Side: side, PriceHuman: price, QuantityHuman: size})
			}
		}
	}

	if maxOpenOrders > 0 {
		room := maxOpenOrders - existingOpenOrders
		if room < 0 {
			room = 0
		}
		if len(creates) > room {
			creates = truncateFromWidestTier(creates, room)
		}
	}

	return types.ActionPlan{Phase: types.PhaseBuild, Creates: creates, Rationale: rationale}
}

// planMaintain rotates through the depth-stage bands, creating a modest
// balanced clip and cancelling a few orders that lie outside the current
// stage's band.
func (p *Planner) planMaintain(rng *rand.Rand, mainnetMid float64, openOrders []types.OpenOrder, params types.MarketParams, stageIdx int, rationale string) types.ActionPlan {
	stage := maintainStages[stageIdx%len(maintainStages)]

	perSide := 5 + rng.Intn(4) // 5..8
	var creates []types.CreateIntent
	for _, side := range []types.Side{types.BUY, types.SELL} {
		for i := 0; i < perSide; i++ {
			spreadPct := stage.minPct + rng.Float64()*(stage.maxPct-stage.minPct)
			price := priceAtSpread(mainnetMid, spreadPct, side)
			size := (0.2 + rng.Float64()*0.3) * params.BaseOrderSize
			creates = append(creates, types.CreateIntent{Side: side, PriceHuman: price, QuantityHuman: size})
		}
	}

	numCancels := 4 + rng.Intn(3) // 4..6
	cancels := cancelsOutsideBand(openOrders, mainnetMid, stage.minPct, stage.maxPct, numCancels)

	return types.ActionPlan{Phase: types.PhaseMaintain, Creates: creates, Cancels: cancels, Rationale: rationale}
}

func priceAtSpread(mid, spreadPct float64, side types.Side) float64 {
	if side == types.BUY {
		return mid * (1 - spreadPct)
	}
	return mid * (1 + spreadPct)
}

// farthestOrders returns cancel refs for the n orders farthest from mid by
// absolute price distance, ties broken by largest quantity first.
func farthestOrders(orders []types.OpenOrder, mid float64, n int) []types.CancelRef {
	sorted := append([]types.OpenOrder(nil), orders...)
	sort.Slice(sorted, func(i, j int) bool {
		di := math.Abs(sorted[i].Price - mid)
		dj := math.Abs(sorted[j].Price - mid)
		if di != dj {
			return di > dj
		}
		return sorted[i].Quantity > sorted[j].Quantity
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]types.CancelRef, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.CancelRef{OrderHash: sorted[i].OrderHash})
	}
	return out
}

// cancelsOutsideBand prefers orders whose distance-from-mid spread falls
// outside [minPct, maxPct], filling up to n with the remainder if needed.
func cancelsOutsideBand(orders []types.OpenOrder, mid, minPct, maxPct float64, n int) []types.CancelRef {
	var outside, inside []types.OpenOrder
	for _, o := range orders {
		spread := math.Abs(o.Price-mid) / mid
		if spread < minPct || spread > maxPct {
			outside = append(outside, o)
		} else {
			inside = append(inside, o)
		}
	}

	candidates := append(outside, inside...)
	if n > len(candidates) {
		n = len(candidates)
	}
	out := make([]types.CancelRef, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.CancelRef{OrderHash: candidates[i].OrderHash})
	}
	return out
}

// truncateFromWidestTier drops creates starting from the widest (last)
// tier inward until len(creates) <= maxOpenOrders. Creates are emitted
// tier-by-tier in order, so this is simply a drop from the tail.
func truncateFromWidestTier(creates []types.CreateIntent, maxOpenOrders int) []types.CreateIntent {
	if maxOpenOrders < 0 {
		maxOpenOrders = 0
	}
	if len(creates) <= maxOpenOrders {
		return creates
	}
	return creates[:maxOpenOrders]
}
