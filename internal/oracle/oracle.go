// Package oracle implements PriceOracle: mainnet and testnet mid-price
// sampling with a short-TTL cache, never serving a value staler than twice
// the refresh interval. It does not retry internally — WalletWorker
// decides what to do with an Unavailable sample.
package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/InjectiveLabs/testnet-liquidity-engine/internal/chain"
	"github.com/InjectiveLabs/testnet-liquidity-engine/pkg/types"
)

const defaultRefreshInterval = 5 * time.Second

type cacheEntry struct {
	price     types.Price
	sampledAt time.Time
}

// Oracle samples mainnet and testnet mid-prices per market, cacheing each
// for refreshInterval. It is safe for concurrent use by multiple workers —
// MarketCatalog-style read sharing, per spec.md's ownership model.
type Oracle struct {
	client          chain.Client
	books           map[string]*chain.Book // symbol -> optional warm mainnet mirror fed by a WSFeed
	refreshInterval time.Duration

	mu    sync.Mutex
	cache map[string]map[string]cacheEntry // market -> "mainnet"|"testnet" -> entry
}

// New builds an Oracle. books may be nil or missing entries for some
// symbols, in which case mainnetMid for that symbol always falls back to
// a direct chain query.
func New(client chain.Client, books map[string]*chain.Book, refreshInterval time.Duration) *Oracle {
	if refreshInterval <= 0 {
		refreshInterval = defaultRefreshInterval
	}
	return &Oracle{
		client:          client,
		books:           books,
		refreshInterval: refreshInterval,
		cache:           make(map[string]map[string]cacheEntry),
	}
}

// MainnetMid returns the cached or freshly-sampled mainnet mid-price.
// Prefers the warm WS-fed book when available and not stale; falls back
// to a direct REST query.
func (o *Oracle) MainnetMid(ctx context.Context, market types.Market) types.Price {
	if cached, ok := o.get(market.Symbol, "mainnet"); ok {
		return cached
	}

	if book := o.books[market.Symbol]; book != nil && !book.IsStale(2*o.refreshInterval) {
		if value, ok := book.Mid(); ok {
			price := types.Price{Value: value, Available: true}
			o.set(market.Symbol, "mainnet", price)
			return price
		}
	}

	price, err := o.client.QueryMid(ctx, market.MainnetMarketID, true)
	if err != nil {
		return types.Unavailable
	}
	o.set(market.Symbol, "mainnet", price)
	return price
}

// TestnetMid returns the cached or freshly-sampled testnet mid-price.
// Testnet has no public streaming feed in this deployment — always a
// direct REST query on cache miss.
func (o *Oracle) TestnetMid(ctx context.Context, market types.Market) types.Price {
	if cached, ok := o.get(market.Symbol, "testnet"); ok {
		return cached
	}

	price, err := o.client.QueryMid(ctx, market.TestnetMarketID, false)
	if err != nil {
		return types.Unavailable
	}
	o.set(market.Symbol, "testnet", price)
	return price
}

func (o *Oracle) get(symbol, side string) (types.Price, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry, ok := o.cache[symbol][side]
	if !ok {
		return types.Price{}, false
	}
	if time.Since(entry.sampledAt) > o.refreshInterval {
		return types.Price{}, false
	}
	return entry.price, true
}

func (o *Oracle) set(symbol, side string, price types.Price) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cache[symbol] == nil {
		o.cache[symbol] = make(map[string]cacheEntry)
	}
	o.cache[symbol][side] = cacheEntry{price: price, sampledAt: time.Now()}
}
