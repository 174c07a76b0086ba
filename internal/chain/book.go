package chain

import (
	"strconv"
	"sync"
	"time"
)

// Book is a local mirror of one mainnet market's best bid/ask and last
// trade, kept warm by a WSFeed so PriceOracle can serve mainnetMid from
// cache between REST polls.
type Book struct {
	mu sync.RWMutex

	bestBid   float64
	bestAsk   float64
	lastTrade float64
	hasTrade  bool
	updatedAt time.Time
}

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{}
}

// ApplyOrderbookEvent updates the best bid/ask from a streamed delta.
func (b *Book) ApplyOrderbookEvent(bestBid, bestAsk string) {
	bid, errBid := strconv.ParseFloat(bestBid, 64)
	ask, errAsk := strconv.ParseFloat(bestAsk, 64)
	if errBid != nil || errAsk != nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.bestBid = bid
	b.bestAsk = ask
	b.updatedAt = time.Now()
}

// ApplyTradeEvent records the most recent trade print.
func (b *Book) ApplyTradeEvent(price string) {
	p, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastTrade = p
	b.hasTrade = true
	b.updatedAt = time.Now()
}

// Mid returns the resolved mid-price using the same last-trade-preferred
// rule as RESTClient.QueryMid, or ok=false if the book has no data yet.
func (b *Book) Mid() (value float64, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.bestBid <= 0 && b.bestAsk <= 0 && !b.hasTrade {
		return 0, false
	}

	var lastTrade *float64
	if b.hasTrade {
		lt := b.lastTrade
		lastTrade = &lt
	}

	price := resolveMid(lastTrade, b.bestBid, b.bestAsk)
	return price.Value, price.Available
}

// IsStale reports whether the book has not been updated within maxAge.
func (b *Book) IsStale(maxAge time.Duration) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.updatedAt.IsZero() {
		return true
	}
	return time.Since(b.updatedAt) > maxAge
}

// LastUpdated returns when the book was last touched.
func (b *Book) LastUpdated() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updatedAt
}
