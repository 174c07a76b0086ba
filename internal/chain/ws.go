package chain

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/InjectiveLabs/testnet-liquidity-engine/pkg/types"
)

const (
	wsPingInterval    = 50 * time.Second
	wsReadDeadline    = 90 * time.Second
	wsMinBackoff      = time.Second
	wsMaxBackoff      = 30 * time.Second
)

// WSFeed manages one mainnet market-data websocket connection, reconnecting
// with exponential backoff and feeding a local Book so PriceOracle can read
// a warm mid-price between REST polls. Testnet has no public streaming feed
// in this deployment and always polls RESTClient.QueryMid directly.
type WSFeed struct {
	url      string
	marketID []byte
	book     *Book

	subscribed bool
}

// NewWSFeed creates a feed for one market, backed by book.
func NewWSFeed(url string, marketID []byte, book *Book) *WSFeed {
	return &WSFeed{url: url, marketID: marketID, book: book}
}

// Run connects and dispatches events until ctx is cancelled. A failed dial
// is retried with exponential backoff capped at 30s; after a subscribe or
// read error it redials at once with the backoff reset. Returns nil once
// ctx is cancelled; it never returns on its own otherwise.
func (f *WSFeed) Run(ctx context.Context) error {
	backoff := wsMinBackoff

	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
		if err != nil {
			slog.Warn("chain: ws dial failed, backing off", "url", f.url, "error", err, "backoff", backoff)
			if !sleepOrDone(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff)
			continue
		}

		backoff = wsMinBackoff
		if err := f.subscribe(conn); err != nil {
			slog.Warn("chain: ws subscribe failed", "error", err)
			conn.Close()
			continue
		}

		f.readLoop(ctx, conn)
		conn.Close()
	}
}

func (f *WSFeed) subscribe(conn *websocket.Conn) error {
	msg := types.WSSubscribeMsg{
		Type:      "market",
		MarketIDs: []string{hexMarketID(f.marketID)},
	}
	f.subscribed = true
	return conn.WriteJSON(msg)
}

func (f *WSFeed) readLoop(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()
	defer func() { <-done }()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		f.dispatchMessage(raw)
	}
}

type eventEnvelope struct {
	EventType string `json:"event_type"`
}

func (f *WSFeed) dispatchMessage(raw []byte) {
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}

	switch env.EventType {
	case "trade":
		var ev types.WSTradeEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return
		}
		f.book.ApplyTradeEvent(ev.Price)
	case "orderbook":
		var ev types.WSOrderbookEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return
		}
		f.book.ApplyOrderbookEvent(ev.BestBid, ev.BestAsk)
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > wsMaxBackoff {
		return wsMaxBackoff
	}
	return next
}
