// Package feed holds the WebSocket receivers that drive the engine: a tick
// stream from the market-data endpoint and an order-update stream from the
// execution venue. Both reconnect with exponential backoff and never let a
// malformed frame take the connection down.
//
// The expected JSON tick format on the wire matches model.Tick:
//
//	{"symbol":"BTCUSD","price":6521500,"qty":3,"tick_ts":"..."}
package feed

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"time"

	"algocore/internal/model"

	"github.com/gorilla/websocket"
)

// Config holds connection settings shared by both receivers.
type Config struct {
	// URL of the WebSocket endpoint, e.g. "ws://localhost:9001/ticks"
	URL string

	// ReconnectDelay is the initial delay before reconnection attempts.
	// Defaults to 2 seconds if zero.
	ReconnectDelay time.Duration

	// MaxReconnectDelay caps the exponential backoff. Defaults to 30s.
	MaxReconnectDelay time.Duration
}

func (c *Config) defaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 30 * time.Second
	}
}

// TickFeed connects to a plain-JSON WebSocket tick server and pushes
// model.Tick values into tickCh.
type TickFeed struct {
	cfg Config

	// Optional hooks for metrics / health reporting.
	OnConnect    func()
	OnDisconnect func()
	OnTick       func(model.Tick)
}

// NewTickFeed creates a tick receiver. Returns an error if the URL is
// unparseable.
func NewTickFeed(cfg Config) (*TickFeed, error) {
	cfg.defaults()
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, err
	}
	return &TickFeed{cfg: cfg}, nil
}

// Start connects and streams ticks into tickCh. Blocks until ctx is
// cancelled. Reconnects automatically on disconnect.
func (f *TickFeed) Start(ctx context.Context, tickCh chan<- model.Tick) error {
	bo := newBackoff(f.cfg.ReconnectDelay, f.cfg.MaxReconnectDelay)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		connected, err := f.runOnce(ctx, tickCh)
		if err == nil {
			// Context cancelled cleanly
			return nil
		}
		if connected {
			bo.reset()
		}

		delay := bo.next()
		log.Printf("[feed] tick stream disconnected (%v), reconnecting in %s...", err, delay)
		if f.OnDisconnect != nil {
			f.OnDisconnect()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// runOnce makes a single connection attempt and reads until disconnect or
// ctx cancel. The bool reports whether the dial succeeded.
func (f *TickFeed) runOnce(ctx context.Context, tickCh chan<- model.Tick) (bool, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	log.Printf("[feed] tick stream connected to %s", f.cfg.URL)
	if f.OnConnect != nil {
		f.OnConnect()
	}

	// Async context watcher — closes the connection when ctx is cancelled.
	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return true, nil
			default:
			}
			return true, err
		}

		var tick model.Tick
		if err := json.Unmarshal(raw, &tick); err != nil {
			log.Printf("[feed] tick parse error: %v (raw: %s)", err, raw)
			continue
		}

		if tick.Symbol == "" {
			log.Printf("[feed] skipping tick with empty symbol")
			continue
		}

		if f.OnTick != nil {
			f.OnTick(tick)
		}

		select {
		case tickCh <- tick:
		case <-ctx.Done():
			return true, nil
		}
	}
}
