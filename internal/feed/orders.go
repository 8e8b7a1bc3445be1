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

// OrderFeed connects to the execution venue's order-update WebSocket and
// pushes model.OrderUpdate values into updCh. Fill notifications arrive here
// asynchronously, decoupled from order placement.
type OrderFeed struct {
	cfg Config

	OnConnect    func()
	OnDisconnect func()
}

// NewOrderFeed creates an order-update receiver.
func NewOrderFeed(cfg Config) (*OrderFeed, error) {
	cfg.defaults()
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, err
	}
	return &OrderFeed{cfg: cfg}, nil
}

// Start connects and streams order updates into updCh. Blocks until ctx is
// cancelled. Reconnects automatically on disconnect.
func (f *OrderFeed) Start(ctx context.Context, updCh chan<- model.OrderUpdate) error {
	bo := newBackoff(f.cfg.ReconnectDelay, f.cfg.MaxReconnectDelay)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		connected, err := f.runOnce(ctx, updCh)
		if err == nil {
			return nil
		}
		if connected {
			bo.reset()
		}

		delay := bo.next()
		log.Printf("[feed] order stream disconnected (%v), reconnecting in %s...", err, delay)
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

func (f *OrderFeed) runOnce(ctx context.Context, updCh chan<- model.OrderUpdate) (bool, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	log.Printf("[feed] order stream connected to %s", f.cfg.URL)
	if f.OnConnect != nil {
		f.OnConnect()
	}

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

		var upd model.OrderUpdate
		if err := json.Unmarshal(raw, &upd); err != nil {
			log.Printf("[feed] order update parse error: %v (raw: %s)", err, raw)
			continue
		}

		if upd.OrderID == "" {
			log.Printf("[feed] skipping order update with empty order id")
			continue
		}

		// Order updates are never dropped — block until the consumer takes it.
		select {
		case updCh <- upd:
		case <-ctx.Done():
			return true, nil
		}
	}
}
