// cmd/simexchange — Demo exchange for testing the engine without a real venue.
//
// Serves three endpoints:
//
//	GET  /ticks          — WebSocket broadcasting simulated random-walk ticks
//	POST /orders         — accepts an order intent, returns {"order_id":"..."}
//	GET  /orders/stream  — WebSocket broadcasting simulated order-update events
//
// Tick and order-update JSON shapes match model.Tick and model.OrderUpdate.
// Prices are in cents. Accepted orders fill after a short delay, sometimes in
// two partial fills, with a little slippage around the current simulated price.
//
// Config (env vars):
//
//	SIM_ADDR         — listen address (default: ":9001")
//	SIM_SYMBOL       — instrument symbol (default: "BTCUSD")
//	SIM_START_PRICE  — starting price in cents (default: "6500000")
//	SIM_TICK_RATE    — ticks per second (default: "10")
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"algocore/internal/model"
)

// ─── Hub ──────────────────────────────────────────────────────────────────────

type hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]chan []byte)}
}

func (h *hub) register(conn *websocket.Conn) chan []byte {
	ch := make(chan []byte, 256)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
}

func (h *hub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default: // slow client — drop
		}
	}
}

// ─── WebSocket handler ────────────────────────────────────────────────────────

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

func wsHandler(name string, h *hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[simexchange] %s upgrade error: %v", name, err)
			return
		}
		log.Printf("[simexchange] %s client connected: %s", name, r.RemoteAddr)

		ch := h.register(conn)
		defer func() {
			h.unregister(conn)
			conn.Close()
			log.Printf("[simexchange] %s client disconnected: %s", name, r.RemoteAddr)
		}()

		for msg := range ch {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// ─── Tick generator ──────────────────────────────────────────────────────────

// market holds the simulated instrument state shared between the tick
// generator and the fill simulator.
type market struct {
	symbol string
	price  atomic.Int64 // cents
}

// walkPrice applies a tiny random walk (±0.1%) to simulate price movement.
func walkPrice(price int64) int64 {
	pct := (rand.Float64()*0.2 - 0.1) / 100.0
	delta := int64(float64(price) * pct)
	newPrice := price + delta
	if newPrice < 100 { // floor at $1.00
		newPrice = 100
	}
	return newPrice
}

// runGenerator emits ticks paced by a rate limiter instead of a fixed ticker,
// so bursts after a stall are smoothed rather than batched.
func runGenerator(ctx context.Context, h *hub, m *market, ticksPerSec int) {
	limiter := rate.NewLimiter(rate.Limit(ticksPerSec), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		price := walkPrice(m.price.Load())
		m.price.Store(price)

		tick := model.Tick{
			Symbol: m.symbol,
			Price:  price,
			Qty:    int64(rand.Intn(100) + 1),
			TickTS: time.Now().UTC(),
		}
		b, err := json.Marshal(tick)
		if err != nil {
			continue
		}
		h.broadcast(b)
	}
}

// ─── Order endpoint + fill simulator ─────────────────────────────────────────

func ordersHandler(h *hub, m *market) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var intent model.OrderIntent
		if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if intent.Symbol != m.symbol || intent.Qty <= 0 ||
			(intent.Side != model.SideBuy && intent.Side != model.SideSell) {
			http.Error(w, "rejected", http.StatusUnprocessableEntity)
			return
		}

		id := uuid.NewString()
		log.Printf("[simexchange] accepted %s %s qty=%d order=%s",
			intent.Side, intent.Symbol, intent.Qty, id)

		go simulateFills(h, m, id, intent.Qty)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"order_id": id})
	}
}

// simulateFills emits the order's lifecycle on the order stream: sometimes a
// partial fill first, then the terminal FILLED event. FilledQty carries the
// incremental quantity of each event.
func simulateFills(h *hub, m *market, orderID string, qty int64) {
	time.Sleep(time.Duration(50+rand.Intn(200)) * time.Millisecond)

	seq := int64(0)
	remaining := qty

	// ~30% of orders fill in two slices.
	if qty > 1 && rand.Float64() < 0.3 {
		part := 1 + rand.Int63n(qty-1)
		seq++
		emit(h, model.OrderUpdate{
			OrderID:   orderID,
			Seq:       seq,
			Status:    model.StatusPartiallyFilled,
			FilledQty: part,
			FillPrice: slip(m.price.Load()),
		})
		remaining -= part
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)
	}

	seq++
	emit(h, model.OrderUpdate{
		OrderID:   orderID,
		Seq:       seq,
		Status:    model.StatusFilled,
		FilledQty: remaining,
		FillPrice: slip(m.price.Load()),
	})
}

// slip nudges the fill price up to ±0.05% off the current simulated price.
func slip(price int64) int64 {
	pct := (rand.Float64()*0.1 - 0.05) / 100.0
	return price + int64(float64(price)*pct)
}

func emit(h *hub, u model.OrderUpdate) {
	h.broadcast(u.JSON())
}

// ─── main ─────────────────────────────────────────────────────────────────────

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[simexchange] starting demo exchange...")

	addr := envOrDefault("SIM_ADDR", ":9001")
	symbol := envOrDefault("SIM_SYMBOL", "BTCUSD")
	startPrice := int64(envIntOrDefault("SIM_START_PRICE", 6_500_000))
	tickRate := envIntOrDefault("SIM_TICK_RATE", 10)

	m := &market{symbol: symbol}
	m.price.Store(startPrice)

	tickHub := newHub()
	orderHub := newHub()

	ctx := context.Background()
	go runGenerator(ctx, tickHub, m, tickRate)

	http.HandleFunc("/ticks", wsHandler("tick", tickHub))
	http.HandleFunc("/orders/stream", wsHandler("order", orderHub))
	http.HandleFunc("/orders", ordersHandler(orderHub, m))
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"status":"ok","service":"simexchange"}`)
	})

	log.Printf("[simexchange] listening on %s (%s @ %d cents, %d ticks/s)",
		addr, symbol, startPrice, tickRate)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("[simexchange] server error: %v", err)
	}
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
