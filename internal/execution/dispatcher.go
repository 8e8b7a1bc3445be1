package execution

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"algocore/internal/model"
)

// ErrInFlight is returned when an intent is suppressed because an order for
// the same symbol and side is still pending. The intent is not placed; a
// persistent signal is naturally re-evaluated at the next candle close.
var ErrInFlight = errors.New("execution: order already in flight for side")

// Dispatcher forwards order intents to the placer while guaranteeing at most
// one in-flight order per (symbol, side). Dispatch runs on the decision
// worker; Apply runs on the order-update task — the mutex serializes the two.
type Dispatcher struct {
	mu       sync.Mutex
	placer   Placer
	inflight map[model.Side]string   // side → pending order id ("" while placing)
	orders   map[string]*model.Order // order id → tracked order
	lastSeq  map[string]int64        // order id → highest applied update seq

	// Metrics hooks (optional, set externally)
	OnPlaced     func()
	OnSuppressed func()
	OnFailed     func()
}

// NewDispatcher creates a Dispatcher forwarding to placer.
func NewDispatcher(placer Placer) *Dispatcher {
	return &Dispatcher{
		placer:   placer,
		inflight: make(map[model.Side]string, 2),
		orders:   make(map[string]*model.Order),
		lastSeq:  make(map[string]int64),
	}
}

// Dispatch places the intent unless an order for the same side is still
// pending, in which case it returns the pending order and ErrInFlight. On
// placement failure the intent is dropped with no retry; the error is
// surfaced to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, intent model.OrderIntent) (model.Order, error) {
	d.mu.Lock()
	if id, busy := d.inflight[intent.Side]; busy {
		d.mu.Unlock()
		if d.OnSuppressed != nil {
			d.OnSuppressed()
		}
		log.Printf("[dispatch] suppressing %s %s qty=%d: order %s still in flight",
			intent.Side, intent.Symbol, intent.Qty, id)
		if ord := d.lookup(id); ord != nil {
			return *ord, ErrInFlight
		}
		return model.Order{}, ErrInFlight
	}
	// Reserve the slot before releasing the lock so a concurrent Dispatch
	// for the same side cannot double-place while we talk to the exchange.
	d.inflight[intent.Side] = ""
	d.mu.Unlock()

	id, err := d.placer.PlaceOrder(ctx, intent)

	d.mu.Lock()
	defer d.mu.Unlock()

	if err != nil {
		delete(d.inflight, intent.Side)
		if d.OnFailed != nil {
			d.OnFailed()
		}
		return model.Order{}, fmt.Errorf("dispatch %s %s: %w", intent.Side, intent.Symbol, err)
	}

	now := time.Now().UTC()
	ord := &model.Order{
		ID:         id,
		Symbol:     intent.Symbol,
		Side:       intent.Side,
		Qty:        intent.Qty,
		StopLoss:   intent.StopLoss,
		TakeProfit: intent.TakeProfit,
		Status:     model.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	d.inflight[intent.Side] = id
	d.orders[id] = ord

	if d.OnPlaced != nil {
		d.OnPlaced()
	}
	log.Printf("[dispatch] placed %s %s qty=%d sl=%d tp=%d order=%s",
		ord.Side, ord.Symbol, ord.Qty, ord.StopLoss, ord.TakeProfit, ord.ID)
	return *ord, nil
}

// Apply moves a tracked order's status from an order-update event and frees
// the side's in-flight slot once the order is filled or otherwise terminal.
// Updates at or below the highest applied seq for the order leave the record
// untouched, so a redelivered partial fill cannot regress a terminal status.
// Returns the tracked order and false if the order id is unknown.
func (d *Dispatcher) Apply(u model.OrderUpdate) (model.Order, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ord, ok := d.orders[u.OrderID]
	if !ok {
		return model.Order{}, false
	}

	if u.Seq <= d.lastSeq[u.OrderID] {
		return *ord, true
	}
	d.lastSeq[u.OrderID] = u.Seq

	ord.Status = u.Status
	ord.UpdatedAt = time.Now().UTC()

	if u.Status.Terminal() {
		if d.inflight[ord.Side] == ord.ID {
			delete(d.inflight, ord.Side)
		}
	}
	return *ord, true
}

// InFlight reports whether an order for side is still pending.
func (d *Dispatcher) InFlight(side model.Side) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, busy := d.inflight[side]
	return busy
}

// Lookup returns a copy of the tracked order, if known.
func (d *Dispatcher) Lookup(id string) (model.Order, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ord := d.lookup(id); ord != nil {
		return *ord, true
	}
	return model.Order{}, false
}

// lookup requires d.mu held.
func (d *Dispatcher) lookup(id string) *model.Order {
	if id == "" {
		return nil
	}
	return d.orders[id]
}
