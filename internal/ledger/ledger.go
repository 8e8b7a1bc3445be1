// Package ledger owns the running position and PnL for one symbol.
//
// Two independent callers mutate the position — the decision worker marks to
// market on each rollup candle close, and the order-update task applies
// fills as they arrive. A single mutex serializes both so neither ever
// observes a half-applied update.
package ledger

import (
	"log"
	"sync"

	"algocore/internal/model"
)

// Fill is one executed quantity applied to the position. Qty is always
// positive; Side carries the direction.
type Fill struct {
	OrderID string
	Seq     int64
	Side    model.Side
	Qty     int64
	Price   int64 // cents
}

// Ledger tracks the position for a single symbol.
type Ledger struct {
	mu  sync.Mutex
	pos model.Position

	// applied holds the highest sequence number applied per order id, so
	// duplicate or stale order-update deliveries are no-ops.
	applied map[string]int64
}

// New creates an empty (flat) ledger for symbol.
func New(symbol string) *Ledger {
	return &Ledger{
		pos:     model.Position{Symbol: symbol},
		applied: make(map[string]int64),
	}
}

// Mark updates the mark price from a closed candle and recomputes unrealized
// PnL. Called once per rollup candle close.
func (l *Ledger) Mark(c model.Candle) model.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pos.LastMark = c.Close
	l.refreshUnrealized()
	return l.pos
}

// ApplyFill applies one fill to the position. Returns false without touching
// state when the fill is a duplicate (sequence number already applied for the
// order) or fails sanity bounds. The second return value is the realized PnL
// delta in cents.
//
// Same-direction fills extend the position at a volume-weighted average
// entry; reducing fills realize PnL against the average; a fill that flips
// the direction realizes PnL on the closed quantity and resets the average
// to the fill price.
func (l *Ledger) ApplyFill(f Fill) (bool, int64) {
	if f.Qty <= 0 || f.Price <= 0 {
		return false, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if f.Seq <= l.applied[f.OrderID] {
		log.Printf("[ledger] ignoring duplicate fill order=%s seq=%d", f.OrderID, f.Seq)
		return false, 0
	}
	l.applied[f.OrderID] = f.Seq

	signed := f.Qty
	if f.Side == model.SideSell {
		signed = -f.Qty
	}

	net := l.pos.NetQty
	var realized int64

	if net == 0 || (net > 0) == (signed > 0) {
		// Same-direction add: volume-weighted average entry.
		oldAbs := abs(net)
		newAbs := oldAbs + f.Qty
		l.pos.AvgPrice = (l.pos.AvgPrice*oldAbs + f.Price*f.Qty) / newAbs
		l.pos.NetQty = net + signed
	} else {
		// Reducing or flipping: realize PnL on the closed quantity.
		closeQty := min(abs(net), f.Qty)
		dir := int64(1)
		if net < 0 {
			dir = -1
		}
		realized = closeQty * (f.Price - l.pos.AvgPrice) * dir
		l.pos.RealizedPnL += realized
		l.pos.NetQty = net + signed

		switch {
		case l.pos.NetQty == 0:
			l.pos.AvgPrice = 0
		case (l.pos.NetQty > 0) != (net > 0):
			// Direction flipped — the surplus opens at the fill price.
			l.pos.AvgPrice = f.Price
		}
	}

	l.refreshUnrealized()
	return true, realized
}

// Position returns a copy of the current position.
func (l *Ledger) Position() model.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pos
}

// refreshUnrealized requires l.mu held.
func (l *Ledger) refreshUnrealized() {
	if l.pos.LastMark == 0 || l.pos.NetQty == 0 {
		l.pos.UnrealizedPnL = 0
		return
	}
	l.pos.UnrealizedPnL = l.pos.NetQty * (l.pos.LastMark - l.pos.AvgPrice)
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
