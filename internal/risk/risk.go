// Package risk sizes trade signals into order intents.
//
// The policy is fixed-fractional: each trade risks a configured fraction of
// account equity; the stop-loss sits a configured number of basis points from
// entry and quantity is whatever makes stop distance × quantity equal the
// risk budget. Take-profit is a fixed R-multiple of the stop distance.
package risk

import (
	"algocore/internal/model"
	"algocore/internal/strategy"
)

// Policy holds the configured risk parameters. All monetary values in cents.
type Policy struct {
	Equity      int64   // account equity in cents
	RiskFrac    float64 // fraction of equity risked per trade, e.g. 0.01
	StopBps     int64   // stop distance from entry in basis points, e.g. 50 = 0.5%
	TakeProfitR float64 // take-profit distance as a multiple of stop distance
}

// DefaultPolicy returns conservative defaults: $10,000 equity, 1% risk per
// trade, 0.5% stop, 2R target.
func DefaultPolicy() Policy {
	return Policy{
		Equity:      1_000_000,
		RiskFrac:    0.01,
		StopBps:     50,
		TakeProfitR: 2,
	}
}

// Manager sizes signals deterministically from the candle's close price and
// the configured policy. Stateless; safe to share.
type Manager struct {
	policy Policy
}

// NewManager creates a Manager with the given policy.
func NewManager(policy Policy) *Manager {
	return &Manager{policy: policy}
}

// Size converts a signal into an order intent. Returns false for NONE
// signals and for candles that fail sanity bounds (non-positive price,
// non-positive volume, inverted high/low) — suppression has no side effect.
func (m *Manager) Size(sig strategy.Signal, candle model.Candle) (model.OrderIntent, bool) {
	if sig.Direction == strategy.None {
		return model.OrderIntent{}, false
	}

	price := candle.Close
	if price <= 0 || candle.Volume <= 0 || candle.High < candle.Low {
		return model.OrderIntent{}, false
	}

	stopDist := price * m.policy.StopBps / 10000
	if stopDist <= 0 {
		return model.OrderIntent{}, false
	}

	budget := int64(float64(m.policy.Equity) * m.policy.RiskFrac)
	qty := budget / stopDist
	if qty <= 0 {
		return model.OrderIntent{}, false
	}

	target := int64(float64(stopDist) * m.policy.TakeProfitR)
	intent := model.OrderIntent{
		Symbol: candle.Symbol,
		Qty:    qty,
	}
	if sig.Direction == strategy.Buy {
		intent.Side = model.SideBuy
		intent.StopLoss = price - stopDist
		intent.TakeProfit = price + target
	} else {
		intent.Side = model.SideSell
		intent.StopLoss = price + stopDist
		intent.TakeProfit = price - target
	}
	return intent, true
}
