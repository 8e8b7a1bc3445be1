// Package strategy turns an indicator snapshot plus the latest closed rollup
// candle into a discrete trade signal.
//
// Decide is a pure, total function: it keeps no state, performs no I/O, and
// never fails — malformed inputs (NaN indicators from insufficient warm-up)
// map to a NONE signal, so the decision worker can call it unconditionally
// on every candle close.
package strategy

import (
	"math"

	"algocore/internal/indicator"
	"algocore/internal/model"
)

// Direction is the discrete trade decision.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	None Direction = "NONE"
)

// Signal carries a decision together with the candle and snapshot it was
// derived from. One Signal is produced per rollup candle close.
type Signal struct {
	Direction Direction          `json:"direction"`
	Candle    model.Candle       `json:"candle"`
	Snapshot  indicator.Snapshot `json:"snapshot"`
	Reason    string             `json:"reason,omitempty"`
}

// Config holds the tunable trigger thresholds.
type Config struct {
	RSIOverbought float64 // suppress buys above this RSI
	RSIOversold   float64 // suppress sells below this RSI
	ADXFloor      float64 // minimum trend strength for any signal
}

// DefaultConfig returns the standard thresholds: RSI 70/30 band, ADX 20 floor.
func DefaultConfig() Config {
	return Config{
		RSIOverbought: 70,
		RSIOversold:   30,
		ADXFloor:      20,
	}
}

// Engine evaluates the signal policy. Stateless; safe to share.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine with the given thresholds.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Decide maps (snapshot, candle) to a signal.
//
// BUY:  fast EMA above slow EMA, RSI below the overbought bound, ADX at or
// above the trend floor. SELL is the mirror image. The EMA relation makes the
// two mutually exclusive per call; everything else is NONE.
func (e *Engine) Decide(snap indicator.Snapshot, candle model.Candle) Signal {
	sig := Signal{Direction: None, Candle: candle, Snapshot: snap}

	if math.IsNaN(snap.EMAFast) || math.IsNaN(snap.EMASlow) ||
		math.IsNaN(snap.RSI) || math.IsNaN(snap.ADX) {
		sig.Reason = "warming up"
		return sig
	}

	if snap.ADX < e.cfg.ADXFloor {
		sig.Reason = "trend too weak"
		return sig
	}

	switch {
	case snap.EMAFast > snap.EMASlow && snap.RSI < e.cfg.RSIOverbought:
		sig.Direction = Buy
		sig.Reason = "fast EMA above slow, RSI below overbought, trend confirmed"
	case snap.EMAFast < snap.EMASlow && snap.RSI > e.cfg.RSIOversold:
		sig.Direction = Sell
		sig.Reason = "fast EMA below slow, RSI above oversold, trend confirmed"
	}

	return sig
}
