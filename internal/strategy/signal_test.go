package strategy

import (
	"math"
	"testing"

	"algocore/internal/indicator"
	"algocore/internal/model"
)

func warmSnapshot() indicator.Snapshot {
	return indicator.Snapshot{
		EMAFast: 10100,
		EMASlow: 10000,
		RSI:     55,
		ADX:     30,
		BBUpper: 10500,
		BBMid:   10000,
		BBLower: 9500,
		VolFast: 100,
		VolSlow: 90,
	}
}

func TestDecide_Buy(t *testing.T) {
	e := NewEngine(DefaultConfig())
	sig := e.Decide(warmSnapshot(), model.Candle{Close: 10100})
	if sig.Direction != Buy {
		t.Errorf("expected BUY, got %s (%s)", sig.Direction, sig.Reason)
	}
}

func TestDecide_Sell(t *testing.T) {
	e := NewEngine(DefaultConfig())
	snap := warmSnapshot()
	snap.EMAFast = 9900
	snap.RSI = 45
	sig := e.Decide(snap, model.Candle{Close: 9900})
	if sig.Direction != Sell {
		t.Errorf("expected SELL, got %s (%s)", sig.Direction, sig.Reason)
	}
}

func TestDecide_WarmingUpIsNone(t *testing.T) {
	e := NewEngine(DefaultConfig())
	nan := math.NaN()

	for name, snap := range map[string]indicator.Snapshot{
		"ema_fast": {EMAFast: nan, EMASlow: 10000, RSI: 50, ADX: 30},
		"ema_slow": {EMAFast: 10100, EMASlow: nan, RSI: 50, ADX: 30},
		"rsi":      {EMAFast: 10100, EMASlow: 10000, RSI: nan, ADX: 30},
		"adx":      {EMAFast: 10100, EMASlow: 10000, RSI: 50, ADX: nan},
	} {
		sig := e.Decide(snap, model.Candle{})
		if sig.Direction != None {
			t.Errorf("NaN %s: expected NONE, got %s", name, sig.Direction)
		}
	}
}

func TestDecide_WeakTrendIsNone(t *testing.T) {
	e := NewEngine(DefaultConfig())
	snap := warmSnapshot()
	snap.ADX = 19.9
	if sig := e.Decide(snap, model.Candle{}); sig.Direction != None {
		t.Errorf("ADX below floor: expected NONE, got %s", sig.Direction)
	}

	// The floor is inclusive.
	snap.ADX = 20
	if sig := e.Decide(snap, model.Candle{}); sig.Direction != Buy {
		t.Errorf("ADX at floor: expected BUY, got %s", sig.Direction)
	}
}

func TestDecide_RSIBandsSuppress(t *testing.T) {
	e := NewEngine(DefaultConfig())

	snap := warmSnapshot()
	snap.RSI = 75 // overbought suppresses the buy
	if sig := e.Decide(snap, model.Candle{}); sig.Direction != None {
		t.Errorf("overbought: expected NONE, got %s", sig.Direction)
	}

	snap = warmSnapshot()
	snap.EMAFast = 9900
	snap.RSI = 25 // oversold suppresses the sell
	if sig := e.Decide(snap, model.Candle{}); sig.Direction != None {
		t.Errorf("oversold: expected NONE, got %s", sig.Direction)
	}
}

func TestDecide_EqualEMAsIsNone(t *testing.T) {
	e := NewEngine(DefaultConfig())
	snap := warmSnapshot()
	snap.EMAFast = snap.EMASlow
	if sig := e.Decide(snap, model.Candle{}); sig.Direction != None {
		t.Errorf("equal EMAs: expected NONE, got %s", sig.Direction)
	}
}

func TestDecide_Deterministic(t *testing.T) {
	e := NewEngine(DefaultConfig())
	snap := warmSnapshot()
	c := model.Candle{Close: 10100}

	first := e.Decide(snap, c)
	for i := 0; i < 10; i++ {
		if got := e.Decide(snap, c); got.Direction != first.Direction {
			t.Fatalf("decision changed between identical calls: %s then %s",
				first.Direction, got.Direction)
		}
	}
}
