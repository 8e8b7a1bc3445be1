package risk

import (
	"testing"

	"algocore/internal/model"
	"algocore/internal/strategy"
)

func buySignal() strategy.Signal {
	return strategy.Signal{Direction: strategy.Buy}
}

func sellSignal() strategy.Signal {
	return strategy.Signal{Direction: strategy.Sell}
}

func healthyCandle(close int64) model.Candle {
	return model.Candle{
		Symbol: "BTCUSD",
		High:   close + 50,
		Low:    close - 50,
		Close:  close,
		Volume: 100,
		Closed: true,
	}
}

func TestSize_Buy(t *testing.T) {
	// $10,000 equity, 1% risk → $100 budget. Price $200.00, 50bps stop →
	// stop distance $1.00 (100 cents) → qty 100.
	m := NewManager(Policy{Equity: 1_000_000, RiskFrac: 0.01, StopBps: 50, TakeProfitR: 2})

	intent, ok := m.Size(buySignal(), healthyCandle(20000))
	if !ok {
		t.Fatal("expected an intent")
	}
	if intent.Side != model.SideBuy {
		t.Errorf("expected BUY side, got %s", intent.Side)
	}
	if intent.Qty != 100 {
		t.Errorf("expected qty=100, got %d", intent.Qty)
	}
	if intent.StopLoss != 19900 {
		t.Errorf("expected stop at 19900, got %d", intent.StopLoss)
	}
	if intent.TakeProfit != 20200 {
		t.Errorf("expected target at 20200 (2R), got %d", intent.TakeProfit)
	}
	if intent.Symbol != "BTCUSD" {
		t.Errorf("expected symbol carried through, got %q", intent.Symbol)
	}
}

func TestSize_SellMirrorsBuy(t *testing.T) {
	m := NewManager(Policy{Equity: 1_000_000, RiskFrac: 0.01, StopBps: 50, TakeProfitR: 2})

	intent, ok := m.Size(sellSignal(), healthyCandle(20000))
	if !ok {
		t.Fatal("expected an intent")
	}
	if intent.Side != model.SideSell {
		t.Errorf("expected SELL side, got %s", intent.Side)
	}
	if intent.StopLoss != 20100 {
		t.Errorf("expected stop above entry at 20100, got %d", intent.StopLoss)
	}
	if intent.TakeProfit != 19800 {
		t.Errorf("expected target below entry at 19800, got %d", intent.TakeProfit)
	}
}

func TestSize_NoneProducesNothing(t *testing.T) {
	m := NewManager(DefaultPolicy())
	if _, ok := m.Size(strategy.Signal{Direction: strategy.None}, healthyCandle(20000)); ok {
		t.Error("NONE signal must not size an order")
	}
}

func TestSize_SanityBounds(t *testing.T) {
	m := NewManager(DefaultPolicy())

	bad := healthyCandle(20000)
	bad.Close = 0
	if _, ok := m.Size(buySignal(), bad); ok {
		t.Error("zero price must be rejected")
	}

	bad = healthyCandle(20000)
	bad.Volume = 0
	if _, ok := m.Size(buySignal(), bad); ok {
		t.Error("zero volume must be rejected")
	}

	bad = healthyCandle(20000)
	bad.High, bad.Low = bad.Low, bad.High
	if _, ok := m.Size(buySignal(), bad); ok {
		t.Error("inverted high/low must be rejected")
	}
}

func TestSize_TinyPriceRejected(t *testing.T) {
	// 50bps of 100 cents rounds to 0 — no stop distance, no order.
	m := NewManager(Policy{Equity: 1_000_000, RiskFrac: 0.01, StopBps: 50, TakeProfitR: 2})
	if _, ok := m.Size(buySignal(), healthyCandle(100)); ok {
		t.Error("sub-tick stop distance must be rejected")
	}
}

func TestSize_TinyBudgetRejected(t *testing.T) {
	// Budget below one unit of stop distance → qty 0 → no order.
	m := NewManager(Policy{Equity: 1_000, RiskFrac: 0.01, StopBps: 50, TakeProfitR: 2})
	if _, ok := m.Size(buySignal(), healthyCandle(2_000_000)); ok {
		t.Error("zero quantity must be rejected")
	}
}
