package agg

import (
	"testing"
	"time"

	"algocore/internal/model"
)

func tick(price, qty int64, ts time.Time) model.Tick {
	return model.Tick{Symbol: "BTCUSD", Price: price, Qty: qty, TickTS: ts}
}

func TestAggregator_BasicCandle(t *testing.T) {
	agg := New("BTCUSD", time.Minute)
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	// Four ticks inside one 60s period.
	if got := agg.AddTick(tick(10000, 10, base)); got != nil {
		t.Fatalf("expected no candle on first tick, got %d", len(got))
	}
	agg.AddTick(tick(10500, 20, base.Add(10*time.Second)))
	agg.AddTick(tick(9500, 5, base.Add(20*time.Second)))
	agg.AddTick(tick(11000, 15, base.Add(40*time.Second)))

	// A tick in the next period closes the first candle.
	closed := agg.AddTick(tick(10200, 1, base.Add(70*time.Second)))
	if len(closed) != 1 {
		t.Fatalf("expected 1 closed candle, got %d", len(closed))
	}

	c := closed[0]
	if !c.Closed {
		t.Error("expected candle to be closed")
	}
	if c.Open != 10000 {
		t.Errorf("expected open=10000, got %d", c.Open)
	}
	if c.High != 11000 {
		t.Errorf("expected high=11000, got %d", c.High)
	}
	if c.Low != 9500 {
		t.Errorf("expected low=9500, got %d", c.Low)
	}
	if c.Close != 11000 {
		t.Errorf("expected close=11000, got %d", c.Close)
	}
	if c.Volume != 50 {
		t.Errorf("expected volume=50, got %d", c.Volume)
	}
	if c.Ticks != 4 {
		t.Errorf("expected ticks=4, got %d", c.Ticks)
	}
	if !c.Start.Equal(base) {
		t.Errorf("expected start=%v, got %v", base, c.Start)
	}
	if !c.End.Equal(base.Add(time.Minute)) {
		t.Errorf("expected end=%v, got %v", base.Add(time.Minute), c.End)
	}
}

func TestAggregator_PeriodAlignment(t *testing.T) {
	agg := New("BTCUSD", time.Minute)

	// First tick lands mid-period; the candle must still start on the
	// minute boundary.
	ts := time.Date(2026, 3, 2, 10, 0, 37, 0, time.UTC)
	agg.AddTick(tick(10000, 1, ts))

	closed := agg.AddTick(tick(10100, 1, ts.Add(time.Minute)))
	if len(closed) != 1 {
		t.Fatalf("expected 1 closed candle, got %d", len(closed))
	}
	want := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	if !closed[0].Start.Equal(want) {
		t.Errorf("expected period-aligned start %v, got %v", want, closed[0].Start)
	}
}

func TestAggregator_GapSynthesis(t *testing.T) {
	agg := New("BTCUSD", time.Minute)
	gapFills := 0
	agg.OnGapFill = func() { gapFills++ }

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	agg.AddTick(tick(10000, 10, base))

	// Next tick three periods later: close + 2 synthetic flat candles.
	closed := agg.AddTick(tick(10300, 5, base.Add(3*time.Minute)))
	if len(closed) != 3 {
		t.Fatalf("expected 3 closed candles (1 real + 2 synthetic), got %d", len(closed))
	}
	if gapFills != 2 {
		t.Errorf("expected 2 gap fills, got %d", gapFills)
	}

	for i, c := range closed[1:] {
		if c.Open != 10000 || c.High != 10000 || c.Low != 10000 || c.Close != 10000 {
			t.Errorf("synthetic candle %d: expected flat OHLC at 10000, got O=%d H=%d L=%d C=%d",
				i, c.Open, c.High, c.Low, c.Close)
		}
		if c.Volume != 0 || c.Ticks != 0 {
			t.Errorf("synthetic candle %d: expected zero volume and ticks, got vol=%d ticks=%d",
				i, c.Volume, c.Ticks)
		}
		if !c.Closed {
			t.Errorf("synthetic candle %d: expected closed", i)
		}
	}

	// Contiguity: each candle starts where the previous ended.
	for i := 1; i < len(closed); i++ {
		if !closed[i].Start.Equal(closed[i-1].End) {
			t.Errorf("candle %d starts %v, previous ended %v", i, closed[i].Start, closed[i-1].End)
		}
	}
}

func TestAggregator_LateTickDropped(t *testing.T) {
	agg := New("BTCUSD", time.Minute)
	late := 0
	agg.OnLateTick = func() { late++ }

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	agg.AddTick(tick(10000, 10, base.Add(70*time.Second)))

	// Tick behind the open period must be dropped without closing anything.
	if got := agg.AddTick(tick(9000, 5, base.Add(30*time.Second))); got != nil {
		t.Fatalf("expected late tick to produce no candles, got %d", len(got))
	}
	if late != 1 {
		t.Errorf("expected 1 late tick, got %d", late)
	}

	// The open candle is untouched by the late tick.
	closed := agg.AddTick(tick(10100, 1, base.Add(130*time.Second)))
	if len(closed) != 1 {
		t.Fatalf("expected 1 closed candle, got %d", len(closed))
	}
	if closed[0].Low != 10000 {
		t.Errorf("late tick leaked into candle: low=%d", closed[0].Low)
	}
}

func TestAggregator_OtherSymbolIgnored(t *testing.T) {
	agg := New("BTCUSD", time.Minute)
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	agg.AddTick(tick(10000, 10, base))
	agg.AddTick(model.Tick{Symbol: "ETHUSD", Price: 99999, Qty: 1, TickTS: base.Add(5 * time.Second)})

	closed := agg.AddTick(tick(10100, 1, base.Add(time.Minute)))
	if len(closed) != 1 {
		t.Fatalf("expected 1 closed candle, got %d", len(closed))
	}
	if closed[0].High != 10000 || closed[0].Ticks != 1 {
		t.Errorf("foreign symbol leaked into candle: high=%d ticks=%d", closed[0].High, closed[0].Ticks)
	}
}

func TestAggregator_Flush(t *testing.T) {
	agg := New("BTCUSD", time.Minute)

	if _, ok := agg.Flush(); ok {
		t.Fatal("expected nothing to flush before first tick")
	}

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	agg.AddTick(tick(10000, 10, base))
	agg.AddTick(tick(10200, 5, base.Add(20*time.Second)))

	c, ok := agg.Flush()
	if !ok {
		t.Fatal("expected flushed candle")
	}
	if !c.Closed {
		t.Error("flushed candle should be closed")
	}
	if c.Close != 10200 || c.Volume != 15 {
		t.Errorf("unexpected flushed candle: close=%d vol=%d", c.Close, c.Volume)
	}

	if _, ok := agg.Flush(); ok {
		t.Error("second flush should return nothing")
	}
}
