package rollup

import (
	"testing"
	"time"

	"algocore/internal/model"
)

var base = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// unitCandle builds the i-th contiguous closed 60s candle.
func unitCandle(i int, o, h, l, c, vol int64) model.Candle {
	start := base.Add(time.Duration(i) * time.Minute)
	return model.Candle{
		Symbol: "BTCUSD",
		TF:     60,
		Start:  start,
		End:    start.Add(time.Minute),
		Open:   o,
		High:   h,
		Low:    l,
		Close:  c,
		Volume: vol,
		Ticks:  1,
		Closed: true,
	}
}

func TestBuilder_FoldsNCandles(t *testing.T) {
	b := New(3)

	if _, done := b.Add(unitCandle(0, 100, 110, 95, 105, 10)); done {
		t.Fatal("rollup closed after 1 of 3 candles")
	}
	if _, done := b.Add(unitCandle(1, 105, 120, 100, 115, 20)); done {
		t.Fatal("rollup closed after 2 of 3 candles")
	}
	rc, done := b.Add(unitCandle(2, 115, 118, 90, 92, 5))
	if !done {
		t.Fatal("rollup did not close after 3 candles")
	}

	if rc.Open != 100 {
		t.Errorf("expected open=100 (first candle), got %d", rc.Open)
	}
	if rc.High != 120 {
		t.Errorf("expected high=120 (max), got %d", rc.High)
	}
	if rc.Low != 90 {
		t.Errorf("expected low=90 (min), got %d", rc.Low)
	}
	if rc.Close != 92 {
		t.Errorf("expected close=92 (last candle), got %d", rc.Close)
	}
	if rc.Volume != 35 {
		t.Errorf("expected volume=35 (sum), got %d", rc.Volume)
	}
	if rc.TF != 180 {
		t.Errorf("expected tf=180s, got %d", rc.TF)
	}
	if !rc.Start.Equal(base) {
		t.Errorf("expected start=%v, got %v", base, rc.Start)
	}
	if !rc.End.Equal(base.Add(3 * time.Minute)) {
		t.Errorf("expected end=%v, got %v", base.Add(3*time.Minute), rc.End)
	}
	if !rc.Closed {
		t.Error("expected rollup candle closed")
	}

	if b.Pending() != 0 {
		t.Errorf("expected empty builder after close, got pending=%d", b.Pending())
	}
}

func TestBuilder_GapRestartsAccumulation(t *testing.T) {
	b := New(3)
	gaps := 0
	b.OnGap = func() { gaps++ }

	b.Add(unitCandle(0, 100, 110, 95, 105, 10))
	b.Add(unitCandle(1, 105, 120, 100, 115, 20))

	// Candle 3 (skipping 2) gaps the rollup: the partial is discarded and
	// accumulation restarts at the gapped candle.
	if _, done := b.Add(unitCandle(3, 115, 118, 90, 92, 5)); done {
		t.Fatal("gapped candle must not close a rollup")
	}
	if gaps != 1 {
		t.Errorf("expected 1 gap, got %d", gaps)
	}
	if b.Pending() != 1 {
		t.Errorf("expected pending=1 after restart, got %d", b.Pending())
	}

	// Two more contiguous candles close a rollup spanning candles 3–5.
	b.Add(unitCandle(4, 92, 95, 88, 94, 3))
	rc, done := b.Add(unitCandle(5, 94, 99, 93, 98, 7))
	if !done {
		t.Fatal("rollup did not close after 3 contiguous candles")
	}
	if !rc.Start.Equal(base.Add(3 * time.Minute)) {
		t.Errorf("expected restart at candle 3's start, got %v", rc.Start)
	}
	if rc.Open != 115 || rc.Close != 98 {
		t.Errorf("unexpected rollup O=%d C=%d", rc.Open, rc.Close)
	}
}

func TestBuilder_IgnoresOpenCandles(t *testing.T) {
	b := New(2)

	open := unitCandle(0, 100, 110, 95, 105, 10)
	open.Closed = false
	if _, done := b.Add(open); done {
		t.Fatal("open candle must not close a rollup")
	}
	if b.Pending() != 0 {
		t.Errorf("open candle must not accumulate, pending=%d", b.Pending())
	}
}

func TestBuilder_MultipleOfOne(t *testing.T) {
	b := New(1)
	rc, done := b.Add(unitCandle(0, 100, 110, 95, 105, 10))
	if !done {
		t.Fatal("n=1 rollup should close on every candle")
	}
	if rc.TF != 60 || rc.Close != 105 {
		t.Errorf("unexpected passthrough candle tf=%d close=%d", rc.TF, rc.Close)
	}
}
