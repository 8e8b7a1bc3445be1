package window

import (
	"errors"
	"testing"
	"time"

	"algocore/internal/model"
)

func candleAt(i int) model.Candle {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC).Add(time.Duration(i) * 15 * time.Minute)
	return model.Candle{
		Symbol: "BTCUSD",
		TF:     900,
		Start:  start,
		End:    start.Add(15 * time.Minute),
		Close:  int64(10000 + i),
		Closed: true,
	}
}

func TestWindow_PushAndSnapshot(t *testing.T) {
	w := New(5)

	for i := 0; i < 3; i++ {
		if err := w.Push(candleAt(i)); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if w.Len() != 3 {
		t.Errorf("expected len=3, got %d", w.Len())
	}

	snap := w.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected snapshot of 3, got %d", len(snap))
	}
	for i, c := range snap {
		if c.Close != int64(10000+i) {
			t.Errorf("snapshot[%d]: expected close=%d, got %d", i, 10000+i, c.Close)
		}
	}
}

func TestWindow_EvictsOldestAtCapacity(t *testing.T) {
	w := New(4)

	for i := 0; i < 10; i++ {
		if err := w.Push(candleAt(i)); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if w.Len() != 4 {
		t.Fatalf("expected len pinned at capacity 4, got %d", w.Len())
	}

	snap := w.Snapshot()
	// Candles 6..9 retained, oldest first.
	for i, c := range snap {
		if c.Close != int64(10000+6+i) {
			t.Errorf("snapshot[%d]: expected close=%d, got %d", i, 10000+6+i, c.Close)
		}
	}

	latest, ok := w.Latest()
	if !ok || latest.Close != 10009 {
		t.Errorf("expected latest close=10009, got %d (ok=%v)", latest.Close, ok)
	}
}

func TestWindow_OutOfOrderPushFails(t *testing.T) {
	w := New(8)

	w.Push(candleAt(0))
	w.Push(candleAt(1))

	// Same period again.
	if err := w.Push(candleAt(1)); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("duplicate period: expected ErrOutOfOrder, got %v", err)
	}
	// Earlier period.
	if err := w.Push(candleAt(0)); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("earlier period: expected ErrOutOfOrder, got %v", err)
	}

	// Window unchanged by the rejected pushes.
	if w.Len() != 2 {
		t.Errorf("expected len=2 after rejections, got %d", w.Len())
	}

	// A later period still works.
	if err := w.Push(candleAt(2)); err != nil {
		t.Errorf("valid push after rejection failed: %v", err)
	}
}

func TestWindow_SnapshotIsACopy(t *testing.T) {
	w := New(2)
	w.Push(candleAt(0))

	snap := w.Snapshot()
	w.Push(candleAt(1))
	w.Push(candleAt(2)) // evicts candle 0

	if snap[0].Close != 10000 {
		t.Errorf("snapshot mutated by later pushes: close=%d", snap[0].Close)
	}
}

func TestNextPow2(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 4, 5: 8, 100: 128, 128: 128}
	for in, want := range cases {
		if got := nextPow2(in); got != want {
			t.Errorf("nextPow2(%d) = %d, want %d", in, got, want)
		}
	}
}
