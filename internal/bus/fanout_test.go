package bus

import (
	"context"
	"testing"
	"time"

	"algocore/internal/model"
)

func TestFanOut_BroadcastsToAll(t *testing.T) {
	fo := New(10)
	out1 := fo.Subscribe("redis")
	out2 := fo.Subscribe("journal")

	input := make(chan model.Candle, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fo.Run(ctx, input)

	candle := model.Candle{
		Symbol: "BTCUSD",
		TF:     60,
		Open:   10000,
		High:   11000,
		Low:    9500,
		Close:  10500,
		Closed: true,
	}

	input <- candle

	select {
	case c := <-out1:
		if c.Symbol != "BTCUSD" {
			t.Errorf("out1: expected symbol BTCUSD, got %s", c.Symbol)
		}
	case <-time.After(time.Second):
		t.Fatal("out1: timed out waiting for candle")
	}

	select {
	case c := <-out2:
		if c.Close != 10500 {
			t.Errorf("out2: expected close=10500, got %d", c.Close)
		}
	case <-time.After(time.Second):
		t.Fatal("out2: timed out waiting for candle")
	}
}

func TestFanOut_SlowSubscriberDropsWithoutBlocking(t *testing.T) {
	fo := New(1)
	drops := make(chan string, 10)
	fo.OnDrop = func(name string) { drops <- name }

	slow := fo.Subscribe("slow")
	_ = slow // never read

	input := make(chan model.Candle, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fo.Run(ctx, input)

	// Two candles into a buffer of one: the second must be dropped for the
	// slow subscriber, and Run must not block.
	input <- model.Candle{Symbol: "BTCUSD", Close: 1}
	input <- model.Candle{Symbol: "BTCUSD", Close: 2}

	select {
	case name := <-drops:
		if name != "slow" {
			t.Errorf("expected drop for slow, got %s", name)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for drop callback")
	}
}

func TestFanOut_ClosesSubscribersOnInputClose(t *testing.T) {
	fo := New(10)
	out := fo.Subscribe("only")

	input := make(chan model.Candle)
	done := make(chan struct{})
	go func() {
		fo.Run(context.Background(), input)
		close(done)
	}()

	close(input)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after input close")
	}

	if _, ok := <-out; ok {
		t.Error("subscriber channel should be closed")
	}
}

func TestFanOut_ChannelStats(t *testing.T) {
	fo := New(4)
	fo.Subscribe("a")
	fo.Subscribe("b")

	stats := fo.ChannelStats()
	if len(stats) != 2 {
		t.Fatalf("expected 2 stats, got %d", len(stats))
	}
	if stats[0].Name != "a" || stats[0].Cap != 4 || stats[0].Len != 0 {
		t.Errorf("unexpected stat %+v", stats[0])
	}
}
