// Package redis publishes engine output — closed candles, signals, and
// position snapshots — for dashboards and downstream consumers. All writes
// run through a circuit breaker so a Redis outage degrades to dropped
// telemetry instead of back-pressuring the trading pipeline.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"algocore/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Stream trimming: ~3h of 1s candles + buffer
	streamMaxLen     = 12000
	defaultLatestTTL = 30 * time.Minute
)

// PublisherConfig configures the Redis publisher.
type PublisherConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int

	// BreakerMaxFailures and BreakerResetTimeout tune the circuit breaker.
	// Defaults: 5 failures, 10s reset.
	BreakerMaxFailures  int
	BreakerResetTimeout time.Duration
}

// Publisher writes candles, signals, and position snapshots to Redis.
type Publisher struct {
	client  *goredis.Client
	breaker *CircuitBreaker
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// Breaker exposes the circuit breaker for metrics wiring.
func (p *Publisher) Breaker() *CircuitBreaker { return p.breaker }

// New creates a new Publisher and pings the server.
func New(cfg PublisherConfig) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	resetTimeout := cfg.BreakerResetTimeout
	if resetTimeout == 0 {
		resetTimeout = 10 * time.Second
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{
		client:  client,
		breaker: NewCircuitBreaker(maxFailures, resetTimeout),
	}, nil
}

// RunCandles reads closed candles from candleCh and writes them to Redis.
// Blocks until ctx is cancelled or candleCh is closed.
func (p *Publisher) RunCandles(ctx context.Context, candleCh <-chan model.Candle) {
	for {
		select {
		case <-ctx.Done():
			return
		case candle, ok := <-candleCh:
			if !ok {
				return
			}
			p.publishCandle(ctx, candle)
		}
	}
}

// publishCandle performs pipelined writes for a closed candle:
// XADD to the candle stream, SET the latest snapshot, PUBLISH for
// real-time subscribers.
func (p *Publisher) publishCandle(ctx context.Context, candle model.Candle) {
	streamKey := candle.StreamKey()
	latestKey := fmt.Sprintf("candle:%ds:latest:%s", candle.TF, candle.Symbol)
	pubsubCh := "pub:" + streamKey
	jsonData := string(candle.JSON())

	// Proportional MAXLEN: ~3h of TF candles + buffer
	maxLen := int64(10800/candle.TF) + 100
	if maxLen < 200 {
		maxLen = 200
	}
	if maxLen > streamMaxLen {
		maxLen = streamMaxLen
	}

	err := p.breaker.Execute(func() error {
		pipe := p.client.Pipeline()
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: streamKey,
			MaxLen: maxLen,
			Approx: true,
			Values: map[string]interface{}{"data": jsonData},
		})
		pipe.Set(ctx, latestKey, jsonData, defaultLatestTTL)
		pipe.Publish(ctx, pubsubCh, jsonData)
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil && err != ErrCircuitOpen {
		log.Printf("[redis] candle pipeline error for %s: %v", streamKey, err)
	}
}

// PublishSignal pushes a signal decision to the signal stream and pubsub
// channel. Best effort — errors are logged, never returned to the caller.
func (p *Publisher) PublishSignal(ctx context.Context, symbol string, payload []byte) {
	streamKey := "signal:" + symbol
	jsonData := string(payload)

	err := p.breaker.Execute(func() error {
		pipe := p.client.Pipeline()
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: streamKey,
			MaxLen: 1000,
			Approx: true,
			Values: map[string]interface{}{"data": jsonData},
		})
		pipe.Publish(ctx, "pub:"+streamKey, jsonData)
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil && err != ErrCircuitOpen {
		log.Printf("[redis] signal publish error for %s: %v", symbol, err)
	}
}

// PublishPosition writes the latest position snapshot.
func (p *Publisher) PublishPosition(ctx context.Context, pos model.Position) {
	latestKey := "position:latest:" + pos.Symbol
	jsonData := string(pos.JSON())

	err := p.breaker.Execute(func() error {
		pipe := p.client.Pipeline()
		pipe.Set(ctx, latestKey, jsonData, defaultLatestTTL)
		pipe.Publish(ctx, "pub:position:"+pos.Symbol, jsonData)
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil && err != ErrCircuitOpen {
		log.Printf("[redis] position publish error for %s: %v", pos.Symbol, err)
	}
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
