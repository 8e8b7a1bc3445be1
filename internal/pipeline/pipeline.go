// Package pipeline wires the trading engine together: ticks in, orders out.
//
// Three tasks share the work, each owned by one goroutine:
//
//   - RunIngest folds ticks into unit candles and rolls them up, handing
//     closed rollup candles to the decision queue.
//   - RunDecision consumes rollup candles one at a time — window push,
//     indicator snapshot, signal, sizing, dispatch, mark-to-market — so
//     decisions for candle k always complete before candle k+1 starts.
//   - RunOrders applies asynchronous order updates to the dispatcher and
//     position ledger.
//
// The ingest→decision queue is bounded; when the decision worker falls
// behind, the OLDEST queued candle is evicted so decisions run on the most
// recent market state.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"algocore/internal/execution"
	"algocore/internal/indicator"
	"algocore/internal/ledger"
	"algocore/internal/marketdata/agg"
	"algocore/internal/marketdata/rollup"
	"algocore/internal/metrics"
	"algocore/internal/model"
	"algocore/internal/notification"
	"algocore/internal/risk"
	"algocore/internal/strategy"
	"algocore/internal/window"
)

// Config holds the pipeline shape parameters.
type Config struct {
	Symbol     string
	Unit       time.Duration // unit candle duration (e.g., 60s)
	RollupN    int           // unit candles per rollup candle (e.g., 15)
	WindowSize int           // rollup candles retained for indicators (e.g., 100)
	QueueSize  int           // decision queue depth (e.g., 64)
}

// Deps are the collaborators the pipeline drives. Metrics, Journal, Notifier,
// CandleSink, and the hooks are optional (nil disables them).
type Deps struct {
	Dispatcher *execution.Dispatcher
	Ledger     *ledger.Ledger
	Journal    *execution.Journal
	Metrics    *metrics.Metrics
	Notifier   notification.Notifier

	IndicatorCfg indicator.Config
	Strategy     *strategy.Engine
	Risk         *risk.Manager

	// CandleSink receives every closed unit candle (fanout bus input).
	CandleSink chan<- model.Candle

	// OnSignal fires after each decision with the evaluated signal.
	OnSignal func(strategy.Signal)
	// OnPosition fires whenever the position changes (mark or fill).
	OnPosition func(model.Position)
}

// Pipeline is the assembled engine for one symbol.
type Pipeline struct {
	cfg  Config
	deps Deps

	agg    *agg.Aggregator
	roll   *rollup.Builder
	win    *window.Window
	engine *strategy.Engine
	risk   *risk.Manager

	queue chan model.Candle
}

// New assembles a pipeline. Returns an error on nonsensical shape parameters.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if cfg.Symbol == "" {
		return nil, errors.New("pipeline: symbol required")
	}
	if cfg.Unit < time.Second {
		return nil, fmt.Errorf("pipeline: unit %v below 1s", cfg.Unit)
	}
	if cfg.RollupN < 1 {
		return nil, fmt.Errorf("pipeline: rollup multiple %d below 1", cfg.RollupN)
	}
	if cfg.WindowSize < 1 {
		return nil, fmt.Errorf("pipeline: window size %d below 1", cfg.WindowSize)
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 64
	}
	if deps.Dispatcher == nil || deps.Ledger == nil || deps.Strategy == nil || deps.Risk == nil {
		return nil, errors.New("pipeline: dispatcher, ledger, strategy and risk are required")
	}

	p := &Pipeline{
		cfg:    cfg,
		deps:   deps,
		agg:    agg.New(cfg.Symbol, cfg.Unit),
		roll:   rollup.New(cfg.RollupN),
		win:    window.New(cfg.WindowSize),
		engine: deps.Strategy,
		risk:   deps.Risk,
		queue:  make(chan model.Candle, cfg.QueueSize),
	}

	if deps.Metrics != nil {
		p.agg.OnLateTick = deps.Metrics.LateTicks.Inc
		p.agg.OnGapFill = deps.Metrics.GapFills.Inc
		p.roll.OnGap = deps.Metrics.RollupGaps.Inc
	}
	return p, nil
}

// RunIngest consumes ticks until ctx is cancelled or tickCh closes. Closed
// unit candles flow to the candle sink and the rollup builder; closed rollup
// candles are queued for the decision worker. After the loop, the in-progress
// unit candle is flushed so the final partial period reaches the sink.
func (p *Pipeline) RunIngest(ctx context.Context, tickCh <-chan model.Tick) {
	defer close(p.queue)

	for {
		select {
		case <-ctx.Done():
			p.flush()
			return
		case tick, ok := <-tickCh:
			if !ok {
				p.flush()
				return
			}
			p.ingestTick(tick)
		}
	}
}

func (p *Pipeline) ingestTick(tick model.Tick) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.TicksTotal.Inc()
	}

	for _, c := range p.agg.AddTick(tick) {
		if p.deps.Metrics != nil {
			p.deps.Metrics.CandlesTotal.Inc()
		}
		p.sink(c)

		if rc, done := p.roll.Add(c); done {
			if p.deps.Metrics != nil {
				p.deps.Metrics.RollupsTotal.Inc()
			}
			p.sink(rc)
			p.enqueue(rc)
		}
	}
}

// flush closes the partial unit candle at shutdown. It is sunk for
// persistence but never rolled up — the rollup builder only accepts full
// periods.
func (p *Pipeline) flush() {
	if c, ok := p.agg.Flush(); ok {
		log.Printf("[pipeline] flushed partial candle %s start=%v ticks=%d",
			c.Symbol, c.Start, c.Ticks)
		p.sink(c)
	}
}

// sink hands a closed candle to the fanout bus without blocking the ingest
// loop. The bus input is buffered; a full buffer drops the candle.
func (p *Pipeline) sink(c model.Candle) {
	if p.deps.CandleSink == nil {
		return
	}
	select {
	case p.deps.CandleSink <- c:
	default:
		log.Printf("[pipeline] candle sink full, dropping %s", c.StreamKey())
	}
}

// enqueue pushes a rollup candle onto the decision queue, evicting the
// oldest queued candle when full. Safe only with a single producer (the
// ingest goroutine).
func (p *Pipeline) enqueue(c model.Candle) {
	select {
	case p.queue <- c:
		return
	default:
	}

	// Queue full: drop the oldest so the decision worker sees the freshest
	// market state, then retry once.
	select {
	case old := <-p.queue:
		if p.deps.Metrics != nil {
			p.deps.Metrics.QueueDrops.Inc()
		}
		log.Printf("[pipeline] decision queue full, evicting candle start=%v", old.Start)
	default:
	}
	select {
	case p.queue <- c:
	default:
		log.Printf("[pipeline] decision queue still full, dropping candle start=%v", c.Start)
	}
}

// RunDecision consumes rollup candles serially until the queue is closed and
// drained. Returns a non-nil error only on a fatal ordering violation in the
// window, which means upstream state is corrupt and the engine must stop.
func (p *Pipeline) RunDecision(ctx context.Context) error {
	for c := range p.queue {
		if err := p.step(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// step is one full decision pass over a closed rollup candle.
func (p *Pipeline) step(ctx context.Context, c model.Candle) error {
	start := time.Now()

	if err := p.win.Push(c); err != nil {
		err = fmt.Errorf("window push candle start=%v: %w", c.Start, err)
		p.notify(ctx, notification.OrderingViolation(p.cfg.Symbol, err))
		return err
	}

	snap := indicator.Compute(p.win.Snapshot(), p.deps.IndicatorCfg)
	sig := p.engine.Decide(snap, c)

	if p.deps.Metrics != nil {
		p.deps.Metrics.SignalsTotal.WithLabelValues(string(sig.Direction)).Inc()
	}
	if p.deps.OnSignal != nil {
		p.deps.OnSignal(sig)
	}

	if intent, ok := p.risk.Size(sig, c); ok {
		ord, err := p.deps.Dispatcher.Dispatch(ctx, intent)
		switch {
		case errors.Is(err, execution.ErrInFlight):
			// Suppressed; the signal re-evaluates next close.
		case err != nil:
			log.Printf("[pipeline] order placement failed: %v", err)
			p.notify(ctx, notification.PlacementFailed(p.cfg.Symbol, err))
		default:
			p.notify(ctx, notification.OrderPlaced(ord))
		}
	}

	pos := p.deps.Ledger.Mark(c)
	p.publishPosition(pos)

	if p.deps.Metrics != nil {
		p.deps.Metrics.DecisionLatency.Observe(time.Since(start).Seconds())
	}
	return nil
}

// RunOrders consumes order updates until updCh closes. The producer (the
// order feed) closes the channel after it stops reading the wire, so updates
// already buffered at shutdown still reach the dispatcher, ledger and
// journal before this returns.
func (p *Pipeline) RunOrders(updCh <-chan model.OrderUpdate) {
	for u := range updCh {
		p.applyUpdate(u)
	}
}

func (p *Pipeline) applyUpdate(u model.OrderUpdate) {
	ord, known := p.deps.Dispatcher.Apply(u)
	if !known {
		log.Printf("[pipeline] order update for unknown order %s (seq=%d), ignoring", u.OrderID, u.Seq)
		return
	}

	if u.FilledQty <= 0 {
		return
	}
	if u.Status != model.StatusFilled && u.Status != model.StatusPartiallyFilled {
		return
	}

	before := p.deps.Ledger.Position().NetQty
	applied, realized := p.deps.Ledger.ApplyFill(ledger.Fill{
		OrderID: u.OrderID,
		Seq:     u.Seq,
		Side:    ord.Side,
		Qty:     u.FilledQty,
		Price:   u.FillPrice,
	})
	if !applied {
		if p.deps.Metrics != nil {
			p.deps.Metrics.DuplicateFills.Inc()
		}
		return
	}

	if p.deps.Metrics != nil {
		p.deps.Metrics.FillsApplied.Inc()
	}
	if p.deps.Journal != nil {
		if err := p.deps.Journal.RecordFill(ord, u, realized); err != nil {
			log.Printf("[pipeline] journal write failed for order %s: %v", u.OrderID, err)
		}
	}

	pos := p.deps.Ledger.Position()
	if before != 0 && pos.NetQty != 0 && (before > 0) != (pos.NetQty > 0) {
		p.notify(context.Background(), notification.PositionFlipped(p.cfg.Symbol, pos.NetQty, pos.AvgPrice))
	}
	p.publishPosition(pos)
}

func (p *Pipeline) publishPosition(pos model.Position) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.RealizedPnL.Set(float64(pos.RealizedPnL))
		p.deps.Metrics.UnrealizedPnL.Set(float64(pos.UnrealizedPnL))
		p.deps.Metrics.NetQty.Set(float64(pos.NetQty))
	}
	if p.deps.OnPosition != nil {
		p.deps.OnPosition(pos)
	}
}

func (p *Pipeline) notify(ctx context.Context, a notification.Alert) {
	if p.deps.Notifier == nil {
		return
	}
	if err := p.deps.Notifier.Send(ctx, a); err != nil {
		log.Printf("[pipeline] alert delivery failed: %v", err)
	}
}
