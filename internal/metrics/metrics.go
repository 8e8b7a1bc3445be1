package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading engine.
type Metrics struct {
	// Market data ingestion
	TicksTotal   prometheus.Counter
	CandlesTotal prometheus.Counter
	RollupsTotal prometheus.Counter
	LateTicks    prometheus.Counter
	GapFills     prometheus.Counter
	RollupGaps   prometheus.Counter
	WSReconnects prometheus.Counter

	// Decision queue backpressure
	QueueDrops  prometheus.Counter
	FanoutDrops *prometheus.CounterVec // labels: subscriber

	// Strategy / execution
	SignalsTotal    *prometheus.CounterVec // labels: direction
	OrdersPlaced    prometheus.Counter
	OrdersSuppress  prometheus.Counter
	OrdersFailed    prometheus.Counter
	FillsApplied    prometheus.Counter
	DuplicateFills  prometheus.Counter
	DecisionLatency prometheus.Histogram

	// Position
	RealizedPnL   prometheus.Gauge
	UnrealizedPnL prometheus.Gauge
	NetQty        prometheus.Gauge

	// Redis circuit breaker (0=closed, 1=open, 2=half-open)
	RedisBreakerState prometheus.Gauge
	RedisBreakerTrips prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_ticks_total",
			Help: "Total ticks received from the market-data stream",
		}),
		CandlesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_candles_total",
			Help: "Total unit candles closed (including gap-filled)",
		}),
		RollupsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_rollups_total",
			Help: "Total rollup candles emitted",
		}),
		LateTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_late_ticks_total",
			Help: "Ticks dropped because they arrived behind the current period",
		}),
		GapFills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_gap_fills_total",
			Help: "Synthetic flat candles emitted for tickless periods",
		}),
		RollupGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_rollup_gaps_total",
			Help: "Partial rollups discarded due to non-contiguous input",
		}),
		WSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_ws_reconnects_total",
			Help: "Total WebSocket reconnection attempts",
		}),

		QueueDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_decision_queue_drops_total",
			Help: "Oldest rollup candles evicted from the full decision queue",
		}),
		FanoutDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_fanout_drops_total",
			Help: "Candles dropped by the fanout bus per subscriber",
		}, []string{"subscriber"}),

		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_signals_total",
			Help: "Signal decisions emitted (by direction)",
		}, []string{"direction"}),
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_orders_placed_total",
			Help: "Orders accepted by the execution venue",
		}),
		OrdersSuppress: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_orders_suppressed_total",
			Help: "Order intents suppressed because one was already in flight",
		}),
		OrdersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_orders_failed_total",
			Help: "Order placements that errored",
		}),
		FillsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_fills_applied_total",
			Help: "Fills applied to the position ledger",
		}),
		DuplicateFills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_duplicate_fills_total",
			Help: "Fill deliveries ignored as duplicates",
		}),
		DecisionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_decision_duration_seconds",
			Help:    "Latency of one decision step (indicators through dispatch)",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),

		RealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_realized_pnl_cents",
			Help: "Cumulative realized PnL in cents",
		}),
		UnrealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_unrealized_pnl_cents",
			Help: "Unrealized PnL at the last mark in cents",
		}),
		NetQty: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_net_position_qty",
			Help: "Signed net position quantity",
		}),

		RedisBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
	}

	prometheus.MustRegister(
		m.TicksTotal,
		m.CandlesTotal,
		m.RollupsTotal,
		m.LateTicks,
		m.GapFills,
		m.RollupGaps,
		m.WSReconnects,
		m.QueueDrops,
		m.FanoutDrops,
		m.SignalsTotal,
		m.OrdersPlaced,
		m.OrdersSuppress,
		m.OrdersFailed,
		m.FillsApplied,
		m.DuplicateFills,
		m.DecisionLatency,
		m.RealizedPnL,
		m.UnrealizedPnL,
		m.NetQty,
		m.RedisBreakerState,
		m.RedisBreakerTrips,
	)

	return m
}

// HealthStatus represents the engine health.
type HealthStatus struct {
	mu sync.RWMutex

	TickWSConnected  bool      `json:"tick_ws_connected"`
	OrderWSConnected bool      `json:"order_ws_connected"`
	LastTickTime     time.Time `json:"last_tick_time"`
	RedisConnected   bool      `json:"redis_connected"`
	JournalOK        bool      `json:"journal_ok"`

	// Liveness probe results
	RedisLatencyMs   float64   `json:"redis_latency_ms"`
	JournalLatencyMs float64   `json:"journal_latency_ms"`
	LastCheckAt      time.Time `json:"last_check_at"`
	StartedAt        time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetTickWSConnected(v bool) {
	h.mu.Lock()
	h.TickWSConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetOrderWSConnected(v bool) {
	h.mu.Lock()
	h.OrderWSConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetJournalOK(v bool) {
	h.mu.Lock()
	h.JournalOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckJournal runs a trivial query against the fill journal and records
// latency + health.
func (h *HealthStatus) CheckJournal(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.JournalOK = err == nil
	h.JournalLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, journalDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if journalDB != nil {
					h.CheckJournal(probeCtx, journalDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.TickWSConnected || !h.OrderWSConnected || !h.JournalOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.TickWSConnected && !h.OrderWSConnected {
		overallStatus = "unhealthy"
	}

	tickAge := ""
	if !h.LastTickTime.IsZero() {
		tickAge = time.Since(h.LastTickTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status           string  `json:"status"`
		Uptime           string  `json:"uptime"`
		TickWSConnected  bool    `json:"tick_ws_connected"`
		OrderWSConnected bool    `json:"order_ws_connected"`
		LastTickTime     string  `json:"last_tick_time"`
		TickAge          string  `json:"tick_age"`
		RedisConnected   bool    `json:"redis_connected"`
		RedisLatencyMs   float64 `json:"redis_latency_ms"`
		JournalOK        bool    `json:"journal_ok"`
		JournalLatencyMs float64 `json:"journal_latency_ms"`
		LastCheckAt      string  `json:"last_check_at"`
	}{
		Status:           overallStatus,
		Uptime:           time.Since(h.StartedAt).Round(time.Second).String(),
		TickWSConnected:  h.TickWSConnected,
		OrderWSConnected: h.OrderWSConnected,
		LastTickTime:     h.LastTickTime.Format(time.RFC3339),
		TickAge:          tickAge,
		RedisConnected:   h.RedisConnected,
		RedisLatencyMs:   h.RedisLatencyMs,
		JournalOK:        h.JournalOK,
		JournalLatencyMs: h.JournalLatencyMs,
		LastCheckAt:      h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
