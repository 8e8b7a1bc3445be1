package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"algocore/config"
	"algocore/internal/bus"
	"algocore/internal/execution"
	"algocore/internal/feed"
	"algocore/internal/indicator"
	"algocore/internal/ledger"
	"algocore/internal/logger"
	"algocore/internal/metrics"
	"algocore/internal/model"
	"algocore/internal/notification"
	"algocore/internal/pipeline"
	"algocore/internal/risk"
	redisstore "algocore/internal/store/redis"
	"algocore/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[engine] starting...")

	cfg := config.Load()
	slogger := logger.Init("engine", logger.ParseLevel(cfg.LogLevel))
	slogger.Info("configuration loaded",
		"symbol", cfg.Symbol,
		"unit_seconds", cfg.UnitSeconds,
		"rollup_multiple", cfg.RollupMultiple,
		"window_size", cfg.WindowSize,
	)

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Graceful shutdown context ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Fill journal (off hot path) ----
	os.MkdirAll(filepath.Dir(cfg.JournalPath), 0o755)
	journal, err := execution.NewJournal(cfg.JournalPath)
	if err != nil {
		log.Fatalf("[engine] journal init failed: %v", err)
	}
	defer journal.Close()
	health.SetJournalOK(true)
	log.Println("[engine] fill journal ready")

	// ---- Redis publisher (best effort — engine trades without it) ----
	var publisher *redisstore.Publisher
	publisher, err = redisstore.New(redisstore.PublisherConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Printf("[engine] WARNING: redis init failed: %v (continuing without redis)", err)
		publisher = nil
		health.SetRedisConnected(false)
	} else {
		health.SetRedisConnected(true)
		publisher.Breaker().OnStateChange = func(from, to redisstore.State) {
			log.Printf("[redis] circuit breaker %s -> %s", from, to)
			prom.RedisBreakerState.Set(float64(to))
			if to == redisstore.StateOpen {
				prom.RedisBreakerTrips.Inc()
			}
		}
		log.Println("[engine] redis publisher ready")
	}

	// ---- Periodic liveness checks ----
	if publisher != nil {
		health.StartLivenessChecker(ctx, publisher.Client(), journal.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, journal.DB(), 10*time.Second)
	}

	// ---- Notifier ----
	var notifier notification.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifier = notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		log.Println("[engine] telegram alerts enabled")
	} else {
		notifier = notification.NewLogNotifier()
	}

	// ---- Fanout bus for closed candles ----
	fanout := bus.New(5000)
	fanout.OnDrop = func(name string) {
		prom.FanoutDrops.WithLabelValues(name).Inc()
	}

	candleCh := make(chan model.Candle, 5000)
	if publisher != nil {
		redisCandleCh := fanout.Subscribe("redis")
		go publisher.RunCandles(ctx, redisCandleCh)
	}
	go fanout.Run(ctx, candleCh)

	// ---- Core components ----
	placer := execution.NewHTTPPlacer(cfg.OrderAPIURL)
	dispatcher := execution.NewDispatcher(placer)
	dispatcher.OnPlaced = prom.OrdersPlaced.Inc
	dispatcher.OnSuppressed = prom.OrdersSuppress.Inc
	dispatcher.OnFailed = prom.OrdersFailed.Inc

	book := ledger.New(cfg.Symbol)

	engine := strategy.NewEngine(strategy.DefaultConfig())
	sizer := risk.NewManager(risk.Policy{
		Equity:      cfg.EquityCents,
		RiskFrac:    cfg.RiskFraction,
		StopBps:     cfg.StopBps,
		TakeProfitR: cfg.TakeProfitR,
	})

	pipe, err := pipeline.New(pipeline.Config{
		Symbol:     cfg.Symbol,
		Unit:       time.Duration(cfg.UnitSeconds) * time.Second,
		RollupN:    cfg.RollupMultiple,
		WindowSize: cfg.WindowSize,
		QueueSize:  cfg.QueueSize,
	}, pipeline.Deps{
		Dispatcher:   dispatcher,
		Ledger:       book,
		Journal:      journal,
		Metrics:      prom,
		Notifier:     notifier,
		IndicatorCfg: indicator.DefaultConfig(),
		Strategy:     engine,
		Risk:         sizer,
		CandleSink:   candleCh,
		OnSignal: func(sig strategy.Signal) {
			if publisher == nil || sig.Direction == strategy.None {
				return
			}
			payload, _ := json.Marshal(sig)
			publisher.PublishSignal(ctx, cfg.Symbol, payload)
		},
		OnPosition: func(pos model.Position) {
			if publisher != nil {
				publisher.PublishPosition(ctx, pos)
			}
		},
	})
	if err != nil {
		log.Fatalf("[engine] pipeline init failed: %v", err)
	}

	// ---- Feeds ----
	tickFeed, err := feed.NewTickFeed(feed.Config{URL: cfg.TickWSURL})
	if err != nil {
		log.Fatalf("[engine] tick feed init failed: %v", err)
	}
	tickFeed.OnConnect = func() { health.SetTickWSConnected(true) }
	tickFeed.OnTick = func(t model.Tick) { health.SetLastTickTime(t.TickTS) }
	tickFeed.OnDisconnect = func() {
		health.SetTickWSConnected(false)
		prom.WSReconnects.Inc()
	}

	orderFeed, err := feed.NewOrderFeed(feed.Config{URL: cfg.OrderWSURL})
	if err != nil {
		log.Fatalf("[engine] order feed init failed: %v", err)
	}
	orderFeed.OnConnect = func() { health.SetOrderWSConnected(true) }
	orderFeed.OnDisconnect = func() {
		health.SetOrderWSConnected(false)
		prom.WSReconnects.Inc()
	}

	// ---- Launch tasks ----
	tickCh := make(chan model.Tick, 10000)
	updCh := make(chan model.OrderUpdate, 1000)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		tickFeed.Start(ctx, tickCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		orderFeed.Start(ctx, updCh)
		// Feed stopped writing; close so RunOrders drains what is buffered.
		close(updCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		pipe.RunIngest(ctx, tickCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		pipe.RunOrders(updCh)
	}()

	// The decision worker owns the engine's fate: a fatal pipeline error
	// triggers the same shutdown path as SIGTERM.
	decisionDone := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		decisionDone <- pipe.RunDecision(ctx)
	}()

	log.Printf("[engine] pipeline ready: %s %ds candles x%d rollup, window %d",
		cfg.Symbol, cfg.UnitSeconds, cfg.RollupMultiple, cfg.WindowSize)

	// ---- Wait for shutdown signal or fatal pipeline error ----
	select {
	case <-sigCh:
		log.Println("[engine] shutdown signal received, cleaning up...")
	case err := <-decisionDone:
		if err != nil {
			log.Printf("[engine] FATAL pipeline error: %v", err)
		} else {
			log.Println("[engine] decision worker finished")
		}
	}
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)

	if publisher != nil {
		publisher.Close()
	}

	log.Println("[engine] shutdown complete.")
}
