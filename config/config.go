package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Instrument and pipeline shape
	Symbol         string
	UnitSeconds    int64 // unit candle duration in seconds
	RollupMultiple int   // unit candles per rollup candle
	WindowSize     int   // rollup candles retained for indicators
	QueueSize      int   // decision queue depth

	// Risk policy
	EquityCents  int64   // account equity in cents
	RiskFraction float64 // fraction of equity risked per trade
	StopBps      int64   // stop distance in basis points of entry price
	TakeProfitR  float64 // take-profit distance as a multiple of stop distance

	// Feeds and execution venue
	TickWSURL   string
	OrderWSURL  string
	OrderAPIURL string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	JournalPath   string
	MetricsAddr   string
	LogLevel      string

	// Alerting (optional — empty token disables Telegram)
	TelegramBotToken string
	TelegramChatID   string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Symbol:         getEnv("SYMBOL", "BTCUSD"),
		UnitSeconds:    getInt64("UNIT_SECONDS", 60),
		RollupMultiple: getInt("ROLLUP_MULTIPLE", 15),
		WindowSize:     getInt("WINDOW_SIZE", 100),
		QueueSize:      getInt("QUEUE_SIZE", 64),

		EquityCents:  getInt64("EQUITY_CENTS", 1_000_000),
		RiskFraction: getFloat("RISK_FRACTION", 0.01),
		StopBps:      getInt64("STOP_BPS", 50),
		TakeProfitR:  getFloat("TAKE_PROFIT_R", 2.0),

		TickWSURL:   getEnv("TICK_WS_URL", "ws://localhost:9001/ticks"),
		OrderWSURL:  getEnv("ORDER_WS_URL", "ws://localhost:9001/orders/stream"),
		OrderAPIURL: getEnv("ORDER_API_URL", "http://localhost:9001/orders"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		JournalPath:   getEnv("JOURNAL_PATH", "data/fills.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}
