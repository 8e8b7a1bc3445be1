package model

import (
	"encoding/json"
	"time"
)

// Candle represents an OHLC candle for a single symbol and timeframe.
// TF is the timeframe duration in seconds (e.g., 60 = 1 minute, 900 = 15 minutes).
// All prices are in cents (int64) to avoid floating-point drift.
//
// A candle is mutable while it accumulates ticks and becomes immutable once
// Closed is set; only closed candles travel downstream.
type Candle struct {
	Symbol string    `json:"symbol"`
	TF     int       `json:"tf"`    // timeframe in seconds
	Start  time.Time `json:"start"` // period start (UTC, TF-aligned)
	End    time.Time `json:"end"`   // period end (exclusive)
	Open   int64     `json:"open"`  // cents
	High   int64     `json:"high"`  // cents
	Low    int64     `json:"low"`   // cents
	Close  int64     `json:"close"` // cents
	Volume int64     `json:"volume"`
	Ticks  int       `json:"ticks"`  // number of ticks folded in (0 for synthetic gap fills)
	Closed bool      `json:"closed"` // true once the period has rolled over
}

// StreamKey returns the Redis stream key: "candle:{TF}s:{symbol}".
func (c *Candle) StreamKey() string {
	return "candle:" + Itoa(c.TF) + "s:" + c.Symbol
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
