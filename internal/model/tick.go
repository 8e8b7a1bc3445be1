package model

import "time"

// Tick represents a single trade print from the exchange market-data stream.
// Price is stored as int64 in cents (1 USD = 100 cents) to avoid float drift.
type Tick struct {
	Symbol string    `json:"symbol"`
	Price  int64     `json:"price"` // cents (last traded price)
	Qty    int64     `json:"qty"`   // last traded quantity (contracts)
	TickTS time.Time `json:"tick_ts"`
}
