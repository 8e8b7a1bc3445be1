package model

import "encoding/json"

// Position represents the running position for one symbol.
// NetQty > 0 = long, < 0 = short, 0 = flat. All prices in cents.
type Position struct {
	Symbol        string `json:"symbol"`
	NetQty        int64  `json:"net_qty"`
	AvgPrice      int64  `json:"avg_price"`      // volume-weighted entry, 0 when flat
	RealizedPnL   int64  `json:"realized_pnl"`   // cents
	UnrealizedPnL int64  `json:"unrealized_pnl"` // cents, refreshed on mark and fill
	LastMark      int64  `json:"last_mark"`      // last mark-to-market price in cents
}

// JSON returns the JSON-encoded position.
func (p *Position) JSON() []byte {
	b, _ := json.Marshal(p)
	return b
}
