package model

import (
	"encoding/json"
	"time"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderStatus is the lifecycle state of a placed order.
// Status transitions are driven only by order-update events.
type OrderStatus string

const (
	StatusPending         OrderStatus = "PENDING"
	StatusFilled          OrderStatus = "FILLED"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusRejected        OrderStatus = "REJECTED"
)

// Terminal reports whether the status is final: no further transitions follow.
func (s OrderStatus) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled || s == StatusRejected
}

// OrderIntent is a sized order request produced by the risk manager.
// All prices are in cents.
type OrderIntent struct {
	Symbol     string `json:"symbol"`
	Side       Side   `json:"side"`
	Qty        int64  `json:"qty"`
	StopLoss   int64  `json:"stop_loss"`   // cents
	TakeProfit int64  `json:"take_profit"` // cents
}

// Order is a dispatched order tracked against the exchange.
type Order struct {
	ID         string      `json:"id"`
	Symbol     string      `json:"symbol"`
	Side       Side        `json:"side"`
	Qty        int64       `json:"qty"`
	StopLoss   int64       `json:"stop_loss"`
	TakeProfit int64       `json:"take_profit"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// OrderUpdate is a single event from the order-update stream.
// Seq increases monotonically per order ID; FilledQty is the quantity filled
// by this event (not cumulative), at FillPrice cents.
type OrderUpdate struct {
	OrderID   string      `json:"order_id"`
	Seq       int64       `json:"seq"`
	Status    OrderStatus `json:"status"`
	FilledQty int64       `json:"filled_qty"`
	FillPrice int64       `json:"fill_price"` // cents
}

// JSON returns the JSON-encoded update.
func (u *OrderUpdate) JSON() []byte {
	b, _ := json.Marshal(u)
	return b
}
