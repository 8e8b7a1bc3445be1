// Package notification pushes engine alerts to an external channel so a
// wedged or misbehaving pipeline is noticed without tailing logs. Alerts are
// built with the typed constructors below; each one maps to a concrete
// pipeline event (placement failure, candle ordering violation, position
// flip) rather than free-form text.
package notification

import (
	"context"
	"fmt"
	"log"
	"time"

	"algocore/internal/model"
)

// AlertLevel orders alerts by urgency.
type AlertLevel int

const (
	LevelInfo AlertLevel = iota
	LevelWarning
	LevelCritical
)

func (l AlertLevel) String() string {
	switch l {
	case LevelWarning:
		return "WARNING"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "INFO"
	}
}

// Alert is one engine event worth pushing out.
type Alert struct {
	Level   AlertLevel
	Symbol  string
	Title   string
	Message string
	At      time.Time
}

// OrderPlaced reports a successfully dispatched order.
func OrderPlaced(ord model.Order) Alert {
	return Alert{
		Level:  LevelInfo,
		Symbol: ord.Symbol,
		Title:  "order placed",
		Message: fmt.Sprintf("%s qty=%d sl=%d tp=%d id=%s",
			ord.Side, ord.Qty, ord.StopLoss, ord.TakeProfit, ord.ID),
		At: time.Now().UTC(),
	}
}

// PlacementFailed reports a dispatch the venue rejected or that failed in
// transit. The engine keeps running; the signal re-evaluates next close.
func PlacementFailed(symbol string, err error) Alert {
	return Alert{
		Level:   LevelWarning,
		Symbol:  symbol,
		Title:   "order placement failed",
		Message: err.Error(),
		At:      time.Now().UTC(),
	}
}

// OrderingViolation reports an out-of-order candle reaching the indicator
// window. Fatal for the symbol's pipeline.
func OrderingViolation(symbol string, err error) Alert {
	return Alert{
		Level:   LevelCritical,
		Symbol:  symbol,
		Title:   "candle ordering violation",
		Message: err.Error(),
		At:      time.Now().UTC(),
	}
}

// PositionFlipped reports a fill that carried the position through flat to
// the opposite direction.
func PositionFlipped(symbol string, netQty, avgPrice int64) Alert {
	return Alert{
		Level:   LevelWarning,
		Symbol:  symbol,
		Title:   "position flipped",
		Message: fmt.Sprintf("net=%d avg=%d", netQty, avgPrice),
		At:      time.Now().UTC(),
	}
}

// Notifier delivers alerts to one external channel.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the process log. Default backend when no
// Telegram credentials are configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(_ context.Context, a Alert) error {
	log.Printf("[notify] %s %s %s: %s", a.Level, a.Symbol, a.Title, a.Message)
	return nil
}
