// Package indicator provides technical indicator calculations over slices of
// closed candles. All functions are pure: the same input slice always yields
// the same value, and insufficient warm-up data yields NaN rather than an
// error, so callers can gate on math.IsNaN.
//
// Prices enter as int64 cents and are converted to float64 once; indicator
// values therefore live in cents-space.
package indicator

import (
	"math"

	"algocore/internal/model"
)

// Closes extracts close prices as float64, oldest first.
func Closes(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = float64(candles[i].Close)
	}
	return out
}

// SMA returns the simple moving average of the last period values.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average over the full series, seeded
// with the SMA of the first period values.
func EMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values[:period] {
		sum += v
	}
	ema := sum / float64(period)

	multiplier := 2.0 / float64(period+1)
	for _, v := range values[period:] {
		ema = v*multiplier + ema*(1-multiplier)
	}
	return ema
}
