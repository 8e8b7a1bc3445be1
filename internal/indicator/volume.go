package indicator

import (
	"math"

	"algocore/internal/model"
)

// VolumeMA returns the simple moving average of volume over the last period
// candles.
func VolumeMA(candles []model.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return math.NaN()
	}
	sum := int64(0)
	for _, c := range candles[len(candles)-period:] {
		sum += c.Volume
	}
	return float64(sum) / float64(period)
}
