package indicator

import "math"

// Bollinger returns the upper band, middle band (SMA) and lower band over the
// last period values, with the bands width standard deviations from the mid.
func Bollinger(values []float64, period int, width float64) (upper, mid, lower float64) {
	if period <= 0 || len(values) < period {
		nan := math.NaN()
		return nan, nan, nan
	}

	tail := values[len(values)-period:]
	sum := 0.0
	for _, v := range tail {
		sum += v
	}
	mid = sum / float64(period)

	variance := 0.0
	for _, v := range tail {
		d := v - mid
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(period))

	return mid + width*sd, mid, mid - width*sd
}
