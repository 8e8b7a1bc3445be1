package indicator

import "math"

// RSI returns the Relative Strength Index using Wilder smoothing.
// Needs at least period+1 values (period price changes).
func RSI(values []float64, period int) float64 {
	if period <= 0 || len(values) < period+1 {
		return math.NaN()
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	n := float64(period)
	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain = (avgGain*(n-1) + change) / n
			avgLoss = (avgLoss * (n - 1)) / n
		} else {
			avgGain = (avgGain * (n - 1)) / n
			avgLoss = (avgLoss*(n-1) - change) / n
		}
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
