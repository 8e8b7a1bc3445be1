package indicator

import (
	"math"

	"algocore/internal/model"
)

// ADX returns the Average Directional Index with Wilder smoothing.
// Needs at least 2*period+1 candles: period intervals to seed the smoothed
// TR/DM sums, and period DX values to seed the ADX itself.
func ADX(candles []model.Candle, period int) float64 {
	if period <= 0 || len(candles) < 2*period+1 {
		return math.NaN()
	}

	n := len(candles) - 1 // number of intervals
	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)

	for i := 1; i <= n; i++ {
		high := float64(candles[i].High)
		low := float64(candles[i].Low)
		prevHigh := float64(candles[i-1].High)
		prevLow := float64(candles[i-1].Low)
		prevClose := float64(candles[i-1].Close)

		tr[i-1] = math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))

		upMove := high - prevHigh
		downMove := prevLow - low
		if upMove > downMove && upMove > 0 {
			plusDM[i-1] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i-1] = downMove
		}
	}

	// Seed smoothed sums over the first period intervals.
	var trS, plusS, minusS float64
	for i := 0; i < period; i++ {
		trS += tr[i]
		plusS += plusDM[i]
		minusS += minusDM[i]
	}

	p := float64(period)
	dx := make([]float64, 0, n-period+1)
	dx = append(dx, dxValue(trS, plusS, minusS))

	for i := period; i < n; i++ {
		trS = trS - trS/p + tr[i]
		plusS = plusS - plusS/p + plusDM[i]
		minusS = minusS - minusS/p + minusDM[i]
		dx = append(dx, dxValue(trS, plusS, minusS))
	}

	// ADX: average of the first period DX values, then Wilder-smoothed.
	var adx float64
	for i := 0; i < period; i++ {
		adx += dx[i]
	}
	adx /= p
	for i := period; i < len(dx); i++ {
		adx = (adx*(p-1) + dx[i]) / p
	}
	return adx
}

func dxValue(trS, plusS, minusS float64) float64 {
	if trS == 0 {
		return 0
	}
	plusDI := 100 * plusS / trS
	minusDI := 100 * minusS / trS
	sum := plusDI + minusDI
	if sum == 0 {
		return 0
	}
	return 100 * math.Abs(plusDI-minusDI) / sum
}
