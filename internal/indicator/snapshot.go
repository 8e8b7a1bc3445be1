package indicator

import "algocore/internal/model"

// Config holds the indicator periods computed per candle close.
type Config struct {
	EMAFast   int
	EMASlow   int
	RSIPeriod int
	BBPeriod  int
	BBWidth   float64
	ADXPeriod int
	VolFast   int
	VolSlow   int
}

// DefaultConfig returns the standard indicator set: EMA 5/9, RSI 14,
// Bollinger 20 (2 standard deviations), ADX 14, volume MA 5/100.
func DefaultConfig() Config {
	return Config{
		EMAFast:   5,
		EMASlow:   9,
		RSIPeriod: 14,
		BBPeriod:  20,
		BBWidth:   2.0,
		ADXPeriod: 14,
		VolFast:   5,
		VolSlow:   100,
	}
}

// Snapshot is the full indicator view computed from the rolling window at the
// moment a rollup candle closes. Fields are NaN until enough candles have
// accumulated. Recomputed fresh each close; never mutated.
type Snapshot struct {
	EMAFast float64 `json:"ema_fast"`
	EMASlow float64 `json:"ema_slow"`
	RSI     float64 `json:"rsi"`
	BBUpper float64 `json:"bb_upper"`
	BBMid   float64 `json:"bb_mid"`
	BBLower float64 `json:"bb_lower"`
	ADX     float64 `json:"adx"`
	VolFast float64 `json:"vol_ma_fast"`
	VolSlow float64 `json:"vol_ma_slow"`
}

// Compute evaluates the full snapshot over the window's candles, oldest first.
func Compute(candles []model.Candle, cfg Config) Snapshot {
	closes := Closes(candles)

	upper, mid, lower := Bollinger(closes, cfg.BBPeriod, cfg.BBWidth)
	return Snapshot{
		EMAFast: EMA(closes, cfg.EMAFast),
		EMASlow: EMA(closes, cfg.EMASlow),
		RSI:     RSI(closes, cfg.RSIPeriod),
		BBUpper: upper,
		BBMid:   mid,
		BBLower: lower,
		ADX:     ADX(candles, cfg.ADXPeriod),
		VolFast: VolumeMA(candles, cfg.VolFast),
		VolSlow: VolumeMA(candles, cfg.VolSlow),
	}
}
