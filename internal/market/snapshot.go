package market

// seriesPoints is the length of the synthetic intraday history: one point
// per hour over the last 24 hours plus the current price.
const seriesPoints = 25

// Snapshot is the market view a strategy evaluates: current stats plus
// price and volume history for one pair. Strategies take it by value and
// must not perform I/O of their own.
type Snapshot struct {
	Pair         string
	Price        float64
	Volume24h    float64
	High24h      float64
	Low24h       float64
	ChangePct24h float64

	Prices  []float64
	Volumes []float64

	// Indicator fields, filled by the scanner.
	RSI         float64
	SMA         float64
	Momentum    float64
	VolumeRatio float64
	RangePos    float64
	Score       float64
}

// NewSnapshot builds a snapshot around a ticker, synthesizing history with
// SyntheticSeries.
func NewSnapshot(t *Ticker) Snapshot {
	return Snapshot{
		Pair:         t.Pair,
		Price:        t.Price,
		Volume24h:    t.Volume24h,
		High24h:      t.High24h,
		Low24h:       t.Low24h,
		ChangePct24h: t.ChangePct24h,
		Prices:       SyntheticSeries(t.Price, t.ChangePct24h),
		Volumes:      flatVolumes(t.Volume24h),
	}
}

// rippleFrac is the amplitude of the alternating wobble laid over the
// synthetic series, as a fraction of the current price. Without it the
// series is strictly monotonic and oscillators like RSI pin to 0 or 100.
const rippleFrac = 0.004

// SyntheticSeries builds an hourly price history by interpolating linearly
// between the implied price 24 hours ago (derived from the current price and
// the 24h percent change) and the current price, with a small deterministic
// ripple so gain/loss oscillators read the trend rather than saturating.
// It is a deliberate approximation standing in for real OHLCV candles;
// swapping in real history changes nothing for strategy callers, which only
// see a price slice.
func SyntheticSeries(price, changePct24h float64) []float64 {
	start := price
	if changePct24h > -100 {
		start = price / (1 + changePct24h/100)
	}

	series := make([]float64, seriesPoints)
	step := (price - start) / float64(seriesPoints-1)
	ripple := price * rippleFrac
	for i := range series {
		series[i] = start + step*float64(i)
		if i%2 == 1 {
			series[i] += ripple
		} else {
			series[i] -= ripple
		}
	}
	series[seriesPoints-1] = price
	return series
}

// flatVolumes spreads the 24h volume evenly across the synthetic series.
// A flat profile keeps the volume-ratio indicator neutral, which is the
// honest reading when no per-hour volume data exists.
func flatVolumes(volume24h float64) []float64 {
	hourly := volume24h / (seriesPoints - 1)
	volumes := make([]float64, seriesPoints)
	for i := range volumes {
		volumes[i] = hourly
	}
	return volumes
}
