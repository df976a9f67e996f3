// Package indicator provides pure technical indicator functions over price
// and volume series. Every function is total: on insufficient history it
// returns a neutral value ("no signal") instead of an error, and callers must
// never read a neutral default as a directional claim.
package indicator

// SMA returns the simple moving average of the trailing period values.
// With fewer points than the period it averages whatever is available;
// an empty series yields 0.
func SMA(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return 0
	}
	if len(values) < period {
		period = len(values)
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// RSI computes the relative strength index over the trailing period using
// Wilder's averaging of gains and losses. It needs period+1 points; with
// less history it returns the neutral 50.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50
	}

	window := prices[len(prices)-period-1:]
	var gains, losses float64
	for i := 1; i < len(window); i++ {
		change := window[i] - window[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Momentum returns the percent change over the trailing n periods.
// Insufficient history or a zero reference price yields 0.
func Momentum(prices []float64, n int) float64 {
	if n <= 0 || len(prices) < n+1 {
		return 0
	}
	ref := prices[len(prices)-n-1]
	if ref == 0 {
		return 0
	}
	return (prices[len(prices)-1] - ref) / ref * 100
}

// VolumeRatio compares the latest volume to the trailing average of the
// preceding period. A ratio above the caller's spike threshold indicates a
// volume spike. Insufficient history yields the neutral 1.
func VolumeRatio(volumes []float64, period int) float64 {
	if period <= 0 || len(volumes) < period+1 {
		return 1
	}
	trailing := volumes[len(volumes)-period-1 : len(volumes)-1]
	avg := 0.0
	for _, v := range trailing {
		avg += v
	}
	avg /= float64(period)
	if avg == 0 {
		return 1
	}
	return volumes[len(volumes)-1] / avg
}

// RangePosition locates price within [low, high] as a 0..1 fraction.
// A degenerate range (high <= low) yields the neutral 0.5.
func RangePosition(price, low, high float64) float64 {
	if high <= low {
		return 0.5
	}
	pos := (price - low) / (high - low)
	if pos < 0 {
		return 0
	}
	if pos > 1 {
		return 1
	}
	return pos
}
