package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMA(t *testing.T) {
	assert.Equal(t, 2.0, SMA([]float64{1, 2, 3}, 3))
	assert.Equal(t, 2.5, SMA([]float64{1, 2, 3}, 2), "trailing window only")

	// Insufficient history averages what is available instead of failing.
	assert.Equal(t, 1.5, SMA([]float64{1, 2}, 10))
	assert.Equal(t, 0.0, SMA(nil, 5))
	assert.Equal(t, 0.0, SMA([]float64{1, 2}, 0))
}

func TestRSI_NeutralOnInsufficientHistory(t *testing.T) {
	assert.Equal(t, 50.0, RSI(nil, 14))
	assert.Equal(t, 50.0, RSI([]float64{1, 2, 3}, 14))
	assert.Equal(t, 50.0, RSI([]float64{100, 100, 100, 100, 100}, 4), "flat series has no direction")
}

func TestRSI_Extremes(t *testing.T) {
	rising := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	falling := []float64{8, 7, 6, 5, 4, 3, 2, 1}

	assert.Equal(t, 100.0, RSI(rising, 7), "all gains")
	assert.Equal(t, 0.0, RSI(falling, 7), "all losses")
}

func TestRSI_Balanced(t *testing.T) {
	// Equal gains and losses over the window should read dead neutral.
	prices := []float64{10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10}
	rsi := RSI(prices, 14)
	assert.InDelta(t, 50.0, rsi, 4)
}

func TestMomentum(t *testing.T) {
	assert.InDelta(t, 10.0, Momentum([]float64{100, 105, 110}, 2), 1e-9)
	assert.InDelta(t, -20.0, Momentum([]float64{100, 90, 80}, 2), 1e-9)

	assert.Equal(t, 0.0, Momentum([]float64{100}, 2), "insufficient history")
	assert.Equal(t, 0.0, Momentum([]float64{0, 50}, 1), "zero reference price")
}

func TestVolumeRatio(t *testing.T) {
	// Trailing average of 10,10,10,10 = 10; latest 30 is a 3x spike.
	assert.InDelta(t, 3.0, VolumeRatio([]float64{10, 10, 10, 10, 30}, 4), 1e-9)

	assert.Equal(t, 1.0, VolumeRatio([]float64{10, 20}, 4), "insufficient history")
	assert.Equal(t, 1.0, VolumeRatio([]float64{0, 0, 0, 50}, 3), "zero trailing average")
}

func TestRangePosition(t *testing.T) {
	assert.Equal(t, 0.5, RangePosition(15, 10, 20))
	assert.Equal(t, 0.0, RangePosition(10, 10, 20))
	assert.Equal(t, 1.0, RangePosition(20, 10, 20))

	// Prices outside the reported range clamp instead of extrapolating.
	assert.Equal(t, 0.0, RangePosition(5, 10, 20))
	assert.Equal(t, 1.0, RangePosition(25, 10, 20))

	assert.Equal(t, 0.5, RangePosition(15, 20, 10), "degenerate range is neutral")
}
