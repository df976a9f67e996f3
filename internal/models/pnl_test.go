package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPnL_LongRoundTrip(t *testing.T) {
	dollar, percent := PnL(100, 100, DirectionLong, 1000)
	assert.Equal(t, 0.0, dollar)
	assert.Equal(t, 0.0, percent)
}

func TestPnL_ShortProfit(t *testing.T) {
	// entry 100, exit 90, short, size 1000: perUnitPct = 0.10
	dollar, percent := PnL(100, 90, DirectionShort, 1000)
	assert.InDelta(t, 100.0, dollar, 1e-9)
	assert.InDelta(t, 10.0, percent, 1e-9)
}

func TestPnL_LongLoss(t *testing.T) {
	// entry 100, exit 80, long, size 500
	dollar, percent := PnL(100, 80, DirectionLong, 500)
	assert.InDelta(t, -100.0, dollar, 1e-9)
	assert.InDelta(t, -20.0, percent, 1e-9)
}

func TestPnL_SizeIsNotional(t *testing.T) {
	// Size is an account-currency notional, never a unit count: a 10% move
	// on $2000 is $200 regardless of the asset's unit price.
	dollar, _ := PnL(40000, 44000, DirectionLong, 2000)
	assert.InDelta(t, 200.0, dollar, 1e-9)
}

func TestPnL_ZeroEntryPrice(t *testing.T) {
	dollar, percent := PnL(0, 50, DirectionLong, 1000)
	assert.Equal(t, 0.0, dollar)
	assert.Equal(t, 0.0, percent)
}

func TestNormalizePair(t *testing.T) {
	assert.Equal(t, "BTC/USDT", NormalizePair("btc/usdt"))
	assert.Equal(t, "BTC/USDT", NormalizePair(" BTC-USDT "))
	assert.Equal(t, "ETH/USDT", NormalizePair("eth_usdt"))
}

func TestCategoryForPair(t *testing.T) {
	assert.Equal(t, CategoryBitcoin, CategoryForPair("BTC/USDT"))
	assert.Equal(t, CategoryLargeCapAlts, CategoryForPair("eth/usdt"))
	assert.Equal(t, CategorySmallCapAlts, CategoryForPair("ARB/USDT"))

	// Unknown symbols must not inflate risk-asset exposure.
	assert.Equal(t, CategoryStablecoins, CategoryForPair("WAT/USDT"))
}

func TestLaneStatusMapping(t *testing.T) {
	for _, status := range []string{StatusWatching, StatusAnalyzing, StatusActive, StatusParked, StatusWon, StatusLost} {
		assert.Equal(t, status, StatusForLane(LaneForStatus(status)))
	}
	assert.True(t, IsTerminalStatus(StatusWon))
	assert.True(t, IsTerminalStatus(StatusLost))
	assert.False(t, IsTerminalStatus(StatusActive))
}
