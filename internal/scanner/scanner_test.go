package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"paperbot/internal/market"
)

// MockPriceSource is a mock implementation of the PriceSource interface.
type MockPriceSource struct {
	mock.Mock
}

func (m *MockPriceSource) GetMultiplePrices(ctx context.Context, pairs []string) map[string]*market.Ticker {
	args := m.Called(pairs)
	return args.Get(0).(map[string]*market.Ticker)
}

func TestScan_RanksByScoreAndOmitsMissingPairs(t *testing.T) {
	source := new(MockPriceSource)
	s := New(source, zap.NewNop())

	watchlist := []string{"BTC/USDT", "ETH/USDT", "WAT/USDT"}
	source.On("GetMultiplePrices", watchlist).Return(map[string]*market.Ticker{
		// Strong up-move near the range top.
		"BTC/USDT": {Pair: "BTC/USDT", Price: 52000, ChangePct24h: 8, High24h: 52500, Low24h: 48000, Volume24h: 1e9, FetchedAt: time.Now()},
		// Deep down-move near the range bottom.
		"ETH/USDT": {Pair: "ETH/USDT", Price: 2700, ChangePct24h: -9, High24h: 3000, Low24h: 2680, Volume24h: 5e8, FetchedAt: time.Now()},
	})

	snapshots := s.Scan(context.Background(), watchlist)

	assert.Len(t, snapshots, 2, "unfetchable pairs are omitted")
	assert.Equal(t, "BTC/USDT", snapshots[0].Pair, "riser outranks faller")
	assert.Greater(t, snapshots[0].Score, snapshots[1].Score)
	source.AssertExpectations(t)
}

func TestEnrich_FillsIndicatorFields(t *testing.T) {
	ticker := &market.Ticker{
		Pair: "SOL/USDT", Price: 150, ChangePct24h: 6,
		High24h: 152, Low24h: 140, Volume24h: 2e8, FetchedAt: time.Now(),
	}
	snap := Enrich(market.NewSnapshot(ticker))

	assert.Greater(t, snap.RSI, 50.0, "uptrend reads above neutral")
	assert.Greater(t, snap.Momentum, 0.0)
	assert.Greater(t, snap.SMA, 0.0)
	assert.InDelta(t, 1.0, snap.VolumeRatio, 0.01, "flat synthetic volume is neutral")
	assert.Greater(t, snap.RangePos, 0.5, "price in the upper half of the range")
	assert.GreaterOrEqual(t, snap.Score, 0.0)
	assert.LessOrEqual(t, snap.Score, 100.0)
}

func TestScore_BoundedForExtremeInputs(t *testing.T) {
	snap := market.Snapshot{Momentum: 500, RSI: 5, VolumeRatio: 50, RangePos: 1}
	assert.LessOrEqual(t, score(snap), 100.0)

	snap = market.Snapshot{Momentum: -500, RSI: 99, VolumeRatio: 0, RangePos: 0}
	assert.GreaterOrEqual(t, score(snap), 0.0)
}
