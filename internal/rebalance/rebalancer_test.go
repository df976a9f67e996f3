package rebalance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"paperbot/internal/ledger"
	"paperbot/internal/market"
	"paperbot/internal/models"
)

// MockPriceSource is a mock implementation of the PriceSource interface.
type MockPriceSource struct {
	mock.Mock
}

func (m *MockPriceSource) GetCurrentPrice(ctx context.Context, pair string) (*market.Ticker, error) {
	args := m.Called(pair)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*market.Ticker), args.Error(1)
}

func setupRebalancer(t *testing.T) (*Rebalancer, *MockPriceSource, *ledger.TradeLedger, *ledger.PaperLedger, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	err = db.AutoMigrate(&models.Trade{}, &models.TradeActivity{}, &models.JournalEntry{},
		&models.PaperAccount{}, &models.PortfolioSnapshot{})
	assert.NoError(t, err)

	paper := ledger.NewPaperLedger(db, zap.NewNop())
	trades := ledger.NewTradeLedger(db, paper, zap.NewNop())
	prices := new(MockPriceSource)

	primary := map[string]string{
		models.CategoryBitcoin:      "BTC/USDT",
		models.CategoryLargeCapAlts: "ETH/USDT",
		models.CategoryMidCapAlts:   "LINK/USDT",
		models.CategorySmallCapAlts: "ARB/USDT",
	}
	r := New(db, trades, paper, prices, primary, 5, zap.NewNop())
	return r, prices, trades, paper, db
}

func testBot() *models.Bot {
	return &models.Bot{
		Model: gorm.Model{ID: 1}, BoardID: 1, UserID: 1,
		RiskLevel: 5, DriftThreshold: 5, RebalanceEnabled: true,
	}
}

func ticker(pair string, price float64) *market.Ticker {
	return &market.Ticker{Pair: pair, Price: price, FetchedAt: time.Now()}
}

func snapshotCount(t *testing.T, db *gorm.DB) int64 {
	var count int64
	assert.NoError(t, db.Model(&models.PortfolioSnapshot{}).Count(&count).Error)
	return count
}

func TestTargetTable_RowsSumTo100(t *testing.T) {
	for risk := 1; risk <= 10; risk++ {
		target := TargetAllocation(risk)
		sum := 0.0
		for _, cat := range models.Categories {
			pct, ok := target[cat]
			assert.True(t, ok, "risk %d missing %s", risk, cat)
			sum += pct
		}
		assert.InDelta(t, 100.0, sum, 1e-9, "risk %d", risk)
	}

	// Stablecoin exposure glides to zero, small caps climb to 60.
	assert.Equal(t, 0.0, TargetAllocation(10)[models.CategoryStablecoins])
	assert.Equal(t, 60.0, TargetAllocation(10)[models.CategorySmallCapAlts])
	assert.Equal(t, 0.0, TargetAllocation(1)[models.CategorySmallCapAlts])

	// Out-of-range levels clamp to the glide path ends.
	assert.Equal(t, TargetAllocation(1), TargetAllocation(0))
	assert.Equal(t, TargetAllocation(10), TargetAllocation(99))
}

func TestRebalancer_WithinThresholdSnapshotsAndStops(t *testing.T) {
	r, prices, trades, paper, db := setupRebalancer(t)
	bot := testBot()

	// Construct holdings already at the risk-5 target: entering debits
	// 8200 of the 10000, leaving 1800 cash (stables 18%), with btc 2500,
	// large 2400, mid 1800, small 1500.
	_, err := paper.GetOrCreate(1, 1, 10000)
	assert.NoError(t, err)

	for pair, size := range map[string]float64{
		"BTC/USDT": 2500, "ETH/USDT": 2400, "LINK/USDT": 1800, "ARB/USDT": 1500,
	} {
		trade := &models.Trade{BoardID: 1, UserID: 1, BotID: 1, Pair: pair, PositionSize: size}
		assert.NoError(t, trades.Create(trade))
		price := 100.0
		_, err = trades.Enter(trade.ID, &price, "test")
		assert.NoError(t, err)
		prices.On("GetCurrentPrice", pair).Return(ticker(pair, 100), nil)
	}

	plan, err := r.Run(context.Background(), bot)
	assert.NoError(t, err)

	assert.False(t, plan.Triggered)
	assert.Empty(t, plan.Sells)
	assert.Empty(t, plan.Buys)
	assert.InDelta(t, 10000.0, plan.TotalValue, 1e-6)

	// Idempotence: the check still records a snapshot.
	assert.EqualValues(t, 1, snapshotCount(t, db))
}

func TestRebalancer_SellsOverweightBuysUnderweight(t *testing.T) {
	r, prices, trades, paper, db := setupRebalancer(t)
	bot := testBot()

	// All-in on bitcoin at risk 5: bitcoin target is 25%, so most of the
	// position must be sold and spread into the deficits.
	_, err := paper.GetOrCreate(1, 1, 10000)
	assert.NoError(t, err)

	trade := &models.Trade{BoardID: 1, UserID: 1, BotID: 1, Pair: "BTC/USDT", PositionSize: 9000}
	assert.NoError(t, trades.Create(trade))
	entry := 50000.0
	_, err = trades.Enter(trade.ID, &entry, "test")
	assert.NoError(t, err)

	prices.On("GetCurrentPrice", "BTC/USDT").Return(ticker("BTC/USDT", 50000), nil)
	prices.On("GetCurrentPrice", "ETH/USDT").Return(ticker("ETH/USDT", 3000), nil)
	prices.On("GetCurrentPrice", "LINK/USDT").Return(ticker("LINK/USDT", 15), nil)
	prices.On("GetCurrentPrice", "ARB/USDT").Return(ticker("ARB/USDT", 1.2), nil)

	plan, err := r.Run(context.Background(), bot)
	assert.NoError(t, err)

	assert.True(t, plan.Triggered)
	assert.NotEmpty(t, plan.Sells)
	assert.NotEmpty(t, plan.Buys)

	// Bitcoin was 90% against a 25% target: the sell shrinks the position.
	reloaded, err := trades.Get(trade.ID)
	assert.NoError(t, err)
	assert.Less(t, reloaded.PositionSize, 9000.0)

	// Every under-allocated risk category got its buy.
	bought := map[string]bool{}
	for _, order := range plan.Buys {
		bought[order.Category] = true
		assert.Greater(t, order.Amount, 0.0)
	}
	assert.True(t, bought[models.CategoryLargeCapAlts])
	assert.True(t, bought[models.CategoryMidCapAlts])
	assert.True(t, bought[models.CategorySmallCapAlts])

	assert.EqualValues(t, 1, snapshotCount(t, db))
}

func TestRebalancer_ConfiguredThresholdBacksBotDefault(t *testing.T) {
	r, prices, trades, paper, db := setupRebalancer(t)
	r.defaultDrift = 95

	// The bot sets no threshold of its own, so the configured default
	// governs: even an all-in bitcoin book (drift +65 against the risk-5
	// target of 25) stays inside a 95-point band.
	bot := testBot()
	bot.DriftThreshold = 0

	_, err := paper.GetOrCreate(1, 1, 10000)
	assert.NoError(t, err)
	trade := &models.Trade{BoardID: 1, UserID: 1, BotID: 1, Pair: "BTC/USDT", PositionSize: 9000}
	assert.NoError(t, trades.Create(trade))
	entry := 50000.0
	_, err = trades.Enter(trade.ID, &entry, "test")
	assert.NoError(t, err)

	prices.On("GetCurrentPrice", "BTC/USDT").Return(ticker("BTC/USDT", 50000), nil)

	plan, err := r.Run(context.Background(), bot)
	assert.NoError(t, err)
	assert.False(t, plan.Triggered)
	assert.Empty(t, plan.Sells)
	assert.Empty(t, plan.Buys)
	assert.EqualValues(t, 1, snapshotCount(t, db))
}

func TestRebalancer_NonPositiveConfigFallsBackToFive(t *testing.T) {
	r, _, _, _, _ := setupRebalancer(t)
	assert.Equal(t, 5.0, r.defaultDrift)

	zero := New(r.db, r.trades, r.paper, new(MockPriceSource), nil, 0, zap.NewNop())
	assert.Equal(t, 5.0, zero.defaultDrift)
}

func TestRebalancer_SkipsCategoryWithoutPrimaryPair(t *testing.T) {
	r, prices, trades, paper, _ := setupRebalancer(t)
	r.primaryPairs = map[string]string{} // no policy configured
	bot := testBot()

	_, err := paper.GetOrCreate(1, 1, 10000)
	assert.NoError(t, err)
	trade := &models.Trade{BoardID: 1, UserID: 1, BotID: 1, Pair: "BTC/USDT", PositionSize: 9000}
	assert.NoError(t, trades.Create(trade))
	entry := 50000.0
	_, err = trades.Enter(trade.ID, &entry, "test")
	assert.NoError(t, err)

	prices.On("GetCurrentPrice", "BTC/USDT").Return(ticker("BTC/USDT", 50000), nil)

	plan, err := r.Run(context.Background(), bot)
	assert.NoError(t, err)
	assert.True(t, plan.Triggered)
	assert.NotEmpty(t, plan.Sells)
	assert.Empty(t, plan.Buys, "no primary pair means skip, not error")
}
