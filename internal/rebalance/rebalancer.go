// Package rebalance drifts a bot's open positions back toward the target
// allocation for its risk level. It is a heuristic, not a solver: one run
// only promises drift-threshold compliance, never global optimality.
package rebalance

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"paperbot/internal/ledger"
	"paperbot/internal/market"
	"paperbot/internal/models"
)

// PriceSource is the slice of the gateway the rebalancer needs.
type PriceSource interface {
	GetCurrentPrice(ctx context.Context, pair string) (*market.Ticker, error)
}

// Order is one leg of a rebalance plan, denominated in account currency.
type Order struct {
	TradeID  uint    `json:"trade_id,omitempty"`
	Pair     string  `json:"pair"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// Plan is the computed state and actions of one rebalance check.
type Plan struct {
	TotalValue float64            `json:"total_value"`
	Current    map[string]float64 `json:"current"`
	Target     map[string]float64 `json:"target"`
	Drift      map[string]float64 `json:"drift"`
	Triggered  bool               `json:"triggered"`
	Sells      []Order            `json:"sells"`
	Buys       []Order            `json:"buys"`
}

type holding struct {
	trade *models.Trade
	value float64
	price float64
}

// Rebalancer computes and executes rebalance plans against the ledgers.
type Rebalancer struct {
	db           *gorm.DB
	trades       *ledger.TradeLedger
	paper        *ledger.PaperLedger
	prices       PriceSource
	primaryPairs map[string]string
	defaultDrift float64
	logger       *zap.Logger
}

// New creates a rebalancer. primaryPairs names the pair bought for an
// under-allocated category the bot holds nothing in; categories without an
// entry are skipped with a logged reason. Keys are matched case-insensitively
// because viper lowercases map keys on unmarshal. driftThreshold is the
// percentage-point drift that triggers a rebalance for bots that do not set
// their own; non-positive values fall back to 5.
func New(db *gorm.DB, trades *ledger.TradeLedger, paper *ledger.PaperLedger, prices PriceSource, primaryPairs map[string]string, driftThreshold float64, logger *zap.Logger) *Rebalancer {
	normalized := make(map[string]string, len(primaryPairs))
	for key, pair := range primaryPairs {
		for _, cat := range models.Categories {
			if strings.EqualFold(key, cat) {
				normalized[cat] = models.NormalizePair(pair)
				break
			}
		}
	}
	if driftThreshold <= 0 {
		driftThreshold = 5
	}
	return &Rebalancer{
		db:           db,
		trades:       trades,
		paper:        paper,
		prices:       prices,
		primaryPairs: normalized,
		defaultDrift: driftThreshold,
		logger:       logger.Named("rebalance"),
	}
}

// Run performs one rebalance check for a bot: value holdings, compute drift,
// and if any category drifts past the threshold, sell the excess
// proportionally and buy into the deficits, sells first. A portfolio
// snapshot is persisted on every check, triggered or not.
func (r *Rebalancer) Run(ctx context.Context, bot *models.Bot) (*Plan, error) {
	trades, err := r.trades.ActiveForBot(bot.ID)
	if err != nil {
		return nil, err
	}
	account, err := r.paper.GetOrCreate(bot.BoardID, bot.UserID, 0)
	if err != nil {
		return nil, err
	}

	// Value every open position at the live price, falling back to the
	// trade's last recorded price when no venue answers.
	holdings := make(map[string][]holding)
	categoryValue := make(map[string]float64)
	total := account.CurrentBalance

	for i := range trades {
		trade := &trades[i]
		price := trade.CurrentPrice
		if ticker, err := r.prices.GetCurrentPrice(ctx, trade.Pair); err == nil {
			price = ticker.Price
		}

		value := trade.PositionSize
		if trade.EntryPrice != nil {
			pnl, _ := models.PnL(*trade.EntryPrice, price, trade.Direction, trade.PositionSize)
			value += pnl
		}
		if value <= 0 {
			continue
		}

		cat := models.CategoryForPair(trade.Pair)
		holdings[cat] = append(holdings[cat], holding{trade: trade, value: value, price: price})
		categoryValue[cat] += value
		total += value
	}

	// Free cash counts as a stablecoin holding.
	categoryValue[models.CategoryStablecoins] += account.CurrentBalance

	plan := &Plan{
		TotalValue: total,
		Current:    make(map[string]float64, len(models.Categories)),
		Target:     TargetAllocation(bot.RiskLevel),
		Drift:      make(map[string]float64, len(models.Categories)),
	}
	if total <= 0 {
		r.snapshot(bot.ID, plan)
		return plan, nil
	}

	threshold := bot.DriftThreshold
	if threshold <= 0 {
		threshold = r.defaultDrift
	}

	for _, cat := range models.Categories {
		plan.Current[cat] = categoryValue[cat] / total * 100
		plan.Drift[cat] = plan.Current[cat] - plan.Target[cat]
		if plan.Drift[cat] >= threshold || plan.Drift[cat] <= -threshold {
			plan.Triggered = true
		}
	}

	if !plan.Triggered {
		r.snapshot(bot.ID, plan)
		return plan, nil
	}

	// Sells first: they free the capital the buys need.
	for _, cat := range models.Categories {
		if plan.Drift[cat] < threshold || cat == models.CategoryStablecoins {
			continue
		}
		excess := plan.Drift[cat] / 100 * total
		catTotal := categoryValue[cat]
		for _, h := range holdings[cat] {
			// Each holding sells its proportional share of the excess.
			amount := excess * h.value / catTotal
			if amount <= 0 {
				continue
			}
			notional := amount
			if h.value > 0 {
				notional = amount * h.trade.PositionSize / h.value
			}
			if _, err := r.trades.ReducePosition(h.trade.ID, notional, h.price, "rebalance sell"); err != nil {
				r.logger.Warn("rebalance sell failed",
					zap.Uint("trade_id", h.trade.ID), zap.Error(err))
				continue
			}
			plan.Sells = append(plan.Sells, Order{
				TradeID: h.trade.ID, Pair: h.trade.Pair, Category: cat, Amount: amount,
			})
		}
	}

	// Buys: put each deficit into the category's largest holding's pair, or
	// the configured primary pair when the bot holds nothing in it. Cash
	// deficits resolve themselves as the sells land.
	for _, cat := range models.Categories {
		if plan.Drift[cat] > -threshold || cat == models.CategoryStablecoins {
			continue
		}
		deficit := -plan.Drift[cat] / 100 * total
		pair := r.buyPair(cat, holdings[cat])
		if pair == "" {
			r.logger.Warn("no primary pair for under-allocated category, skipping buy",
				zap.String("category", cat), zap.Float64("deficit", deficit))
			continue
		}
		if err := r.executeBuy(ctx, bot, pair, deficit); err != nil {
			r.logger.Warn("rebalance buy failed",
				zap.String("pair", pair), zap.Float64("amount", deficit), zap.Error(err))
			continue
		}
		plan.Buys = append(plan.Buys, Order{Pair: pair, Category: cat, Amount: deficit})
	}

	r.snapshot(bot.ID, plan)
	r.logger.Info("rebalance executed",
		zap.Uint("bot_id", bot.ID), zap.Int("sells", len(plan.Sells)), zap.Int("buys", len(plan.Buys)))
	return plan, nil
}

// buyPair picks the pair to buy for a category: the largest current holding
// wins, otherwise the configured primary pair.
func (r *Rebalancer) buyPair(category string, held []holding) string {
	var best string
	var bestValue float64
	for _, h := range held {
		if h.value > bestValue {
			best = h.trade.Pair
			bestValue = h.value
		}
	}
	if best != "" {
		return best
	}
	return r.primaryPairs[category]
}

func (r *Rebalancer) executeBuy(ctx context.Context, bot *models.Bot, pair string, amount float64) error {
	ticker, err := r.prices.GetCurrentPrice(ctx, pair)
	if err != nil {
		return err
	}

	trade := &models.Trade{
		BoardID:      bot.BoardID,
		BotID:        bot.ID,
		UserID:       bot.UserID,
		Pair:         pair,
		Direction:    models.DirectionLong,
		CurrentPrice: ticker.Price,
		PositionSize: amount,
		SignalTag:    "rebalance",
		CreatedBy:    fmt.Sprintf("bot:%d", bot.ID),
	}
	if err := r.trades.Create(trade); err != nil {
		return err
	}
	_, err = r.trades.Enter(trade.ID, &ticker.Price, "rebalancer")
	return err
}

func (r *Rebalancer) snapshot(botID uint, plan *Plan) {
	snap := models.PortfolioSnapshot{
		BotID:           botID,
		TotalValue:      plan.TotalValue,
		StablecoinsPct:  plan.Current[models.CategoryStablecoins],
		BitcoinPct:      plan.Current[models.CategoryBitcoin],
		LargeCapAltsPct: plan.Current[models.CategoryLargeCapAlts],
		MidCapAltsPct:   plan.Current[models.CategoryMidCapAlts],
		SmallCapAltsPct: plan.Current[models.CategorySmallCapAlts],
	}
	if err := r.db.Create(&snap).Error; err != nil {
		r.logger.Warn("failed to persist portfolio snapshot",
			zap.Uint("bot_id", botID), zap.Error(err))
	}
}
