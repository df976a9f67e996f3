package bot

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"paperbot/internal/config"
	"paperbot/internal/ledger"
	"paperbot/internal/market"
	"paperbot/internal/models"
	"paperbot/internal/rebalance"
	"paperbot/internal/scanner"
	"paperbot/internal/strategy"
)

// PriceSource is the slice of the market gateway the cycle needs.
type PriceSource interface {
	GetCurrentPrice(ctx context.Context, pair string) (*market.Ticker, error)
	GetMultiplePrices(ctx context.Context, pairs []string) map[string]*market.Ticker
}

// Result is what one cycle run reports back to its trigger: the actions
// taken and every non-fatal error met along the way. A cycle never returns
// an error past this boundary.
type Result struct {
	RunID   string   `json:"run_id"`
	BotID   uint     `json:"bot_id"`
	Actions []string `json:"actions"`
	Errors  []string `json:"errors"`
}

// Cycle executes single bot runs: exit scan, then entry scan, then an
// optional rebalance, each step re-reading balance and trade state because
// the previous step may have mutated it.
type Cycle struct {
	bots       *Store
	trades     *ledger.TradeLedger
	paper      *ledger.PaperLedger
	registry   *strategy.Registry
	scanner    *scanner.Scanner
	prices     PriceSource
	rebalancer *rebalance.Rebalancer
	engineCfg  config.Engine
	logger     *zap.Logger
}

// NewCycle wires a cycle executor.
func NewCycle(bots *Store, trades *ledger.TradeLedger, paper *ledger.PaperLedger,
	registry *strategy.Registry, scan *scanner.Scanner, prices PriceSource,
	rebalancer *rebalance.Rebalancer, engineCfg config.Engine, logger *zap.Logger) *Cycle {
	return &Cycle{
		bots:       bots,
		trades:     trades,
		paper:      paper,
		registry:   registry,
		scanner:    scan,
		prices:     prices,
		rebalancer: rebalancer,
		engineCfg:  engineCfg,
		logger:     logger.Named("cycle"),
	}
}

// Run executes one cycle for one bot. Failures are recorded in the result
// and the execution log; nothing propagates, so one bot can never take down
// a batch run.
func (c *Cycle) Run(ctx context.Context, botID uint) (result Result) {
	result = Result{RunID: uuid.NewString(), BotID: botID}
	l := c.logger.With(zap.Uint("bot_id", botID), zap.String("run_id", result.RunID))

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("cycle panic: %v", r)
			result.Errors = append(result.Errors, msg)
			c.bots.LogExecution(botID, result.RunID, "error", map[string]string{"error": msg})
			l.Error("cycle panicked", zap.Any("panic", r))
		}
	}()

	bot, err := c.bots.Get(botID)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		c.bots.LogExecution(botID, result.RunID, "error", map[string]string{"error": err.Error()})
		return result
	}

	strat, err := c.registry.Resolve(bot.Style, bot.Substyle)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		c.bots.LogExecution(botID, result.RunID, "error", map[string]string{"error": err.Error()})
		l.Error("strategy resolution failed",
			zap.String("style", bot.Style), zap.String("substyle", bot.Substyle), zap.Error(err))
		return result
	}
	cfg := strategy.ApplyOverrides(strat.DefaultConfig(), bot.ParamsJSON)

	if _, err := c.paper.GetOrCreate(bot.BoardID, bot.UserID, c.engineCfg.StartingBalance); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	exits := c.exitScan(ctx, bot, strat, cfg, &result, l)

	var entries int
	if bot.AutoTrade {
		entries = c.entryScan(ctx, bot, strat, cfg, &result, l)
	} else {
		result.Actions = append(result.Actions, "entry scan skipped: auto-trade disabled")
	}

	if bot.RebalanceEnabled {
		c.runRebalance(ctx, bot, &result, l)
	}

	c.updatePerformance(bot, exits, entries)

	c.bots.LogExecution(botID, result.RunID, "summary", result)
	l.Info("cycle complete",
		zap.Int("actions", len(result.Actions)), zap.Int("errors", len(result.Errors)))
	return result
}

type closedTrade struct {
	pnlDollar float64
	won       bool
}

// exitScan re-prices every active trade and asks the strategy whether it
// comes off. It returns the closed trades so performance accounting can
// fold them in.
func (c *Cycle) exitScan(ctx context.Context, bot *models.Bot, strat strategy.Strategy,
	cfg strategy.Config, result *Result, l *zap.Logger) []closedTrade {

	active, err := c.trades.ActiveForBot(bot.ID)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return nil
	}

	var closed []closedTrade
	for i := range active {
		trade := &active[i]
		ticker, err := c.prices.GetCurrentPrice(ctx, trade.Pair)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("exit scan %s: %v", trade.Pair, err))
			continue
		}
		snap := scanner.Enrich(market.NewSnapshot(ticker))

		decision := strat.ShouldExit(trade, ticker.Price, snap, cfg)
		if !decision.Exit {
			// Keep the card's technicals fresh between cycles.
			if _, err := c.trades.RecordScan(trade.ID, ticker.Price, snap.RSI, trade.Confidence, trade.SignalTag); err != nil {
				result.Errors = append(result.Errors, err.Error())
			}
			continue
		}

		exited, err := c.trades.Exit(trade.ID, ticker.Price, decision.Reason, strat.Name(), botActor(bot.ID))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("exit %s: %v", trade.Pair, err))
			continue
		}

		closed = append(closed, closedTrade{pnlDollar: exited.PnlDollar, won: exited.Status == models.StatusWon})
		result.Actions = append(result.Actions,
			fmt.Sprintf("exited %s at %.8g (%s)", trade.Pair, ticker.Price, decision.Reason))
		c.bots.LogExecution(bot.ID, result.RunID, "exit", map[string]interface{}{
			"trade_id": trade.ID, "pair": trade.Pair, "price": ticker.Price,
			"reason": decision.Reason, "pnl_dollar": exited.PnlDollar, "pnl_percent": exited.PnlPercent,
		})
	}
	return closed
}

// entryScan ranks the watchlist, filters it through the strategy, and
// enters the best candidates while slots and cash allow. Balance is
// re-read before every entry so sequential admissions cannot collectively
// overdraw the account.
func (c *Cycle) entryScan(ctx context.Context, bot *models.Bot, strat strategy.Strategy,
	cfg strategy.Config, result *Result, l *zap.Logger) int {

	// Exits may have freed slots and capital; re-read both.
	active, err := c.trades.ActiveForBot(bot.ID)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return 0
	}

	freeSlots := cfg.MaxPositions - len(active)
	if freeSlots <= 0 {
		result.Actions = append(result.Actions, "entry scan skipped: no free position slots")
		return 0
	}

	openPairs := make(map[string]bool, len(active))
	for _, t := range active {
		openPairs[t.Pair] = true
	}

	snapshots := c.scanner.Scan(ctx, c.engineCfg.Watchlist)
	candidates := snapshots[:0:0]
	byPair := make(map[string]market.Snapshot, len(snapshots))
	for _, snap := range snapshots {
		byPair[snap.Pair] = snap
		if !openPairs[snap.Pair] {
			candidates = append(candidates, snap)
		}
	}
	c.bots.LogExecution(bot.ID, result.RunID, "scan", map[string]interface{}{
		"watchlist": len(c.engineCfg.Watchlist), "snapshots": len(snapshots), "candidates": len(candidates),
	})

	signals := strat.GenerateSignals(candidates, cfg)
	buys := signals[:0:0]
	for _, sig := range signals {
		if sig.Action != strategy.ActionBuy {
			continue
		}
		snap, ok := byPair[sig.Pair]
		if !ok || !strat.ShouldEnter(snap, snap.Price, cfg) {
			continue
		}
		buys = append(buys, sig)
	}
	sort.SliceStable(buys, func(i, j int) bool { return buys[i].Confidence > buys[j].Confidence })

	entries := 0
	for _, sig := range buys {
		if entries >= freeSlots {
			break
		}

		account, err := c.paper.GetOrCreate(bot.BoardID, bot.UserID, c.engineCfg.StartingBalance)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			break
		}

		size := account.CurrentBalance * cfg.PositionSizePct / 100
		if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 || size > account.CurrentBalance {
			// A broken position size poisons every admission; stop the scan.
			result.Errors = append(result.Errors,
				fmt.Sprintf("entry scan aborted: invalid position size %.2f against balance %.2f",
					size, account.CurrentBalance))
			break
		}

		snap := byPair[sig.Pair]
		trade := &models.Trade{
			BoardID:      bot.BoardID,
			BotID:        bot.ID,
			UserID:       bot.UserID,
			Pair:         sig.Pair,
			Direction:    models.DirectionLong,
			CurrentPrice: snap.Price,
			PositionSize: size,
			Confidence:   sig.Confidence,
			RSI:          sig.RSI,
			SignalTag:    sig.Tag,
			StopLoss:     snap.Price * (1 - cfg.StopLossPct/100),
			TakeProfit:   snap.Price * (1 + cfg.TakeProfitPct/100),
			Notes:        sig.Reason,
			CreatedBy:    botActor(bot.ID),
		}
		if err := c.trades.Create(trade); err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		if _, err := c.trades.Enter(trade.ID, &snap.Price, botActor(bot.ID)); err != nil {
			// Insufficient balance is recoverable: drop this candidate along
			// with the card it would have funded, or unentered cards pile up
			// on the board across cycles.
			result.Errors = append(result.Errors, fmt.Sprintf("enter %s: %v", sig.Pair, err))
			if derr := c.trades.Delete(trade.ID); derr != nil {
				result.Errors = append(result.Errors, derr.Error())
			}
			continue
		}

		entries++
		result.Actions = append(result.Actions,
			fmt.Sprintf("entered %s at %.8g ($%.2f, confidence %.0f)", sig.Pair, snap.Price, size, sig.Confidence))
		c.bots.LogExecution(bot.ID, result.RunID, "entry", map[string]interface{}{
			"trade_id": trade.ID, "pair": sig.Pair, "price": snap.Price,
			"size": size, "confidence": sig.Confidence, "reason": sig.Reason,
		})
	}
	return entries
}

func (c *Cycle) runRebalance(ctx context.Context, bot *models.Bot, result *Result, l *zap.Logger) {
	plan, err := c.rebalancer.Run(ctx, bot)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("rebalance: %v", err))
		return
	}
	if plan.Triggered {
		result.Actions = append(result.Actions,
			fmt.Sprintf("rebalanced: %d sells, %d buys", len(plan.Sells), len(plan.Buys)))
	} else {
		result.Actions = append(result.Actions, "rebalance checked: within drift threshold")
	}
	c.bots.LogExecution(bot.ID, result.RunID, "rebalance", plan)
}

// updatePerformance folds the cycle's outcomes into the bot's own counters.
func (c *Cycle) updatePerformance(bot *models.Bot, closed []closedTrade, entries int) {
	now := time.Now()
	bot.TotalCycles++
	bot.TotalEntries += int64(entries)
	bot.TotalExits += int64(len(closed))
	for _, t := range closed {
		if t.won {
			bot.Wins++
		} else {
			bot.Losses++
		}
		bot.RealizedPnl += t.pnlDollar
	}
	bot.LastRunAt = &now

	err := c.bots.db.Model(bot).Updates(map[string]interface{}{
		"total_cycles":  bot.TotalCycles,
		"total_entries": bot.TotalEntries,
		"total_exits":   bot.TotalExits,
		"wins":          bot.Wins,
		"losses":        bot.Losses,
		"realized_pnl":  bot.RealizedPnl,
		"last_run_at":   now,
	}).Error
	if err != nil {
		c.logger.Warn("failed to update bot performance", zap.Uint("bot_id", bot.ID), zap.Error(err))
	}
}

func botActor(botID uint) string {
	return fmt.Sprintf("bot:%d", botID)
}
