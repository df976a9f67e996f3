package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"paperbot/internal/models"
)

// AlertEvaluator checks a board's open alert rules against live prices.
// It consumes the gateway's batch price map but runs outside the bot cycle.
type AlertEvaluator struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAlertEvaluator creates an alert evaluator.
func NewAlertEvaluator(db *gorm.DB, logger *zap.Logger) *AlertEvaluator {
	return &AlertEvaluator{db: db, logger: logger.Named("alerts")}
}

// Evaluate checks every open, untriggered alert on a board against the live
// price map, marks matches triggered, and returns them. Alerts whose trade
// has no live price in the map are skipped, not failed.
func (e *AlertEvaluator) Evaluate(boardID uint, prices map[string]float64) ([]models.Alert, error) {
	var alerts []models.Alert
	err := e.db.Where("board_id = ? AND triggered = ?", boardID, false).Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts for board %d: %w", boardID, err)
	}

	var triggered []models.Alert
	for i := range alerts {
		alert := &alerts[i]

		var trade models.Trade
		if err := e.db.First(&trade, alert.TradeID).Error; err != nil {
			e.logger.Warn("alert references missing trade",
				zap.Uint("alert_id", alert.ID), zap.Uint("trade_id", alert.TradeID))
			continue
		}

		price, ok := prices[models.NormalizePair(trade.Pair)]
		if !ok {
			continue
		}

		if !alert.Compare(e.liveValue(alert, &trade, price)) {
			continue
		}

		now := time.Now()
		updates := map[string]interface{}{"triggered": true, "triggered_at": now}
		if err := e.db.Model(alert).Updates(updates).Error; err != nil {
			e.logger.Warn("failed to mark alert triggered", zap.Uint("alert_id", alert.ID), zap.Error(err))
			continue
		}
		alert.Triggered = true
		alert.TriggeredAt = &now
		triggered = append(triggered, *alert)
	}
	return triggered, nil
}

// EvaluateBoard gathers the pairs behind a board's open alerts, fetches their
// prices in one gateway batch, and evaluates the rules against the result.
func (e *AlertEvaluator) EvaluateBoard(ctx context.Context, boardID uint, prices PriceSource) ([]models.Alert, error) {
	var tradeIDs []uint
	err := e.db.Model(&models.Alert{}).
		Where("board_id = ? AND triggered = ?", boardID, false).
		Distinct().Pluck("trade_id", &tradeIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to collect alert trades for board %d: %w", boardID, err)
	}
	if len(tradeIDs) == 0 {
		return nil, nil
	}

	var pairs []string
	err = e.db.Model(&models.Trade{}).
		Where("id IN ?", tradeIDs).
		Distinct().Pluck("pair", &pairs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to collect alert pairs for board %d: %w", boardID, err)
	}

	tickers := prices.GetMultiplePrices(ctx, pairs)
	priceMap := make(map[string]float64, len(tickers))
	for pair, ticker := range tickers {
		priceMap[pair] = ticker.Price
	}
	return e.Evaluate(boardID, priceMap)
}

// liveValue selects which live number the alert's operator compares: the
// price itself for price and stop-loss rules, unrealized P&L percent for
// P&L targets, and the trade's stored confidence for confidence rules.
func (e *AlertEvaluator) liveValue(alert *models.Alert, trade *models.Trade, price float64) float64 {
	switch alert.Kind {
	case models.AlertPnlTarget:
		if trade.EntryPrice == nil {
			return 0
		}
		_, pct := models.PnL(*trade.EntryPrice, price, trade.Direction, trade.PositionSize)
		return pct
	case models.AlertConfidenceChange:
		return trade.Confidence
	default:
		// price_above, price_below, stop_loss_hit
		return price
	}
}
