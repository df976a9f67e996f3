package ledger

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"paperbot/internal/models"
)

// updatableFields is the allow-list for Update. Anything else in the caller's
// field map is silently dropped, not erred: collaborators send whole objects.
var updatableFields = map[string]bool{
	"pair":          true,
	"direction":     true,
	"current_price": true,
	"stop_loss":     true,
	"take_profit":   true,
	"position_size": true,
	"confidence":    true,
	"rsi":           true,
	"signal_tag":    true,
	"notes":         true,
}

// TradeLedger persists trade records and drives their lifecycle.
type TradeLedger struct {
	db     *gorm.DB
	paper  *PaperLedger
	logger *zap.Logger
}

// NewTradeLedger creates a trade ledger writing balance effects through the
// given paper ledger.
func NewTradeLedger(db *gorm.DB, paper *PaperLedger, logger *zap.Logger) *TradeLedger {
	return &TradeLedger{db: db, paper: paper, logger: logger.Named("trades")}
}

// Create persists a new trade in the watching lane.
func (l *TradeLedger) Create(trade *models.Trade) error {
	trade.Pair = models.NormalizePair(trade.Pair)
	if trade.Direction == "" {
		trade.Direction = models.DirectionLong
	}
	if trade.Status == "" {
		trade.Status = models.StatusWatching
	}
	trade.Lane = models.LaneForStatus(trade.Status)

	if err := l.db.Create(trade).Error; err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	return nil
}

// Get loads one trade by id.
func (l *TradeLedger) Get(id uint) (*models.Trade, error) {
	var trade models.Trade
	if err := l.db.First(&trade, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load trade %d: %w", id, err)
	}
	return &trade, nil
}

// Update applies the allow-listed subset of fields to a trade and returns
// the updated record.
func (l *TradeLedger) Update(id uint, fields map[string]interface{}) (*models.Trade, error) {
	filtered := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if updatableFields[k] {
			filtered[k] = v
		}
	}
	if pair, ok := filtered["pair"].(string); ok {
		filtered["pair"] = models.NormalizePair(pair)
	}

	if len(filtered) > 0 {
		if err := l.db.Model(&models.Trade{}).Where("id = ?", id).Updates(filtered).Error; err != nil {
			return nil, fmt.Errorf("failed to update trade %d: %w", id, err)
		}
	}
	return l.Get(id)
}

// Move places a trade into a lane, keeping status in lockstep. Terminal
// lanes require a previously recorded exit price.
func (l *TradeLedger) Move(id uint, lane string) (*models.Trade, error) {
	trade, err := l.Get(id)
	if err != nil {
		return nil, err
	}

	status := models.StatusForLane(lane)
	if models.IsTerminalStatus(status) && trade.ExitPrice == nil {
		return nil, fmt.Errorf("move to %s: %w", lane, ErrExitPriceRequired)
	}

	updates := map[string]interface{}{"lane": lane, "status": status}
	if err := l.db.Model(trade).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to move trade %d: %w", id, err)
	}
	l.LogActivity(id, "moved", fmt.Sprintf("moved to %s", lane), trade.CreatedBy)
	return l.Get(id)
}

// GetForBoard lists every trade on a board.
func (l *TradeLedger) GetForBoard(boardID uint) ([]models.Trade, error) {
	var trades []models.Trade
	if err := l.db.Where("board_id = ?", boardID).Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades for board %d: %w", boardID, err)
	}
	return trades, nil
}

// ActiveForBot lists a bot's currently active trades.
func (l *TradeLedger) ActiveForBot(botID uint) ([]models.Trade, error) {
	var trades []models.Trade
	err := l.db.Where("bot_id = ? AND status = ?", botID, models.StatusActive).Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active trades for bot %d: %w", botID, err)
	}
	return trades, nil
}

// Enter funds and activates a trade. The price argument wins over the
// trade's current price; with neither the entry fails. The paper balance is
// debited by the position size unless the size is unset or non-positive,
// in which case the trade activates unfunded.
func (l *TradeLedger) Enter(id uint, price *float64, actor string) (*models.Trade, error) {
	trade, err := l.Get(id)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalStatus(trade.Status) {
		return nil, fmt.Errorf("enter trade %d: %w", id, ErrTerminalTrade)
	}

	entryPrice := 0.0
	switch {
	case price != nil && *price > 0:
		entryPrice = *price
	case trade.CurrentPrice > 0:
		entryPrice = trade.CurrentPrice
	default:
		return nil, fmt.Errorf("enter trade %d: %w", id, ErrEntryPriceRequired)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"entry_price":   entryPrice,
		"current_price": entryPrice,
		"entered_at":    now,
		"status":        models.StatusActive,
		"lane":          models.LaneActive,
	}
	// The debit and the activation commit or roll back together: a trade
	// must never activate without its capital reserved, nor hold a
	// reservation without activating.
	err = l.db.Transaction(func(tx *gorm.DB) error {
		if trade.PositionSize > 0 {
			if _, err := l.paper.AdjustTx(tx, trade.BoardID, trade.UserID, -trade.PositionSize, false); err != nil {
				return err
			}
		}
		return tx.Model(trade).Updates(updates).Error
	})
	if err != nil {
		return nil, fmt.Errorf("enter trade %d: %w", id, err)
	}

	l.LogActivity(id, "entered", fmt.Sprintf("entered %s at %.8g", trade.Pair, entryPrice), actor)
	l.AddJournalEntry(id, fmt.Sprintf("Entered %s %s at %.8g with $%.2f.",
		trade.Direction, trade.Pair, entryPrice, trade.PositionSize), "", actor)

	l.logger.Info("trade entered",
		zap.Uint("trade_id", id), zap.String("pair", trade.Pair),
		zap.Float64("price", entryPrice), zap.Float64("size", trade.PositionSize))
	return l.Get(id)
}

// Exit closes a trade at the given price, realizes P&L, and returns the
// reserved capital plus P&L to the paper balance. Zero P&L routes to the
// Wins lane. The credit is always allowed: it returns money the entry
// already reserved.
func (l *TradeLedger) Exit(id uint, price float64, reason, lessonTag, actor string) (*models.Trade, error) {
	trade, err := l.Get(id)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalStatus(trade.Status) {
		return nil, fmt.Errorf("exit trade %d: %w", id, ErrTerminalTrade)
	}
	if price <= 0 {
		return nil, fmt.Errorf("exit trade %d: %w", id, ErrExitPriceRequired)
	}
	if trade.EntryPrice == nil {
		return nil, fmt.Errorf("exit trade %d: %w", id, ErrEntryPriceRequired)
	}

	pnlDollar, pnlPercent := models.PnL(*trade.EntryPrice, price, trade.Direction, trade.PositionSize)

	status := models.StatusWon
	if pnlDollar < 0 {
		status = models.StatusLost
	}

	now := time.Now()
	updates := map[string]interface{}{
		"exit_price":    price,
		"current_price": price,
		"exited_at":     now,
		"status":        status,
		"lane":          models.LaneForStatus(status),
		"pnl_dollar":    pnlDollar,
		"pnl_percent":   pnlPercent,
	}
	// Credit and close together: a credit that lands without the close would
	// pay out a second time when the still-active trade exits again.
	err = l.db.Transaction(func(tx *gorm.DB) error {
		if _, err := l.paper.AdjustTx(tx, trade.BoardID, trade.UserID, trade.PositionSize+pnlDollar, true); err != nil {
			return err
		}
		return tx.Model(trade).Updates(updates).Error
	})
	if err != nil {
		return nil, fmt.Errorf("exit trade %d: %w", id, err)
	}

	detail := fmt.Sprintf("exited %s at %.8g, P&L $%.2f (%.2f%%)", trade.Pair, price, pnlDollar, pnlPercent)
	if reason != "" {
		detail += ": " + reason
	}
	l.LogActivity(id, "exited", detail, actor)
	l.AddJournalEntry(id, detail, lessonTag, actor)

	l.logger.Info("trade exited",
		zap.Uint("trade_id", id), zap.String("pair", trade.Pair), zap.String("status", status),
		zap.Float64("pnl_dollar", pnlDollar), zap.Float64("pnl_percent", pnlPercent))
	return l.Get(id)
}

// ReducePosition trims an active trade's notional size during a rebalance
// sell and credits the freed capital (including its share of unrealized P&L)
// back to the paper balance. A reduction covering the whole position closes
// the trade through Exit instead.
func (l *TradeLedger) ReducePosition(id uint, notionalDelta, price float64, reason string) (*models.Trade, error) {
	trade, err := l.Get(id)
	if err != nil {
		return nil, err
	}
	if trade.Status != models.StatusActive || trade.EntryPrice == nil {
		return nil, fmt.Errorf("reduce trade %d: %w", id, ErrEntryPriceRequired)
	}
	if notionalDelta >= trade.PositionSize {
		return l.Exit(id, price, reason, "", "rebalancer")
	}

	pnlShare, _ := models.PnL(*trade.EntryPrice, price, trade.Direction, notionalDelta)
	newSize := trade.PositionSize - notionalDelta
	pnlDollar, pnlPercent := models.PnL(*trade.EntryPrice, price, trade.Direction, newSize)
	updates := map[string]interface{}{
		"position_size": newSize,
		"current_price": price,
		"pnl_dollar":    pnlDollar,
		"pnl_percent":   pnlPercent,
	}
	err = l.db.Transaction(func(tx *gorm.DB) error {
		if _, err := l.paper.AdjustTx(tx, trade.BoardID, trade.UserID, notionalDelta+pnlShare, true); err != nil {
			return err
		}
		return tx.Model(trade).Updates(updates).Error
	})
	if err != nil {
		return nil, fmt.Errorf("reduce trade %d: %w", id, err)
	}

	l.LogActivity(id, "reduced",
		fmt.Sprintf("sold $%.2f of %s at %.8g: %s", notionalDelta, trade.Pair, price, reason), "rebalancer")
	return l.Get(id)
}

// Delete removes a trade card. Bots use it to discard cards whose entry
// failed to fund; the gorm soft delete keeps the row for audit.
func (l *TradeLedger) Delete(id uint) error {
	if err := l.db.Delete(&models.Trade{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete trade %d: %w", id, err)
	}
	return nil
}

// Park shelves a trade with a mandatory reason; the paper balance is
// untouched.
func (l *TradeLedger) Park(id uint, reason, actor string) (*models.Trade, error) {
	if reason == "" {
		return nil, fmt.Errorf("park trade %d: %w", id, ErrPauseReasonRequired)
	}
	trade, err := l.Get(id)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalStatus(trade.Status) {
		return nil, fmt.Errorf("park trade %d: %w", id, ErrTerminalTrade)
	}

	updates := map[string]interface{}{
		"status":       models.StatusParked,
		"lane":         models.LaneParked,
		"pause_reason": reason,
	}
	if err := l.db.Model(trade).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to park trade %d: %w", id, err)
	}
	l.LogActivity(id, "parked", reason, actor)
	return l.Get(id)
}

// RecordScan updates a trade's technical fields from a fresh bot scan. An
// active trade also gets its unrealized P&L recomputed from the new price;
// the lifecycle state never changes.
func (l *TradeLedger) RecordScan(id uint, price, rsi, confidence float64, tag string) (*models.Trade, error) {
	trade, err := l.Get(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"current_price": price,
		"rsi":           rsi,
		"confidence":    confidence,
		"signal_tag":    tag,
	}
	if trade.Status == models.StatusActive && trade.EntryPrice != nil {
		pnlDollar, pnlPercent := models.PnL(*trade.EntryPrice, price, trade.Direction, trade.PositionSize)
		updates["pnl_dollar"] = pnlDollar
		updates["pnl_percent"] = pnlPercent
	}

	if err := l.db.Model(trade).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to record scan for trade %d: %w", id, err)
	}
	return l.Get(id)
}

// LogActivity appends an audit record for a trade. Activity logging is
// best-effort: a failed append never blocks the trade mutation it follows.
func (l *TradeLedger) LogActivity(tradeID uint, kind, detail, actor string) {
	activity := models.TradeActivity{TradeID: tradeID, Kind: kind, Detail: detail, Actor: actor}
	if err := l.db.Create(&activity).Error; err != nil {
		l.logger.Warn("failed to log trade activity",
			zap.Uint("trade_id", tradeID), zap.String("kind", kind), zap.Error(err))
	}
}

// AddJournalEntry appends a journal note to a trade, best-effort like
// LogActivity.
func (l *TradeLedger) AddJournalEntry(tradeID uint, body, lessonTag, author string) {
	entry := models.JournalEntry{TradeID: tradeID, Body: body, LessonTag: lessonTag, Author: author}
	if err := l.db.Create(&entry).Error; err != nil {
		l.logger.Warn("failed to add journal entry",
			zap.Uint("trade_id", tradeID), zap.Error(err))
	}
}
