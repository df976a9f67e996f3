// Package bot orchestrates automated trading: per-bot execution cycles,
// the batch runner that drives all running bots, alert evaluation, and the
// operational HTTP surface.
package bot

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"paperbot/internal/models"
)

// botUpdatableFields is the allow-list for Store.Update; unlisted fields in
// the caller's map are silently dropped.
var botUpdatableFields = map[string]bool{
	"name":              true,
	"style":             true,
	"substyle":          true,
	"params_json":       true,
	"run_status":        true,
	"auto_trade":        true,
	"rebalance_enabled": true,
	"risk_level":        true,
	"drift_threshold":   true,
}

// Store persists bots, their execution logs, and portfolio snapshots.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a bot store.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger.Named("botstore")}
}

// Get loads one bot by id.
func (s *Store) Get(id uint) (*models.Bot, error) {
	var bot models.Bot
	if err := s.db.First(&bot, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load bot %d: %w", id, err)
	}
	return &bot, nil
}

// Running lists every bot whose run status is "running".
func (s *Store) Running() ([]models.Bot, error) {
	var bots []models.Bot
	if err := s.db.Where("run_status = ?", models.BotRunning).Find(&bots).Error; err != nil {
		return nil, fmt.Errorf("failed to list running bots: %w", err)
	}
	return bots, nil
}

// Update applies the allow-listed subset of fields to a bot.
func (s *Store) Update(id uint, fields map[string]interface{}) (*models.Bot, error) {
	filtered := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if botUpdatableFields[k] {
			filtered[k] = v
		}
	}
	if len(filtered) > 0 {
		if err := s.db.Model(&models.Bot{}).Where("id = ?", id).Updates(filtered).Error; err != nil {
			return nil, fmt.Errorf("failed to update bot %d: %w", id, err)
		}
	}
	return s.Get(id)
}

// LogExecution appends one action record to a bot's execution log. The
// payload is marshalled to JSON; logging is best-effort and never fails the
// cycle that produced it.
func (s *Store) LogExecution(botID uint, runID, action string, payload interface{}) {
	body := ""
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			body = string(raw)
		}
	}
	exec := models.BotExecution{BotID: botID, RunID: runID, Action: action, Payload: body}
	if err := s.db.Create(&exec).Error; err != nil {
		s.logger.Warn("failed to log bot execution",
			zap.Uint("bot_id", botID), zap.String("action", action), zap.Error(err))
	}
}

// Snapshots returns a bot's portfolio snapshots, newest first.
func (s *Store) Snapshots(botID uint, limit int) ([]models.PortfolioSnapshot, error) {
	var snaps []models.PortfolioSnapshot
	q := s.db.Where("bot_id = ?", botID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&snaps).Error; err != nil {
		return nil, fmt.Errorf("failed to list snapshots for bot %d: %w", botID, err)
	}
	return snaps, nil
}
