package models

import (
	"time"

	"gorm.io/gorm"
)

// Bot run status.
const (
	BotRunning = "running"
	BotStopped = "stopped"
	BotPaused  = "paused"
)

// Bot is the configuration for one automated trader. A bot is created by a
// user, controlled through start/stop/pause, and updates its own performance
// counters after each cycle.
type Bot struct {
	gorm.Model
	Name    string `json:"name" gorm:"not null"`
	BoardID uint   `json:"board_id" gorm:"index;not null"`
	UserID  uint   `json:"user_id" gorm:"index;not null"`

	Style    string `json:"style" gorm:"not null"`
	Substyle string `json:"substyle"`
	// ParamsJSON holds strategy parameter overrides merged over the
	// strategy's default config.
	ParamsJSON string `json:"params_json"`

	RunStatus string `json:"run_status" gorm:"default:stopped"`
	// AutoTrade has no column default: a bool with one could never be
	// persisted as false, since the zero value is omitted on insert.
	AutoTrade bool `json:"auto_trade"`

	RebalanceEnabled bool    `json:"rebalance_enabled"`
	RiskLevel        int     `json:"risk_level" gorm:"default:5"`
	DriftThreshold   float64 `json:"drift_threshold" gorm:"default:5"`

	TotalCycles  int64   `json:"total_cycles"`
	TotalEntries int64   `json:"total_entries"`
	TotalExits   int64   `json:"total_exits"`
	Wins         int64   `json:"wins"`
	Losses       int64   `json:"losses"`
	RealizedPnl  float64 `json:"realized_pnl"`

	LastRunAt *time.Time `json:"last_run_at"`
}

// BotExecution is an append-only record of one action taken during a cycle.
// Payload carries the decision inputs and outputs as JSON.
type BotExecution struct {
	gorm.Model
	BotID   uint   `json:"bot_id" gorm:"index;not null"`
	RunID   string `json:"run_id" gorm:"index"`
	Action  string `json:"action" gorm:"not null"` // entry, exit, rebalance, scan, error, summary
	Payload string `json:"payload"`
}

// PortfolioSnapshot records a bot's category allocation at one point in time,
// written once per executed rebalance check.
type PortfolioSnapshot struct {
	gorm.Model
	BotID      uint    `json:"bot_id" gorm:"index;not null"`
	TotalValue float64 `json:"total_value"`

	StablecoinsPct  float64 `json:"stablecoins_pct"`
	BitcoinPct      float64 `json:"bitcoin_pct"`
	LargeCapAltsPct float64 `json:"large_cap_alts_pct"`
	MidCapAltsPct   float64 `json:"mid_cap_alts_pct"`
	SmallCapAltsPct float64 `json:"small_cap_alts_pct"`
}
