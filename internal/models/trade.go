package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Trade direction.
const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// Trade lifecycle status.
const (
	StatusWatching  = "watching"
	StatusAnalyzing = "analyzing"
	StatusActive    = "active"
	StatusParked    = "parked"
	StatusWon       = "won"
	StatusLost      = "lost"
)

// Lanes are the board buckets a trade sits in, mapped 1:1 to statuses.
const (
	LaneWatchlist = "Watchlist"
	LaneAnalyzing = "Analyzing"
	LaneActive    = "Active"
	LaneParked    = "Parked"
	LaneWins      = "Wins"
	LaneLosses    = "Losses"
)

// LaneForStatus returns the board lane matching a lifecycle status.
func LaneForStatus(status string) string {
	switch status {
	case StatusWatching:
		return LaneWatchlist
	case StatusAnalyzing:
		return LaneAnalyzing
	case StatusActive:
		return LaneActive
	case StatusParked:
		return LaneParked
	case StatusWon:
		return LaneWins
	case StatusLost:
		return LaneLosses
	}
	return LaneWatchlist
}

// StatusForLane is the inverse of LaneForStatus.
func StatusForLane(lane string) string {
	switch lane {
	case LaneWatchlist:
		return StatusWatching
	case LaneAnalyzing:
		return StatusAnalyzing
	case LaneActive:
		return StatusActive
	case LaneParked:
		return StatusParked
	case LaneWins:
		return StatusWon
	case LaneLosses:
		return StatusLost
	}
	return StatusWatching
}

// IsTerminalStatus reports whether a status can no longer transition.
func IsTerminalStatus(status string) bool {
	return status == StatusWon || status == StatusLost
}

// Trade represents one position lifecycle instance on a board.
// EntryPrice is set iff the trade has been entered; ExitPrice and the
// realized P&L fields are set only once the trade is closed.
type Trade struct {
	gorm.Model
	BoardID uint   `json:"board_id" gorm:"index;not null"`
	BotID   uint   `json:"bot_id" gorm:"index"`
	UserID  uint   `json:"user_id" gorm:"index"`
	Pair    string `json:"pair" gorm:"not null"`

	Direction string `json:"direction" gorm:"default:long"`
	Status    string `json:"status" gorm:"index;default:watching"`
	Lane      string `json:"lane" gorm:"default:Watchlist"`

	EntryPrice   *float64 `json:"entry_price"`
	CurrentPrice float64  `json:"current_price"`
	ExitPrice    *float64 `json:"exit_price"`
	StopLoss     float64  `json:"stop_loss"`
	TakeProfit   float64  `json:"take_profit"`

	// PositionSize is notional, denominated in account currency.
	PositionSize float64 `json:"position_size"`

	Confidence float64 `json:"confidence"`
	RSI        float64 `json:"rsi"`
	SignalTag  string  `json:"signal_tag"`

	PnlDollar  float64 `json:"pnl_dollar"`
	PnlPercent float64 `json:"pnl_percent"`

	Notes       string `json:"notes"`
	PauseReason string `json:"pause_reason"`
	CreatedBy   string `json:"created_by"` // "user" or bot identifier

	EnteredAt *time.Time `json:"entered_at"`
	ExitedAt  *time.Time `json:"exited_at"`
}

// NormalizePair canonicalizes a trading pair to upper-case BASE/QUOTE form.
// "btc-usdt", "BTC_USDT" and "btc/usdt" all normalize to "BTC/USDT".
func NormalizePair(pair string) string {
	p := strings.ToUpper(strings.TrimSpace(pair))
	p = strings.ReplaceAll(p, "-", "/")
	p = strings.ReplaceAll(p, "_", "/")
	return p
}

// BaseSymbol returns the base asset of a normalized pair ("BTC" for "BTC/USDT").
func BaseSymbol(pair string) string {
	p := NormalizePair(pair)
	if i := strings.Index(p, "/"); i > 0 {
		return p[:i]
	}
	return p
}
