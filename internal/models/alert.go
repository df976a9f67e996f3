package models

import (
	"time"

	"gorm.io/gorm"
)

// Alert rule kinds.
const (
	AlertPriceAbove       = "price_above"
	AlertPriceBelow       = "price_below"
	AlertPnlTarget        = "pnl_target"
	AlertStopLossHit      = "stop_loss_hit"
	AlertConfidenceChange = "confidence_change"
)

// Alert is a rule evaluated against a trade's live price or computed fields.
// Once triggered it stays triggered; evaluation only considers open rules.
type Alert struct {
	gorm.Model
	BoardID  uint   `json:"board_id" gorm:"index;not null"`
	TradeID  uint   `json:"trade_id" gorm:"index;not null"`
	Kind     string `json:"kind" gorm:"not null"`
	Operator string `json:"operator" gorm:"default:>="` // >, >=, <, <=, =

	Threshold float64 `json:"threshold"`

	Triggered   bool       `json:"triggered" gorm:"default:false"`
	TriggeredAt *time.Time `json:"triggered_at"`
}

// Compare applies the alert's comparison operator to a live value.
func (a *Alert) Compare(value float64) bool {
	switch a.Operator {
	case ">":
		return value > a.Threshold
	case ">=":
		return value >= a.Threshold
	case "<":
		return value < a.Threshold
	case "<=":
		return value <= a.Threshold
	case "=":
		return value == a.Threshold
	}
	return false
}
