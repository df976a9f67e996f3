// Package strategy defines the trading strategy contract and the catalog of
// built-in strategies. Strategies are pure over their inputs: they read the
// market snapshot handed to them and never perform I/O.
package strategy

import (
	"encoding/json"

	"paperbot/internal/market"
	"paperbot/internal/models"
)

// Signal actions.
const (
	ActionBuy   = "buy"
	ActionSell  = "sell"
	ActionHold  = "hold"
	ActionWatch = "watch"
)

// Config carries the tunables every strategy shares plus a bag of
// strategy-specific parameters.
type Config struct {
	PositionSizePct float64 `json:"position_size_pct"` // % of balance per entry
	StopLossPct     float64 `json:"stop_loss_pct"`
	TakeProfitPct   float64 `json:"take_profit_pct"`
	Timeframe       string  `json:"timeframe"`
	MaxPositions    int     `json:"max_positions"`

	Params map[string]float64 `json:"params"`
}

// Param reads a strategy-specific parameter with a fallback default.
func (c Config) Param(key string, def float64) float64 {
	if v, ok := c.Params[key]; ok {
		return v
	}
	return def
}

// ApplyOverrides merges a bot's JSON parameter overrides over a default
// config. Unknown top-level fields are ignored; the params bag merges
// key-by-key. Malformed JSON leaves the defaults untouched.
func ApplyOverrides(cfg Config, overridesJSON string) Config {
	if overridesJSON == "" {
		return cfg
	}

	var o struct {
		PositionSizePct *float64           `json:"position_size_pct"`
		StopLossPct     *float64           `json:"stop_loss_pct"`
		TakeProfitPct   *float64           `json:"take_profit_pct"`
		Timeframe       *string            `json:"timeframe"`
		MaxPositions    *int               `json:"max_positions"`
		Params          map[string]float64 `json:"params"`
	}
	if err := json.Unmarshal([]byte(overridesJSON), &o); err != nil {
		return cfg
	}

	if o.PositionSizePct != nil {
		cfg.PositionSizePct = *o.PositionSizePct
	}
	if o.StopLossPct != nil {
		cfg.StopLossPct = *o.StopLossPct
	}
	if o.TakeProfitPct != nil {
		cfg.TakeProfitPct = *o.TakeProfitPct
	}
	if o.Timeframe != nil {
		cfg.Timeframe = *o.Timeframe
	}
	if o.MaxPositions != nil {
		cfg.MaxPositions = *o.MaxPositions
	}
	if len(o.Params) > 0 {
		merged := make(map[string]float64, len(cfg.Params)+len(o.Params))
		for k, v := range cfg.Params {
			merged[k] = v
		}
		for k, v := range o.Params {
			merged[k] = v
		}
		cfg.Params = merged
	}
	return cfg
}

// Signal is one strategy verdict on one coin.
type Signal struct {
	Pair       string  `json:"pair"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"` // 0..100
	RSI        float64 `json:"rsi"`
	Reason     string  `json:"reason"`
	Tag        string  `json:"tag"`
}

// ExitDecision is the result of evaluating an open trade against the
// current price.
type ExitDecision struct {
	Exit   bool   `json:"exit"`
	Reason string `json:"reason"`
}

// Strategy is one named trading style. GenerateSignals classifies a scanned
// batch; ShouldEnter is the fast single-coin admission check and must agree
// in spirit with GenerateSignals; ShouldExit decides whether an active trade
// comes off.
type Strategy interface {
	Name() string
	DefaultConfig() Config
	GenerateSignals(coins []market.Snapshot, cfg Config) []Signal
	ShouldEnter(coin market.Snapshot, price float64, cfg Config) bool
	ShouldExit(trade *models.Trade, price float64, snap market.Snapshot, cfg Config) ExitDecision
}

// stopOrTarget is the exit check every strategy applies before its own
// style-specific rules: hard stop loss and take profit on the trade's
// unrealized P&L percentage.
func stopOrTarget(trade *models.Trade, price float64, cfg Config) (ExitDecision, bool) {
	if trade.EntryPrice == nil {
		return ExitDecision{}, false
	}
	_, pct := models.PnL(*trade.EntryPrice, price, trade.Direction, trade.PositionSize)

	if cfg.StopLossPct > 0 && pct <= -cfg.StopLossPct {
		return ExitDecision{Exit: true, Reason: "stop loss hit"}, true
	}
	if cfg.TakeProfitPct > 0 && pct >= cfg.TakeProfitPct {
		return ExitDecision{Exit: true, Reason: "take profit hit"}, true
	}
	return ExitDecision{}, false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
