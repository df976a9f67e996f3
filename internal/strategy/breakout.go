package strategy

import (
	"fmt"

	"paperbot/internal/market"
	"paperbot/internal/models"
)

// Breakout buys coins pushing through the top of their 24h range on
// expanding volume and exits if the breakout loses the level.
type Breakout struct{}

// NewBreakout creates the breakout strategy.
func NewBreakout() *Breakout { return &Breakout{} }

// Name implements Strategy.
func (s *Breakout) Name() string { return "breakout/range" }

// DefaultConfig implements Strategy.
func (s *Breakout) DefaultConfig() Config {
	return Config{
		PositionSizePct: 12,
		StopLossPct:     4,
		TakeProfitPct:   12,
		Timeframe:       "1h",
		MaxPositions:    3,
		Params: map[string]float64{
			"breakout_range_pos": 0.9,
			"failed_range_pos":   0.5,
			"min_volume_ratio":   1.5,
		},
	}
}

// GenerateSignals implements Strategy.
func (s *Breakout) GenerateSignals(coins []market.Snapshot, cfg Config) []Signal {
	breakoutPos := cfg.Param("breakout_range_pos", 0.9)
	minVolume := cfg.Param("min_volume_ratio", 1.5)

	signals := make([]Signal, 0, len(coins))
	for _, coin := range coins {
		sig := Signal{Pair: coin.Pair, RSI: coin.RSI, Tag: s.Name()}

		switch {
		case coin.RangePos >= breakoutPos && coin.VolumeRatio >= minVolume:
			sig.Action = ActionBuy
			sig.Confidence = clamp(55+coin.RangePos*20+(coin.VolumeRatio-1)*10, 0, 100)
			sig.Reason = fmt.Sprintf("breaking range top on %.1fx volume", coin.VolumeRatio)
		case coin.RangePos >= breakoutPos:
			sig.Action = ActionWatch
			sig.Confidence = 40
			sig.Reason = "at range top without volume confirmation"
		case coin.RangePos <= 0.1:
			sig.Action = ActionSell
			sig.Confidence = 50
			sig.Reason = "breaking range bottom"
		default:
			sig.Action = ActionHold
			sig.Confidence = 15
			sig.Reason = "inside range"
		}
		signals = append(signals, sig)
	}
	return signals
}

// ShouldEnter implements Strategy.
func (s *Breakout) ShouldEnter(coin market.Snapshot, price float64, cfg Config) bool {
	return price > 0 &&
		coin.RangePos >= cfg.Param("breakout_range_pos", 0.9) &&
		coin.VolumeRatio >= cfg.Param("min_volume_ratio", 1.5)
}

// ShouldExit implements Strategy.
func (s *Breakout) ShouldExit(trade *models.Trade, price float64, snap market.Snapshot, cfg Config) ExitDecision {
	if d, done := stopOrTarget(trade, price, cfg); done {
		return d
	}

	// Falling back inside the range invalidates the breakout.
	if snap.RangePos <= cfg.Param("failed_range_pos", 0.5) {
		return ExitDecision{Exit: true, Reason: fmt.Sprintf("breakout failed, back to %.0f%% of range", snap.RangePos*100)}
	}
	return ExitDecision{Reason: "breakout holding"}
}
