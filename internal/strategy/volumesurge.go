package strategy

import (
	"fmt"

	"paperbot/internal/market"
	"paperbot/internal/models"
)

// VolumeSurge scalps coins seeing an abrupt volume expansion with positive
// price follow-through. Positions are small and exits tight: once the surge
// subsides the edge is gone.
type VolumeSurge struct{}

// NewVolumeSurge creates the volume-surge strategy.
func NewVolumeSurge() *VolumeSurge { return &VolumeSurge{} }

// Name implements Strategy.
func (s *VolumeSurge) Name() string { return "volumesurge/scalp" }

// DefaultConfig implements Strategy.
func (s *VolumeSurge) DefaultConfig() Config {
	return Config{
		PositionSizePct: 6,
		StopLossPct:     2,
		TakeProfitPct:   4,
		Timeframe:       "15m",
		MaxPositions:    5,
		Params: map[string]float64{
			"surge_volume_ratio": 2.0,
			"calm_volume_ratio":  1.0,
		},
	}
}

// GenerateSignals implements Strategy.
func (s *VolumeSurge) GenerateSignals(coins []market.Snapshot, cfg Config) []Signal {
	surge := cfg.Param("surge_volume_ratio", 2.0)

	signals := make([]Signal, 0, len(coins))
	for _, coin := range coins {
		sig := Signal{Pair: coin.Pair, RSI: coin.RSI, Tag: s.Name()}

		switch {
		case coin.VolumeRatio >= surge && coin.Momentum > 0:
			sig.Action = ActionBuy
			sig.Confidence = clamp(50+(coin.VolumeRatio-surge)*15+coin.Momentum*3, 0, 100)
			sig.Reason = fmt.Sprintf("%.1fx volume surge with price following", coin.VolumeRatio)
		case coin.VolumeRatio >= surge:
			sig.Action = ActionWatch
			sig.Confidence = 35
			sig.Reason = "volume surging without price follow-through"
		default:
			sig.Action = ActionHold
			sig.Confidence = 10
			sig.Reason = "volume unremarkable"
		}
		signals = append(signals, sig)
	}
	return signals
}

// ShouldEnter implements Strategy.
func (s *VolumeSurge) ShouldEnter(coin market.Snapshot, price float64, cfg Config) bool {
	return price > 0 &&
		coin.VolumeRatio >= cfg.Param("surge_volume_ratio", 2.0) &&
		coin.Momentum > 0
}

// ShouldExit implements Strategy.
func (s *VolumeSurge) ShouldExit(trade *models.Trade, price float64, snap market.Snapshot, cfg Config) ExitDecision {
	if d, done := stopOrTarget(trade, price, cfg); done {
		return d
	}

	if snap.VolumeRatio <= cfg.Param("calm_volume_ratio", 1.0) {
		return ExitDecision{Exit: true, Reason: "volume back to baseline"}
	}
	return ExitDecision{Reason: "surge still running"}
}
