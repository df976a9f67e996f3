package strategy

import (
	"fmt"

	"paperbot/internal/market"
	"paperbot/internal/models"
)

// Momentum buys coins with sustained upward momentum confirmed by volume and
// exits when the move fades. The "steady" substyle demands confirmation and
// sizes conservatively; "aggressive" chases stronger moves with wider stops.
type Momentum struct {
	substyle string
}

// NewMomentum creates a momentum strategy variant.
func NewMomentum(substyle string) *Momentum {
	return &Momentum{substyle: substyle}
}

// Name implements Strategy.
func (s *Momentum) Name() string { return "momentum/" + s.substyle }

// DefaultConfig implements Strategy.
func (s *Momentum) DefaultConfig() Config {
	if s.substyle == "aggressive" {
		return Config{
			PositionSizePct: 15,
			StopLossPct:     8,
			TakeProfitPct:   20,
			Timeframe:       "1h",
			MaxPositions:    4,
			Params: map[string]float64{
				"min_momentum":     4,
				"min_volume_ratio": 1.0,
				"max_rsi":          80,
			},
		}
	}
	return Config{
		PositionSizePct: 10,
		StopLossPct:     5,
		TakeProfitPct:   10,
		Timeframe:       "1h",
		MaxPositions:    3,
		Params: map[string]float64{
			"min_momentum":     2,
			"min_volume_ratio": 1.2,
			"max_rsi":          72,
		},
	}
}

// GenerateSignals implements Strategy.
func (s *Momentum) GenerateSignals(coins []market.Snapshot, cfg Config) []Signal {
	minMomentum := cfg.Param("min_momentum", 2)
	minVolume := cfg.Param("min_volume_ratio", 1.2)
	maxRSI := cfg.Param("max_rsi", 72)

	signals := make([]Signal, 0, len(coins))
	for _, coin := range coins {
		sig := Signal{Pair: coin.Pair, RSI: coin.RSI, Tag: s.Name()}

		switch {
		case coin.Momentum >= minMomentum && coin.VolumeRatio >= minVolume && coin.RSI < maxRSI:
			sig.Action = ActionBuy
			sig.Confidence = clamp(50+coin.Momentum*5+(coin.VolumeRatio-1)*10, 0, 100)
			sig.Reason = fmt.Sprintf("momentum %.1f%% with %.1fx volume", coin.Momentum, coin.VolumeRatio)
		case coin.Momentum <= -minMomentum:
			sig.Action = ActionSell
			sig.Confidence = clamp(50-coin.Momentum*5, 0, 100)
			sig.Reason = fmt.Sprintf("momentum reversed to %.1f%%", coin.Momentum)
		case coin.Momentum >= minMomentum/2:
			sig.Action = ActionWatch
			sig.Confidence = 40
			sig.Reason = "momentum building"
		default:
			sig.Action = ActionHold
			sig.Confidence = 20
			sig.Reason = "no momentum"
		}
		signals = append(signals, sig)
	}
	return signals
}

// ShouldEnter implements Strategy.
func (s *Momentum) ShouldEnter(coin market.Snapshot, price float64, cfg Config) bool {
	if price <= 0 {
		return false
	}
	return coin.Momentum >= cfg.Param("min_momentum", 2) &&
		coin.VolumeRatio >= cfg.Param("min_volume_ratio", 1.2) &&
		coin.RSI < cfg.Param("max_rsi", 72)
}

// ShouldExit implements Strategy.
func (s *Momentum) ShouldExit(trade *models.Trade, price float64, snap market.Snapshot, cfg Config) ExitDecision {
	if d, done := stopOrTarget(trade, price, cfg); done {
		return d
	}

	// The thesis is the move itself; once momentum turns negative the
	// position has nothing left to stand on.
	if snap.Momentum < 0 {
		return ExitDecision{Exit: true, Reason: fmt.Sprintf("momentum faded to %.1f%%", snap.Momentum)}
	}
	return ExitDecision{Reason: "momentum intact"}
}
