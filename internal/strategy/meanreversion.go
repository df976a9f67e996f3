package strategy

import (
	"fmt"

	"paperbot/internal/market"
	"paperbot/internal/models"
)

// MeanReversion buys washed-out coins and exits once they revert toward
// their average. The "rsi" substyle keys off oversold RSI readings, the
// "range" substyle off position near the bottom of the 24h range.
type MeanReversion struct {
	substyle string
}

// NewMeanReversion creates a mean-reversion strategy variant.
func NewMeanReversion(substyle string) *MeanReversion {
	return &MeanReversion{substyle: substyle}
}

// Name implements Strategy.
func (s *MeanReversion) Name() string { return "meanreversion/" + s.substyle }

// DefaultConfig implements Strategy.
func (s *MeanReversion) DefaultConfig() Config {
	cfg := Config{
		PositionSizePct: 10,
		StopLossPct:     6,
		TakeProfitPct:   8,
		Timeframe:       "1h",
		MaxPositions:    3,
		Params: map[string]float64{
			"oversold_rsi":   30,
			"reverted_rsi":   55,
			"low_range_pos":  0.15,
			"exit_range_pos": 0.6,
		},
	}
	return cfg
}

// GenerateSignals implements Strategy.
func (s *MeanReversion) GenerateSignals(coins []market.Snapshot, cfg Config) []Signal {
	signals := make([]Signal, 0, len(coins))
	for _, coin := range coins {
		sig := Signal{Pair: coin.Pair, RSI: coin.RSI, Tag: s.Name()}

		if s.stretched(coin, cfg) {
			sig.Action = ActionBuy
			sig.Confidence = s.confidence(coin, cfg)
			if s.substyle == "range" {
				sig.Reason = fmt.Sprintf("price at %.0f%% of 24h range", coin.RangePos*100)
			} else {
				sig.Reason = fmt.Sprintf("RSI oversold at %.0f", coin.RSI)
			}
		} else if coin.RSI > 70 {
			sig.Action = ActionSell
			sig.Confidence = clamp(coin.RSI-20, 0, 100)
			sig.Reason = fmt.Sprintf("RSI overbought at %.0f", coin.RSI)
		} else if coin.RSI < 40 {
			sig.Action = ActionWatch
			sig.Confidence = 35
			sig.Reason = "approaching oversold"
		} else {
			sig.Action = ActionHold
			sig.Confidence = 20
			sig.Reason = "no stretch from mean"
		}
		signals = append(signals, sig)
	}
	return signals
}

// ShouldEnter implements Strategy.
func (s *MeanReversion) ShouldEnter(coin market.Snapshot, price float64, cfg Config) bool {
	return price > 0 && s.stretched(coin, cfg)
}

// ShouldExit implements Strategy.
func (s *MeanReversion) ShouldExit(trade *models.Trade, price float64, snap market.Snapshot, cfg Config) ExitDecision {
	if d, done := stopOrTarget(trade, price, cfg); done {
		return d
	}

	if s.substyle == "range" {
		if snap.RangePos >= cfg.Param("exit_range_pos", 0.6) {
			return ExitDecision{Exit: true, Reason: fmt.Sprintf("reverted to %.0f%% of range", snap.RangePos*100)}
		}
		return ExitDecision{Reason: "still below range midpoint"}
	}

	if snap.RSI >= cfg.Param("reverted_rsi", 55) {
		return ExitDecision{Exit: true, Reason: fmt.Sprintf("RSI reverted to %.0f", snap.RSI)}
	}
	return ExitDecision{Reason: "reversion incomplete"}
}

func (s *MeanReversion) stretched(coin market.Snapshot, cfg Config) bool {
	if s.substyle == "range" {
		return coin.RangePos <= cfg.Param("low_range_pos", 0.15)
	}
	return coin.RSI <= cfg.Param("oversold_rsi", 30)
}

func (s *MeanReversion) confidence(coin market.Snapshot, cfg Config) float64 {
	if s.substyle == "range" {
		return clamp(60+(cfg.Param("low_range_pos", 0.15)-coin.RangePos)*200, 0, 100)
	}
	return clamp(60 + (cfg.Param("oversold_rsi", 30) - coin.RSI), 0, 100)
}
