// Package scanner produces enriched, ranked snapshots of a watchlist by
// composing the market data gateway with the indicator library.
package scanner

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"paperbot/internal/indicator"
	"paperbot/internal/market"
)

// PriceSource is the slice of the gateway the scanner needs.
type PriceSource interface {
	GetMultiplePrices(ctx context.Context, pairs []string) map[string]*market.Ticker
}

// Scanner ranks a watchlist of pairs by a composite technical score.
type Scanner struct {
	source PriceSource
	logger *zap.Logger
}

// New creates a scanner over a price source.
func New(source PriceSource, logger *zap.Logger) *Scanner {
	return &Scanner{source: source, logger: logger.Named("scanner")}
}

// Scan fetches the watchlist in one batch, enriches every reachable pair
// with indicator values, and returns the snapshots ranked by descending
// score. Pairs that fail to fetch are omitted.
func (s *Scanner) Scan(ctx context.Context, watchlist []string) []market.Snapshot {
	tickers := s.source.GetMultiplePrices(ctx, watchlist)

	snapshots := make([]market.Snapshot, 0, len(tickers))
	for _, ticker := range tickers {
		snapshots = append(snapshots, Enrich(market.NewSnapshot(ticker)))
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Score > snapshots[j].Score
	})

	s.logger.Debug("watchlist scanned",
		zap.Int("requested", len(watchlist)), zap.Int("snapshots", len(snapshots)))
	return snapshots
}

// Enrich fills a snapshot's indicator fields and composite score.
func Enrich(snap market.Snapshot) market.Snapshot {
	snap.RSI = indicator.RSI(snap.Prices, 14)
	snap.SMA = indicator.SMA(snap.Prices, 20)
	snap.Momentum = indicator.Momentum(snap.Prices, 6)
	snap.VolumeRatio = indicator.VolumeRatio(snap.Volumes, 12)
	snap.RangePos = indicator.RangePosition(snap.Price, snap.Low24h, snap.High24h)
	snap.Score = score(snap)
	return snap
}

// score folds the indicator readings into a single 0..100 ranking value.
// It is a ranking heuristic only; admission decisions belong to strategies.
func score(snap market.Snapshot) float64 {
	s := 50.0

	// Reward momentum up to +/-25 points at +/-10% over the window.
	s += clamp(snap.Momentum*2.5, -25, 25)

	// Prefer coins away from overbought territory.
	if snap.RSI > 70 {
		s -= (snap.RSI - 70) / 2
	} else if snap.RSI < 30 {
		s += (30 - snap.RSI) / 2
	}

	// Volume expansion is mild confirmation either way.
	s += clamp((snap.VolumeRatio-1)*10, -10, 10)

	// Position within the 24h range, centered.
	s += (snap.RangePos - 0.5) * 10

	return clamp(s, 0, 100)
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
