package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"paperbot/internal/models"
)

type cacheEntry struct {
	ticker    *Ticker
	fetchedAt time.Time
}

// Gateway serves current market data from an ordered chain of venues with a
// short-lived in-memory cache. A fresh entry is served without touching any
// venue; when every venue fails with a timeout-class error, a stale entry is
// served over failing the caller. The cache is safe for concurrent use;
// racing writers overwrite each other benignly since entries are snapshots
// of the same upstream truth.
type Gateway struct {
	venues []Venue
	logger *zap.Logger
	ttl    time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewGateway creates a gateway over the given venue fallback chain.
func NewGateway(venues []Venue, ttl time.Duration, logger *zap.Logger) *Gateway {
	return &Gateway{
		venues: venues,
		logger: logger.Named("gateway"),
		ttl:    ttl,
		cache:  make(map[string]cacheEntry),
	}
}

// GetCurrentPrice returns the ticker for a pair, consulting the cache first
// and then each venue in order.
func (g *Gateway) GetCurrentPrice(ctx context.Context, pair string) (*Ticker, error) {
	key := models.NormalizePair(pair)

	if entry, ok := g.lookup(key); ok && time.Since(entry.fetchedAt) < g.ttl {
		return entry.ticker, nil
	}

	allTimeouts := true
	var lastErr error
	for _, venue := range g.venues {
		ticker, err := venue.GetTicker(ctx, key)
		if err == nil {
			g.store(key, ticker)
			return ticker, nil
		}

		lastErr = err
		if !isTimeoutErr(err) {
			allTimeouts = false
		}
		// Listing gaps are expected while falling through the chain, so
		// they are not worth a warning.
		if errors.Is(err, ErrSymbolNotFound) {
			g.logger.Debug("venue does not list pair",
				zap.String("venue", venue.Name()), zap.String("pair", key))
		} else {
			g.logger.Warn("venue fetch failed",
				zap.String("venue", venue.Name()), zap.String("pair", key), zap.Error(err))
		}
	}

	// Serve stale data over an outage, but only for transient timeouts.
	if allTimeouts && lastErr != nil {
		if entry, ok := g.lookup(key); ok {
			g.logger.Warn("all venues timed out, serving stale cache entry",
				zap.String("pair", key), zap.Duration("age", time.Since(entry.fetchedAt)))
			return entry.ticker, nil
		}
	}

	if lastErr == nil {
		lastErr = ErrAllVenuesFailed
	}
	return nil, fmt.Errorf("%w: %s: %w", ErrAllVenuesFailed, key, lastErr)
}

// GetMultiplePrices fans out per pair and silently omits pairs that fail;
// a partial map is more useful to scan callers than a failed batch.
func (g *Gateway) GetMultiplePrices(ctx context.Context, pairs []string) map[string]*Ticker {
	out := make(map[string]*Ticker, len(pairs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, pair := range pairs {
		wg.Add(1)
		go func(pair string) {
			defer wg.Done()
			ticker, err := g.GetCurrentPrice(ctx, pair)
			if err != nil {
				g.logger.Debug("omitting pair from batch", zap.String("pair", pair), zap.Error(err))
				return
			}
			mu.Lock()
			out[models.NormalizePair(pair)] = ticker
			mu.Unlock()
		}(pair)
	}

	wg.Wait()
	return out
}

// Snapshot returns the pair's current stats with a synthetic intraday
// history attached (see SyntheticSeries).
func (g *Gateway) Snapshot(ctx context.Context, pair string) (Snapshot, error) {
	ticker, err := g.GetCurrentPrice(ctx, pair)
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(ticker), nil
}

func (g *Gateway) lookup(key string) (cacheEntry, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	entry, ok := g.cache[key]
	return entry, ok
}

func (g *Gateway) store(key string, ticker *Ticker) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache[key] = cacheEntry{ticker: ticker, fetchedAt: time.Now()}
}
