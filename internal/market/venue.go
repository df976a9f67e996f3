package market

import (
	"context"
	"errors"
	"net"
	"time"
)

// Named error conditions for the gateway and its venues.
var (
	// ErrSymbolNotFound means the venue does not list the requested pair.
	// Expected during venue fallback, so callers log it at debug at most.
	ErrSymbolNotFound = errors.New("symbol not found on venue")

	// ErrAllVenuesFailed means every venue in the fallback chain failed and
	// no stale cache entry could cover the request.
	ErrAllVenuesFailed = errors.New("all market data venues failed")
)

// Ticker is one venue's current view of a trading pair.
type Ticker struct {
	Pair         string
	Price        float64
	Volume24h    float64
	High24h      float64
	Low24h       float64
	ChangePct24h float64
	FetchedAt    time.Time
}

// Venue is a single upstream market-data source.
type Venue interface {
	// Name identifies the venue in logs and config.
	Name() string

	// GetTicker fetches the current ticker for a normalized BASE/QUOTE pair.
	// Pairs the venue does not list fail with ErrSymbolNotFound.
	GetTicker(ctx context.Context, pair string) (*Ticker, error)
}

// isTimeoutErr reports whether an error is timeout-class: a deadline
// expiry or a network timeout anywhere in the chain. Only these qualify
// for stale-cache service.
func isTimeoutErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
