package market

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"paperbot/internal/config"
	"paperbot/internal/models"
)

const binanceBaseURL = "https://api.binance.com/api/v3"

// binanceTicker is the /ticker/24hr response. Binance reports all numbers
// as strings.
type binanceTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PrevClosePrice     string `json:"prevClosePrice"`
	AskPrice           string `json:"askPrice"`
	BidPrice           string `json:"bidPrice"`
	QuoteVolume        string `json:"quoteVolume"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	OpenPrice          string `json:"openPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
}

// BinanceVenue reads public 24h ticker data from the Binance REST API.
type BinanceVenue struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

var _ Venue = (*BinanceVenue)(nil)

// NewBinanceVenue creates a Binance-backed market data venue.
func NewBinanceVenue(cfg *config.Market, logger *zap.Logger) *BinanceVenue {
	client := resty.New().
		SetBaseURL(binanceBaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryOn429And5xx)

	return &BinanceVenue{
		client:  client,
		logger:  logger.Named("binance"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
	}
}

// Name implements Venue.
func (v *BinanceVenue) Name() string { return "binance" }

// GetTicker implements Venue.
func (v *BinanceVenue) GetTicker(ctx context.Context, pair string) (*Ticker, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	symbol := strings.ReplaceAll(models.NormalizePair(pair), "/", "")

	var body binanceTicker
	resp, err := v.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&body).
		Get("/ticker/24hr")
	if err != nil {
		return nil, fmt.Errorf("binance ticker request failed: %w", err)
	}

	if resp.IsError() {
		// Binance answers 400 with code -1121 for unlisted symbols.
		if resp.StatusCode() == http.StatusBadRequest || resp.StatusCode() == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
		}
		return nil, fmt.Errorf("binance ticker request failed with status %s: %s", resp.Status(), resp.String())
	}

	price := firstPositive(body.LastPrice, body.PrevClosePrice, body.AskPrice, body.BidPrice)
	if price == 0 {
		return nil, fmt.Errorf("binance returned no usable price for %s", symbol)
	}

	changePct, ok := parseFloat(body.PriceChangePercent)
	if !ok {
		changePct = changeFromOpen(price, mustParse(body.OpenPrice))
	}

	return &Ticker{
		Pair:         models.NormalizePair(pair),
		Price:        price,
		Volume24h:    mustParse(body.QuoteVolume),
		High24h:      mustParse(body.HighPrice),
		Low24h:       mustParse(body.LowPrice),
		ChangePct24h: changePct,
		FetchedAt:    time.Now(),
	}, nil
}

// retryOn429And5xx retries throttled and server-side failures; client errors
// like unlisted symbols fail immediately so the gateway can fall through.
func retryOn429And5xx(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
}

// firstPositive returns the first candidate that parses to a positive float.
func firstPositive(candidates ...string) float64 {
	for _, c := range candidates {
		if f, ok := parseFloat(c); ok && f > 0 {
			return f
		}
	}
	return 0
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func mustParse(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// changeFromOpen derives the 24h percent change when a venue reports only
// the open price.
func changeFromOpen(price, open float64) float64 {
	if open == 0 {
		return 0
	}
	return (price - open) / open * 100
}
