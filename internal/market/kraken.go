package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"paperbot/internal/config"
	"paperbot/internal/models"
)

const krakenBaseURL = "https://api.kraken.com/0/public"

// krakenTicker is one pair's entry in the Kraken Ticker result. Kraken
// reports arrays of strings: c = last trade [price, lot], v = volume
// [today, 24h], h/l = high/low [today, 24h], o = today's opening price.
type krakenTicker struct {
	Close  []string `json:"c"`
	Volume []string `json:"v"`
	High   []string `json:"h"`
	Low    []string `json:"l"`
	Open   string   `json:"o"`
	Ask    []string `json:"a"`
	Bid    []string `json:"b"`
}

type krakenResponse struct {
	Error  []string                `json:"error"`
	Result map[string]krakenTicker `json:"result"`
}

// KrakenVenue reads public ticker data from the Kraken REST API.
type KrakenVenue struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

var _ Venue = (*KrakenVenue)(nil)

// NewKrakenVenue creates a Kraken-backed market data venue.
func NewKrakenVenue(cfg *config.Market, logger *zap.Logger) *KrakenVenue {
	client := resty.New().
		SetBaseURL(krakenBaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryOn429And5xx)

	return &KrakenVenue{
		client:  client,
		logger:  logger.Named("kraken"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
	}
}

// Name implements Venue.
func (v *KrakenVenue) Name() string { return "kraken" }

// GetTicker implements Venue.
func (v *KrakenVenue) GetTicker(ctx context.Context, pair string) (*Ticker, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	normalized := models.NormalizePair(pair)
	symbol := krakenSymbol(normalized)

	var body krakenResponse
	resp, err := v.client.R().
		SetContext(ctx).
		SetQueryParam("pair", symbol).
		SetResult(&body).
		Get("/Ticker")
	if err != nil {
		return nil, fmt.Errorf("kraken ticker request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("kraken ticker request failed with status %s: %s", resp.Status(), resp.String())
	}

	if len(body.Error) > 0 {
		msg := strings.Join(body.Error, "; ")
		if strings.Contains(msg, "Unknown asset pair") {
			return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
		}
		return nil, fmt.Errorf("kraken ticker error for %s: %s", symbol, msg)
	}

	// Kraken keys the result by its own canonical pair name, so take the
	// single entry rather than looking up by the requested symbol.
	var tk krakenTicker
	found := false
	for _, entry := range body.Result {
		tk = entry
		found = true
		break
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	price := firstPositive(first(tk.Close), first(tk.Ask), first(tk.Bid))
	if price == 0 {
		return nil, fmt.Errorf("kraken returned no usable price for %s", symbol)
	}

	// Kraken has no direct 24h change field; derive it from the open.
	changePct := changeFromOpen(price, mustParse(tk.Open))

	return &Ticker{
		Pair:         normalized,
		Price:        price,
		Volume24h:    mustParse(second(tk.Volume)) * price,
		High24h:      mustParse(second(tk.High)),
		Low24h:       mustParse(second(tk.Low)),
		ChangePct24h: changePct,
		FetchedAt:    time.Now(),
	}, nil
}

// krakenSymbol maps a normalized pair to Kraken's naming, which uses XBT
// for bitcoin and no separator.
func krakenSymbol(pair string) string {
	s := strings.ReplaceAll(pair, "/", "")
	return strings.ReplaceAll(s, "BTC", "XBT")
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func second(values []string) string {
	if len(values) < 2 {
		return first(values)
	}
	return values[1]
}
