package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	apperrors "order-reconciliation-service/pkg/errors"
	"order-reconciliation-service/pkg/logger"
)

// Client defaults. The lookup service is a free public API, so requests are
// paced and capped per day.
const (
	DefaultBaseURL        = "https://api.frankfurter.app"
	DefaultRequestTimeout = 10 * time.Second
	DefaultMinInterval    = 200 * time.Millisecond
	DefaultDailyCap       = 900
)

// ClientConfig configures the historical rate client.
type ClientConfig struct {
	BaseURL        string        `json:"base_url"`
	RequestTimeout time.Duration `json:"request_timeout"`
	MinInterval    time.Duration `json:"min_interval"`
	DailyCap       int           `json:"daily_cap"`
}

// DefaultClientConfig returns the default client configuration.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        DefaultBaseURL,
		RequestTimeout: DefaultRequestTimeout,
		MinInterval:    DefaultMinInterval,
		DailyCap:       DefaultDailyCap,
	}
}

// RateProvider is the lookup contract the cost normalizer depends on.
type RateProvider interface {
	HistoricalRate(ctx context.Context, date time.Time, from, to string) (decimal.Decimal, error)
}

// Client fetches historical exchange rates over HTTP with caching, request
// pacing, and a daily request quota.
//
// The endpoint contract is GET {base}/{YYYY-MM-DD}?from=SRC&to=DST returning
// {"rates":{"DST": <float>}} with the rate expressed as DST per one SRC.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *RateCache
	logger     logger.Logger

	mu           sync.Mutex
	requestCount int
	countDate    string

	now func() time.Time
}

// NewClient creates a rate client. A nil config uses the defaults.
func NewClient(config *ClientConfig, cache *RateCache) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.MinInterval <= 0 {
		config.MinInterval = DefaultMinInterval
	}
	if config.DailyCap <= 0 {
		config.DailyCap = DefaultDailyCap
	}
	if cache == nil {
		cache = NewRateCache(0, 0, 0)
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.RequestTimeout},
		limiter:    rate.NewLimiter(rate.Every(config.MinInterval), 1),
		cache:      cache,
		logger:     logger.GetGlobalLogger().WithComponent("currency"),
		now:        time.Now,
	}
}

type rateResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// HistoricalRate returns the exchange rate for the given date, cache-first.
// When the historical date has no published rate the lookup retries once
// with the current date before failing.
func (c *Client) HistoricalRate(ctx context.Context, date time.Time, from, to string) (decimal.Decimal, error) {
	key := CacheKey(date, from, to)
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	rate, err := c.fetch(ctx, date, from, to)
	if err != nil {
		// Historical dates can precede the service's data window; the
		// current rate is an acceptable stand-in.
		today := c.now()
		if date.Format("2006-01-02") != today.Format("2006-01-02") {
			c.logger.WithFields(logger.Fields{
				"date": date.Format("2006-01-02"),
				"from": from,
				"to":   to,
			}).Debug("Historical rate unavailable, retrying with current date")
			rate, err = c.fetch(ctx, today, from, to)
		}
		if err != nil {
			return decimal.Zero, err
		}
	}

	c.cache.Put(key, rate)
	return rate, nil
}

// fetch performs one paced, quota-checked request.
func (c *Client) fetch(ctx context.Context, date time.Time, from, to string) (decimal.Decimal, error) {
	if err := c.checkQuota(); err != nil {
		return decimal.Zero, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, apperrors.CurrencyError(apperrors.CodeRateLimited, c.config.BaseURL, err)
	}

	url := fmt.Sprintf("%s/%s?from=%s&to=%s", c.config.BaseURL, date.Format("2006-01-02"), from, to)

	reqCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, apperrors.CurrencyError(apperrors.CodeRateUnavailable, c.config.BaseURL, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return decimal.Zero, apperrors.CurrencyError(apperrors.CodeRateTimeout, c.config.BaseURL, err)
		}
		return decimal.Zero, apperrors.CurrencyError(apperrors.CodeRateUnavailable, c.config.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, apperrors.CurrencyError(apperrors.CodeRateUnavailable, c.config.BaseURL, nil).
			WithContext("status", resp.StatusCode)
	}

	var payload rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, apperrors.CurrencyError(apperrors.CodeInvalidRate, c.config.BaseURL, err)
	}

	value, ok := payload.Rates[to]
	if !ok || value <= 0 {
		return decimal.Zero, apperrors.CurrencyError(apperrors.CodeInvalidRate, c.config.BaseURL, nil).
			WithContext("currency", to)
	}

	return decimal.NewFromFloat(value), nil
}

// checkQuota enforces the daily request cap, resetting on date change.
func (c *Client) checkQuota() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	today := c.now().Format("2006-01-02")
	if c.countDate != today {
		c.countDate = today
		c.requestCount = 0
	}

	if c.requestCount >= c.config.DailyCap {
		return apperrors.CurrencyError(apperrors.CodeQuotaExceeded, c.config.BaseURL, nil)
	}
	c.requestCount++
	return nil
}
