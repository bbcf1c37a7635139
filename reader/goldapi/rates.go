package goldapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"goldflow/config"
	"goldflow/logger"
)

// Reader fetches live metal spot rates from the goldapi.io REST API.
// Rates come back as price per gram in the configured currency.
type Reader struct {
	baseURL    string
	currency   string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Log
}

// NewReader builds a rate reader from the rate_source configuration section.
func NewReader(cfg *config.Config) *Reader {
	rps := cfg.RateSource.RateLimit.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.RateSource.RateLimit.BurstSize
	if burst <= 0 {
		burst = 1
	}

	return &Reader{
		baseURL:  strings.TrimSuffix(cfg.RateSource.URL, "/"),
		currency: cfg.RateSource.Currency,
		httpClient: &http.Client{
			Transport: accessTokenTransport{token: cfg.RateSource.APIKey, base: http.DefaultTransport},
			Timeout:   cfg.RateSource.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     logger.GetLogger(),
	}
}

// GoldRate returns the spot price of one gram of 24 karat gold. Pricing runs
// abort when this fails; there is no safe fallback rate to compute against.
func (r *Reader) GoldRate(ctx context.Context) (decimal.Decimal, error) {
	return r.fetch(ctx, "XAU", "price_gram_24k")
}

// SilverRate returns the spot price of one gram of silver.
func (r *Reader) SilverRate(ctx context.Context) (decimal.Decimal, error) {
	return r.fetch(ctx, "XAG", "price_gram")
}

func (r *Reader) fetch(ctx context.Context, symbol, field string) (decimal.Decimal, error) {
	log := r.log.WithComponent("rate_reader").WithFields(logger.Fields{
		"symbol":   symbol,
		"currency": r.currency,
	})

	if err := r.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}

	url := fmt.Sprintf("%s/%s/%s", r.baseURL, symbol, r.currency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch %s rate: %w", symbol, err)
	}
	defer resp.Body.Close()
	logger.LogPerformanceEntry(log, "rate_reader", "api_request", time.Since(start), logger.Fields{"symbol": symbol})

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return decimal.Zero, fmt.Errorf("rate api returned status %d for %s: %s", resp.StatusCode, symbol, string(payload))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read %s rate response: %w", symbol, err)
	}

	var body map[string]any
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	if err := decoder.Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode %s rate response: %w", symbol, err)
	}

	raw, ok := body[field].(json.Number)
	if !ok {
		return decimal.Zero, fmt.Errorf("rate response for %s missing numeric field %s", symbol, field)
	}
	value, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s rate %q: %w", symbol, raw.String(), err)
	}
	if !value.IsPositive() {
		return decimal.Zero, fmt.Errorf("rate api returned non-positive %s rate %s", symbol, value)
	}

	logger.IncrementRateFetch(len(payload))
	log.WithFields(logger.Fields{"rate": value.String()}).Info("fetched metal rate")
	return value, nil
}
