// Package quote implements the rate-limited, retrying, circuit-broken
// single-leg quote fetch against the aggregator's HTTP quote API.
//
// Request building is grounded on internal/discovery/client.go's
// query-param/header construction style; the retry/rate-limit/
// circuit-breaker logic itself has no teacher analog and is built
// directly from spec §4.4.
package quote

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/solward/triarb/internal/triarb"
	"go.uber.org/zap"
)

// Config configures the client.
type Config struct {
	BaseURL      string
	MinInterval  time.Duration
	MaxPerMinute int
	CircuitThreshold int
	CircuitTimeout   time.Duration
	Logger       *zap.Logger
}

// Client is the Quote Client component.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *RateLimiter
	breaker    *Breaker
	logger     *zap.Logger
}

// New builds a Client.
func New(cfg Config) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: attemptTimeout},
		limiter:    NewRateLimiter(cfg.MinInterval, cfg.MaxPerMinute),
		breaker:    NewBreaker(cfg.CircuitThreshold, cfg.CircuitTimeout, cfg.Logger),
		logger:     cfg.Logger,
	}
}

// quoteAPIResponse mirrors the aggregator's quote API response shape
// (spec §6): inAmount, outAmount, priceImpactPct and an opaque route
// plan.
type quoteAPIResponse struct {
	InAmount       string          `json:"inAmount"`
	OutAmount      string          `json:"outAmount"`
	PriceImpactPct string          `json:"priceImpactPct"`
	RoutePlan      json.RawMessage `json:"routePlan"`
}

// Quote fetches a single-leg quote, applying rate limiting, retries,
// and circuit-breaking.
func (c *Client) Quote(ctx context.Context, in, out triarb.Asset, amount *big.Int, slippageBps int) (*triarb.Quote, error) {
	if !c.breaker.Allow() {
		return nil, triarb.Classify(triarb.ErrCircuitOpen, fmt.Errorf("circuit open"))
	}

	var lastErr error
	var delays []time.Duration

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, triarb.Classify(triarb.ErrRateLimited, err)
		}

		start := time.Now()
		q, statusCode, err := c.doRequest(ctx, in, out, amount, slippageBps)
		CallDuration.Observe(time.Since(start).Seconds())

		if err == nil && q.Valid() {
			c.breaker.RecordSuccess()
			return q, nil
		}

		if err == nil && !q.Valid() {
			// zero outAmount or missing fields: non-retryable QuoteInvalid.
			c.breaker.RecordFailure()
			ErrorKindTotal.WithLabelValues(string(triarb.ErrQuoteInvalid)).Inc()
			return nil, triarb.Classify(triarb.ErrQuoteInvalid, fmt.Errorf("quote invalid: zero out_amount"))
		}

		kind, retryDelays := classify(statusCode, err)
		ErrorKindTotal.WithLabelValues(string(kind)).Inc()
		lastErr = err
		delays = retryDelays

		if kind == triarb.ErrClientError || len(delays) == 0 {
			c.breaker.RecordFailure()
			return nil, triarb.Classify(kind, lastErr)
		}

		if attempt >= maxRetries {
			c.breaker.RecordFailure()
			return nil, triarb.Classify(kind, lastErr)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}
}

func (c *Client) doRequest(ctx context.Context, in, out triarb.Asset, amount *big.Int, slippageBps int) (*triarb.Quote, int, error) {
	params := url.Values{}
	params.Add("inputMint", in.Address)
	params.Add("outputMint", out.Address)
	params.Add("amount", amount.String())
	params.Add("slippageBps", strconv.Itoa(slippageBps))
	params.Add("onlyDirectRoutes", "false")

	requestURL := fmt.Sprintf("%s/quote?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "triarb/1.0")

	c.logger.Debug("quote-request", zap.String("in", in.Symbol), zap.String("out", out.Symbol), zap.String("amount", amount.String()))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("quote API status %d", resp.StatusCode)
	}

	var body quoteAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}

	outAmt, ok := new(big.Int).SetString(body.OutAmount, 10)
	if !ok {
		outAmt = big.NewInt(0)
	}
	inAmt, ok := new(big.Int).SetString(body.InAmount, 10)
	if !ok {
		inAmt = amount
	}
	impact, _ := strconv.ParseFloat(body.PriceImpactPct, 64)

	return &triarb.Quote{
		InAsset:         in,
		OutAsset:        out,
		InAmount:        inAmt,
		OutAmount:       outAmt,
		PriceImpactPct:  impact,
		RouteDescriptor: []byte(body.RoutePlan),
	}, resp.StatusCode, nil
}
