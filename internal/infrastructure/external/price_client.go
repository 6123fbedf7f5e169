package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/btcbuzzbot/bot/internal/infrastructure/httpx"
)

const coinGeckoSimplePriceURL = "https://api.coingecko.com/api/v3/simple/price"

// Typed PriceClient errors
var (
	ErrPriceRateLimited  = errors.New("price client: rate limited")
	ErrPriceTransport    = errors.New("price client: transport error")
	ErrPriceProviderError = errors.New("price client: provider error")
	ErrPriceParse        = errors.New("price client: could not parse response")
)

// PriceQuote is the current BTC/USD price and its 24h change.
type PriceQuote struct {
	USD       float64
	Change24h float64
}

// PriceClient fetches the current BTC/USD price from an external provider.
type PriceClient interface {
	GetBTCPrice(ctx context.Context) (PriceQuote, error)
}

// coinGeckoPriceClient is the default PriceClient implementation: a
// bounded-timeout http.Client with typed sentinel errors per status code,
// retryable via the shared httpx.Retry.
type coinGeckoPriceClient struct {
	httpClient    *http.Client
	apiKey        string
	logger        *slog.Logger
	retryAttempts int
	retryDelay    time.Duration
}

// PriceClientConfig configures a PriceClient.
type PriceClientConfig struct {
	APIKey        string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	Logger        *slog.Logger
}

// NewCoinGeckoPriceClient constructs a PriceClient backed by CoinGecko's
// simple/price endpoint.
func NewCoinGeckoPriceClient(cfg PriceClientConfig) PriceClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &coinGeckoPriceClient{
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		apiKey:        cfg.APIKey,
		logger:        cfg.Logger.With(slog.String("component", "price_client")),
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
	}
}

// GetBTCPrice fetches the current BTC/USD price, retrying on transient
// errors and HTTP 429 with 2s * 2^attempt exponential backoff
func (c *coinGeckoPriceClient) GetBTCPrice(ctx context.Context) (PriceQuote, error) {
	retryCfg := httpx.RetryConfig{
		Attempts:    c.retryAttempts,
		Delay:       c.retryDelay,
		Exponential: true,
		// Only rate-limit and transport failures are retried; a non-2xx,
		// non-429 response and a parse failure are fatal for the call.
		Retryable: func(err error) bool {
			return errors.Is(err, ErrPriceRateLimited) || errors.Is(err, ErrPriceTransport)
		},
	}

	return httpx.Retry(ctx, c.logger, retryCfg, "get_btc_price", func(ctx context.Context) (PriceQuote, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return c.doRequest(attemptCtx)
	})
}

func (c *coinGeckoPriceClient) doRequest(ctx context.Context) (PriceQuote, error) {
	url := coinGeckoSimplePriceURL + "?ids=bitcoin&vs_currencies=usd&include_24hr_change=true"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return PriceQuote{}, fmt.Errorf("%w: %v", ErrPriceTransport, err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-cg-pro-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PriceQuote{}, fmt.Errorf("%w: %v", ErrPriceTransport, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return parseSimplePriceResponse(resp.Body)
	case http.StatusTooManyRequests:
		return PriceQuote{}, ErrPriceRateLimited
	default:
		body, _ := io.ReadAll(resp.Body)
		return PriceQuote{}, fmt.Errorf("%w: status %d: %s", ErrPriceProviderError, resp.StatusCode, string(body))
	}
}

func parseSimplePriceResponse(body io.Reader) (PriceQuote, error) {
	var payload map[string]map[string]float64
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return PriceQuote{}, fmt.Errorf("%w: %v", ErrPriceParse, err)
	}

	bitcoin, ok := payload["bitcoin"]
	if !ok {
		return PriceQuote{}, fmt.Errorf("%w: missing bitcoin key", ErrPriceParse)
	}

	usd, ok := bitcoin["usd"]
	if !ok {
		return PriceQuote{}, fmt.Errorf("%w: missing usd field", ErrPriceParse)
	}

	return PriceQuote{USD: usd, Change24h: bitcoin["usd_24h_change"]}, nil
}
