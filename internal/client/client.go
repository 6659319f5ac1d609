package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kjstillabower/jakesky/internal/models"
	"github.com/kjstillabower/jakesky/internal/observability"
)

// WeatherClient fetches the raw current and hourly forecast for a location. The body is returned
// unparsed so it can be cached verbatim; see forecast.Decode.
type WeatherClient interface {
	GetForecast(ctx context.Context, coords models.Coordinates) ([]byte, error)
}

var (
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrNotFound           = errors.New("not found")
	ErrUpstreamFailure    = errors.New("upstream failure")
	ErrRateLimited        = errors.New("rate limited")
	ErrCircuitOpen        = errors.New("circuit breaker open")
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// Upstream names label metrics and circuit breakers.
const (
	UpstreamWeather       = "weather"
	UpstreamGeocoding     = "geocoding"
	UpstreamDeviceAddress = "device_address"

	// DarkSky responses with only current and hourly blocks are ~30KB.
	maxResponseBytes = 4 << 20
)

// DefaultDarkSkyURL is the forecast endpoint; the key and coordinates are appended as path segments.
const DefaultDarkSkyURL = "https://api.darksky.net/forecast"

// DarkSkyClient calls the DarkSky forecast API. Calls are never retried; an optional circuit
// breaker fails fast while the upstream is unhealthy.
type DarkSkyClient struct {
	apiKey  string
	apiURL  string
	timeout time.Duration
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewDarkSkyClient(apiKey, apiURL string, timeout time.Duration) (*DarkSkyClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}
	if apiURL == "" {
		apiURL = DefaultDarkSkyURL
	}

	return &DarkSkyClient{
		apiKey:  apiKey,
		apiURL:  strings.TrimRight(apiURL, "/"),
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// SetCircuitBreaker installs cb around every upstream call. Pass nil to disable.
func (c *DarkSkyClient) SetCircuitBreaker(cb *gobreaker.CircuitBreaker) {
	c.breaker = cb
}

// GetForecast returns the raw JSON forecast for coords, limited to the current and hourly blocks.
func (c *DarkSkyClient) GetForecast(ctx context.Context, coords models.Coordinates) ([]byte, error) {
	var body []byte
	err := execute(c.breaker, UpstreamWeather, func() error {
		var callErr error
		body, callErr = c.callAPI(ctx, coords)
		return callErr
	})
	if err != nil {
		recordFailure(UpstreamWeather, err)
		return nil, err
	}
	return body, nil
}

func (c *DarkSkyClient) callAPI(ctx context.Context, coords models.Coordinates) ([]byte, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, coords)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	logger := observability.LoggerFromContext(ctx)
	logger.Debug("querying weather provider")

	resp, err := c.client.Do(req)
	if err != nil {
		observability.RecordUpstreamCall(UpstreamWeather, "error", time.Since(start).Seconds())
		if isTimeout(err) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	observability.RecordUpstreamCall(UpstreamWeather, statusLabel(resp.StatusCode), time.Since(start).Seconds())

	if err := statusError(resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

func (c *DarkSkyClient) buildRequest(ctx context.Context, coords models.Coordinates) (*http.Request, error) {
	endpoint := fmt.Sprintf("%s/%s/%f,%f", c.apiURL, url.PathEscape(c.apiKey), coords.Latitude, coords.Longitude)
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	// Only the current and hourly blocks are used.
	params := url.Values{}
	params.Set("exclude", "minutely,daily,flags")
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

// statusError maps provider status codes to sentinel errors; nil for 2xx.
func statusError(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrInvalidAPIKey, code)
	case http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d", ErrNotFound, code)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	}

	if code < 200 || code >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, code)
	}
	return nil
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// isTimeout reports whether err came from the request deadline, the caller cancelling, or the
// http.Client timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func recordFailure(upstream string, err error) {
	observability.UpstreamErrorsTotal.WithLabelValues(upstream, string(CategorizeError(err))).Inc()
}
