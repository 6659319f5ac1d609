package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kjstillabower/jakesky/internal/models"
	"github.com/kjstillabower/jakesky/internal/observability"
)

// DefaultGeocodioURL is the Geocodio forward geocoding endpoint.
const DefaultGeocodioURL = "https://api.geocod.io/v1.6/geocode"

// GeocodioClient implements location.Geocoder with the Geocodio structured-address API.
type GeocodioClient struct {
	apiKey  string
	apiURL  string
	timeout time.Duration
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
}

// NewGeocodioClient creates a Geocodio client. An empty apiURL selects DefaultGeocodioURL.
func NewGeocodioClient(apiKey, apiURL string, timeout time.Duration) (*GeocodioClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: geocoding API key is required", ErrInvalidAPIKey)
	}
	if apiURL == "" {
		apiURL = DefaultGeocodioURL
	}

	return &GeocodioClient{
		apiKey:  apiKey,
		apiURL:  apiURL,
		timeout: timeout,
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}, nil
}

// SetCircuitBreaker installs cb around every upstream call. Pass nil to disable.
func (c *GeocodioClient) SetCircuitBreaker(cb *gobreaker.CircuitBreaker) {
	c.breaker = cb
}

type geocodioResponse struct {
	Results []struct {
		Location *struct {
			Lat *float64 `json:"lat"`
			Lng *float64 `json:"lng"`
		} `json:"location"`
		Accuracy float64 `json:"accuracy"`
	} `json:"results"`
}

// Geocode returns every candidate location Geocodio reports for addr, best match first. An
// address Geocodio cannot parse yields no candidates rather than an error.
func (c *GeocodioClient) Geocode(ctx context.Context, addr models.PostalAddress) ([]models.Coordinates, error) {
	var coords []models.Coordinates
	err := execute(c.breaker, UpstreamGeocoding, func() error {
		var callErr error
		coords, callErr = c.callAPI(ctx, addr)
		return callErr
	})
	if err != nil {
		recordFailure(UpstreamGeocoding, err)
		return nil, err
	}
	return coords, nil
}

func (c *GeocodioClient) callAPI(ctx context.Context, addr models.PostalAddress) ([]models.Coordinates, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := c.http.R().
		SetContext(reqCtx).
		SetQueryParams(map[string]string{
			"street":      addr.Street,
			"city":        addr.City,
			"state":       addr.State,
			"postal_code": addr.PostalCode,
			"api_key":     c.apiKey,
		})
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.SetHeader("X-Correlation-ID", corrID)
	}

	start := time.Now()
	resp, err := req.Get(c.apiURL)
	if err != nil {
		observability.RecordUpstreamCall(UpstreamGeocoding, "error", time.Since(start).Seconds())
		if isTimeout(err) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	observability.RecordUpstreamCall(UpstreamGeocoding, statusLabel(resp.StatusCode()), resp.Time().Seconds())

	if resp.StatusCode() == http.StatusUnprocessableEntity {
		observability.LoggerFromContext(ctx).Debug("geocoder could not parse address", zap.String("body", resp.String()))
		return nil, nil
	}
	if err := statusError(resp.StatusCode()); err != nil {
		return nil, err
	}

	var parsed geocodioResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode geocoding response: %v", ErrUnexpectedResponse, err)
	}

	coords := make([]models.Coordinates, 0, len(parsed.Results))
	for i, r := range parsed.Results {
		if r.Location == nil || r.Location.Lat == nil || r.Location.Lng == nil {
			return nil, fmt.Errorf("%w: geocoding result %d has no location", ErrUnexpectedResponse, i)
		}
		coords = append(coords, models.Coordinates{Latitude: *r.Location.Lat, Longitude: *r.Location.Lng})
	}
	return coords, nil
}
