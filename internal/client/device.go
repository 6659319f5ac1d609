package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/kjstillabower/jakesky/internal/models"
	"github.com/kjstillabower/jakesky/internal/observability"
)

// ErrNoDeviceAddress means the device owner has not registered an address.
var ErrNoDeviceAddress = errors.New("device has no address")

// DeviceAddressClient implements location.DeviceLocator with the Alexa device address API. The
// endpoint and token arrive with each skill request, so the client holds no credentials.
type DeviceAddressClient struct {
	timeout time.Duration
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
}

func NewDeviceAddressClient(timeout time.Duration) *DeviceAddressClient {
	return &DeviceAddressClient{
		timeout: timeout,
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// SetCircuitBreaker installs cb around every upstream call. Pass nil to disable.
func (c *DeviceAddressClient) SetCircuitBreaker(cb *gobreaker.CircuitBreaker) {
	c.breaker = cb
}

// DeviceAddress fetches the full registered address of deviceID.
func (c *DeviceAddressClient) DeviceAddress(ctx context.Context, apiEndpoint, deviceID, accessToken string) (models.DeviceAddress, error) {
	var addr models.DeviceAddress
	err := execute(c.breaker, UpstreamDeviceAddress, func() error {
		var callErr error
		addr, callErr = c.callAPI(ctx, apiEndpoint, deviceID, accessToken)
		return callErr
	})
	if err != nil {
		recordFailure(UpstreamDeviceAddress, err)
		return models.DeviceAddress{}, err
	}
	return addr, nil
}

func (c *DeviceAddressClient) callAPI(ctx context.Context, apiEndpoint, deviceID, accessToken string) (models.DeviceAddress, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v1/devices/%s/settings/address",
		strings.TrimRight(apiEndpoint, "/"), url.PathEscape(deviceID))

	req := c.http.R().
		SetContext(reqCtx).
		SetAuthToken(accessToken)
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.SetHeader("X-Correlation-ID", corrID)
	}

	start := time.Now()
	resp, err := req.Get(endpoint)
	if err != nil {
		observability.RecordUpstreamCall(UpstreamDeviceAddress, "error", time.Since(start).Seconds())
		if isTimeout(err) {
			return models.DeviceAddress{}, fmt.Errorf("request timeout: %w", err)
		}
		return models.DeviceAddress{}, fmt.Errorf("http request failed: %w", err)
	}
	observability.RecordUpstreamCall(UpstreamDeviceAddress, statusLabel(resp.StatusCode()), resp.Time().Seconds())

	switch resp.StatusCode() {
	case http.StatusNoContent:
		return models.DeviceAddress{}, ErrNoDeviceAddress
	case http.StatusForbidden:
		// The user has not granted the address permission to the skill.
		return models.DeviceAddress{}, fmt.Errorf("%w: HTTP %d", ErrPermissionDenied, resp.StatusCode())
	}
	if err := statusError(resp.StatusCode()); err != nil {
		return models.DeviceAddress{}, err
	}

	var addr models.DeviceAddress
	if err := json.Unmarshal(resp.Body(), &addr); err != nil {
		return models.DeviceAddress{}, fmt.Errorf("%w: decode device address: %v", ErrUnexpectedResponse, err)
	}
	return addr, nil
}
