package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/jakesky/internal/models"
)

func TestDeviceAddressClient_DeviceAddress_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/devices/amzn1.ask.device.XYZ/settings/address", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{
			"countryCode": "US",
			"addressLine1": "410 Terry Ave North",
			"addressLine2": "",
			"city": "Seattle",
			"stateOrRegion": "WA",
			"postalCode": "98109"
		}`))
	}))
	defer srv.Close()

	c := NewDeviceAddressClient(2 * time.Second)
	got, err := c.DeviceAddress(context.Background(), srv.URL+"/", "amzn1.ask.device.XYZ", "token-123")
	require.NoError(t, err)
	assert.Equal(t, models.DeviceAddress{
		CountryCode:   "US",
		AddressLine1:  "410 Terry Ave North",
		City:          "Seattle",
		StateOrRegion: "WA",
		PostalCode:    "98109",
	}, got)
}

func TestDeviceAddressClient_DeviceAddress_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"no address registered", http.StatusNoContent, ``, ErrNoDeviceAddress},
		{"permission not granted", http.StatusForbidden, `{"type":"FORBIDDEN"}`, ErrPermissionDenied},
		{"bad token", http.StatusUnauthorized, ``, ErrInvalidAPIKey},
		{"throttled", http.StatusTooManyRequests, ``, ErrRateLimited},
		{"server error", http.StatusInternalServerError, ``, ErrUpstreamFailure},
		{"malformed body", http.StatusOK, `not json`, ErrUnexpectedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewDeviceAddressClient(2*time.Second).DeviceAddress(context.Background(), srv.URL, "device", "token")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
