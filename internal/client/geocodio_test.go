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

const (
	testGeocodioKey   = "geo-test-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

var testAddress = models.PostalAddress{
	Street:     "1600 Pennsylvania Ave NW",
	City:       "Washington",
	State:      "DC",
	PostalCode: "20500",
}

func testGeocodioClient(t *testing.T, baseURL string) *GeocodioClient {
	t.Helper()
	c, err := NewGeocodioClient(testGeocodioKey, baseURL, 2*time.Second)
	require.NoError(t, err)
	return c
}

func TestNewGeocodioClient_RequiresKey(t *testing.T) {
	_, err := NewGeocodioClient("", "", time.Second)
	require.ErrorIs(t, err, ErrInvalidAPIKey)

	c, err := NewGeocodioClient(testGeocodioKey, "", time.Second)
	require.NoError(t, err)
	assert.Equal(t, DefaultGeocodioURL, c.apiURL)
}

func TestGeocodioClient_Geocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1600 Pennsylvania Ave NW", q.Get("street"))
		assert.Equal(t, "Washington", q.Get("city"))
		assert.Equal(t, "DC", q.Get("state"))
		assert.Equal(t, "20500", q.Get("postal_code"))
		assert.Equal(t, testGeocodioKey, q.Get("api_key"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"results":[{"location":{"lat":38.8977,"lng":-77.0365},"accuracy":1}]}`))
	}))
	defer srv.Close()

	got, err := testGeocodioClient(t, srv.URL).Geocode(context.Background(), testAddress)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 38.8977, got[0].Latitude)
	assert.Equal(t, -77.0365, got[0].Longitude)
}

func TestGeocodioClient_Geocode_MultipleResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"results":[{"location":{"lat":1,"lng":2}},{"location":{"lat":3,"lng":4}}]}`))
	}))
	defer srv.Close()

	got, err := testGeocodioClient(t, srv.URL).Geocode(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Equal(t, []models.Coordinates{{Latitude: 1, Longitude: 2}, {Latitude: 3, Longitude: 4}}, got)
}

func TestGeocodioClient_Geocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	got, err := testGeocodioClient(t, srv.URL).Geocode(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGeocodioClient_Geocode_UnparseableAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"Could not geocode address"}`))
	}))
	defer srv.Close()

	got, err := testGeocodioClient(t, srv.URL).Geocode(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGeocodioClient_Geocode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"forbidden", http.StatusForbidden, `{"error":"Invalid API key"}`, ErrInvalidAPIKey},
		{"rate limited", http.StatusTooManyRequests, ``, ErrRateLimited},
		{"server error", http.StatusInternalServerError, ``, ErrUpstreamFailure},
		{"malformed body", http.StatusOK, `{"results":`, ErrUnexpectedResponse},
		{"missing location", http.StatusOK, `{"results":[{"accuracy":1}]}`, ErrUnexpectedResponse},
		{"missing lng", http.StatusOK, `{"results":[{"location":{"lat":1}}]}`, ErrUnexpectedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set(headerContentType, contentTypeJSON)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := testGeocodioClient(t, srv.URL).Geocode(context.Background(), testAddress)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
