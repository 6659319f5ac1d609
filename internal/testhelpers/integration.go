//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/jakesky/internal/cache"
	"github.com/kjstillabower/jakesky/internal/client"
	"github.com/kjstillabower/jakesky/internal/location"
	"github.com/kjstillabower/jakesky/internal/service"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	DarkSkyAPIKey  string
	DarkSkyURL     string
	GeocodioAPIKey string
	GeocodioURL    string
	CacheBackend   string // "file" or "memcached"
	MemcachedAddr  string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips test if DARKSKY_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	apiKey := os.Getenv("DARKSKY_API_KEY")
	if apiKey == "" {
		t.Skip("DARKSKY_API_KEY not set, skipping integration test")
	}

	memcachedAddr := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddr == "" {
		memcachedAddr = "localhost:11211"
	}

	return IntegrationTestConfig{
		DarkSkyAPIKey:  apiKey,
		DarkSkyURL:     os.Getenv("DARKSKY_URL"),
		GeocodioAPIKey: os.Getenv("GEOCODIO_API_KEY"),
		GeocodioURL:    os.Getenv("GEOCODIO_URL"),
		CacheBackend:   os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr:  memcachedAddr,
	}
}

// SetupIntegrationStore returns the cache store selected by cfg. The file store lives in a
// per-test temp dir.
func SetupIntegrationStore(t *testing.T, cfg IntegrationTestConfig) cache.Store {
	t.Helper()
	if cfg.CacheBackend == "memcached" {
		mc := cache.NewMemcachedStore(cfg.MemcachedAddr, time.Hour, 500*time.Millisecond)
		if err := mc.Ping(); err != nil {
			t.Logf("Memcached not available (%v), using file store", err)
		} else {
			t.Cleanup(func() { _ = mc.Close() })
			t.Logf("Using Memcached store at %s", cfg.MemcachedAddr)
			return mc
		}
	}
	return cache.NewFileStore(t.TempDir()+"/darksky.json.gz", time.Hour, nil)
}

// SetupIntegrationBriefer creates a fully wired briefer against the live upstreams.
// Address lookups are unavailable when GEOCODIO_API_KEY is unset.
func SetupIntegrationBriefer(t *testing.T, cfg IntegrationTestConfig) *service.Briefer {
	t.Helper()
	weather, err := client.NewDarkSkyClient(cfg.DarkSkyAPIKey, cfg.DarkSkyURL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewDarkSkyClient() error = %v", err)
	}

	var geocoder location.Geocoder
	if cfg.GeocodioAPIKey != "" {
		g, err := client.NewGeocodioClient(cfg.GeocodioAPIKey, cfg.GeocodioURL, 5*time.Second)
		if err != nil {
			t.Fatalf("NewGeocodioClient() error = %v", err)
		}
		geocoder = g
	}

	resolver := location.NewResolver(geocoder, client.NewDeviceAddressClient(5*time.Second), "US")
	weatherService := service.NewWeatherService(weather, SetupIntegrationStore(t, cfg))
	return service.NewBriefer(resolver, weatherService, "", nil)
}
