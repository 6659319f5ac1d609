package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/kjstillabower/jakesky/internal/cache"
	"github.com/kjstillabower/jakesky/internal/location"
	"github.com/kjstillabower/jakesky/internal/validation"
)

// EnvPrefix prefixes every environment fallback of a command-line flag.
const EnvPrefix = "JAKESKY_"

// Cache backends selectable with --cache-backend.
const (
	CacheBackendFile      = "file"
	CacheBackendMemcached = "memcached"
)

var ErrInvalidCLIConfig = errors.New("invalid configuration")

// CLIConfig holds the command-line tool's settings after flags and environment are merged.
type CLIConfig struct {
	Verbose  bool
	UseCache bool

	Latitude  string
	Longitude string
	Address   string

	CacheBackend   string        `validate:"oneof=file memcached"`
	CacheFile      string        `validate:"required_if=CacheBackend file"`
	CacheMaxAge    time.Duration `validate:"gte=0"`
	MemcachedAddrs string        `validate:"required_if=CacheBackend memcached"`

	Timeout time.Duration `validate:"gt=0"`

	DarkSkyKey  string `validate:"required"`
	DarkSkyURL  string
	GeocodioKey string
	GeocodioURL string
}

// RegisterCLIFlags defines the command-line flags LoadCLI reads. Latitude and longitude are
// strings so an unset flag can fall back to the environment.
func RegisterCLIFlags(fs *pflag.FlagSet) {
	fs.BoolP("verbose", "v", false, "enable debug logging")
	fs.Bool("use-cache", false, "read the forecast from the cache when present and store every live response")
	fs.String("latitude", "", "latitude of the location to brief")
	fs.String("longitude", "", "longitude of the location to brief")
	fs.String("address", "", `one-line US address, e.g. "1600 Pennsylvania Ave NW Washington DC 20500"`)
	fs.String("cache-backend", CacheBackendFile, "response cache backend: file or memcached")
	fs.String("cache-file", cache.DefaultFilePath, "gzip file the file cache backend uses")
	fs.Duration("cache-max-age", 0, "ignore cached responses older than this (0 keeps them forever)")
	fs.String("memcached-addrs", "localhost:11211", "comma-separated memcached servers")
	fs.Duration("timeout", DefaultClientTimeout, "timeout for each upstream call")
	fs.String("darksky-url", "", "override the weather provider endpoint")
	fs.String("geocodio-url", "", "override the geocoding provider endpoint")
}

// envKey maps JAKESKY_CACHE_MAX_AGE to cache-max-age; JAKESKY_KEY becomes key.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", "-")
}

// LoadCLI merges JAKESKY_* environment variables with fs. Flags set on the command line win over
// the environment, which wins over flag defaults. The API keys are environment only:
// JAKESKY_KEY for the weather provider and JAKESKY_GEOCODIO_KEY for the geocoder.
func LoadCLI(fs *pflag.FlagSet) (*CLIConfig, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, fmt.Errorf("load flags: %w", err)
	}

	cfg := &CLIConfig{
		Verbose:        k.Bool("verbose"),
		UseCache:       k.Bool("use-cache"),
		Latitude:       strings.TrimSpace(k.String("latitude")),
		Longitude:      strings.TrimSpace(k.String("longitude")),
		Address:        strings.TrimSpace(k.String("address")),
		CacheBackend:   strings.ToLower(strings.TrimSpace(k.String("cache-backend"))),
		CacheFile:      k.String("cache-file"),
		CacheMaxAge:    k.Duration("cache-max-age"),
		MemcachedAddrs: k.String("memcached-addrs"),
		Timeout:        k.Duration("timeout"),
		DarkSkyKey:     k.String("key"),
		DarkSkyURL:     k.String("darksky-url"),
		GeocodioKey:    k.String("geocodio-key"),
		GeocodioURL:    k.String("geocodio-url"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCLIConfig, err)
	}
	return cfg, nil
}

// LocationSource returns where the briefing should be given for. Coordinates take precedence
// over an address. An address needs a geocoding key.
func (c *CLIConfig) LocationSource() (location.Source, error) {
	if c.Latitude != "" || c.Longitude != "" {
		if c.Latitude == "" || c.Longitude == "" {
			return nil, fmt.Errorf("%w: latitude and longitude must be given together", location.ErrMissingLocation)
		}
		coords, err := validation.ParseCoordinates(c.Latitude, c.Longitude)
		if err != nil {
			return nil, err
		}
		return location.Explicit{Latitude: &coords.Latitude, Longitude: &coords.Longitude}, nil
	}
	if c.Address != "" {
		if c.GeocodioKey == "" {
			return nil, fmt.Errorf("%w: %sGEOCODIO_KEY is required with --address", ErrInvalidCLIConfig, EnvPrefix)
		}
		return location.AddressString(c.Address), nil
	}
	return nil, fmt.Errorf("%w: pass --latitude and --longitude, or --address", location.ErrMissingLocation)
}
