// Command jakesky prints a spoken-style weather briefing for one location.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/jakesky/internal/cache"
	"github.com/kjstillabower/jakesky/internal/client"
	"github.com/kjstillabower/jakesky/internal/config"
	"github.com/kjstillabower/jakesky/internal/location"
	"github.com/kjstillabower/jakesky/internal/observability"
	"github.com/kjstillabower/jakesky/internal/service"
)

// errLogged marks errors already reported through the logger.
var errLogged = errors.New("logged")

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errLogged) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jakesky",
		Short: "Speak the weather for the rest of the day",
		Long: `jakesky fetches the hourly forecast for a location and prints what a voice assistant
would say: current conditions plus the commute, lunch and evening hours ahead.

API keys come from the environment (a .env file is read when present):
  JAKESKY_KEY           weather provider key (required)
  JAKESKY_GEOCODIO_KEY  geocoding key, required with --address

Every flag can also be set as JAKESKY_<FLAG>, e.g. JAKESKY_CACHE_MAX_AGE=15m.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	config.RegisterCLIFlags(cmd.Flags())
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	// The flag alone picks the level until the merged config says otherwise.
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger, err := observability.NewLogger(observability.LoggerOptions{Verbose: verbose, Console: true})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = observability.FlushTelemetry(logger) }()

	cfg, err := config.LoadCLI(cmd.Flags())
	if err != nil {
		return logFailure(logger, "invalid configuration", err)
	}
	if cfg.Verbose && !verbose {
		if l, err := observability.NewLogger(observability.LoggerOptions{Verbose: true, Console: true}); err == nil {
			logger = l
		}
	}
	src, err := cfg.LocationSource()
	if err != nil {
		return logFailure(logger, "no usable location", err)
	}

	weatherClient, err := client.NewDarkSkyClient(cfg.DarkSkyKey, cfg.DarkSkyURL, cfg.Timeout)
	if err != nil {
		return logFailure(logger, "weather client", err)
	}
	var geocoder location.Geocoder
	if cfg.GeocodioKey != "" {
		g, err := client.NewGeocodioClient(cfg.GeocodioKey, cfg.GeocodioURL, cfg.Timeout)
		if err != nil {
			return logFailure(logger, "geocoding client", err)
		}
		geocoder = g
	}

	var store cache.Store
	if cfg.UseCache {
		switch cfg.CacheBackend {
		case config.CacheBackendMemcached:
			mc := cache.NewMemcachedStore(cfg.MemcachedAddrs, cfg.CacheMaxAge, cfg.Timeout)
			defer func() { _ = mc.Close() }()
			store = mc
		default:
			store = cache.NewFileStore(cfg.CacheFile, cfg.CacheMaxAge, nil)
		}
		logger.Debug("response cache enabled", zap.String("backend", cfg.CacheBackend))
	}

	resolver := location.NewResolver(geocoder, nil, "")
	briefer := service.NewBriefer(resolver, service.NewWeatherService(weatherClient, store), "", nil)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	text, err := briefer.Interactive(ctx, src, cfg.UseCache)
	if err != nil {
		return logFailure(logger, "briefing failed", err, zap.String("category", string(client.CategorizeError(err))))
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

// logFailure reports err through logger and marks it so main does not print it again.
func logFailure(logger *zap.Logger, msg string, err error, fields ...zap.Field) error {
	logger.Error(msg, append(fields, zap.Error(err))...)
	return fmt.Errorf("%w: %w", errLogged, err)
}
