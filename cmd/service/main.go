package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/jakesky/internal/client"
	"github.com/kjstillabower/jakesky/internal/config"
	httphandler "github.com/kjstillabower/jakesky/internal/http"
	"github.com/kjstillabower/jakesky/internal/lifecycle"
	"github.com/kjstillabower/jakesky/internal/location"
	"github.com/kjstillabower/jakesky/internal/observability"
	"github.com/kjstillabower/jakesky/internal/service"
)

var version = "dev"

func main() {
	logger, err := observability.NewLogger(observability.LoggerOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn(".env", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	state := lifecycle.New(nil)

	weatherClient, err := client.NewDarkSkyClient(cfg.DarkSkyAPIKey, cfg.DarkSkyURL, cfg.ClientTimeout)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}
	deviceClient := client.NewDeviceAddressClient(cfg.ClientTimeout)

	var geocoder location.Geocoder
	var geocodioClient *client.GeocodioClient
	if cfg.GeocodioAPIKey != "" {
		geocodioClient, err = client.NewGeocodioClient(cfg.GeocodioAPIKey, cfg.GeocodioURL, cfg.ClientTimeout)
		if err != nil {
			logger.Fatal("geocoding client", zap.Error(err))
		}
		geocoder = geocodioClient
	} else {
		logger.Warn("geocoding disabled; address lookups will fail", zap.String("missing", "GEOCODIO_API_KEY"))
	}

	var breakers []*gobreaker.CircuitBreaker
	if cfg.BreakerEnabled {
		bc := client.BreakerConfig{
			FailureThreshold: uint32(cfg.BreakerFailureThreshold),
			Timeout:          cfg.BreakerOpenTimeout,
		}
		weatherCB := client.NewCircuitBreaker(client.UpstreamWeather, bc)
		weatherClient.SetCircuitBreaker(weatherCB)
		deviceCB := client.NewCircuitBreaker(client.UpstreamDeviceAddress, bc)
		deviceClient.SetCircuitBreaker(deviceCB)
		breakers = append(breakers, weatherCB, deviceCB)
		if geocodioClient != nil {
			geocodeCB := client.NewCircuitBreaker(client.UpstreamGeocoding, bc)
			geocodioClient.SetCircuitBreaker(geocodeCB)
			breakers = append(breakers, geocodeCB)
		}
		logger.Info("circuit breaker enabled", zap.Int("failure_threshold", cfg.BreakerFailureThreshold), zap.Duration("timeout", cfg.BreakerOpenTimeout))
	}

	resolver := location.NewResolver(geocoder, deviceClient, cfg.CountryCode)
	// The server never uses the response cache: the stored blob is not keyed by location.
	weatherService := service.NewWeatherService(weatherClient, nil)
	briefer := service.NewBriefer(resolver, weatherService, cfg.SkillID, cfg.ForecastHours)
	if cfg.SkillID == "" {
		logger.Warn("skill ID not configured; accepting requests for any application")
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(briefer, &httphandler.HealthConfig{
		Lifecycle: state,
		Breakers:  breakers,
		Version:   version,
	}, logger, cfg.MaxAddressLength)
	router := httphandler.NewRouter(handler, logger, limiter, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered", zap.Duration("uptime", state.Uptime()))
	state.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if err := observability.FlushTelemetry(logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
