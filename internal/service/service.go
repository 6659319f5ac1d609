package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/jakesky/internal/cache"
	"github.com/kjstillabower/jakesky/internal/client"
	"github.com/kjstillabower/jakesky/internal/forecast"
	"github.com/kjstillabower/jakesky/internal/models"
	"github.com/kjstillabower/jakesky/internal/observability"
)

// WeatherService fetches the raw forecast, optionally through a response store, and turns it into
// the observations worth announcing.
type WeatherService struct {
	client client.WeatherClient
	store  cache.Store
}

// NewWeatherService creates a WeatherService. store may be nil, which disables cache mode.
func NewWeatherService(client client.WeatherClient, store cache.Store) *WeatherService {
	return &WeatherService{
		client: client,
		store:  store,
	}
}

// Fetch returns the raw forecast for coords. With useCache, a stored blob is returned without
// calling the provider, and every live response is stored. The stored blob is not keyed by
// location.
func (s *WeatherService) Fetch(ctx context.Context, coords models.Coordinates, useCache bool) ([]byte, error) {
	logger := observability.LoggerFromContext(ctx)
	useCache = useCache && s.store != nil

	if useCache {
		cached, ok, err := s.store.Get(ctx)
		switch {
		case err != nil:
			observability.CacheLookupsTotal.WithLabelValues("error").Inc()
			logger.Warn("cache read failed, fetching upstream", zap.Error(err))
		case ok:
			observability.CacheLookupsTotal.WithLabelValues("hit").Inc()
			logger.Debug("using cached forecast", zap.Int("bytes", len(cached)))
			return cached, nil
		default:
			observability.CacheLookupsTotal.WithLabelValues("miss").Inc()
			logger.Debug("cache miss, fetching upstream")
		}
	}

	start := time.Now()
	raw, err := s.client.GetForecast(ctx, coords)
	if err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}
	logger.Debug("forecast fetched", zap.Duration("duration", time.Since(start)), zap.Int("bytes", len(raw)))

	if useCache {
		if err := s.store.Put(ctx, raw); err != nil {
			logger.Warn("cache write failed", zap.Error(err))
		}
	}
	return raw, nil
}

// GetObservations fetches and normalizes the forecast for coords.
func (s *WeatherService) GetObservations(ctx context.Context, coords models.Coordinates, useCache bool, opts forecast.Options) ([]models.Observation, error) {
	raw, err := s.Fetch(ctx, coords, useCache)
	if err != nil {
		return nil, err
	}
	resp, err := forecast.Decode(raw)
	if err != nil {
		return nil, err
	}

	obs := forecast.Normalize(resp, opts)
	logger := observability.LoggerFromContext(ctx)
	for _, o := range obs {
		logger.Debug("observation",
			zap.Time("timestamp", o.Timestamp),
			zap.String("summary", o.Summary),
			zap.Float64("temperature", o.Temperature))
	}
	return obs, nil
}
