package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/jakesky/internal/alexa"
	"github.com/kjstillabower/jakesky/internal/forecast"
	"github.com/kjstillabower/jakesky/internal/location"
	"github.com/kjstillabower/jakesky/internal/models"
	"github.com/kjstillabower/jakesky/internal/observability"
	"github.com/kjstillabower/jakesky/internal/speech"
)

// Briefing modes, used as the mode label of briefingsTotal.
const (
	ModeInteractive = "interactive"
	ModeSkill       = "skill"
	ModeForecast    = "forecast"
)

// LocationResolver turns a location source into coordinates; see location.Resolver.
type LocationResolver interface {
	Resolve(ctx context.Context, src location.Source) (models.Coordinates, error)
}

// Briefing is a rendered forecast and the observations it was built from.
type Briefing struct {
	Coordinates  models.Coordinates   `json:"coordinates"`
	Observations []models.Observation `json:"observations"`
	Text         string               `json:"text"`
}

// Briefer composes location resolution, forecast retrieval and speech formatting.
type Briefer struct {
	resolver LocationResolver
	weather  *WeatherService
	skillID  string
	hours    []int
}

// NewBriefer creates a Briefer. skillID, when set, is the only application ID HandleSkill accepts.
// hours overrides forecast.DefaultHours when non-empty.
func NewBriefer(resolver LocationResolver, weather *WeatherService, skillID string, hours []int) *Briefer {
	return &Briefer{
		resolver: resolver,
		weather:  weather,
		skillID:  skillID,
		hours:    hours,
	}
}

// Interactive produces the spoken summary for a command-line run.
func (b *Briefer) Interactive(ctx context.Context, src location.Source, useCache bool) (string, error) {
	br, err := b.brief(ctx, ModeInteractive, src, useCache, false)
	if err != nil {
		return "", err
	}
	return br.Text, nil
}

// Forecast produces a briefing for the HTTP forecast endpoint. The response cache is never used.
func (b *Briefer) Forecast(ctx context.Context, src location.Source) (*Briefing, error) {
	return b.brief(ctx, ModeForecast, src, false, false)
}

// HandleSkill answers a skill invocation. Scheduled warmup triggers return (nil, nil) without
// touching any upstream.
func (b *Briefer) HandleSkill(ctx context.Context, req *alexa.Request) (*alexa.Response, error) {
	logger := observability.LoggerFromContext(ctx)

	if req.IsWarmup() {
		observability.SkillWarmupsTotal.Inc()
		observability.RecordBriefing(ModeSkill, "skipped")
		logger.Info("not executing during warmup call")
		return nil, nil
	}

	if err := req.VerifyApplication(b.skillID); err != nil {
		observability.RecordBriefing(ModeSkill, "error")
		logger.Error("rejecting skill request",
			zap.String("application_id", req.ApplicationID()),
			zap.String("expected", b.skillID))
		return nil, err
	}

	deviceID, apiEndpoint, accessToken := req.DeviceInfo()
	src := location.Device{DeviceID: deviceID, APIEndpoint: apiEndpoint, AccessToken: accessToken}

	br, err := b.brief(ctx, ModeSkill, src, false, true)
	if err != nil {
		return nil, err
	}
	return alexa.NewSpeechResponse(br.Text), nil
}

func (b *Briefer) brief(ctx context.Context, mode string, src location.Source, useCache, weekendExtra bool) (*Briefing, error) {
	br, err := b.run(ctx, src, useCache, weekendExtra)
	if err != nil {
		observability.RecordBriefing(mode, "error")
		return nil, err
	}
	observability.RecordBriefing(mode, "success")
	observability.LoggerFromContext(ctx).Info("will speak", zap.String("mode", mode), zap.String("text", br.Text))
	return br, nil
}

func (b *Briefer) run(ctx context.Context, src location.Source, useCache, weekendExtra bool) (*Briefing, error) {
	coords, err := b.resolver.Resolve(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("resolve location: %w", err)
	}

	obs, err := b.weather.GetObservations(ctx, coords, useCache, forecast.Options{
		Hours:        b.hours,
		WeekendExtra: weekendExtra,
	})
	if err != nil {
		return nil, err
	}

	text, err := speech.Format(obs)
	if err != nil {
		return nil, fmt.Errorf("format speech: %w", err)
	}
	return &Briefing{Coordinates: coords, Observations: obs, Text: text}, nil
}
