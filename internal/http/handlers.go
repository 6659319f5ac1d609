package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kjstillabower/jakesky/internal/alexa"
	"github.com/kjstillabower/jakesky/internal/client"
	"github.com/kjstillabower/jakesky/internal/forecast"
	"github.com/kjstillabower/jakesky/internal/lifecycle"
	"github.com/kjstillabower/jakesky/internal/location"
	"github.com/kjstillabower/jakesky/internal/observability"
	"github.com/kjstillabower/jakesky/internal/service"
	"github.com/kjstillabower/jakesky/internal/validation"
)

// Skill request envelopes are a few KB.
const maxSkillRequestBytes = 1 << 20

// Briefer produces briefings; see service.Briefer.
type Briefer interface {
	HandleSkill(ctx context.Context, req *alexa.Request) (*alexa.Response, error)
	Forecast(ctx context.Context, src location.Source) (*service.Briefing, error)
}

// HealthConfig holds what the health handler reports on.
type HealthConfig struct {
	Lifecycle *lifecycle.State
	// Breakers are reported per upstream; any open breaker marks the service degraded.
	Breakers []*gobreaker.CircuitBreaker
	Version  string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	briefer          Briefer
	healthConfig     *HealthConfig
	logger           *zap.Logger
	maxAddressLength int
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. maxAddressLength bounds the address query parameter.
func NewHandler(briefer Briefer, healthConfig *HealthConfig, logger *zap.Logger, maxAddressLength int) *Handler {
	if healthConfig == nil {
		healthConfig = &HealthConfig{}
	}
	if healthConfig.Lifecycle == nil {
		healthConfig.Lifecycle = lifecycle.New(nil)
	}
	return &Handler{
		briefer:          briefer,
		healthConfig:     healthConfig,
		logger:           logger,
		maxAddressLength: maxAddressLength,
	}
}

// PostAlexa handles POST /alexa. Warmup triggers get 204 No Content.
func (h *Handler) PostAlexa(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSkillRequestBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "unable to read request body")
		return
	}
	req, err := alexa.Parse(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "request body is not a skill request")
		return
	}

	resp, err := h.briefer.HandleSkill(r.Context(), req)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error("skill request failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "SKILL_FAILED", "Unable to produce a weather briefing")
		return
	}
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetForecast handles GET /forecast?lat=&lon= or GET /forecast?address=.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, lon, address := q.Get("lat"), q.Get("lon"), q.Get("address")

	var src location.Source
	switch {
	case lat != "" || lon != "":
		if lat == "" || lon == "" {
			writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", "lat and lon must be given together")
			return
		}
		coords, err := validation.ParseCoordinates(lat, lon)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
			return
		}
		src = location.Explicit{Latitude: &coords.Latitude, Longitude: &coords.Longitude}
	case address != "":
		addr, err := validation.ValidateAddress(address, h.maxAddressLength)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
			return
		}
		src = location.AddressString(addr)
	default:
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", "lat and lon, or address, is required")
		return
	}

	br, err := h.briefer.Forecast(r.Context(), src)
	if err != nil {
		writeBriefingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, br)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string, len(h.healthConfig.Breakers))
	for _, cb := range h.healthConfig.Breakers {
		checks[cb.Name()] = cb.State().String()
	}
	version := h.healthConfig.Version
	if version == "" {
		version = "dev"
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "jakesky",
		"version":   version,
		"checks":    checks,
		"uptime":    h.healthConfig.Lifecycle.Uptime().String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates conditions in priority order: shutting-down > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if h.healthConfig.Lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	var open []string
	for _, cb := range h.healthConfig.Breakers {
		if cb.State() == gobreaker.StateOpen {
			open = append(open, cb.Name())
		}
	}
	if len(open) > 0 {
		sort.Strings(open)
		return healthResult{"degraded", http.StatusServiceUnavailable, "circuit_open:" + strings.Join(open, ",")}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

// writeBriefingError maps a briefing failure to a response: location problems are the caller's
// (400), upstream problems are 502, anything else is 500.
func writeBriefingError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.LoggerFromContext(r.Context())

	switch {
	case errors.Is(err, location.ErrMissingLocation),
		errors.Is(err, location.ErrInvalidAddress),
		errors.Is(err, validation.ErrCoordinatesInvalid),
		errors.Is(err, validation.ErrCoordinatesOutOfRange):
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
	case errors.Is(err, location.ErrGeocoding):
		writeError(w, r, http.StatusBadRequest, "LOCATION_NOT_FOUND", "address could not be geocoded to a single location")
	case errors.Is(err, location.ErrUnsupportedRegion):
		writeError(w, r, http.StatusBadRequest, "UNSUPPORTED_REGION", err.Error())
	case errors.Is(err, forecast.ErrMalformedResponse),
		errors.Is(err, client.ErrCircuitOpen),
		errors.Is(err, client.ErrUpstreamFailure),
		errors.Is(err, client.ErrRateLimited),
		errors.Is(err, client.ErrInvalidAPIKey),
		errors.Is(err, client.ErrNotFound),
		errors.Is(err, client.ErrUnexpectedResponse),
		errors.Is(err, context.DeadlineExceeded):
		logger.Warn("upstream error", zap.Error(err), zap.String("category", string(client.CategorizeError(err))))
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "Unable to fetch weather data")
	default:
		logger.Error("briefing failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "Unable to produce a weather briefing")
	}
}
