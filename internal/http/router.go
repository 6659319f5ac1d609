package http

import (
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/jakesky/internal/observability"
)

// NewRouter wires the handler's routes. Rate limiting and the request timeout apply only to
// /alexa and /forecast.
func NewRouter(h *Handler, logger *zap.Logger, limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler()).Methods("GET")

	upstream := router.NewRoute().Subrouter()
	upstream.Use(RateLimitMiddleware(limiter))
	if requestTimeout > 0 {
		upstream.Use(TimeoutMiddleware(requestTimeout))
	}
	upstream.HandleFunc("/alexa", h.PostAlexa).Methods("POST")
	upstream.HandleFunc("/forecast", h.GetForecast).Methods("GET")

	return router
}
