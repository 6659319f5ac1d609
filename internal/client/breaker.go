package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kjstillabower/jakesky/internal/observability"
)

// BreakerConfig holds circuit breaker parameters for one upstream.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold uint32
	// HalfOpenRequests is the number of probe requests allowed while half-open.
	HalfOpenRequests uint32
	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration
}

// NewCircuitBreaker builds a breaker for upstream that reports its state to the circuitBreakerState gauge.
func NewCircuitBreaker(upstream string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	observability.CircuitBreakerState.WithLabelValues(upstream).Set(stateValue(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        upstream,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// execute runs fn through cb when one is configured. Only failures that say something about
// upstream health count against the breaker; a rejected key or a missing resource is passed
// through without tripping it.
func execute(cb *gobreaker.CircuitBreaker, upstream string, fn func() error) error {
	if cb == nil {
		return fn()
	}

	var callErr error
	_, err := cb.Execute(func() (interface{}, error) {
		callErr = fn()
		if callErr != nil && tripsBreaker(callErr) {
			return nil, callErr
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s", ErrCircuitOpen, upstream)
	}
	if err != nil {
		return err
	}
	return callErr
}

func tripsBreaker(err error) bool {
	switch {
	case errors.Is(err, ErrUpstreamFailure), errors.Is(err, ErrRateLimited):
		return true
	case errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, context.Canceled):
		// The caller gave up; says nothing about the upstream.
		return false
	case errors.Is(err, ErrInvalidAPIKey), errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrUnexpectedResponse):
		return false
	}
	// Transport failures (DNS, connection refused, TLS).
	return true
}
