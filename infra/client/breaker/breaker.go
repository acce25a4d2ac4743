// Package breaker guards backend calls with a circuit breaker per backend.
package breaker

import (
	"errors"
	"log/slog"

	"github.com/sony/gobreaker"

	"github.com/webitel/benefit-solver/config"
	"github.com/webitel/benefit-solver/infra/client/soap"
	"github.com/webitel/benefit-solver/internal/metrics"
)

// New returns a breaker that opens after cfg.FailureThreshold consecutive failures.
// SOAP faults are answers, not outages, and do not count against the backend.
func New(name string, cfg config.BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	metrics.BreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, soap.ErrFault)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("BREAKER_STATE_CHANGED", "backend", name, "from", from.String(), "to", to.String())
		},
	})
}

// Do runs fn through cb.
func Do[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}
