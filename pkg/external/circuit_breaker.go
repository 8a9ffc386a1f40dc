package external

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/health-risk-server/internal/domain"
)

// Default breaker tunables, used for any zero field of domain.BreakerConfig.
const (
	DefaultBreakerMaxRequests  = 5
	DefaultBreakerInterval     = 30 * time.Second
	DefaultBreakerTimeout      = 60 * time.Second
	DefaultBreakerFailureRatio = 0.6
	DefaultBreakerMinRequests  = 3
)

// NewCircuitBreaker builds a breaker that trips once at least MinRequests
// calls were made in the interval and FailureRatio of them failed. Rejections
// with a 4xx status are the caller's fault and do not count as failures.
func NewCircuitBreaker(name string, cfg domain.BreakerConfig, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = DefaultBreakerMaxRequests
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultBreakerInterval
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultBreakerTimeout
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = DefaultBreakerFailureRatio
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = DefaultBreakerMinRequests
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			if rateLimited(err) {
				return true
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}
