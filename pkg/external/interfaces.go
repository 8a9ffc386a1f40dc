// Package external talks to the remote machine-learning prediction service.
// Calls are rate limited, guarded by a circuit breaker and cached.
package external

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/health-risk-server/internal/domain"
)

// PredictionService defines the remote scoring operations
type PredictionService interface {
	PredictDiabetes(ctx context.Context, vitals DiabetesVitals) (*Prediction, error)
	PredictKidney(ctx context.Context, vitals KidneyVitals) (*Prediction, error)
	Recommendations(ctx context.Context, req RecommendationRequest) ([]string, error)
}

// Cache stores serialized prediction responses by key
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Prediction is the remote model output mapped onto the local risk levels.
type Prediction struct {
	RiskPercentage float64          `json:"riskPercentage"`
	RiskScore      int              `json:"riskScore"`
	RiskLevel      domain.RiskLevel `json:"riskLevel"`
	Cached         bool             `json:"cached"`
}

// APIError is a non-2xx answer from the prediction service. Detail carries
// the service supplied message when one was returned.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("prediction service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("prediction service returned status %d: %s", e.StatusCode, e.Detail)
}

// IsAPIError reports whether err wraps an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
