package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/health-risk-server/internal/domain"
)

// Remote endpoints.
const (
	PathPredictDiabetes = "/predict_diabetes"
	PathPredictKidney   = "/predict_kidney"
	PathRecommendations = "/recommendations"
)

const (
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 1 << 20
	retryBackoff     = 200 * time.Millisecond
)

// PredictionClient handles interactions with the prediction service
type PredictionClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	cache      Cache
	retryCount int
	logger     *logrus.Logger
}

// NewPredictionClient creates a client for the service at config.BaseURL.
// cache may be nil to disable caching.
func NewPredictionClient(config domain.RemoteScoringConfig, cache Cache, logger *logrus.Logger) *PredictionClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}

	if logger == nil {
		logger = logrus.StandardLogger()
	}

	retries := config.RetryCount
	if retries < 0 {
		retries = 0
	}

	return &PredictionClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:    rate.NewLimiter(limit, 1),
		breaker:    NewCircuitBreaker("prediction-service", config.Breaker, logger),
		cache:      cache,
		retryCount: retries,
		logger:     logger,
	}
}

type predictionResponse struct {
	RiskPercentage *float64 `json:"risk_percentage"`
}

type recommendationsResponse struct {
	Recommendations []string `json:"recommendations"`
}

// PredictDiabetes scores diabetes risk remotely. Vitals are validated locally
// before any request is sent.
func (c *PredictionClient) PredictDiabetes(ctx context.Context, vitals DiabetesVitals) (*Prediction, error) {
	vitals = vitals.WithDerivedBMI()
	if err := vitals.Validate(); err != nil {
		return nil, err
	}
	return c.predict(ctx, PathPredictDiabetes, vitals)
}

// PredictKidney scores chronic kidney disease risk remotely.
func (c *PredictionClient) PredictKidney(ctx context.Context, vitals KidneyVitals) (*Prediction, error) {
	if err := vitals.Validate(); err != nil {
		return nil, err
	}
	return c.predict(ctx, PathPredictKidney, vitals)
}

// Recommendations fetches free-text advice for a scored assessment.
func (c *PredictionClient) Recommendations(ctx context.Context, req RecommendationRequest) ([]string, error) {
	if !req.Disease.IsValid() {
		return nil, domain.NewValidationError("disease", domain.ErrInvalidDisease.Error(), string(req.Disease))
	}

	var resp recommendationsResponse
	if _, err := c.post(ctx, PathRecommendations, req.body(), &resp); err != nil {
		return nil, err
	}
	if resp.Recommendations == nil {
		return []string{}, nil
	}
	return resp.Recommendations, nil
}

func (c *PredictionClient) predict(ctx context.Context, path string, vitals any) (*Prediction, error) {
	var resp predictionResponse
	cached, err := c.post(ctx, path, vitals, &resp)
	if err != nil {
		return nil, err
	}
	if resp.RiskPercentage == nil {
		return nil, fmt.Errorf("prediction response from %s is missing risk_percentage", path)
	}
	p := newPrediction(*resp.RiskPercentage)
	p.Cached = cached
	return p, nil
}

// post sends body to path and decodes the JSON answer into out. Responses are
// served from cache when possible. Reports whether the answer was cached.
func (c *PredictionClient) post(ctx context.Context, path string, body any, out any) (bool, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return false, fmt.Errorf("failed to encode request: %w", err)
	}

	key := cacheKey(strings.TrimPrefix(path, "/"), payload)
	if c.cache != nil {
		if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			if err := json.Unmarshal(data, out); err == nil {
				return true, nil
			}
		}
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doWithRetry(ctx, path, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.WithField("path", path).Warn("Prediction service circuit open")
			return false, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
		}
		return false, err
	}

	data := result.([]byte)
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, data, 0); err != nil {
			c.logger.WithError(err).Warn("Failed to cache prediction response")
		}
	}
	return false, nil
}

func (c *PredictionClient) doWithRetry(ctx context.Context, path string, payload []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * retryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		data, err := c.do(ctx, path, payload)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
		c.logger.WithFields(logrus.Fields{
			"path":    path,
			"attempt": attempt + 1,
		}).WithError(err).Debug("Prediction request failed")
	}
	return nil, lastErr
}

func (c *PredictionClient) do(ctx context.Context, path string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewServiceError(domain.ErrRateLimit, "prediction request rate limit exceeded", err.Error(), "")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(body)}
	}
	return body, nil
}

// errorDetail extracts the "detail" member of an error body, falling back to
// the raw text.
func errorDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		var s string
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			return s
		}
		return string(envelope.Detail)
	}
	return strings.TrimSpace(string(body))
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || rateLimited(err) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return true
}

// rateLimited reports whether err came from the local request limiter.
func rateLimited(err error) bool {
	var serr *domain.ServiceError
	return errors.As(err, &serr) && serr.Code == domain.ErrRateLimit
}

var _ PredictionService = (*PredictionClient)(nil)
