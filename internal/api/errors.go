package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/health-risk-server/internal/domain"
	"github.com/health-risk-server/internal/middleware"
	"github.com/health-risk-server/pkg/external"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error *domain.ServiceError    `json:"error"`
	Field *domain.ValidationError `json:"validation,omitempty"`
}

// respondError maps err onto a status code and writes the error body.
func (s *Server) respondError(c *gin.Context, err error) {
	status, code, msg := classify(err)
	requestID := c.GetString(middleware.CorrelationIDKey)

	resp := errorResponse{Error: domain.NewServiceError(code, msg, "", requestID)}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr
	}

	entry := s.logger.WithField("correlation_id", requestID).WithField("status", status).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}
	c.AbortWithStatusJSON(status, resp)
}

func classify(err error) (status int, code, msg string) {
	var (
		verr   *domain.ValidationError
		serr   *domain.ServiceError
		apiErr *external.APIError
		maxErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, domain.ErrInvalidInput, "Request body too large"
	case errors.As(err, &verr):
		return http.StatusBadRequest, domain.ErrValidation, verr.Message
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.ErrNotFoundCode, err.Error()
	case errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, domain.ErrUnavailable, "Prediction service is temporarily unavailable"
	case errors.As(err, &serr) && serr.Code == domain.ErrRateLimit:
		return http.StatusTooManyRequests, domain.ErrRateLimit, "Prediction request rate limit exceeded"
	case errors.As(err, &apiErr):
		msg := apiErr.Detail
		if msg == "" {
			msg = "Prediction service request failed"
		}
		return http.StatusBadGateway, domain.ErrExternalAPI, msg
	default:
		return http.StatusInternalServerError, domain.ErrInternalServer, "Internal server error"
	}
}

// bindError wraps a JSON binding failure as a validation error unless the
// body was too large.
func bindError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return err
	}
	return domain.NewValidationError("body", "invalid request body: "+err.Error(), nil)
}
