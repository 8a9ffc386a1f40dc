package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestServiceError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Basic error",
			code:      ErrInvalidInput,
			message:   "Invalid disease type",
			details:   "diseaseType must be diabetes, kidneyDisease or heartDisease",
			requestID: "req-123",
		},
		{
			name:      "Database error",
			code:      ErrDatabaseError,
			message:   "Database connection failed",
			details:   "Unable to connect to PostgreSQL",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewServiceError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}
			if err.Details != tt.details {
				t.Errorf("Expected details %s, got %s", tt.details, err.Details)
			}
			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}
			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expectedError := tt.code + ": " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		message string
		value   interface{}
		want    string
	}{
		{
			name:    "Region format",
			field:   "region",
			message: `Location must be in "City, State" format`,
			value:   "Springfield",
			want:    `validation error for field 'region': Location must be in "City, State" format`,
		},
		{
			name:    "Age bound",
			field:   "d1",
			message: "must be between 18 and 120",
			value:   12,
			want:    "validation error for field 'd1': must be between 18 and 120",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message, tt.value)
			if err.Error() != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, err.Error())
			}
			if err.Value != tt.value {
				t.Errorf("Expected value %v, got %v", tt.value, err.Value)
			}
		})
	}
}

func TestValidationErrorUnwrapsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("submitting assessment: %w", NewValidationError("region", "Location data is missing", ""))

	var verr *ValidationError
	if !errors.As(wrapped, &verr) {
		t.Fatal("expected errors.As to find the ValidationError")
	}
	if verr.Field != "region" {
		t.Errorf("Expected field region, got %s", verr.Field)
	}
}
