package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/postcraft/internal/business"
	"github.com/jonathan/postcraft/internal/db"
	"github.com/jonathan/postcraft/internal/llm"
	"github.com/jonathan/postcraft/internal/pipeline"
)

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "count", Message: "must be positive"}
	assert.Equal(t, "validation error: count - must be positive", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "ErrValidation",
			err:      &ErrValidation{Field: "inputs", Message: "bad base64"},
			expected: http.StatusBadRequest,
		},
		{
			name:     "wrapped invalid request",
			err:      fmt.Errorf("%w: count", pipeline.ErrInvalidRequest),
			expected: http.StatusBadRequest,
		},
		{
			name:     "insufficient input",
			err:      fmt.Errorf("business context: %w", business.ErrInsufficientInput),
			expected: http.StatusUnprocessableEntity,
		},
		{
			name:     "not found",
			err:      ErrNotFound,
			expected: http.StatusNotFound,
		},
		{
			name:     "stored run not found",
			err:      fmt.Errorf("%w: 42", db.ErrRunNotFound),
			expected: http.StatusNotFound,
		},
		{
			name:     "service unavailable",
			err:      llm.ErrServiceUnavailable,
			expected: http.StatusServiceUnavailable,
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			expected: http.StatusGatewayTimeout,
		},
		{
			name:     "client went away",
			err:      fmt.Errorf("pipeline: %w", context.Canceled),
			expected: StatusClientClosedRequest,
		},
		{
			name:     "unknown error",
			err:      errors.New("some error"),
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}
