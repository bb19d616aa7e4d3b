// Package server provides the HTTP API for the content generation pipeline.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/postcraft/internal/business"
	"github.com/jonathan/postcraft/internal/db"
	"github.com/jonathan/postcraft/internal/llm"
	"github.com/jonathan/postcraft/internal/pipeline"
)

// ErrNotFound indicates the requested run is unknown
var ErrNotFound = errors.New("not found")

// StatusClientClosedRequest is reported when the caller went away before the
// response was written. It sits below 500 so it is not logged as a server error.
const StatusClientClosedRequest = 499

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var validation *ErrValidation
	switch {
	case errors.As(err, &validation),
		errors.Is(err, pipeline.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, business.ErrInsufficientInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound), errors.Is(err, db.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, llm.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}
