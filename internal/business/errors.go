package business

import (
	"errors"
	"fmt"
)

// ErrInsufficientInput is returned when no input channel carries usable material.
var ErrInsufficientInput = errors.New("insufficient input: provide a URL, a file or a business description")

// ParseError represents an analysis response that could not be turned into a context.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
