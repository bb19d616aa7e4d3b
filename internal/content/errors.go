package content

import "fmt"

// ParseError represents a numbered item that could not be turned into a post.
type ParseError struct {
	Slot    int
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error in item %d: %s: %v", e.Slot, e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error in item %d: %s", e.Slot, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
