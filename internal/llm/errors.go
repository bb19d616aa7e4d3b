package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrServiceUnavailable signals that no provider is configured for a call class, or that
// the service is in total outage. Callers treat it as routine and fall back.
var ErrServiceUnavailable = errors.New("generative service unavailable")

// ErrorKind classifies a failed call.
type ErrorKind string

// Error kinds
const (
	KindRateLimited  ErrorKind = "rate_limited"
	KindTimeout      ErrorKind = "timeout"
	KindUnavailable  ErrorKind = "unavailable"
	KindInvalidInput ErrorKind = "invalid_input"
	KindUnauthorized ErrorKind = "unauthorized"
	KindCancelled    ErrorKind = "cancelled"
	KindInternal     ErrorKind = "internal"
)

// ServiceError is a failure of one generative call after the retry policy ran.
type ServiceError struct {
	Class      CallClass
	Kind       ErrorKind
	StatusCode int
	Message    string
	Attempts   int
	Cause      error
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("%s generation failed (%s)", e.Class, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrServiceUnavailable) match total outages.
func (e *ServiceError) Is(target error) bool {
	return target == ErrServiceUnavailable && e.Kind == KindUnavailable
}

// Retryable reports whether the failure is transient.
func (e *ServiceError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindTimeout, KindUnavailable:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is a transient ServiceError.
func IsRetryable(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Retryable()
}

// kindForStatus maps an HTTP status code to an ErrorKind.
func kindForStatus(code int) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return KindTimeout
	case code == http.StatusUnauthorized || code == http.StatusForbidden || code == http.StatusPaymentRequired:
		return KindUnauthorized
	case code >= 500:
		return KindUnavailable
	case code >= 400:
		return KindInvalidInput
	default:
		return KindInternal
	}
}

// kindForCode maps a gRPC status code to an ErrorKind.
func kindForCode(code codes.Code) ErrorKind {
	switch code {
	case codes.ResourceExhausted:
		return KindRateLimited
	case codes.DeadlineExceeded:
		return KindTimeout
	case codes.Unavailable, codes.Internal, codes.Aborted:
		return KindUnavailable
	case codes.InvalidArgument, codes.FailedPrecondition, codes.NotFound, codes.OutOfRange:
		return KindInvalidInput
	case codes.Unauthenticated, codes.PermissionDenied:
		return KindUnauthorized
	case codes.Canceled:
		return KindCancelled
	default:
		return KindInternal
	}
}

// statusError builds a ServiceError from an HTTP response status.
func statusError(class CallClass, code int, body string) *ServiceError {
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return &ServiceError{Class: class, Kind: kindForStatus(code), StatusCode: code, Message: body}
}

// classify converts any provider error into a ServiceError.
func classify(class CallClass, err error) *ServiceError {
	if err == nil {
		return nil
	}

	var se *ServiceError
	if errors.As(err, &se) {
		if se.Class == "" {
			se.Class = class
		}
		return se
	}

	if errors.Is(err, context.Canceled) {
		return &ServiceError{Class: class, Kind: KindCancelled, Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ServiceError{Class: class, Kind: KindTimeout, Cause: err}
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &ServiceError{Class: class, Kind: kindForStatus(gerr.Code), StatusCode: gerr.Code, Message: gerr.Message, Cause: err}
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.OK && st.Code() != codes.Unknown {
		return &ServiceError{Class: class, Kind: kindForCode(st.Code()), Message: st.Message(), Cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &ServiceError{Class: class, Kind: KindTimeout, Cause: err}
		}
		return &ServiceError{Class: class, Kind: KindUnavailable, Cause: err}
	}

	return &ServiceError{Class: class, Kind: KindInternal, Cause: err}
}
