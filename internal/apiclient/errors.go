package apiclient

import (
	"errors"
	"fmt"
	"net/http"

	"tracker/web/internal/model"
)

// Kind classifies why a call failed.
type Kind string

const (
	KindUnknown   Kind = "unknown"
	KindEncode    Kind = "encode"
	KindTransport Kind = "transport"
	KindHTTP      Kind = "http"
	KindDecode    Kind = "decode"
)

// Error is returned by every Client call that does not end in a decoded 2xx.
type Error struct {
	Kind   Kind
	Method string
	Path   string
	Status int
	// Body is the API's structured error, when the response carried one.
	Body *model.ErrorResponse
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Kind == KindHTTP && e.Body != nil:
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.Status, e.Body.Code, e.Body.Message)
	case e.Kind == KindHTTP:
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf walks the error chain and returns the first classification found.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// StatusOf returns the HTTP status behind err, or 0 when no response arrived.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// BodyOf returns the API's structured error body behind err, if any.
func BodyOf(err error) *model.ErrorResponse {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Body
	}
	return nil
}

func IsUnauthorized(err error) bool {
	status := StatusOf(err)
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}
