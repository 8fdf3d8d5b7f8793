package app

import (
	"errors"
	"fmt"
	"net/http"

	"tracker/web/internal/apiclient"
	"tracker/web/internal/authpw"
	"tracker/web/internal/store"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// FormError rejects a submitted form. It is rendered as {"form":{"errors":...}}
// so the page can show messages next to each field.
type FormError struct {
	Status int
	Errors authpw.Errors
}

func (e *FormError) Error() string {
	return fmt.Sprintf("form rejected with %d field errors", len(e.Errors))
}

func formError(status int, errs authpw.Errors) *FormError {
	return &FormError{Status: status, Errors: errs}
}

var (
	errNotFound = domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	// errNoOrgs sends a user without organizations to create one first.
	errNoOrgs = errors.New("user has no organizations")
)

// sessionExpired reports whether the API rejected the access token itself.
func sessionExpired(err error) bool {
	return apiclient.KindOf(err) == apiclient.KindHTTP && apiclient.StatusOf(err) == http.StatusUnauthorized
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, store.ErrInvalidInput) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil
	}

	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case apiclient.KindHTTP:
			code, message := "API_ERROR", http.StatusText(apiErr.Status)
			if apiErr.Body != nil {
				if apiErr.Body.Code != "" {
					code = apiErr.Body.Code
				}
				if apiErr.Body.Message != "" {
					message = apiErr.Body.Message
				}
				return apiErr.Status, code, message, apiErr.Body
			}
			return apiErr.Status, code, message, nil
		case apiclient.KindTransport, apiclient.KindDecode:
			return http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "Tracker API unavailable", nil
		}
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
