package crmclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx answer from the CRM API.
type APIError struct {
	StatusCode int
	Message    string   `json:"error"`
	Details    []string `json:"details"`
}

func (err *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "crm: HTTP %d: %s", err.StatusCode, err.Message)
	if len(err.Details) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(err.Details, "; "))
	}
	return b.String()
}

func hasStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

func IsUnauthorized(err error) bool { return hasStatus(err, http.StatusUnauthorized) }

func IsForbidden(err error) bool { return hasStatus(err, http.StatusForbidden) }

func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

func IsConflict(err error) bool { return hasStatus(err, http.StatusConflict) }
