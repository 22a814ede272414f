package feed

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrAuthentication indicates invalid credentials or an unreachable
	// token endpoint. Not retried without new credentials.
	ErrAuthentication = errors.New("falcon: authentication failed")

	// ErrNoIOCs indicates the indicator API is not available to the API
	// client, either because the scope was not approved or the tenant has no
	// Falcon Intelligence subscription. Match it with errors.Is on an *APIError.
	ErrNoIOCs = errors.New("falcon: Intel IOCs API not discovered. This may be caused by a lack of scope " +
		"approval for the API key, or lack of subscription to Falcon Intelligence")

	// ErrMalformedIndicator indicates a record without an id or marker.
	ErrMalformedIndicator = errors.New("falcon: malformed indicator")
)

// APIError reports application-level errors returned by the API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Messages   []APIMessage
}

func (e *APIError) Error() string {
	parts := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		parts = append(parts, fmt.Sprintf("%d %s", m.Code, m.Message))
	}
	msg := fmt.Sprintf("falcon: error received from %s (status %d): [%s]", e.Endpoint, e.StatusCode, strings.Join(parts, "; "))
	if e.Entitlement() {
		msg += ": " + ErrNoIOCs.Error()
	}
	return msg
}

// Entitlement reports whether the error means the indicator API is not
// reachable for this API client.
func (e *APIError) Entitlement() bool {
	return e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusNotFound
}

// Is makes errors.Is(err, ErrNoIOCs) match entitlement failures.
func (e *APIError) Is(target error) bool {
	return target == ErrNoIOCs && e.Entitlement()
}

// UnexpectedResponseError reports a status code outside the success set.
type UnexpectedResponseError struct {
	Endpoint   string
	StatusCode int
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("falcon: unexpected response code %d from %s", e.StatusCode, e.Endpoint)
}

// IsNoIOCs checks if the error indicates a missing indicator entitlement.
func IsNoIOCs(err error) bool {
	return errors.Is(err, ErrNoIOCs)
}

// IsUnexpectedResponse checks if the error is an unexpected status code.
func IsUnexpectedResponse(err error) bool {
	var respErr *UnexpectedResponseError
	return errors.As(err, &respErr)
}
