package connector

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tkrehbiel/fedlace/connector/data"
)

// Status classifies why a connection call failed.
type Status int

const (
	StatusUnknown Status = iota
	StatusBadRequest
	StatusNoCredentialsForHost
	StatusEmptyResponse
	StatusDelayed
	StatusNotFound
	StatusAuthenticationError
	StatusClientError
	StatusServerError
	StatusMalformedWireData
)

var statusNames = map[Status]string{
	StatusUnknown:              "UNKNOWN",
	StatusBadRequest:           "BAD_REQUEST",
	StatusNoCredentialsForHost: "NO_CREDENTIALS_FOR_HOST",
	StatusEmptyResponse:        "EMPTY_RESPONSE",
	StatusDelayed:              "DELAYED",
	StatusNotFound:             "NOT_FOUND",
	StatusAuthenticationError:  "AUTHENTICATION_ERROR",
	StatusClientError:          "CLIENT_ERROR",
	StatusServerError:          "SERVER_ERROR",
	StatusMalformedWireData:    "MALFORMED_WIRE_DATA",
}

func (s Status) String() string {
	return statusNames[s]
}

// ConnectionError is returned by every network operation of a Connection.
type ConnectionError struct {
	Status  Status
	Message string
	URI     string
	Wait    time.Duration // for StatusDelayed, how long until the host accepts requests again
	Err     error
}

func (e *ConnectionError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Status.String())
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.URI != "" {
		fmt.Fprintf(&sb, " [%s]", e.URI)
	}
	if e.Status == StatusDelayed {
		fmt.Fprintf(&sb, " retry in %s", e.Wait.Round(time.Second))
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %s", e.Err)
	}
	return sb.String()
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func newError(status Status, uri string, format string, args ...any) *ConnectionError {
	return &ConnectionError{Status: status, URI: uri, Message: fmt.Sprintf(format, args...)}
}

// StatusOf digs the status out of an error chain. Malformed wire data is
// recognized even when it was never wrapped in a ConnectionError.
func StatusOf(err error) Status {
	if err == nil {
		return StatusUnknown
	}
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return ce.Status
	}
	var me *data.MalformedError
	if errors.As(err, &me) {
		return StatusMalformedWireData
	}
	return StatusUnknown
}

// IsDelayed is true for a throttled request. It is not a failure: the
// request was never sent and can be retried later.
func IsDelayed(err error) bool {
	return StatusOf(err) == StatusDelayed
}

func statusFromHTTP(code int) Status {
	switch {
	case code == http.StatusNotFound || code == http.StatusGone:
		return StatusNotFound
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return StatusAuthenticationError
	case code == http.StatusTooManyRequests:
		return StatusDelayed
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return StatusBadRequest
	case code >= 500:
		return StatusServerError
	case code >= 400:
		return StatusClientError
	}
	return StatusUnknown
}
