package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrorKind classifies a failed request. The set is closed.
type ErrorKind string

const (
	// KindUnauthorized is a 401: the API key was rejected.
	KindUnauthorized ErrorKind = "unauthorized"

	// KindForbidden is a 403.
	KindForbidden ErrorKind = "forbidden"

	// KindNotFound is a 404. Listings expire routinely, so callers should
	// expect this on detail lookups.
	KindNotFound ErrorKind = "not_found"

	// KindMethodNotAllowed is a 405.
	KindMethodNotAllowed ErrorKind = "method_not_allowed"

	// KindRateLimited is a 429, optionally with a server-dictated wait.
	KindRateLimited ErrorKind = "rate_limited"

	// KindServerFault is any other non-2xx status.
	KindServerFault ErrorKind = "server_fault"

	// KindTransport is a failure below HTTP: connect, DNS, timeout, or an
	// unreadable response.
	KindTransport ErrorKind = "transport"
)

// Sentinel errors for errors.Is matching against *APIError.
var (
	ErrUnauthorized     = errors.New("unauthorized (check your API key)")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("resource not found (the listing may have expired)")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrRateLimited      = errors.New("rate limited")
	ErrServerFault      = errors.New("server fault")
	ErrTransport        = errors.New("transport error")
)

// APIError is the error returned by every request operation of the client.
type APIError struct {
	Kind ErrorKind

	// StatusCode is the HTTP status, or 0 for transport errors.
	StatusCode int

	// RetryAfter is the server-requested wait of a rate limited response.
	// Nil when the header was missing or unparseable.
	RetryAfter *time.Duration

	// Errors and Messages are parsed from a structured server fault body.
	Errors   []string
	Messages []string

	// Err is the underlying cause of a transport error.
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch e.Kind {
	case KindTransport:
		if e.Err != nil {
			return fmt.Sprintf("jobsuche transport error: %v", e.Err)
		}
		return "jobsuche transport error"
	case KindRateLimited:
		if e.RetryAfter != nil {
			return fmt.Sprintf("jobsuche rate limited (status %d, retry after %s)", e.StatusCode, *e.RetryAfter)
		}
		return fmt.Sprintf("jobsuche rate limited (status %d)", e.StatusCode)
	case KindServerFault:
		details := append(append([]string(nil), e.Errors...), e.Messages...)
		if len(details) > 0 {
			return fmt.Sprintf("jobsuche server fault (status %d): %s", e.StatusCode, strings.Join(details, "; "))
		}
		return fmt.Sprintf("jobsuche server fault (status %d)", e.StatusCode)
	default:
		return fmt.Sprintf("jobsuche %s error (status %d)", e.Kind, e.StatusCode)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch e.Kind {
	case KindUnauthorized:
		return target == ErrUnauthorized
	case KindForbidden:
		return target == ErrForbidden
	case KindNotFound:
		return target == ErrNotFound
	case KindMethodNotAllowed:
		return target == ErrMethodNotAllowed
	case KindRateLimited:
		return target == ErrRateLimited
	case KindServerFault:
		return target == ErrServerFault
	case KindTransport:
		return target == ErrTransport
	}
	return false
}

// KindOf returns the kind of err, or "" if err is not an *APIError.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// faultBody is the structured error payload of the service.
type faultBody struct {
	Errors        []string `json:"errors"`
	ErrorMessages []string `json:"error_messages"`
}

// Classify maps a non-2xx response to an *APIError. It is pure: now is the
// reference time for HTTP-date Retry-After values.
func Classify(statusCode int, header http.Header, body []byte, now time.Time) *APIError {
	switch statusCode {
	case http.StatusUnauthorized:
		return &APIError{Kind: KindUnauthorized, StatusCode: statusCode}
	case http.StatusForbidden:
		return &APIError{Kind: KindForbidden, StatusCode: statusCode}
	case http.StatusNotFound:
		return &APIError{Kind: KindNotFound, StatusCode: statusCode}
	case http.StatusMethodNotAllowed:
		return &APIError{Kind: KindMethodNotAllowed, StatusCode: statusCode}
	case http.StatusTooManyRequests:
		return &APIError{
			Kind:       KindRateLimited,
			StatusCode: statusCode,
			RetryAfter: parseRetryAfter(header.Get("Retry-After"), now),
		}
	}

	fault := &APIError{Kind: KindServerFault, StatusCode: statusCode}
	var parsed faultBody
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil {
		fault.Errors = parsed.Errors
		fault.Messages = parsed.ErrorMessages
	}
	return fault
}

// ClassifyTransport wraps a failure that produced no usable HTTP response.
func ClassifyTransport(err error) *APIError {
	return &APIError{Kind: KindTransport, Err: err}
}

// parseRetryAfter reads delay-seconds first, then an HTTP-date.
func parseRetryAfter(value string, now time.Time) *time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if seconds, err := strconv.ParseUint(value, 10, 32); err == nil {
		d := time.Duration(seconds) * time.Second
		return &d
	}

	if date, err := http.ParseTime(value); err == nil {
		if d := date.Sub(now); d >= 0 {
			d = d.Truncate(time.Second)
			return &d
		}
	}

	return nil
}
