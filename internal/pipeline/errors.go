package pipeline

import (
	"errors"
	"fmt"
)

// FetchErrorKind classifies why a fetch failed
type FetchErrorKind string

const (
	KindTimeout            FetchErrorKind = "Timeout"
	KindHTTPError          FetchErrorKind = "HTTPError"
	KindRateLimitExhausted FetchErrorKind = "RateLimitExhausted"
)

var (
	// ErrTimeout matches fetches whose final attempt timed out
	ErrTimeout = errors.New("fetch timed out")
	// ErrHTTP matches fetches that failed on status or transport
	ErrHTTP = errors.New("fetch failed")
	// ErrRateLimitExhausted matches fetches that stayed throttled through every attempt
	ErrRateLimitExhausted = errors.New("rate limit exhausted")
)

// FetchError is returned by Fetcher.Fetch for every failure
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int // 0 when no response was received
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.URL)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrHTTP:
		return e.Kind == KindHTTPError
	case ErrRateLimitExhausted:
		return e.Kind == KindRateLimitExhausted
	}
	return false
}

// statusError is a non-2xx response from a single attempt
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.status)
}

// transportError is a failure to get or read a response
type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return e.err.Error()
}

func (e *transportError) Unwrap() error {
	return e.err
}
