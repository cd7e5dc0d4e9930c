package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/i474232898/crop-recommendation/internal/common"
)

// Kind classifies an upstream failure and decides whether it is retried.
type Kind int

const (
	// KindTransient covers network errors, 5xx and 429. Retried.
	KindTransient Kind = iota
	// KindPermanent covers 4xx (except 429) and undecodable payloads. Not retried.
	KindPermanent
	// KindCircuitOpen means the breaker rejected the call; nothing was sent.
	KindCircuitOpen
	// KindTimeout means a single attempt exceeded its deadline. Retried.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindCircuitOpen:
		return "circuit_open"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Retryable reports whether another attempt may succeed.
func (k Kind) Retryable() bool {
	return k == KindTransient || k == KindTimeout
}

var (
	// ErrCircuitOpen is matched by errors.Is for breaker rejections.
	ErrCircuitOpen = errors.New("circuit breaker open")
	// ErrPermanent is matched by errors.Is for non-retryable failures.
	ErrPermanent = errors.New("permanent upstream error")
	// ErrTransient is matched by errors.Is for retryable failures.
	ErrTransient = errors.New("transient upstream error")
	// ErrTimeout is matched by errors.Is for per-attempt deadline overruns.
	ErrTimeout = errors.New("upstream timeout")

	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errNoHTTPClient = errors.New("http client not configured")
)

// FetchError is the single error type returned by the fetcher. Retry
// exhaustion is an ordinary value: Attempts says how many calls were made.
type FetchError struct {
	Upstream   string
	Kind       Kind
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s failure", e.Upstream, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match FetchErrors against the kind sentinels.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrCircuitOpen:
		return e.Kind == KindCircuitOpen
	case ErrPermanent:
		return e.Kind == KindPermanent
	case ErrTransient:
		return e.Kind == KindTransient
	case ErrTimeout:
		return e.Kind == KindTimeout
	}
	return false
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: %d", e.Err, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Permanent marks err as non-retryable, for callers that detect a bad
// response body or an unusable payload inside their call.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// statusError maps an HTTP status to a StatusError, or nil for 2xx.
func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return &StatusError{StatusCode: code, Err: errRateLimited}
	case code >= 500:
		return &StatusError{StatusCode: code, Err: errServerError}
	default:
		return &StatusError{StatusCode: code, Err: errUnexpected}
	}
}

// Classify decides the Kind of a raw call error. attemptCtx is the
// per-attempt context, used to tell an attempt timeout from other failures.
func Classify(attemptCtx context.Context, err error) (Kind, int) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, fe.StatusCode
	}

	var pe *permanentError
	if errors.As(err, &pe) {
		return KindPermanent, 0
	}

	var se *StatusError
	if errors.As(err, &se) {
		if se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500 {
			return KindTransient, se.StatusCode
		}
		return KindPermanent, se.StatusCode
	}

	if errors.Is(err, context.DeadlineExceeded) || (attemptCtx != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded)) {
		return KindTimeout, 0
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout, 0
	}
	if common.HasAny(strings.ToLower(err.Error()), "timeout", "deadline exceeded") {
		return KindTimeout, 0
	}
	return KindTransient, 0
}
