package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/i474232898/crop-recommendation/internal/metrics"
)

// Policy controls retries, backoff and per-attempt timeouts.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration
	// BackoffFactor multiplies the delay after every retry.
	BackoffFactor float64
	// MaxDelay caps a single wait; 0 means uncapped.
	MaxDelay time.Duration
	// CallTimeout bounds each attempt; 0 means only the caller's deadline applies.
	CallTimeout time.Duration
}

// DefaultPolicy: three retries at 1s, 2s, 4s, ten seconds per attempt.
var DefaultPolicy = Policy{
	MaxRetries:    3,
	BaseDelay:     time.Second,
	BackoffFactor: 2,
	MaxDelay:      30 * time.Second,
	CallTimeout:   10 * time.Second,
}

// Delay returns the wait before retry number attempt+1:
// BaseDelay * BackoffFactor^attempt, capped by MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	factor := p.BackoffFactor
	if factor <= 0 {
		factor = 1
	}
	d := time.Duration(float64(p.BaseDelay) * math.Pow(factor, float64(attempt)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Fetcher wraps outbound calls with the upstream's breaker and rate limiter,
// bounded retries and exponential backoff.
type Fetcher struct {
	rc     *Context
	client *http.Client
	policy Policy
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a Fetcher. client may be nil when only Execute is used.
func NewFetcher(rc *Context, client *http.Client, policy Policy) *Fetcher {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &Fetcher{
		rc:     rc,
		client: client,
		policy: policy,
		sleep:  sleepContext,
	}
}

// Context returns the shared resilience context.
func (f *Fetcher) Context() *Context {
	return f.rc
}

// Execute runs call against upstream. An open breaker fails immediately with
// KindCircuitOpen and call is not invoked. Transient failures and timeouts
// are retried up to MaxRetries times; permanent failures are returned at once.
// Every returned error is a *FetchError.
func (f *Fetcher) Execute(ctx context.Context, upstream string, call func(ctx context.Context) error) error {
	breaker := f.rc.Breaker(upstream)
	limiter := f.rc.Limiter(upstream)

	var lastErr *FetchError
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return callerGaveUp(upstream, attempt, lastErr, err)
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return callerGaveUp(upstream, attempt, lastErr, err)
			}
		}

		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if f.policy.CallTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, f.policy.CallTimeout)
		}

		start := time.Now()
		err := breaker.run(func() error { return call(attemptCtx) })
		metrics.UpstreamLatency.WithLabelValues(upstream).Observe(time.Since(start).Seconds())

		if err == nil {
			cancel()
			metrics.UpstreamAttempts.WithLabelValues(upstream, "success").Inc()
			return nil
		}

		var fe *FetchError
		if errors.As(err, &fe) && fe.Kind == KindCircuitOpen {
			cancel()
			metrics.UpstreamAttempts.WithLabelValues(upstream, KindCircuitOpen.String()).Inc()
			fe.Attempts = attempt
			return fe
		}

		kind, status := Classify(attemptCtx, err)
		cancel()
		metrics.UpstreamAttempts.WithLabelValues(upstream, kind.String()).Inc()

		if ctx.Err() != nil {
			return callerGaveUp(upstream, attempt+1, &FetchError{Upstream: upstream, Kind: kind, StatusCode: status, Attempts: attempt + 1, Err: err}, ctx.Err())
		}

		lastErr = &FetchError{
			Upstream:   upstream,
			Kind:       kind,
			StatusCode: status,
			Attempts:   attempt + 1,
			Err:        err,
		}
		if !kind.Retryable() || attempt >= f.policy.MaxRetries {
			return lastErr
		}

		delay := f.policy.Delay(attempt)
		metrics.UpstreamRetries.WithLabelValues(upstream).Inc()
		slog.Debug("retrying upstream call", "upstream", upstream, "attempt", attempt+1, "delay", delay, "error", err)

		if err := f.sleep(ctx, delay); err != nil {
			return lastErr
		}
	}
}

// callerGaveUp reports a stop caused by the caller's context. The last
// upstream failure is preserved when there was one.
func callerGaveUp(upstream string, attempts int, last *FetchError, ctxErr error) *FetchError {
	if last != nil {
		return last
	}
	kind := KindTransient
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &FetchError{Upstream: upstream, Kind: kind, Attempts: attempts, Err: ctxErr}
}

// Fetch is Execute for calls that produce a value.
func Fetch[T any](ctx context.Context, f *Fetcher, upstream string, call func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := f.Execute(ctx, upstream, func(ctx context.Context) error {
		v, err := call(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// GetJSON performs a resilient HTTP request built by buildRequest and decodes
// a 2xx JSON body into out. 429 and 5xx are transient; other non-2xx codes
// and undecodable bodies are permanent.
func (f *Fetcher) GetJSON(ctx context.Context, upstream string, buildRequest func(ctx context.Context) (*http.Request, error), out any) error {
	if f.client == nil {
		return &FetchError{Upstream: upstream, Kind: KindPermanent, Err: errNoHTTPClient}
	}

	return f.Execute(ctx, upstream, func(ctx context.Context) error {
		req, err := buildRequest(ctx)
		if err != nil {
			return Permanent(err)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := statusError(resp.StatusCode); err != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
			return err
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return Permanent(fmt.Errorf("decode %s response: %w", upstream, err))
		}
		return nil
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
