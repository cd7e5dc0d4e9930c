package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/crop-recommendation/internal/metrics"
)

// BreakerSettings configures every per-upstream breaker.
type BreakerSettings struct {
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32
	// ResetTimeout is how long the breaker stays open before a half-open probe.
	ResetTimeout time.Duration
}

// DefaultBreakerSettings opens after five consecutive failures and probes
// again after a minute.
var DefaultBreakerSettings = BreakerSettings{
	FailureThreshold: 5,
	ResetTimeout:     60 * time.Second,
}

// State is the externally visible breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateHalfOpen State = "half-open"
	StateOpen     State = "open"
)

// BreakerState is a point-in-time view of one breaker.
type BreakerState struct {
	Upstream     string    `json:"upstream"`
	State        State     `json:"state"`
	FailureCount uint32    `json:"failure_count"`
	LastFailure  time.Time `json:"last_failure,omitempty"`
}

// Breaker guards one upstream. Closed->Open after FailureThreshold
// consecutive failures, Open->HalfOpen after ResetTimeout, HalfOpen->Closed
// after one success and HalfOpen->Open on any failure. A call cancelled by
// its caller is not counted while closed; in half-open it reopens the breaker
// because the call proved nothing about the upstream.
type Breaker struct {
	name        string
	cb          *gobreaker.TwoStepCircuitBreaker
	lastFailure atomic.Int64
}

// NewBreaker creates a breaker for upstream.
func NewBreaker(upstream string, s BreakerSettings) *Breaker {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = DefaultBreakerSettings.FailureThreshold
	}
	if s.ResetTimeout <= 0 {
		s.ResetTimeout = DefaultBreakerSettings.ResetTimeout
	}

	b := &Breaker{name: upstream}
	metrics.BreakerState.WithLabelValues(upstream).Set(0)

	b.cb = gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name: upstream,
		// One probe in half-open; its success closes the breaker.
		MaxRequests: 1,
		// Zero keeps counts for the whole closed generation, so only
		// consecutive failures matter.
		Interval: 0,
		Timeout:  s.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateOf(from), stateOf(to)
			slog.Warn("circuit breaker state change", "upstream", name, "from", fromStr, "to", toStr)
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.BreakerTransitions.WithLabelValues(name, string(fromStr), string(toStr)).Inc()
		},
	})
	return b
}

// Name returns the upstream this breaker guards.
func (b *Breaker) Name() string {
	return b.name
}

// run executes fn through the breaker. A rejection is returned as a
// FetchError of KindCircuitOpen and fn is not called.
func (b *Breaker) run(fn func() error) error {
	done, err := b.cb.Allow()
	if err != nil {
		return &FetchError{Upstream: b.name, Kind: KindCircuitOpen, Err: err}
	}
	// Only this call holds the half-open slot, so the state cannot move on
	// before done is called.
	halfOpen := b.cb.State() == gobreaker.StateHalfOpen

	err = fn()
	switch {
	case err == nil:
		done(true)
	case errors.Is(err, context.Canceled):
		// Closed: leave the counts alone. Half-open: the slot must be
		// released, and only a real success may close the breaker.
		if halfOpen {
			done(false)
		}
	default:
		b.lastFailure.Store(time.Now().UnixNano())
		done(false)
	}
	return err
}

// State returns the current state.
func (b *Breaker) State() State {
	return stateOf(b.cb.State())
}

// Snapshot returns the breaker's current state and counters.
func (b *Breaker) Snapshot() BreakerState {
	s := BreakerState{
		Upstream:     b.name,
		State:        b.State(),
		FailureCount: b.cb.Counts().ConsecutiveFailures,
	}
	if ns := b.lastFailure.Load(); ns != 0 {
		s.LastFailure = time.Unix(0, ns).UTC()
	}
	return s
}

func stateOf(s gobreaker.State) State {
	switch s {
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
