// Package guard bounds backing store calls with a per-call timeout and a circuit breaker.
//
// Failures leave the guard as domain.UnavailableError, so callers can match
// domain.ErrBackingStoreUnavailable (and domain.ErrTimeout for deadlines) without knowing the driver.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinegraph/internal/db"
	"github.com/kailas-cloud/cinegraph/internal/domain"
	"github.com/kailas-cloud/cinegraph/internal/metrics"
)

// Settings configures the timeout and breaker of one store.
type Settings struct {
	// Timeout bounds every call; zero disables it.
	Timeout time.Duration
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval resets counts while closed.
	Interval time.Duration
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// MinRequests before the failure ratio is considered.
	MinRequests uint32
	// FailureRatio at or above which the breaker opens.
	FailureRatio float64
}

// DefaultSettings returns conservative defaults.
func DefaultSettings() Settings {
	return Settings{
		Timeout:      2 * time.Second,
		MaxRequests:  3,
		Interval:     time.Minute,
		OpenTimeout:  30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// Guard wraps calls to a single named store.
type Guard struct {
	name    string
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[any]
	logger  *zap.Logger
}

// New creates a guard for store name.
func New(name string, s Settings, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Guard{name: name, timeout: s.Timeout, logger: logger}

	metrics.StoreBreakerState.WithLabelValues(name).Set(0)

	g.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("Store circuit breaker state change",
				zap.String("store", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.StoreBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.StoreBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: func(err error) bool {
			return err == nil || db.IsBenign(err) || errors.Is(err, context.Canceled)
		},
	})
	return g
}

// Name returns the store name.
func (g *Guard) Name() string { return g.name }

// State returns the current breaker state.
func (g *Guard) State() gobreaker.State { return g.cb.State() }

// Do runs fn under g's timeout and breaker.
func Do[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	res, err := g.cb.Execute(func() (any, error) {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		res, err := fn(callCtx)
		if err != nil && !db.IsBenign(err) && !errors.Is(err, context.DeadlineExceeded) &&
			errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			// The driver gave up after the deadline without saying so.
			err = fmt.Errorf("%w: %w", err, context.DeadlineExceeded)
		}
		return res, err
	})
	if err != nil {
		return zero, g.classify(err)
	}
	metrics.StoreRequestsTotal.WithLabelValues(g.name, "success").Inc()
	typed, _ := res.(T)
	return typed, nil
}

// Run is Do for calls without a result.
func Run(ctx context.Context, g *Guard, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func (g *Guard) classify(err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.StoreRequestsTotal.WithLabelValues(g.name, "rejected").Inc()
		return domain.NewUnavailable(g.name, err)
	case db.IsBenign(err):
		metrics.StoreRequestsTotal.WithLabelValues(g.name, "success").Inc()
		return err
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		metrics.StoreRequestsTotal.WithLabelValues(g.name, "timeout").Inc()
		return domain.NewUnavailable(g.name, err)
	default:
		metrics.StoreRequestsTotal.WithLabelValues(g.name, "failure").Inc()
		return domain.NewUnavailable(g.name, err)
	}
}

func stateValue(s gobreaker.State) float64 {
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
