package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/service"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

// BreakerSettings tunes the circuit breaker around a remote provider.
type BreakerSettings struct {
	Name                string
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// BreakerProvider stops calling a failing remote provider until its
// cool-down elapses.
type BreakerProvider struct {
	inner service.RateProvider
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerProvider wraps inner with a circuit breaker.
func NewBreakerProvider(inner service.RateProvider, settings BreakerSettings) *BreakerProvider {
	if settings.Name == "" {
		settings.Name = "rates"
	}
	if settings.Timeout == 0 {
		settings.Timeout = time.Minute
	}
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = 3
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		// Missing pairs are answers, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, common.ErrRateUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("rate provider breaker changed state", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &BreakerProvider{inner: inner, cb: cb}
}

// Rate implements service.RateProvider.
func (b *BreakerProvider) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Rate(ctx, from, to)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return decimal.Zero, fmt.Errorf("%w: %s: %w", common.ErrRateUnavailable, PairKey(from, to), err)
		}
		return decimal.Zero, err
	}
	return result.(decimal.Decimal), nil
}

// State reports the breaker state.
func (b *BreakerProvider) State() gobreaker.State {
	return b.cb.State()
}
