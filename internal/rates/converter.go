// Package rates provides exchange-rate sources and currency conversion.
package rates

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/service"
	"github.com/shopspring/decimal"
)

// divisionPrecision is the number of decimal places kept when inverting or
// crossing rates.
const divisionPrecision = 12

// PairKey formats a currency pair as "FROM/TO".
func PairKey(from, to string) string {
	return normalize(from) + "/" + normalize(to)
}

func normalize(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// SameCurrency reports whether two currency codes name the same currency.
func SameCurrency(a, b string) bool {
	return normalize(a) == normalize(b)
}

// Converter converts amounts between currencies. Same-currency conversion
// never reaches the underlying provider.
type Converter struct {
	provider service.RateProvider
}

var _ service.RateProvider = (*Converter)(nil)

// NewConverter wraps a rate provider.
func NewConverter(provider service.RateProvider) *Converter {
	return &Converter{provider: provider}
}

// Rate returns the rate from one currency to another. Every failure wraps
// common.ErrRateUnavailable.
func (c *Converter) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if SameCurrency(from, to) {
		return decimal.NewFromInt(1), nil
	}
	if c.provider == nil {
		return decimal.Zero, fmt.Errorf("%w: no provider for %s", common.ErrRateUnavailable, PairKey(from, to))
	}

	rate, err := c.provider.Rate(ctx, normalize(from), normalize(to))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %w", common.ErrRateUnavailable, PairKey(from, to), err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s returned non-positive rate %s", common.ErrRateUnavailable, PairKey(from, to), rate)
	}
	return rate, nil
}

// Convert converts amount from one currency to another.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	rate, err := c.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

// fallbackProvider asks each provider in turn and returns the first rate.
type fallbackProvider []service.RateProvider

// FirstOf returns a provider that tries providers in order.
func FirstOf(providers ...service.RateProvider) service.RateProvider {
	return fallbackProvider(providers)
}

func (f fallbackProvider) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	var lastErr error
	for _, p := range f {
		rate, err := p.Rate(ctx, from, to)
		if err == nil {
			return rate, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no providers", common.ErrRateUnavailable)
	}
	return decimal.Zero, lastErr
}
