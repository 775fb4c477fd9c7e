package rates

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/shopspring/decimal"
)

// StaticProvider serves rates from a fixed table. Inverse pairs and one-hop
// cross rates are derived from the configured entries.
type StaticProvider struct {
	rates map[string]decimal.Decimal
}

// NewStaticProvider creates a provider from "FROM/TO" keyed rates.
func NewStaticProvider(pairs map[string]decimal.Decimal) *StaticProvider {
	rates := make(map[string]decimal.Decimal, len(pairs))
	for pair, rate := range pairs {
		parts := strings.Split(pair, "/")
		if len(parts) != 2 || !rate.IsPositive() {
			continue
		}
		rates[PairKey(parts[0], parts[1])] = rate
	}
	return &StaticProvider{rates: rates}
}

// Rate implements service.RateProvider.
func (p *StaticProvider) Rate(_ context.Context, from, to string) (decimal.Decimal, error) {
	if SameCurrency(from, to) {
		return decimal.NewFromInt(1), nil
	}
	if rate, ok := p.direct(from, to); ok {
		return rate, nil
	}

	for pair := range p.rates {
		via := strings.SplitN(pair, "/", 2)
		for _, mid := range via {
			if SameCurrency(mid, from) || SameCurrency(mid, to) {
				continue
			}
			first, ok1 := p.direct(from, mid)
			second, ok2 := p.direct(mid, to)
			if ok1 && ok2 {
				return first.Mul(second).Round(divisionPrecision), nil
			}
		}
	}

	return decimal.Zero, fmt.Errorf("%w: no static rate for %s", common.ErrRateUnavailable, PairKey(from, to))
}

func (p *StaticProvider) direct(from, to string) (decimal.Decimal, bool) {
	if rate, ok := p.rates[PairKey(from, to)]; ok {
		return rate, true
	}
	if rate, ok := p.rates[PairKey(to, from)]; ok {
		return decimal.NewFromInt(1).DivRound(rate, divisionPrecision), true
	}
	return decimal.Zero, false
}
