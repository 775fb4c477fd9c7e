package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/config"
	"github.com/shopspring/decimal"
)

// HTTPBalanceFetcher reads on-chain balances from a JSON endpoint that
// answers {"balance": "<decimal>"} for a chain and address.
type HTTPBalanceFetcher struct {
	client      *http.Client
	urlTemplate string
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

// NewHTTPBalanceFetcher creates a fetcher from settings. It fails when no
// endpoint is configured.
func NewHTTPBalanceFetcher(settings config.BalanceSettings) (*HTTPBalanceFetcher, error) {
	if settings.URL == "" {
		return nil, fmt.Errorf("%w: balances.url is required to refresh on-chain balances", common.ErrMissingConfig)
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPBalanceFetcher{
		urlTemplate: settings.URL,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (f *HTTPBalanceFetcher) endpoint(chainID, address string) string {
	return strings.NewReplacer(
		"{chain}", url.PathEscape(chainID),
		"{address}", url.PathEscape(address),
	).Replace(f.urlTemplate)
}

// FetchBalance implements service.BalanceFetcher.
func (f *HTTPBalanceFetcher) FetchBalance(ctx context.Context, chainID, address string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint(chainID, address), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("balance endpoint returned status %d for %s on %s", resp.StatusCode, address, chainID)
	}

	var body balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode balance response: %w", err)
	}
	if body.Balance.IsNegative() {
		return decimal.Zero, fmt.Errorf("balance endpoint returned negative balance %s", body.Balance)
	}
	return body.Balance, nil
}
