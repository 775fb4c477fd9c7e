package rates

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// cbrBaseCurrency is the currency every CBR quote is expressed in.
const cbrBaseCurrency = "RUB"

// CBRProvider reads the Central Bank of Russia daily quote sheet. Each
// Valute entry quotes Nominal units of CharCode in rubles; any pair is
// derived by crossing through the ruble.
type CBRProvider struct {
	client *http.Client
	url    string
}

// NewCBRProvider creates a provider for the quote sheet at url.
func NewCBRProvider(url string) *CBRProvider {
	return &CBRProvider{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Rate implements service.RateProvider.
func (p *CBRProvider) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if SameCurrency(from, to) {
		return decimal.NewFromInt(1), nil
	}

	quotes, err := p.Quotes(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	fromRub, ok := quotes[normalize(from)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: cbr has no quote for %s", common.ErrRateUnavailable, normalize(from))
	}
	toRub, ok := quotes[normalize(to)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: cbr has no quote for %s", common.ErrRateUnavailable, normalize(to))
	}

	return fromRub.DivRound(toRub, divisionPrecision), nil
}

// Quotes fetches the sheet and returns the ruble price of one unit of each
// listed currency, RUB included.
func (p *CBRProvider) Quotes(ctx context.Context) (map[string]decimal.Decimal, error) {
	body, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return parseCBRQuotes(body)
}

func (p *CBRProvider) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cbr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("cbr returned status %d", resp.StatusCode),
			Retryable: resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cbr response: %w", err)
	}

	slog.Debug("fetched cbr quote sheet", "bytes", len(body))
	return body, nil
}

// parseCBRQuotes reads a ValCurs document. The sheet is served as
// windows-1251.
func parseCBRQuotes(raw []byte) (map[string]decimal.Decimal, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		switch strings.ToLower(label) {
		case "windows-1251", "cp1251":
			return charmap.Windows1251.NewDecoder().Reader(input), nil
		case "utf-8", "":
			return input, nil
		}
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("failed to parse cbr XML: %w", err)
	}

	valutes := doc.FindElements("//ValCurs/Valute")
	if len(valutes) == 0 {
		return nil, fmt.Errorf("%w: no quotes in cbr sheet", common.ErrRateUnavailable)
	}

	quotes := map[string]decimal.Decimal{cbrBaseCurrency: decimal.NewFromInt(1)}
	for _, v := range valutes {
		code := elementText(v, "CharCode")
		if code == "" {
			continue
		}

		value, err := parseCBRNumber(elementText(v, "Value"))
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", code, err)
		}
		nominal := decimal.NewFromInt(1)
		if raw := elementText(v, "Nominal"); raw != "" {
			if nominal, err = parseCBRNumber(raw); err != nil {
				return nil, fmt.Errorf("invalid nominal for %s: %w", code, err)
			}
		}
		if !value.IsPositive() || !nominal.IsPositive() {
			continue
		}

		quotes[normalize(code)] = value.DivRound(nominal, divisionPrecision)
	}

	return quotes, nil
}

func elementText(parent *etree.Element, tag string) string {
	el := parent.SelectElement(tag)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// parseCBRNumber accepts the sheet's comma decimal separator.
func parseCBRNumber(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
}
