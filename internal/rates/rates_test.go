package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/config"
	"github.com/Veraticus/goalpost/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cbrSheet = `<?xml version="1.0" encoding="windows-1251"?>
<ValCurs Date="16.10.2026" name="Foreign Currency Market">
	<Valute ID="R01235">
		<NumCode>840</NumCode>
		<CharCode>USD</CharCode>
		<Nominal>1</Nominal>
		<Name>US Dollar</Name>
		<Value>80,0000</Value>
	</Valute>
	<Valute ID="R01239">
		<NumCode>978</NumCode>
		<CharCode>EUR</CharCode>
		<Nominal>1</Nominal>
		<Name>Euro</Name>
		<Value>88,0000</Value>
	</Valute>
	<Valute ID="R01375">
		<NumCode>156</NumCode>
		<CharCode>CNY</CharCode>
		<Nominal>10</Nominal>
		<Name>Yuan</Name>
		<Value>112,5000</Value>
	</Valute>
</ValCurs>`

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestConverter_SameCurrencySkipsProvider(t *testing.T) {
	calls := 0
	conv := NewConverter(service.RateFunc(func(context.Context, string, string) (decimal.Decimal, error) {
		calls++
		return dec("2"), nil
	}))

	got, err := conv.Convert(context.Background(), dec("12.5"), "usd", "USD")
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("12.5")))
	assert.Zero(t, calls)
}

func TestConverter_WrapsProviderFailure(t *testing.T) {
	boom := errors.New("network down")
	conv := NewConverter(service.RateFunc(func(context.Context, string, string) (decimal.Decimal, error) {
		return decimal.Zero, boom
	}))

	_, err := conv.Convert(context.Background(), dec("1"), "BTC", "USD")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRateUnavailable)
	assert.ErrorIs(t, err, boom)
}

func TestConverter_RejectsNonPositiveRate(t *testing.T) {
	conv := NewConverter(service.RateFunc(func(context.Context, string, string) (decimal.Decimal, error) {
		return decimal.Zero, nil
	}))

	_, err := conv.Rate(context.Background(), "BTC", "USD")
	assert.ErrorIs(t, err, common.ErrRateUnavailable)
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider(map[string]decimal.Decimal{
		"BTC/USD": dec("60000"),
		"usd/eur": dec("0.5"),
		"bad":     dec("1"),
	})
	ctx := context.Background()

	tests := []struct {
		name    string
		from    string
		to      string
		want    string
		wantErr bool
	}{
		{name: "direct", from: "BTC", to: "USD", want: "60000"},
		{name: "inverse", from: "EUR", to: "USD", want: "2"},
		{name: "cross", from: "BTC", to: "EUR", want: "30000"},
		{name: "same", from: "EUR", to: "eur", want: "1"},
		{name: "unknown", from: "GBP", to: "USD", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Rate(ctx, tt.from, tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrRateUnavailable)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseCBRQuotes(t *testing.T) {
	quotes, err := parseCBRQuotes([]byte(cbrSheet))
	require.NoError(t, err)

	assert.True(t, quotes["RUB"].Equal(dec("1")))
	assert.True(t, quotes["USD"].Equal(dec("80")))
	assert.True(t, quotes["CNY"].Equal(dec("11.25")), "nominal must be divided out")
}

func TestParseCBRQuotes_Empty(t *testing.T) {
	_, err := parseCBRQuotes([]byte(`<?xml version="1.0" encoding="utf-8"?><ValCurs/>`))
	assert.ErrorIs(t, err, common.ErrRateUnavailable)
}

func TestCBRProvider_CrossRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml; charset=windows-1251")
		_, _ = w.Write([]byte(cbrSheet))
	}))
	defer srv.Close()

	p := NewCBRProvider(srv.URL)
	ctx := context.Background()

	rate, err := p.Rate(ctx, "USD", "RUB")
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("80")))

	rate, err = p.Rate(ctx, "EUR", "USD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("1.1")))

	_, err = p.Rate(ctx, "JPY", "USD")
	assert.ErrorIs(t, err, common.ErrRateUnavailable)
}

func TestCBRProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewCBRProvider(srv.URL).Rate(context.Background(), "USD", "RUB")
	require.Error(t, err)

	var retryable *common.RetryableError
	require.ErrorAs(t, err, &retryable)
	assert.True(t, retryable.Retryable)
}

func TestCachedProvider(t *testing.T) {
	var calls atomic.Int32
	inner := service.RateFunc(func(context.Context, string, string) (decimal.Decimal, error) {
		calls.Add(1)
		return dec("3"), nil
	})

	c := NewCachedProvider(inner, time.Minute)
	defer c.Close()

	current := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	ctx := context.Background()
	for range 3 {
		rate, err := c.Rate(ctx, "usd", "eur")
		require.NoError(t, err)
		assert.True(t, rate.Equal(dec("3")))
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, c.Size())

	current = current.Add(2 * time.Minute)
	_, err := c.Rate(ctx, "USD", "EUR")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCachedProvider_DoesNotCacheFailures(t *testing.T) {
	var calls atomic.Int32
	inner := service.RateFunc(func(context.Context, string, string) (decimal.Decimal, error) {
		calls.Add(1)
		return decimal.Zero, common.ErrRateUnavailable
	})

	c := NewCachedProvider(inner, time.Minute)
	defer c.Close()

	_, _ = c.Rate(context.Background(), "A", "B")
	_, _ = c.Rate(context.Background(), "A", "B")
	assert.Equal(t, int32(2), calls.Load())
	assert.Zero(t, c.Size())
}

func TestBreakerProvider_OpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	inner := service.RateFunc(func(context.Context, string, string) (decimal.Decimal, error) {
		calls.Add(1)
		return decimal.Zero, errors.New("connection refused")
	})

	b := NewBreakerProvider(inner, BreakerSettings{ConsecutiveFailures: 2, Timeout: time.Hour})
	ctx := context.Background()

	for range 2 {
		_, err := b.Rate(ctx, "USD", "RUB")
		require.Error(t, err)
	}

	_, err := b.Rate(ctx, "USD", "RUB")
	assert.ErrorIs(t, err, common.ErrRateUnavailable)
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not call through")
}

func TestBreakerProvider_MissingPairDoesNotTrip(t *testing.T) {
	inner := NewStaticProvider(map[string]decimal.Decimal{"USD/EUR": dec("0.9")})
	b := NewBreakerProvider(inner, BreakerSettings{ConsecutiveFailures: 1, Timeout: time.Hour})
	ctx := context.Background()

	_, err := b.Rate(ctx, "GBP", "JPY")
	require.ErrorIs(t, err, common.ErrRateUnavailable)

	rate, err := b.Rate(ctx, "USD", "EUR")
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("0.9")))
}

func TestFirstOf(t *testing.T) {
	failing := service.RateFunc(func(context.Context, string, string) (decimal.Decimal, error) {
		return decimal.Zero, errors.New("down")
	})
	static := NewStaticProvider(map[string]decimal.Decimal{"USD/EUR": dec("0.9")})

	rate, err := FirstOf(failing, static).Rate(context.Background(), "USD", "EUR")
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("0.9")))

	_, err = FirstOf().Rate(context.Background(), "USD", "EUR")
	assert.ErrorIs(t, err, common.ErrRateUnavailable)
}

func TestFromSettings(t *testing.T) {
	conv, closeFn, err := FromSettings(config.RateSettings{
		Source: config.RateSourceStatic,
		Static: map[string]decimal.Decimal{"BTC/USD": dec("50000")},
	})
	require.NoError(t, err)
	defer closeFn()

	got, err := conv.Convert(context.Background(), dec("0.5"), "BTC", "USD")
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("25000")))

	_, _, err = FromSettings(config.RateSettings{Source: "oracle"})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}
