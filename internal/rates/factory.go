package rates

import (
	"fmt"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/config"
)

// FromSettings builds the configured provider chain wrapped in a Converter.
// The returned close function releases the cache.
func FromSettings(s config.RateSettings) (*Converter, func(), error) {
	static := NewStaticProvider(s.Static)

	switch s.Source {
	case config.RateSourceStatic, "":
		return NewConverter(static), func() {}, nil
	case config.RateSourceCBR:
		remote := NewBreakerProvider(NewCBRProvider(s.CBRURL), BreakerSettings{Name: "cbr"})
		cached := NewCachedProvider(FirstOf(remote, static), s.CacheTTL)
		return NewConverter(cached), cached.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown rate source %q", common.ErrInvalidConfig, s.Source)
	}
}
