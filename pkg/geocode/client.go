// Package geocode resolves free-form addresses to coordinates via the Census
// Geocoder, falling back to Google when an API key is configured.
package geocode

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bluele/gcache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/pantry-finder/internal/resilience"
)

// Client geocodes addresses.
type Client interface {
	// Geocode geocodes a single address. An address no provider could match
	// returns a Result with Matched false and a nil error.
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)
}

// AddressInput is an address to geocode. Line, when set, is used verbatim;
// otherwise the structured parts are joined.
type AddressInput struct {
	Line    string
	Street  string
	City    string
	State   string
	ZipCode string
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude       float64
	Longitude      float64
	Source         string // "census" or "google"
	Quality        string // "rooftop", "range", "centroid", "approximate"
	MatchedAddress string
	Matched        bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithGoogleAPIKey enables Google Geocoding API as a fallback.
func WithGoogleAPIKey(key string) Option {
	return func(g *geocoder) {
		g.googleKey = key
	}
}

// WithHTTPClient sets a custom HTTP client for both Census and Google requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit shared by all providers.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		if rps > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
		}
	}
}

// WithRetry sets the retry policy applied to each provider call.
func WithRetry(p resilience.Policy) Option {
	return func(g *geocoder) {
		g.retry = p
	}
}

// WithCache memoizes up to size answers for ttl. A size of zero disables it.
func WithCache(size int, ttl time.Duration) Option {
	return func(g *geocoder) {
		g.memo = newMemo(size, ttl)
	}
}

type provider struct {
	name    string
	lookup  func(ctx context.Context, line string) (*Result, error)
	breaker *resilience.Breaker
}

type geocoder struct {
	httpClient *http.Client
	googleKey  string
	limiter    *rate.Limiter
	retry      resilience.Policy
	memo       gcache.Cache
	census     *resilience.Breaker
	google     *resilience.Breaker
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := newGeocoder()
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func newGeocoder() *geocoder {
	return &geocoder{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
		retry:      resilience.DefaultPolicy(),
		memo:       newMemo(1024, 24*time.Hour),
		census:     resilience.NewBreaker("census", 5, 30*time.Second),
		google:     resilience.NewBreaker("google", 5, 30*time.Second),
	}
}

func (g *geocoder) providers() []provider {
	ps := []provider{{name: "census", lookup: g.geocodeCensus, breaker: g.census}}
	if g.googleKey != "" {
		ps = append(ps, provider{name: "google", lookup: g.geocodeGoogle, breaker: g.google})
	}
	return ps
}

// Geocode tries Census first, then Google if configured. Answers are memoized;
// outages are not.
func (g *geocoder) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	line := formatOneLine(addr)
	if line == "" {
		return nil, eris.New("geocode: empty address")
	}

	key := cacheKey(line)
	if r, ok := g.cached(key); ok {
		return r, nil
	}

	var errs []error
	answered := false
	for _, p := range g.providers() {
		if p.breaker != nil {
			if err := p.breaker.Allow(); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		result, err := resilience.Retry(ctx, g.retry, p.name, func(ctx context.Context) (*Result, error) {
			return p.lookup(ctx, line)
		})
		if p.breaker != nil {
			p.breaker.Record(err)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "geocode: canceled")
			}
			zap.L().Debug("geocode: provider failed, trying next",
				zap.String("provider", p.name),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		answered = true
		if result.Matched {
			g.remember(key, result)
			return result, nil
		}
	}

	if !answered {
		return nil, eris.Wrap(errors.Join(errs...), "geocode: no provider answered")
	}

	// Every provider answered and none matched.
	noMatch := &Result{Matched: false}
	g.remember(key, noMatch)
	return noMatch, nil
}
