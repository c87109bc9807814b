package geocode

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/pantry-finder/internal/resilience"
)

// newTestGeocoder returns a geocoder with no rate limit, millisecond retries
// and requests rewritten from each upstream prefix to its test server.
func newTestGeocoder(rewrites map[string]string) *geocoder {
	g := newGeocoder()
	g.limiter = rate.NewLimiter(rate.Inf, 1)
	g.retry = resilience.Policy{Attempts: 3, Backoff: time.Millisecond, MaxBackoff: time.Millisecond}
	g.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, rewrites: rewrites}}
	return g
}

// rewriteTransport redirects requests whose URL starts with a known prefix to
// the matching test server URL.
type rewriteTransport struct {
	base     http.RoundTripper
	rewrites map[string]string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	for prefix, testURL := range t.rewrites {
		if !strings.HasPrefix(origURL, prefix) {
			continue
		}
		newReq := req.Clone(req.Context())
		parsed, err := req.URL.Parse(testURL + origURL[len(prefix):])
		if err != nil {
			return nil, err
		}
		newReq.URL = parsed
		newReq.Host = parsed.Host
		return t.base.RoundTrip(newReq)
	}
	return t.base.RoundTrip(req)
}
