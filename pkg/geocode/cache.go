package geocode

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"go.uber.org/zap"
)

// cacheKey returns SHA-256 hex of the normalized address line.
func cacheKey(line string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(line), " "))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

func newMemo(size int, ttl time.Duration) gcache.Cache {
	if size <= 0 {
		return nil
	}
	b := gcache.New(size).LRU()
	if ttl > 0 {
		b = b.Expiration(ttl)
	}
	return b.Build()
}

// cached returns a copy of a memoized answer.
func (g *geocoder) cached(key string) (*Result, bool) {
	if g.memo == nil {
		return nil, false
	}
	v, err := g.memo.Get(key)
	if err != nil {
		return nil, false
	}
	r, ok := v.(Result)
	if !ok {
		return nil, false
	}
	zap.L().Debug("geocode: cache hit", zap.String("key", key[:12]), zap.Bool("matched", r.Matched))
	return &r, true
}

func (g *geocoder) remember(key string, r *Result) {
	if g.memo == nil || r == nil {
		return
	}
	if err := g.memo.Set(key, *r); err != nil {
		zap.L().Debug("geocode: cache store failed", zap.Error(err))
	}
}
