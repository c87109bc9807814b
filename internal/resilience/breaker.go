package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrBreakerOpen is returned while a service is being skipped.
var ErrBreakerOpen = eris.New("resilience: breaker open")

// Breaker skips a service after Threshold consecutive failures until Cooldown
// has passed; the first call after that is a probe.
type Breaker struct {
	Service   string
	Threshold int
	Cooldown  time.Duration

	mu       sync.Mutex
	failures int
	openedAt time.Time
	now      func() time.Time
}

// NewBreaker creates a Breaker. Non-positive values select 5 failures and 30s.
func NewBreaker(service string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{Service: service, Threshold: threshold, Cooldown: cooldown, now: time.Now}
}

// Allow returns ErrBreakerOpen when the service should be skipped.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures < b.Threshold {
		return nil
	}
	if b.now().Sub(b.openedAt) >= b.Cooldown {
		return nil
	}
	return eris.Wrapf(ErrBreakerOpen, "resilience: skipping %s", b.Service)
}

// Record counts a call outcome. Only transient errors count as failures.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil || !IsTransient(err) {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.Threshold {
		if b.failures == b.Threshold {
			zap.L().Warn("resilience: breaker opened",
				zap.String("service", b.Service),
				zap.Duration("cooldown", b.Cooldown),
			)
		}
		b.openedAt = b.now()
	}
}
