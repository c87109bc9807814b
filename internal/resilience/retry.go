// Package resilience retries and sheds calls to external HTTP services.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls retries with exponential backoff and jitter.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int `mapstructure:"attempts" validate:"gte=0,lte=10"`

	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration `mapstructure:"backoff"`

	// MaxBackoff caps a single delay.
	MaxBackoff time.Duration `mapstructure:"max_backoff"`

	// Jitter randomizes each delay by up to this fraction in either direction.
	Jitter float64 `mapstructure:"jitter" validate:"gte=0,lte=1"`
}

// DefaultPolicy returns three attempts starting at 250ms.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Backoff:    250 * time.Millisecond,
		MaxBackoff: 5 * time.Second,
		Jitter:     0.2,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = def.Attempts
	}
	if p.Backoff <= 0 {
		p.Backoff = def.Backoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = def.MaxBackoff
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}

// Retry calls fn until it succeeds, returns a non-transient error, the
// attempts run out or ctx is done. service names the callee in retry logs.
func Retry[T any](ctx context.Context, p Policy, service string, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsTransient(err) || attempt == p.Attempts-1 {
			break
		}

		zap.L().Warn("resilience: retrying call",
			zap.String("service", service),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.Backoff) * math.Pow(2, float64(attempt))
	if d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
