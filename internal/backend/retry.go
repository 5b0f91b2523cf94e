package backend

import (
	"context"
	"math/rand"
	"time"

	"genengine/internal/domain"
	"genengine/internal/infra"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 30 * time.Second
	defaultJitter     = 0.25
)

// RetryPolicy retries a backend attempt with bounded exponential backoff.
// Only overload, rate-limit and transient failures are retried; fatal errors
// and cancellations surface immediately.
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first, so a
	// policy with MaxRetries 3 performs at most 4 calls.
	MaxRetries int
	// BaseDelay seeds the backoff: attempt n sleeps BaseDelay * 2^n before
	// the next call, capped at MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Jitter widens each delay by a random factor in [-Jitter, +Jitter] so
	// concurrent variants do not hammer a recovering backend in lockstep.
	Jitter float64

	Logger infra.Logger
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: defaultMaxRetries,
		BaseDelay:  defaultBaseDelay,
		MaxDelay:   defaultMaxDelay,
		Jitter:     defaultJitter,
	}
}

func (p RetryPolicy) maxRetries() int {
	if p.MaxRetries < 0 {
		return 0
	}
	return p.MaxRetries
}

func (p RetryPolicy) baseDelay() time.Duration {
	if p.BaseDelay <= 0 {
		return defaultBaseDelay
	}
	return p.BaseDelay
}

func (p RetryPolicy) maxDelay() time.Duration {
	if p.MaxDelay <= 0 {
		return defaultMaxDelay
	}
	return p.MaxDelay
}

// Do runs fn until it succeeds, fails fatally, exhausts the retry budget or
// the context ends. On exhaustion the returned error is a
// *domain.RetryExhaustedError wrapping the last attempt's failure.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) (*domain.Artifact, error)) (*domain.Artifact, error) {
	var last error
	retries := p.maxRetries()
	attempts := 0

	for attempt := 0; attempt <= retries; attempt++ {
		if ctx.Err() != nil {
			return nil, domain.ContextError(ctx)
		}

		art, err := fn(ctx)
		attempts++
		if err == nil {
			return art, nil
		}
		if !domain.IsRetryable(err) {
			return nil, err
		}
		last = err
		if attempt == retries {
			break
		}

		delay := p.backoff(attempt)
		p.Logger.Debug().
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Str("kind", string(domain.KindOf(err))).
			Msg("backend attempt failed, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, domain.ContextError(ctx)
		}
	}

	return nil, &domain.RetryExhaustedError{
		Kind:     domain.KindOf(last),
		Attempts: attempts,
		Last:     last,
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.baseDelay() << uint(attempt)
	if max := p.maxDelay(); delay > max || delay <= 0 {
		delay = max
	}
	if p.Jitter > 0 {
		spread := (rand.Float64()*2 - 1) * p.Jitter
		delay = time.Duration(float64(delay) * (1 + spread))
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}
