// Package backend performs single-attempt calls against external generation
// backends. Invokers classify failures into the shared error taxonomy and do
// nothing else: retries belong to RetryPolicy, quality to the evaluator.
package backend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/semaphore"

	"genengine/internal/domain"
)

// AttemptConfig tunes one backend invocation.
type AttemptConfig struct {
	// Timeout caps the single attempt, submit and poll phases included.
	// Zero means the caller's context is the only bound.
	Timeout time.Duration
	// Strict marks a corrective regeneration; invokers that support it ask
	// the backend to honor structural constraints exactly.
	Strict bool
}

// Invoker performs exactly one call to an external generation backend.
// Implementations never retry and never evaluate quality.
type Invoker interface {
	Model() string
	Invoke(ctx context.Context, req domain.GenerationRequest, cfg AttemptConfig) (*domain.Artifact, error)
}

// Registry maps model identifiers to invokers, mirroring the backend
// allow-list: requests for unknown models are rejected as fatal instead of
// silently reaching an arbitrary backend.
type Registry struct {
	invokers     map[string]Invoker
	defaultModel string
}

func NewRegistry() *Registry {
	return &Registry{invokers: make(map[string]Invoker)}
}

// Register makes the invoker available under the given model id. The first
// registration becomes the default unless SetDefault overrides it.
func (r *Registry) Register(model string, inv Invoker) {
	if model == "" || inv == nil {
		return
	}
	if len(r.invokers) == 0 && r.defaultModel == "" {
		r.defaultModel = model
	}
	r.invokers[model] = inv
}

func (r *Registry) SetDefault(model string) {
	r.defaultModel = model
}

// Resolve returns the invoker for the requested model, falling back to the
// default when no model is named. An unknown model is a fatal error: it is a
// caller mistake, not a backend hiccup.
func (r *Registry) Resolve(model string) (Invoker, error) {
	if model == "" {
		model = r.defaultModel
	}
	inv, ok := r.invokers[model]
	if !ok {
		return nil, domain.NewBackendError(domain.KindFatal, model,
			fmt.Errorf("%w: %q", domain.ErrUnsupportedModel, model))
	}
	return inv, nil
}

// Models lists the registered model identifiers in stable order.
func (r *Registry) Models() []string {
	out := make([]string, 0, len(r.invokers))
	for model := range r.invokers {
		out = append(out, model)
	}
	sort.Strings(out)
	return out
}

// Limiter bounds how many backend calls run at once across all variants and
// strategies. The slot is held only for the duration of the call itself, so
// backoff sleeps never occupy backend capacity.
type Limiter struct {
	sem *semaphore.Weighted
}

// NewLimiter builds a limiter admitting up to n concurrent backend calls.
// Non-positive n falls back to 1.
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		n = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n))}
}

// Do acquires a slot, applies the per-attempt timeout and runs the invoker.
// The slot is released on every exit path, panics included.
func (l *Limiter) Do(ctx context.Context, inv Invoker, req domain.GenerationRequest, cfg AttemptConfig) (*domain.Artifact, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, domain.ContextError(ctx)
	}
	defer l.sem.Release(1)

	attemptCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	return inv.Invoke(attemptCtx, req, cfg)
}
