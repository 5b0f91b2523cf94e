package orchestrator

import (
	"context"
	"time"

	"genengine/internal/backend"
	"genengine/internal/domain"
)

// backendGenerator is the generation loop's view of the backend stack: model
// resolution, the shared concurrency limiter and the retry policy collapsed
// into one call. Each Generate is one loop attempt; retries for overloaded,
// rate-limited and transient failures happen inside it.
type backendGenerator struct {
	registry *backend.Registry
	limiter  *backend.Limiter
	retry    backend.RetryPolicy
	timeout  time.Duration
}

func newBackendGenerator(registry *backend.Registry, limiter *backend.Limiter, retry backend.RetryPolicy, timeout time.Duration) *backendGenerator {
	return &backendGenerator{registry: registry, limiter: limiter, retry: retry, timeout: timeout}
}

func (g *backendGenerator) Generate(ctx context.Context, req domain.GenerationRequest, strict bool) (*domain.Artifact, error) {
	inv, err := g.registry.Resolve(req.Model)
	if err != nil {
		return nil, err
	}
	cfg := backend.AttemptConfig{Timeout: g.timeout, Strict: strict}
	return g.retry.Do(ctx, func(ctx context.Context) (*domain.Artifact, error) {
		return g.limiter.Do(ctx, inv, req, cfg)
	})
}
