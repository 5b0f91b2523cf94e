// Package orchestrator exposes the engine's top-level operation: route a
// strategy, produce content, fan the variant renditions out and collect the
// per-variant results.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"genengine/internal/backend"
	"genengine/internal/domain"
	"genengine/internal/fanout"
	"genengine/internal/genloop"
	"genengine/internal/infra"
	"genengine/internal/quality"
	"genengine/internal/strategy"
)

// Options wires an Engine. Registry is the only required field; everything
// else has a working default so tests and the offline mode stay terse.
type Options struct {
	Registry *backend.Registry
	Limiter  *backend.Limiter
	Retry    *backend.RetryPolicy
	Scorer   quality.Scorer
	Composer strategy.Composer
	Builder  PromptBuilder
	Defaults RequestDefaults

	// AttemptTimeout bounds each backend call. BatchTimeout bounds one
	// whole Orchestrate fan-out; zero means no batch deadline.
	AttemptTimeout time.Duration
	BatchTimeout   time.Duration

	// VariantConcurrency bounds how many variants render at once.
	VariantConcurrency int

	Logger *infra.Logger
}

// Result is everything one orchestration produced: the strategy decision and
// its content, plus one terminal result per requested variant in input
// order.
type Result struct {
	Results  []domain.VariantResult
	Strategy domain.StrategyDecision
	Content  *strategy.Content
}

// Succeeded counts the variants that delivered an artifact.
func (r *Result) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Succeeded() {
			n++
		}
	}
	return n
}

// Engine is the orchestration entry point. Build one per process and share
// it; all per-request state lives on the stack of Orchestrate.
type Engine struct {
	router       *strategy.Router
	builder      PromptBuilder
	scheduler    *fanout.Scheduler
	batchTimeout time.Duration
	logger       infra.Logger
}

func New(opts Options) *Engine {
	var logger infra.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	} else {
		logger = infra.Logger(zerolog.New(io.Discard))
	}
	if opts.Limiter == nil {
		opts.Limiter = backend.NewLimiter(4)
	}
	retry := backend.DefaultRetryPolicy()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 2 * time.Minute
	}
	if opts.Builder == nil {
		opts.Builder = NewStandardBuilder(opts.Defaults)
	}

	generator := newBackendGenerator(opts.Registry, opts.Limiter, retry, opts.AttemptTimeout)
	loop := genloop.New(generator, quality.NewEvaluator(opts.Scorer, logger), logger)
	corrector := genloop.NewCorrector(generator, logger)

	return &Engine{
		router:       strategy.NewRouter(opts.Composer, logger),
		builder:      opts.Builder,
		scheduler:    fanout.NewScheduler(loop, corrector, opts.VariantConcurrency, logger),
		batchTimeout: opts.BatchTimeout,
		logger:       logger,
	}
}

// Orchestrate runs one top-level request end to end. Variant failures stay
// inside their results; the returned error covers only the stages shared by
// all variants, strategy execution and request building.
func (e *Engine) Orchestrate(ctx context.Context, specs []domain.VariantSpec, reqCtx domain.RequestContext) (*Result, error) {
	if err := domain.ContextError(ctx); err != nil {
		return nil, err
	}

	decision := e.router.Route(reqCtx)
	e.logger.Info().
		Str("strategy", decision.Strategy).
		Int("variants", len(specs)).
		Msg("orchestrator: routed request")

	content, err := e.router.Execute(ctx, decision, reqCtx)
	if err != nil {
		return nil, fmt.Errorf("strategy execution: %w", err)
	}

	tasks := make([]fanout.Task, len(specs))
	for i, spec := range specs {
		req, err := e.builder.Build(spec, content, reqCtx)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		tasks[i] = fanout.Task{Spec: spec, Request: req}
	}

	runCtx := ctx
	if e.batchTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.batchTimeout)
		defer cancel()
	}
	results := e.scheduler.Run(runCtx, tasks)

	out := &Result{Results: results, Strategy: decision, Content: content}
	e.logger.Info().
		Str("strategy", decision.Strategy).
		Str("produced_by", content.Strategy).
		Int("variants", len(results)).
		Int("succeeded", out.Succeeded()).
		Msg("orchestrator: request complete")
	return out, nil
}
