// Package genloop drives one generation request to a terminal artifact: it
// sequences backend attempts, applies the quality gate and bounds how much a
// low-scoring artifact may cost in regenerations.
package genloop

import (
	"context"
	"time"

	"genengine/internal/domain"
	"genengine/internal/infra"
	"genengine/internal/quality"
)

// Generator produces one artifact for a request with retries already applied.
// strict marks a corrective pass where structural constraints must be spelled
// out to the backend.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest, strict bool) (*domain.Artifact, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req domain.GenerationRequest, strict bool) (*domain.Artifact, error)

func (f GeneratorFunc) Generate(ctx context.Context, req domain.GenerationRequest, strict bool) (*domain.Artifact, error) {
	return f(ctx, req, strict)
}

// Outcome is the terminal state of one request's loop.
type Outcome struct {
	Artifact     *domain.Artifact
	Attempts     int
	ThresholdMet bool
	Score        float64
	Scored       bool
	History      []domain.Attempt
}

// Loop is the quality-gated generation state machine. Attempts within one
// request run strictly sequentially because each attempt may depend on the
// previous attempt's evaluation.
type Loop struct {
	generator Generator
	evaluator *quality.Evaluator
	logger    infra.Logger
}

func New(generator Generator, evaluator *quality.Evaluator, logger infra.Logger) *Loop {
	return &Loop{generator: generator, evaluator: evaluator, logger: logger}
}

// Run produces one artifact for the request. The evaluator is consulted only
// on the first attempt; a regenerated artifact is assumed already improved
// and accepted directly. That caps cost at MaxAttempts backend calls and one
// evaluator call per request no matter how the knobs are set.
//
// Generation failure is the only way an error escapes: if a later attempt
// fails terminally after an earlier one produced an artifact, the best
// artifact seen so far is returned instead of the error. On error the
// outcome still carries the attempt history for diagnostics.
func (l *Loop) Run(ctx context.Context, req domain.GenerationRequest) (*Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !req.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, req.Deadline)
		defer cancel()
	}

	outcome := &Outcome{}
	current := req
	var best *domain.Artifact

	for attempt := 1; attempt <= req.MaxAttempts; attempt++ {
		outcome.Attempts = attempt
		start := time.Now()
		artifact, err := l.generator.Generate(ctx, current, false)
		record := domain.Attempt{
			Index:    attempt,
			Model:    current.Model,
			Duration: time.Since(start),
		}

		if err != nil {
			record.Err = err
			record.Outcome = domain.AttemptFatalError
			if domain.KindOf(err).Retryable() {
				record.Outcome = domain.AttemptRetryableError
			}
			outcome.History = append(outcome.History, record)

			if best != nil {
				l.logger.Warn().
					Err(err).
					Str("request_id", req.ID).
					Int("attempt", attempt).
					Msg("genloop: regeneration failed, keeping best artifact so far")
				outcome.Artifact = best
				return outcome, nil
			}
			return outcome, err
		}

		record.Outcome = domain.AttemptSuccess
		record.Artifact = artifact

		if attempt == 1 {
			decision := l.evaluator.Evaluate(ctx, current, artifact)
			if decision.Scored {
				record.Score, record.Scored = decision.Score, true
				outcome.Score, outcome.Scored = decision.Score, true
			}
			outcome.History = append(outcome.History, record)

			if decision.Accept {
				outcome.Artifact = artifact
				outcome.ThresholdMet = true
				return outcome, nil
			}
			if attempt == req.MaxAttempts {
				outcome.Artifact = artifact
				return outcome, nil
			}

			l.logger.Debug().
				Str("request_id", req.ID).
				Float64("score", decision.Score).
				Float64("threshold", req.QualityThreshold).
				Int("directives", len(decision.Directives)).
				Msg("genloop: quality below threshold, regenerating")
			best = artifact
			current = current.WithDirectives(decision.Directives...)
			continue
		}

		outcome.History = append(outcome.History, record)
		outcome.Artifact = artifact
		return outcome, nil
	}

	// Unreachable: MaxAttempts >= 1 is enforced by Validate and every branch
	// above returns.
	return outcome, domain.ErrNoArtifact
}
