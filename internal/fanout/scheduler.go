// Package fanout runs the per-variant generation loops of one order
// concurrently and joins them into a single result set. Variants are
// independent: one variant failing, timing out or panicking never cancels
// its siblings, and the result slice always lines up with the input slice.
package fanout

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"genengine/internal/domain"
	"genengine/internal/genloop"
	"genengine/internal/infra"
)

const defaultConcurrency = 3

// Task pairs a variant spec with the request already derived for it. The
// scheduler never derives requests itself; that keeps prompt assembly out of
// the concurrency layer.
type Task struct {
	Spec    domain.VariantSpec
	Request domain.GenerationRequest
}

// Scheduler fans a batch of variant tasks across a bounded worker pool and
// waits for all of them. Scheduling order across variants is unspecified;
// only the result order is guaranteed.
type Scheduler struct {
	loop      *genloop.Loop
	corrector *genloop.Corrector
	limit     int
	logger    infra.Logger
}

// NewScheduler builds a scheduler over the given loop. corrector may be nil
// when structural constraints are not enforced. limit bounds how many
// variants run at once; values below one fall back to the default.
func NewScheduler(loop *genloop.Loop, corrector *genloop.Corrector, limit int, logger infra.Logger) *Scheduler {
	if limit < 1 {
		limit = defaultConcurrency
	}
	return &Scheduler{loop: loop, corrector: corrector, limit: limit, logger: logger}
}

// Run executes every task and blocks until each one reaches a terminal
// state. The returned slice has one entry per task, in task order. Errors
// are carried inside the results, never returned: a batch where every
// variant failed still yields len(tasks) results.
func (s *Scheduler) Run(ctx context.Context, tasks []Task) []domain.VariantResult {
	results := make([]domain.VariantResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	started := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			results[i] = s.runOne(ctx, task)
			// Failures are reported per variant; never cancel the group.
			return nil
		})
	}
	// Workers never return errors, so Wait only joins.
	_ = g.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Succeeded() {
			succeeded++
		}
	}
	s.logger.Info().
		Int("variants", len(tasks)).
		Int("succeeded", succeeded).
		Dur("elapsed", time.Since(started)).
		Msg("fanout: batch complete")

	return results
}

func (s *Scheduler) runOne(ctx context.Context, task Task) (result domain.VariantResult) {
	result.Spec = task.Spec

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("variant", task.Spec.Key()).
				Interface("panic", r).
				Msg("fanout: variant worker panicked")
			result.Artifact = nil
			result.Err = domain.NewBackendError(domain.KindFatal, task.Request.Model,
				fmt.Errorf("variant %s panicked: %v", task.Spec.Key(), r))
		}
	}()

	// A variant queued behind the concurrency gate may find the batch
	// already dead; report it without spending a backend call.
	if err := domain.ContextError(ctx); err != nil {
		result.Err = err
		return result
	}

	outcome, err := s.loop.Run(ctx, task.Request)
	if outcome != nil {
		result.Attempts = outcome.Attempts
		result.History = outcome.History
	}
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("variant", task.Spec.Key()).
			Int("attempts", result.Attempts).
			Msg("fanout: variant failed")
		result.Err = err
		return result
	}

	result.Artifact = outcome.Artifact
	result.ThresholdMet = outcome.ThresholdMet

	if s.corrector != nil {
		correction := s.corrector.EnsureConstraints(ctx, task.Request, outcome.Artifact)
		result.Artifact = correction.Artifact
		result.Corrected = correction.Corrected
		if correction.Attempt != nil {
			correction.Attempt.Index = len(result.History) + 1
			result.History = append(result.History, *correction.Attempt)
			result.Attempts++
		}
	}

	s.logger.Debug().
		Str("variant", task.Spec.Key()).
		Int("attempts", result.Attempts).
		Bool("threshold_met", result.ThresholdMet).
		Bool("corrected", result.Corrected).
		Msg("fanout: variant complete")
	return result
}
