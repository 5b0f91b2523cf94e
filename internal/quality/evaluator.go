// Package quality scores generated artifacts and turns scores into accept or
// regenerate decisions for the generation loop.
package quality

import (
	"context"

	"genengine/internal/domain"
	"genengine/internal/infra"
)

// Review is a scorer's raw judgment of one artifact.
type Review struct {
	// Score is on a 0 to 10 scale, higher is better.
	Score float64
	// Directives are concrete prompt additions that would improve a weak
	// artifact, phrased for the generation backend.
	Directives []string
}

// Scorer judges one artifact against the request that produced it.
type Scorer interface {
	Score(ctx context.Context, req domain.GenerationRequest, artifact *domain.Artifact) (*Review, error)
}

// Decision is the evaluator's verdict for one attempt.
type Decision struct {
	Accept     bool
	Score      float64
	Scored     bool
	Directives []string
}

// Evaluator wraps a scorer with the gate policy: the quality gate fails open,
// so a broken or panicking scorer can degrade quality but never availability.
type Evaluator struct {
	scorer Scorer
	logger infra.Logger
}

func NewEvaluator(scorer Scorer, logger infra.Logger) *Evaluator {
	return &Evaluator{scorer: scorer, logger: logger}
}

// Evaluate scores the artifact and compares it against the request threshold.
// Any scorer failure accepts the artifact unscored.
func (e *Evaluator) Evaluate(ctx context.Context, req domain.GenerationRequest, artifact *domain.Artifact) (decision Decision) {
	if e == nil || e.scorer == nil {
		return Decision{Accept: true}
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Interface("panic", r).
				Str("request_id", req.ID).
				Msg("quality: scorer panicked, accepting artifact unscored")
			decision = Decision{Accept: true}
		}
	}()

	review, err := e.scorer.Score(ctx, req, artifact)
	if err != nil || review == nil {
		e.logger.Warn().
			Err(err).
			Str("request_id", req.ID).
			Msg("quality: scorer unavailable, accepting artifact unscored")
		return Decision{Accept: true}
	}

	score := clampScore(review.Score)
	return Decision{
		Accept:     score >= req.QualityThreshold,
		Score:      score,
		Scored:     true,
		Directives: review.Directives,
	}
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}
