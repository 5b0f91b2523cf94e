package genloop

import (
	"context"
	"fmt"
	"time"

	"genengine/internal/domain"
	"genengine/internal/infra"
)

// Correction is the terminal state of a constraint check. Artifact is always
// usable: the corrected one when the strict pass fixed the violation, the
// original otherwise.
type Correction struct {
	Artifact  *domain.Artifact
	Violated  bool
	Corrected bool
	Attempt   *domain.Attempt
}

// Corrector enforces hard structural constraints with at most one strict
// corrective regeneration. It never loops: if the corrective pass fails or
// still violates the constraints, the original artifact is returned as-is.
type Corrector struct {
	generator Generator
	logger    infra.Logger
}

func NewCorrector(generator Generator, logger infra.Logger) *Corrector {
	return &Corrector{generator: generator, logger: logger}
}

// EnsureConstraints measures the artifact against the request's constraints
// and, on violation, issues exactly one strict regeneration.
func (c *Corrector) EnsureConstraints(ctx context.Context, req domain.GenerationRequest, artifact *domain.Artifact) Correction {
	if artifact == nil || req.Constraints.Empty() {
		return Correction{Artifact: artifact}
	}
	if artifact.Width == 0 && artifact.Height == 0 {
		artifact.Measure()
	}
	if req.Constraints.SatisfiedBy(artifact) {
		return Correction{Artifact: artifact}
	}

	c.logger.Debug().
		Str("request_id", req.ID).
		Int("width", artifact.Width).
		Int("height", artifact.Height).
		Int("want_width", req.Constraints.Width).
		Int("want_height", req.Constraints.Height).
		Msg("genloop: constraints violated, issuing corrective attempt")

	strictReq := req.WithDirectives(fmt.Sprintf(
		"Render the output at exactly %dx%d pixels. This is a hard requirement.",
		req.Constraints.Width, req.Constraints.Height))

	start := time.Now()
	corrected, err := c.generator.Generate(ctx, strictReq, true)
	record := &domain.Attempt{
		Model:    req.Model,
		Duration: time.Since(start),
	}

	if err != nil {
		record.Err = err
		record.Outcome = domain.AttemptFatalError
		if domain.KindOf(err).Retryable() {
			record.Outcome = domain.AttemptRetryableError
		}
		c.logger.Warn().
			Err(err).
			Str("request_id", req.ID).
			Msg("genloop: corrective attempt failed, keeping original artifact")
		return Correction{Artifact: artifact, Violated: true, Attempt: record}
	}

	record.Outcome = domain.AttemptSuccess
	record.Artifact = corrected
	if corrected.Width == 0 && corrected.Height == 0 {
		corrected.Measure()
	}
	if !req.Constraints.SatisfiedBy(corrected) {
		c.logger.Warn().
			Str("request_id", req.ID).
			Int("width", corrected.Width).
			Int("height", corrected.Height).
			Msg("genloop: corrective attempt still violates constraints, keeping original artifact")
		return Correction{Artifact: artifact, Violated: true, Attempt: record}
	}

	return Correction{Artifact: corrected, Violated: true, Corrected: true, Attempt: record}
}
