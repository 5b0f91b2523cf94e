package genloop

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"genengine/internal/domain"
)

func sizedArtifact(width, height int) *domain.Artifact {
	return &domain.Artifact{
		Data:        []byte("img"),
		ContentType: "image/png",
		Width:       width,
		Height:      height,
	}
}

func constrainedRequest(width, height int) domain.GenerationRequest {
	req := loopRequest(2, 7)
	req.Constraints = domain.Constraints{Width: width, Height: height}
	return req
}

func TestEnsureConstraintsPassesUnconstrained(t *testing.T) {
	gen := &scriptedGenerator{}
	corrector := NewCorrector(gen, zerolog.Nop())

	artifact := sizedArtifact(1000, 1056)
	correction := corrector.EnsureConstraints(context.Background(), loopRequest(2, 7), artifact)
	if len(gen.calls) != 0 {
		t.Fatalf("generator calls = %d, want 0", len(gen.calls))
	}
	if correction.Violated || correction.Corrected {
		t.Fatalf("correction = %+v, want clean pass", correction)
	}
	if correction.Artifact != artifact {
		t.Fatalf("artifact must pass through untouched")
	}
}

func TestEnsureConstraintsAcceptsSatisfied(t *testing.T) {
	gen := &scriptedGenerator{}
	corrector := NewCorrector(gen, zerolog.Nop())

	correction := corrector.EnsureConstraints(context.Background(), constrainedRequest(992, 1056), sizedArtifact(992, 1056))
	if len(gen.calls) != 0 {
		t.Fatalf("generator calls = %d, want 0", len(gen.calls))
	}
	if correction.Violated {
		t.Fatalf("satisfied constraints must not be flagged")
	}
}

func TestEnsureConstraintsCorrectsOnce(t *testing.T) {
	gen := &scriptedGenerator{results: []genResult{{artifact: sizedArtifact(992, 1056)}}}
	corrector := NewCorrector(gen, zerolog.Nop())

	correction := corrector.EnsureConstraints(context.Background(), constrainedRequest(992, 1056), sizedArtifact(1000, 1056))
	if len(gen.calls) != 1 {
		t.Fatalf("generator calls = %d, want exactly 1", len(gen.calls))
	}
	if !gen.calls[0].strict {
		t.Fatalf("corrective attempt must be strict")
	}
	if prompt := gen.calls[0].req.PromptText(); !strings.Contains(prompt, "exactly 992x1056") {
		t.Fatalf("corrective prompt = %q, want dimension directive", prompt)
	}
	if !correction.Violated || !correction.Corrected {
		t.Fatalf("correction = %+v, want violated and corrected", correction)
	}
	if correction.Artifact.Width != 992 {
		t.Fatalf("artifact width = %d, want 992", correction.Artifact.Width)
	}
}

func TestEnsureConstraintsKeepsOriginalWhenCorrectionMismeasures(t *testing.T) {
	gen := &scriptedGenerator{results: []genResult{{artifact: sizedArtifact(1000, 1056)}}}
	corrector := NewCorrector(gen, zerolog.Nop())

	original := sizedArtifact(1000, 1056)
	correction := corrector.EnsureConstraints(context.Background(), constrainedRequest(992, 1056), original)
	if len(gen.calls) != 1 {
		t.Fatalf("generator calls = %d, want exactly 1 even on repeated violation", len(gen.calls))
	}
	if correction.Corrected {
		t.Fatalf("repeated violation must not report corrected")
	}
	if !correction.Violated {
		t.Fatalf("violation flag must survive")
	}
	if correction.Artifact != original {
		t.Fatalf("original artifact must be returned uncorrected")
	}
}

func TestEnsureConstraintsKeepsOriginalWhenCorrectionFails(t *testing.T) {
	gen := &scriptedGenerator{results: []genResult{
		{err: domain.NewBackendError(domain.KindOverloaded, "gemini-test", errors.New("busy"))},
	}}
	corrector := NewCorrector(gen, zerolog.Nop())

	original := sizedArtifact(1000, 1056)
	correction := corrector.EnsureConstraints(context.Background(), constrainedRequest(992, 1056), original)
	if len(gen.calls) != 1 {
		t.Fatalf("generator calls = %d, want exactly 1", len(gen.calls))
	}
	if correction.Corrected || correction.Artifact != original {
		t.Fatalf("failed correction must return the original artifact")
	}
	if correction.Attempt == nil || correction.Attempt.Outcome != domain.AttemptRetryableError {
		t.Fatalf("attempt record = %+v, want retryable failure recorded", correction.Attempt)
	}
}

func TestEnsureConstraintsMeasuresUnmeasuredArtifacts(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 992, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	gen := &scriptedGenerator{}
	corrector := NewCorrector(gen, zerolog.Nop())

	artifact := &domain.Artifact{Data: buf.Bytes(), ContentType: "image/png"}
	correction := corrector.EnsureConstraints(context.Background(), constrainedRequest(992, 2), artifact)
	if len(gen.calls) != 0 {
		t.Fatalf("generator calls = %d, want 0 after measuring satisfied artifact", len(gen.calls))
	}
	if correction.Violated {
		t.Fatalf("measured artifact satisfies constraints, got %+v", correction)
	}
	if artifact.Width != 992 || artifact.Height != 2 {
		t.Fatalf("measured dimensions = %dx%d, want 992x2", artifact.Width, artifact.Height)
	}
}
