package quality

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"genengine/internal/domain"
)

type fakeScorer struct {
	review *Review
	err    error
	panics bool
}

func (f *fakeScorer) Score(ctx context.Context, req domain.GenerationRequest, artifact *domain.Artifact) (*Review, error) {
	if f.panics {
		panic("scorer exploded")
	}
	return f.review, f.err
}

func gatedRequest(threshold float64) domain.GenerationRequest {
	return domain.GenerationRequest{
		ID:               "req-1",
		Parts:            []domain.PromptPart{domain.TextPart("promo banner")},
		Modality:         domain.ModalityImage,
		QualityThreshold: threshold,
		MaxAttempts:      3,
	}
}

func TestEvaluateAcceptsAtThreshold(t *testing.T) {
	evaluator := NewEvaluator(&fakeScorer{review: &Review{Score: 7}}, zerolog.Nop())

	decision := evaluator.Evaluate(context.Background(), gatedRequest(7), &domain.Artifact{Data: []byte("x")})
	if !decision.Accept {
		t.Fatalf("score equal to threshold must accept")
	}
	if !decision.Scored || decision.Score != 7 {
		t.Fatalf("decision = %+v, want scored 7", decision)
	}
}

func TestEvaluateRejectsBelowThreshold(t *testing.T) {
	scorer := &fakeScorer{review: &Review{Score: 5, Directives: []string{"Add the business name prominently"}}}
	evaluator := NewEvaluator(scorer, zerolog.Nop())

	decision := evaluator.Evaluate(context.Background(), gatedRequest(7), &domain.Artifact{Data: []byte("x")})
	if decision.Accept {
		t.Fatalf("score below threshold must reject")
	}
	if len(decision.Directives) != 1 || !strings.Contains(decision.Directives[0], "business name") {
		t.Fatalf("directives = %v, want carried through", decision.Directives)
	}
}

func TestEvaluateAcceptsWhenScorerFails(t *testing.T) {
	evaluator := NewEvaluator(&fakeScorer{err: errors.New("scorer down")}, zerolog.Nop())

	decision := evaluator.Evaluate(context.Background(), gatedRequest(9), &domain.Artifact{Data: []byte("x")})
	if !decision.Accept {
		t.Fatalf("scorer failure must accept the artifact")
	}
	if decision.Scored {
		t.Fatalf("failed scoring must not report a score")
	}
}

func TestEvaluateAcceptsWhenScorerPanics(t *testing.T) {
	evaluator := NewEvaluator(&fakeScorer{panics: true}, zerolog.Nop())

	decision := evaluator.Evaluate(context.Background(), gatedRequest(9), &domain.Artifact{Data: []byte("x")})
	if !decision.Accept {
		t.Fatalf("scorer panic must accept the artifact")
	}
	if decision.Scored {
		t.Fatalf("panicked scoring must not report a score")
	}
}

func TestEvaluateClampsScore(t *testing.T) {
	evaluator := NewEvaluator(&fakeScorer{review: &Review{Score: 42}}, zerolog.Nop())

	decision := evaluator.Evaluate(context.Background(), gatedRequest(7), &domain.Artifact{Data: []byte("x")})
	if decision.Score != 10 {
		t.Fatalf("score = %v, want clamped to 10", decision.Score)
	}
}

func TestHeuristicFlagsConstraintViolation(t *testing.T) {
	scorer := NewHeuristicScorer()
	req := gatedRequest(7)
	req.Constraints = domain.Constraints{Width: 1000, Height: 1056}

	review, err := scorer.Score(context.Background(), req, &domain.Artifact{
		Data: []byte("x"), ContentType: "image/png", Width: 992, Height: 1056,
	})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if review.Score >= 7 {
		t.Fatalf("score = %v, want below 7 for violated constraints", review.Score)
	}
	if len(review.Directives) == 0 || !strings.Contains(review.Directives[0], "1000x1056") {
		t.Fatalf("directives = %v, want exact dimensions directive", review.Directives)
	}

	review, err = scorer.Score(context.Background(), req, &domain.Artifact{
		Data: []byte("x"), ContentType: "image/png", Width: 1000, Height: 1056,
	})
	if err != nil {
		t.Fatalf("score satisfied: %v", err)
	}
	if review.Score < 7 {
		t.Fatalf("score = %v, want at least 7 for satisfied constraints", review.Score)
	}
}
