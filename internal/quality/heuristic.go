package quality

import (
	"context"
	"fmt"
	"strings"

	"genengine/internal/domain"
)

// HeuristicScorer judges artifacts from their structural properties alone,
// with no external call. It backs the quality gate when no scoring credential
// is configured so the loop still exercises its accept and retry paths.
type HeuristicScorer struct{}

func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

var _ Scorer = (*HeuristicScorer)(nil)

func (s *HeuristicScorer) Score(ctx context.Context, req domain.GenerationRequest, artifact *domain.Artifact) (*Review, error) {
	if artifact == nil || len(artifact.Data) == 0 {
		return &Review{Score: 0, Directives: []string{"Produce a non-empty artifact."}}, nil
	}

	score := 6.5
	var directives []string

	if artifact.Width > 0 && artifact.Height > 0 {
		score += 1
	}

	switch {
	case req.Constraints.Empty():
		score += 1.5
	case req.Constraints.SatisfiedBy(artifact):
		score += 1.5
	default:
		score -= 2.5
		directives = append(directives, fmt.Sprintf(
			"Render the output at exactly %dx%d pixels.", req.Constraints.Width, req.Constraints.Height))
	}

	wantPrefix := "image/"
	if req.Modality == domain.ModalityVideo {
		wantPrefix = "video/"
	}
	if strings.HasPrefix(artifact.ContentType, wantPrefix) {
		score += 1
	}

	return &Review{Score: clampScore(score), Directives: directives}, nil
}
