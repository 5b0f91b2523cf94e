package strategy

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"genengine/internal/domain"
	"genengine/internal/infra"
)

// hybrid runs two candidate strategies concurrently and keeps whichever
// result scores higher on the composite dimensions. Candidate failures are
// isolated like variant failures: one candidate failing just hands the win
// to the other, and only a double failure fails the hybrid itself.
type hybrid struct {
	first  Strategy
	second Strategy
	logger infra.Logger
}

func newHybrid(first, second Strategy, logger infra.Logger) *hybrid {
	return &hybrid{first: first, second: second, logger: logger}
}

func (h *hybrid) Name() string {
	return NameHybrid
}

func (h *hybrid) Execute(ctx context.Context, reqCtx domain.RequestContext) (*Content, error) {
	candidates := []Strategy{h.first, h.second}
	contents := make([]*Content, len(candidates))
	errs := make([]error, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for i, s := range candidates {
		i, s := i, s
		g.Go(func() error {
			content, err := s.Execute(ctx, reqCtx)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", s.Name(), err)
				return nil
			}
			content.Scores = scoreContent(reqCtx, content)
			contents[i] = content
			return nil
		})
	}
	_ = g.Wait()

	var best *Content
	for _, content := range contents {
		if content == nil {
			continue
		}
		if best == nil || content.Scores.Composite() > best.Scores.Composite() {
			best = content
		}
	}
	if best == nil {
		return nil, fmt.Errorf("hybrid: both candidates failed: %w", errors.Join(errs...))
	}

	h.logger.Debug().
		Str("winner", best.Strategy).
		Float64("composite", best.Scores.Composite()).
		Msg("strategy: hybrid picked winner")
	return best, nil
}

var _ Strategy = (*hybrid)(nil)
