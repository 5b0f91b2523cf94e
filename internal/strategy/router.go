package strategy

import (
	"context"
	"fmt"

	"genengine/internal/domain"
	"genengine/internal/infra"
)

// Router ranks strategies with local heuristics, runs the winner and owns
// the fallback policy. It is built once per process and is safe for
// concurrent use; all per-request state lives in arguments and results.
type Router struct {
	candidates []Strategy
	fallback   Strategy
	logger     infra.Logger
}

// NewRouter assembles the closed strategy set over one composer. A nil
// composer selects the static composer, which keeps the router functional
// without any model credentials.
func NewRouter(composer Composer, logger infra.Logger) *Router {
	if composer == nil {
		composer = NewStaticComposer()
	}
	return &Router{
		candidates: []Strategy{
			NewPatternBreaking(composer),
			NewTemplateElimination(composer),
			NewOrchestrated(composer),
		},
		fallback: NewDeterministic(),
		logger:   logger,
	}
}

// Route ranks the candidates against the request context and records the
// decision. Pure and cheap: no network, no clock, deterministic for a given
// context.
func (r *Router) Route(reqCtx domain.RequestContext) domain.StrategyDecision {
	scores, reasons := rankCandidates(reqCtx)

	selected := ""
	for name, score := range scores {
		if selected == "" || score > scores[selected] || (score == scores[selected] && name < selected) {
			selected = name
		}
	}
	reasons = append(reasons, fmt.Sprintf("selected %s (score %.2f)", selected, scores[selected]))

	return domain.StrategyDecision{
		Strategy:  selected,
		Fallback:  NameDeterministic,
		Reasoning: reasons,
		Scores:    scores,
	}
}

// Execute runs the decided strategy. If it fails for any reason other than
// the caller going away, the deterministic fallback runs exactly once; its
// result is reported with the fallback's own strategy name so callers can
// see what actually produced the content.
func (r *Router) Execute(ctx context.Context, decision domain.StrategyDecision, reqCtx domain.RequestContext) (*Content, error) {
	selected := r.lookup(decision)

	content, err := selected.Execute(ctx, reqCtx)
	if err != nil {
		if ctxErr := domain.ContextError(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Warn().
			Err(err).
			Str("strategy", selected.Name()).
			Msg("strategy: execution failed, using deterministic fallback")
		content, err = r.fallback.Execute(ctx, reqCtx)
		if err != nil {
			return nil, fmt.Errorf("fallback strategy: %w", err)
		}
	}

	content.Scores = scoreContent(reqCtx, content)
	return content, nil
}

// lookup resolves the decided strategy. Hybrid is assembled on demand from
// the decision's own ranking so Route and Execute always agree on the top
// two. Unknown names land on the fallback rather than failing the request.
func (r *Router) lookup(decision domain.StrategyDecision) Strategy {
	if decision.Strategy == NameHybrid {
		firstName, secondName := topTwoNames(decision.Scores)
		first, second := r.byName(firstName), r.byName(secondName)
		if first != nil && second != nil {
			return newHybrid(first, second, r.logger)
		}
		r.logger.Warn().
			Msg("strategy: hybrid decision lacks two ranked candidates, using deterministic fallback")
		return r.fallback
	}
	if s := r.byName(decision.Strategy); s != nil {
		return s
	}
	r.logger.Warn().
		Str("strategy", decision.Strategy).
		Msg("strategy: unknown strategy in decision, using deterministic fallback")
	return r.fallback
}

func (r *Router) byName(name string) Strategy {
	for _, s := range r.candidates {
		if s.Name() == name {
			return s
		}
	}
	return nil
}
