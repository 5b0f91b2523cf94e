// Package strategy selects and runs the content-generation strategy for an
// orchestration request. Candidates are ranked by cheap local heuristics over
// the request context, the winner produces the copy and prompt parts the
// variant pipeline renders, and a deterministic fallback guarantees the
// router itself never fails.
package strategy

import (
	"context"
	"fmt"
	"strings"

	"genengine/internal/domain"
)

// Closed strategy set. New strategies are a new constant, a new type and a
// table entry in the router; callers never dispatch on free-form strings.
const (
	NamePatternBreaking     = "pattern-breaking"
	NameTemplateElimination = "template-elimination"
	NameOrchestrated        = "orchestrated"
	NameHybrid              = "hybrid"
	NameDeterministic       = "deterministic"
)

// ContentScores are the composite-ranking dimensions, each 0..10 and equally
// weighted. They are computed locally; no evaluator call is involved.
type ContentScores struct {
	Relevance  float64
	Uniqueness float64
	Alignment  float64
}

// Composite collapses the dimensions into one comparable score.
func (s ContentScores) Composite() float64 {
	return (s.Relevance + s.Uniqueness + s.Alignment) / 3
}

// Content is the product of a strategy run: the copy itself plus the prompt
// parts the downstream variant pipeline feeds to the generation backends.
// Strategy names the concrete strategy that produced it, which under hybrid
// execution is the winning candidate rather than "hybrid".
type Content struct {
	Strategy    string
	Headline    string
	Caption     string
	Tags        []string
	PromptParts []domain.PromptPart
	Scores      ContentScores
}

// Strategy is one self-contained content-generation algorithm.
type Strategy interface {
	Name() string
	Execute(ctx context.Context, reqCtx domain.RequestContext) (*Content, error)
}

// contentFromDraft lifts a composer draft into Content, filling gaps from
// the request context so a sparse model response still yields usable copy.
func contentFromDraft(name string, draft *Draft, reqCtx domain.RequestContext) *Content {
	headline := coalesce(draft.Headline, reqCtx.BusinessName, "Something New Today")
	caption := coalesce(draft.Caption, fmt.Sprintf("Discover what %s has for you today.", coalesce(reqCtx.BusinessName, "your favorite local business")))
	tags := normalizeTags(draft.Tags, strings.ToLower(strings.TrimSpace(reqCtx.BusinessType)))

	parts := []domain.PromptPart{
		domain.TextPart(fmt.Sprintf("Marketing visual for %s. Headline: %s. Caption: %s.",
			coalesce(reqCtx.BusinessName, "a small business"), headline, caption)),
	}
	if reqCtx.Tone != "" {
		parts = append(parts, domain.TextPart(fmt.Sprintf("Visual tone: %s.", reqCtx.Tone)))
	}

	return &Content{
		Strategy:    name,
		Headline:    headline,
		Caption:     caption,
		Tags:        tags,
		PromptParts: parts,
	}
}
