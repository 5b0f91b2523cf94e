package strategy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"genengine/internal/domain"
)

// Orchestrated is the context-hungry strategy: it feeds every available
// business signal into the composer and derives richer prompt parts for the
// visual pipeline. It wins the ranking when the caller supplied enough
// context to be worth orchestrating.
type Orchestrated struct {
	composer Composer
}

func NewOrchestrated(composer Composer) *Orchestrated {
	return &Orchestrated{composer: composer}
}

func (s *Orchestrated) Name() string {
	return NameOrchestrated
}

func (s *Orchestrated) Execute(ctx context.Context, reqCtx domain.RequestContext) (*Content, error) {
	sb := &strings.Builder{}
	sb.WriteString("Write one marketing post that weaves together all of the business details below. Mention the business by name and reflect its strengths concretely.")
	if len(reqCtx.Fields) > 0 {
		fmt.Fprintf(sb, " Additional profile facts: %s.", formatFields(reqCtx.Fields))
	}

	draft, err := s.composer.Compose(ctx, ComposeRequest{Instruction: sb.String(), Context: reqCtx})
	if err != nil {
		return nil, fmt.Errorf("orchestrated compose: %w", err)
	}

	content := contentFromDraft(NameOrchestrated, draft, reqCtx)
	if reqCtx.Platform != "" {
		content.PromptParts = append(content.PromptParts,
			domain.TextPart(fmt.Sprintf("Compose for %s.", reqCtx.Platform)))
	}
	if len(reqCtx.Keywords) > 0 {
		content.PromptParts = append(content.PromptParts,
			domain.TextPart(fmt.Sprintf("Feature: %s.", strings.Join(reqCtx.Keywords, ", "))))
	}
	return content, nil
}

// formatFields renders the free-form profile map in key order so the
// instruction is identical across runs with the same context.
func formatFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%q", k, fields[k]))
	}
	return strings.Join(pairs, ", ")
}

var _ Strategy = (*Orchestrated)(nil)
