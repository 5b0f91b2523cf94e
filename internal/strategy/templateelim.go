package strategy

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"genengine/internal/domain"
)

// templatePhrases are stock marketing fillers that make copy read like a
// form letter. The strategy both instructs the composer to avoid them and
// strips any that slip through.
var templatePhrases = []string{
	"limited time offer",
	"don't miss out",
	"act now",
	"best in town",
	"satisfaction guaranteed",
	"look no further",
	"one stop shop",
}

// TemplateElimination produces copy with generic template phrasing removed.
// It earns its keep on thin context, where composers drift toward stock
// filler because there is little specific material to work with.
type TemplateElimination struct {
	composer Composer
}

func NewTemplateElimination(composer Composer) *TemplateElimination {
	return &TemplateElimination{composer: composer}
}

func (s *TemplateElimination) Name() string {
	return NameTemplateElimination
}

func (s *TemplateElimination) Execute(ctx context.Context, reqCtx domain.RequestContext) (*Content, error) {
	sb := &strings.Builder{}
	sb.WriteString("Write one specific, concrete marketing post. Avoid stock marketing phrasing entirely, including: ")
	sb.WriteString(strings.Join(templatePhrases, "; "))
	sb.WriteString(". Ground every claim in the business details below instead of generic superlatives.")

	draft, err := s.composer.Compose(ctx, ComposeRequest{Instruction: sb.String(), Context: reqCtx})
	if err != nil {
		return nil, fmt.Errorf("template-elimination compose: %w", err)
	}

	draft.Headline = stripTemplatePhrases(draft.Headline)
	draft.Caption = stripTemplatePhrases(draft.Caption)
	return contentFromDraft(NameTemplateElimination, draft, reqCtx), nil
}

var templatePhrasePattern = func() *regexp.Regexp {
	escaped := make([]string, len(templatePhrases))
	for i, p := range templatePhrases {
		escaped[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
}()

// stripTemplatePhrases removes listed phrases case-insensitively and cleans
// up the whitespace left behind. Best effort: a caption that was nothing but
// filler may come back with stray punctuation.
func stripTemplatePhrases(text string) string {
	cleaned := templatePhrasePattern.ReplaceAllString(text, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	cleaned = strings.ReplaceAll(cleaned, " !", "!")
	cleaned = strings.ReplaceAll(cleaned, " .", ".")
	cleaned = strings.ReplaceAll(cleaned, " ,", ",")
	return strings.TrimSpace(cleaned)
}

var _ Strategy = (*TemplateElimination)(nil)
