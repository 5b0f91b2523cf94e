package strategy

import (
	"context"
	"fmt"
	"strings"

	"genengine/internal/domain"
)

// priorOutputSample caps how many previous posts the instruction quotes.
// Beyond a handful the extra examples stop changing the output and only
// inflate the prompt.
const priorOutputSample = 5

// PatternBreaking writes copy that deliberately departs from the account's
// previous posts. It is the strategy of choice when the caller flags
// repetition avoidance or supplies a history to diverge from.
type PatternBreaking struct {
	composer Composer
}

func NewPatternBreaking(composer Composer) *PatternBreaking {
	return &PatternBreaking{composer: composer}
}

func (s *PatternBreaking) Name() string {
	return NamePatternBreaking
}

func (s *PatternBreaking) Execute(ctx context.Context, reqCtx domain.RequestContext) (*Content, error) {
	sb := &strings.Builder{}
	sb.WriteString("Write one fresh marketing post that breaks away from the account's previous posts.")
	if sample := samplePriors(reqCtx.PriorOutputs); len(sample) > 0 {
		fmt.Fprintf(sb, " Do not reuse hooks, phrasing or structure from these previous posts: %s.",
			strings.Join(sample, " | "))
	}
	fmt.Fprintf(sb, " uniqueness_token=%d.", reqCtx.Seed)

	draft, err := s.composer.Compose(ctx, ComposeRequest{Instruction: sb.String(), Context: reqCtx})
	if err != nil {
		return nil, fmt.Errorf("pattern-breaking compose: %w", err)
	}

	content := contentFromDraft(NamePatternBreaking, draft, reqCtx)
	if len(reqCtx.PriorOutputs) > 0 {
		content.PromptParts = append(content.PromptParts,
			domain.TextPart("Avoid visual motifs used in earlier campaigns."))
	}
	return content, nil
}

func samplePriors(priors []string) []string {
	var sample []string
	for _, prior := range priors {
		prior = strings.TrimSpace(prior)
		if prior == "" {
			continue
		}
		sample = append(sample, prior)
		if len(sample) == priorOutputSample {
			break
		}
	}
	return sample
}

var _ Strategy = (*PatternBreaking)(nil)
