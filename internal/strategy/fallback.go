package strategy

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"genengine/internal/domain"
)

// deterministicCaptions are the caption templates the fallback cycles
// through. The request seed picks one, so identical requests produce
// identical copy.
var deterministicCaptions = []string{
	"%s is open and ready for you. Stop by today.",
	"Quality you can count on, every single day at %s.",
	"Made with care at %s. Come see for yourself.",
	"Your neighborhood pick: %s. See what's new this week.",
}

// Deterministic is the terminal fallback: copy assembled from the request
// context alone, no composer, no I/O, no failure modes. The router relies on
// Execute never returning an error.
type Deterministic struct{}

func NewDeterministic() *Deterministic {
	return &Deterministic{}
}

func (s *Deterministic) Name() string {
	return NameDeterministic
}

func (s *Deterministic) Execute(ctx context.Context, reqCtx domain.RequestContext) (*Content, error) {
	c := cases.Title(language.Und)
	name := coalesce(reqCtx.BusinessName, reqCtx.BusinessType, "Your Brand")
	titled := c.String(name)

	idx := int(reqCtx.Seed % int64(len(deterministicCaptions)))
	if idx < 0 {
		idx += len(deterministicCaptions)
	}
	headline := fmt.Sprintf("%s Highlights", titled)
	caption := fmt.Sprintf(deterministicCaptions[idx], titled)
	tags := normalizeTags(reqCtx.Keywords, strings.ToLower(strings.TrimSpace(reqCtx.BusinessType)))

	return &Content{
		Strategy: NameDeterministic,
		Headline: headline,
		Caption:  caption,
		Tags:     tags,
		PromptParts: []domain.PromptPart{
			domain.TextPart(fmt.Sprintf("Clean marketing visual for %s with the headline %q.", titled, headline)),
		},
	}, nil
}

var _ Strategy = (*Deterministic)(nil)
