package strategy

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"genengine/internal/domain"
)

// ComposeRequest carries the strategy-specific steering text together with
// the business context the copy must be written for.
type ComposeRequest struct {
	Instruction string
	Context     domain.RequestContext
}

// Draft is the raw copy a composer returns before a strategy normalizes it.
type Draft struct {
	Headline string   `json:"headline"`
	Caption  string   `json:"caption"`
	Tags     []string `json:"tags"`
}

// Composer turns a compose request into draft copy. Implementations may call
// a language model; the deterministic fallback strategy never depends on one.
type Composer interface {
	Compose(ctx context.Context, req ComposeRequest) (*Draft, error)
}

// StaticComposer derives copy from the request context alone. It performs no
// I/O and never fails, which makes it the offline and test-mode composer.
type StaticComposer struct{}

func NewStaticComposer() *StaticComposer {
	return &StaticComposer{}
}

func (s *StaticComposer) Compose(ctx context.Context, req ComposeRequest) (*Draft, error) {
	c := cases.Title(language.Und)
	name := coalesce(req.Context.BusinessName, req.Context.BusinessType, "Your Brand")
	kind := coalesce(req.Context.BusinessType, "products")

	caption := fmt.Sprintf("%s brings you %s worth talking about.", c.String(name), strings.ToLower(kind))
	if len(req.Context.Keywords) > 0 {
		caption = fmt.Sprintf("%s Known for %s.", caption, strings.Join(req.Context.Keywords, ", "))
	}

	return &Draft{
		Headline: fmt.Sprintf("%s Signature", c.String(name)),
		Caption:  caption,
		Tags:     normalizeTags(req.Context.Keywords, strings.ToLower(kind)),
	}, nil
}

var _ Composer = (*StaticComposer)(nil)

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func normalizeTags(tags []string, fallback string) []string {
	seen := make(map[string]struct{})
	var result []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		lower := strings.ToLower(tag)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		result = append(result, tag)
	}
	if len(result) == 0 && fallback != "" {
		result = []string{fallback}
	}
	return result
}
