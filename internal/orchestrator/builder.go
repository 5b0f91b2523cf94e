package orchestrator

import (
	"fmt"

	"github.com/google/uuid"

	"genengine/internal/domain"
	"genengine/internal/strategy"
)

// RequestDefaults are the knobs a variant inherits when its spec does not
// override them.
type RequestDefaults struct {
	Model            string
	Modality         domain.Modality
	QualityThreshold float64
	MaxAttempts      int
}

// PromptBuilder derives the generation request for one variant from the
// strategy's content and the request context. The engine never interprets
// prompt text; everything prompt-shaped funnels through here.
type PromptBuilder interface {
	Build(spec domain.VariantSpec, content *strategy.Content, reqCtx domain.RequestContext) (domain.GenerationRequest, error)
}

// Pixel dimensions for the aspect ratios the default builder knows. Variants
// with other ratios run unconstrained unless their spec overrides say
// otherwise.
var aspectDimensions = map[string]domain.Constraints{
	"1:1":  {Width: 1080, Height: 1080},
	"4:5":  {Width: 1080, Height: 1350},
	"9:16": {Width: 1080, Height: 1920},
	"16:9": {Width: 1920, Height: 1080},
}

// StandardBuilder assembles requests from strategy content plus a per-variant
// rendering part, mapping well-known aspect ratios to hard pixel constraints.
type StandardBuilder struct {
	defaults RequestDefaults
}

func NewStandardBuilder(defaults RequestDefaults) *StandardBuilder {
	if defaults.Modality == "" {
		defaults.Modality = domain.ModalityImage
	}
	if defaults.MaxAttempts < 1 {
		defaults.MaxAttempts = 2
	}
	return &StandardBuilder{defaults: defaults}
}

func (b *StandardBuilder) Build(spec domain.VariantSpec, content *strategy.Content, reqCtx domain.RequestContext) (domain.GenerationRequest, error) {
	if content == nil {
		return domain.GenerationRequest{}, domain.ErrInvalidRequest
	}

	parts := make([]domain.PromptPart, 0, len(content.PromptParts)+1)
	parts = append(parts, content.PromptParts...)
	if spec.Platform != "" || spec.AspectRatio != "" {
		parts = append(parts, domain.TextPart(variantDirective(spec)))
	}

	req := domain.GenerationRequest{
		ID:               uuid.NewString(),
		Parts:            parts,
		Modality:         b.defaults.Modality,
		Model:            b.defaults.Model,
		QualityThreshold: b.defaults.QualityThreshold,
		MaxAttempts:      b.defaults.MaxAttempts,
		Constraints:      aspectDimensions[spec.AspectRatio],
		Seed:             reqCtx.Seed,
	}

	if o := spec.Overrides; o != nil {
		if o.Model != "" {
			req.Model = o.Model
		}
		if o.QualityThreshold != nil {
			req.QualityThreshold = *o.QualityThreshold
		}
		if o.MaxAttempts > 0 {
			req.MaxAttempts = o.MaxAttempts
		}
		if o.Constraints != nil {
			req.Constraints = *o.Constraints
		}
	}

	if err := req.Validate(); err != nil {
		return domain.GenerationRequest{}, fmt.Errorf("variant %s: %w", spec.Key(), err)
	}
	return req, nil
}

func variantDirective(spec domain.VariantSpec) string {
	switch {
	case spec.Platform != "" && spec.AspectRatio != "":
		return fmt.Sprintf("Render for %s at aspect ratio %s.", spec.Platform, spec.AspectRatio)
	case spec.Platform != "":
		return fmt.Sprintf("Render for %s.", spec.Platform)
	default:
		return fmt.Sprintf("Render at aspect ratio %s.", spec.AspectRatio)
	}
}

var _ PromptBuilder = (*StandardBuilder)(nil)
