// Package jsoncfg defines the JSON payload stored with a queued generation
// request. The HTTP layer normalizes and validates the payload before it is
// persisted; the worker decodes it back into engine inputs.
package jsoncfg

import (
	"encoding/json"
	"fmt"
	"strings"

	"genengine/internal/domain"
)

// JobContext mirrors domain.RequestContext on the wire.
type JobContext struct {
	BusinessName    string            `json:"business_name"`
	BusinessType    string            `json:"business_type"`
	Platform        string            `json:"platform"`
	Tone            string            `json:"tone"`
	Locale          string            `json:"locale"`
	Keywords        []string          `json:"keywords"`
	PriorOutputs    []string          `json:"prior_outputs"`
	AvoidRepetition bool              `json:"avoid_repetition"`
	Fields          map[string]string `json:"fields"`
	Seed            int64             `json:"seed"`
}

// JobVariant names one rendering target plus optional per-variant overrides.
type JobVariant struct {
	Platform         string   `json:"platform"`
	AspectRatio      string   `json:"aspect_ratio"`
	Model            string   `json:"model,omitempty"`
	QualityThreshold *float64 `json:"quality_threshold,omitempty"`
	MaxAttempts      int      `json:"max_attempts,omitempty"`
	Width            int      `json:"width,omitempty"`
	Height           int      `json:"height,omitempty"`
}

// JobSpec is the complete payload persisted in generation_requests.spec_json.
type JobSpec struct {
	Version  string       `json:"version"`
	Modality string       `json:"modality"`
	Model    string       `json:"model"`
	Context  JobContext   `json:"context"`
	Variants []JobVariant `json:"variants"`
}

var allowedAspectRatios = map[string]struct{}{
	"1:1":  {},
	"4:5":  {},
	"4:3":  {},
	"3:4":  {},
	"16:9": {},
	"9:16": {},
}

const (
	// DefaultJobVersion represents the schema version persisted for job specs.
	DefaultJobVersion = "2025-01"
	// DefaultJobAspectRatio is used when a variant omits the aspect ratio.
	DefaultJobAspectRatio = "1:1"
	// DefaultJobPlatform is used when neither the variant nor the context
	// names a platform.
	DefaultJobPlatform = "instagram"
	// DefaultJobLocale is applied when no locale preference is provided.
	DefaultJobLocale = "en"
	// MaxJobVariants caps the fan-out width of a single request.
	MaxJobVariants = 6
	// MaxJobAttempts caps the per-variant attempt budget a caller may ask for.
	MaxJobAttempts = 4
)

// Normalize ensures the job spec respects server defaults and limits.
func (s *JobSpec) Normalize(preferredLocale string) {
	if s == nil {
		return
	}
	if s.Version == "" {
		s.Version = DefaultJobVersion
	}
	if s.Modality == "" {
		s.Modality = string(domain.ModalityImage)
	}
	if s.Context.Locale == "" {
		if preferredLocale != "" {
			s.Context.Locale = preferredLocale
		} else {
			s.Context.Locale = DefaultJobLocale
		}
	}
	if len(s.Variants) == 0 {
		s.Variants = []JobVariant{{}}
	}
	if len(s.Variants) > MaxJobVariants {
		s.Variants = s.Variants[:MaxJobVariants]
	}
	for i := range s.Variants {
		if s.Variants[i].Platform == "" {
			if s.Context.Platform != "" {
				s.Variants[i].Platform = s.Context.Platform
			} else {
				s.Variants[i].Platform = DefaultJobPlatform
			}
		}
		if s.Variants[i].AspectRatio == "" {
			s.Variants[i].AspectRatio = DefaultJobAspectRatio
		}
	}
}

// Validate ensures the job spec satisfies the contract before persistence.
func (s JobSpec) Validate() error {
	if strings.TrimSpace(s.Context.BusinessName) == "" && strings.TrimSpace(s.Context.BusinessType) == "" {
		return fmt.Errorf("context.business_name or context.business_type is required")
	}
	switch domain.Modality(s.Modality) {
	case domain.ModalityImage, domain.ModalityVideo:
	default:
		return fmt.Errorf("modality must be image or video")
	}
	if len(s.Variants) == 0 {
		return fmt.Errorf("at least one variant is required")
	}
	if len(s.Variants) > MaxJobVariants {
		return fmt.Errorf("at most %d variants are allowed", MaxJobVariants)
	}
	for i, v := range s.Variants {
		if _, ok := allowedAspectRatios[v.AspectRatio]; !ok {
			return fmt.Errorf("variants[%d].aspect_ratio must be one of 1:1, 4:5, 4:3, 3:4, 16:9, 9:16", i)
		}
		if v.QualityThreshold != nil && (*v.QualityThreshold < 0 || *v.QualityThreshold > 10) {
			return fmt.Errorf("variants[%d].quality_threshold must be between 0 and 10", i)
		}
		if v.MaxAttempts < 0 || v.MaxAttempts > MaxJobAttempts {
			return fmt.Errorf("variants[%d].max_attempts must be between 0 and %d", i, MaxJobAttempts)
		}
		if (v.Width < 0 || v.Height < 0) || (v.Width > 0) != (v.Height > 0) {
			return fmt.Errorf("variants[%d] width and height must be set together", i)
		}
	}
	return nil
}

// RequestContext converts the wire context into the engine's input type.
func (s JobSpec) RequestContext() domain.RequestContext {
	return domain.RequestContext{
		BusinessName:    s.Context.BusinessName,
		BusinessType:    s.Context.BusinessType,
		Platform:        s.Context.Platform,
		Locale:          s.Context.Locale,
		Tone:            s.Context.Tone,
		Keywords:        append([]string(nil), s.Context.Keywords...),
		PriorOutputs:    append([]string(nil), s.Context.PriorOutputs...),
		AvoidRepetition: s.Context.AvoidRepetition,
		Fields:          copyFields(s.Context.Fields),
		Seed:            s.Context.Seed,
	}
}

// VariantSpecs converts the wire variants into engine variant specs. Overrides
// are attached only when a variant actually tunes something; the job-level
// model covers variants that do not name their own.
func (s JobSpec) VariantSpecs() []domain.VariantSpec {
	specs := make([]domain.VariantSpec, 0, len(s.Variants))
	for _, v := range s.Variants {
		spec := domain.VariantSpec{Platform: v.Platform, AspectRatio: v.AspectRatio}
		model := v.Model
		if model == "" {
			model = s.Model
		}
		if model != "" || v.QualityThreshold != nil || v.MaxAttempts > 0 || v.Width > 0 {
			overrides := &domain.RequestOverrides{
				Model:            model,
				QualityThreshold: v.QualityThreshold,
				MaxAttempts:      v.MaxAttempts,
			}
			if v.Width > 0 && v.Height > 0 {
				overrides.Constraints = &domain.Constraints{Width: v.Width, Height: v.Height}
			}
			spec.Overrides = overrides
		}
		specs = append(specs, spec)
	}
	return specs
}

func copyFields(fields map[string]string) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func MustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("json marshal: %w", err))
	}
	return b
}
