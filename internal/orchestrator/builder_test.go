package orchestrator

import (
	"strings"
	"testing"

	"genengine/internal/domain"
	"genengine/internal/strategy"
)

func builderContent() *strategy.Content {
	return &strategy.Content{
		Strategy: strategy.NameDeterministic,
		Headline: "Kopi Sudut Highlights",
		Caption:  "Slow mornings, strong coffee.",
		PromptParts: []domain.PromptPart{
			domain.TextPart("Marketing visual for Kopi Sudut."),
		},
	}
}

func TestBuildMapsAspectToConstraints(t *testing.T) {
	b := NewStandardBuilder(RequestDefaults{Model: "gemini", QualityThreshold: 7, MaxAttempts: 2})

	req, err := b.Build(domain.VariantSpec{Platform: "instagram", AspectRatio: "4:5"}, builderContent(), domain.RequestContext{Seed: 7})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if req.Constraints != (domain.Constraints{Width: 1080, Height: 1350}) {
		t.Fatalf("Constraints = %+v, want 1080x1350", req.Constraints)
	}
	if req.Model != "gemini" || req.QualityThreshold != 7 || req.MaxAttempts != 2 {
		t.Fatalf("defaults not applied: %+v", req)
	}
	if req.Seed != 7 {
		t.Fatalf("Seed = %d, want 7", req.Seed)
	}
	if req.ID == "" {
		t.Fatal("request ID is empty")
	}

	last := req.Parts[len(req.Parts)-1]
	if !strings.Contains(last.Text, "instagram") || !strings.Contains(last.Text, "4:5") {
		t.Fatalf("variant directive %q missing platform or aspect", last.Text)
	}
}

func TestBuildUnknownAspectLeavesUnconstrained(t *testing.T) {
	b := NewStandardBuilder(RequestDefaults{Model: "gemini"})

	req, err := b.Build(domain.VariantSpec{Platform: "web", AspectRatio: "3:7"}, builderContent(), domain.RequestContext{})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !req.Constraints.Empty() {
		t.Fatalf("Constraints = %+v, want unconstrained", req.Constraints)
	}
}

func TestBuildAppliesOverrides(t *testing.T) {
	b := NewStandardBuilder(RequestDefaults{Model: "gemini", QualityThreshold: 7, MaxAttempts: 2})

	threshold := 9.0
	spec := domain.VariantSpec{
		Platform:    "instagram",
		AspectRatio: "1:1",
		Overrides: &domain.RequestOverrides{
			Model:            "qwen",
			QualityThreshold: &threshold,
			MaxAttempts:      3,
			Constraints:      &domain.Constraints{Width: 992, Height: 1056},
		},
	}

	req, err := b.Build(spec, builderContent(), domain.RequestContext{})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if req.Model != "qwen" {
		t.Fatalf("Model = %q, want %q", req.Model, "qwen")
	}
	if req.QualityThreshold != 9 {
		t.Fatalf("QualityThreshold = %v, want 9", req.QualityThreshold)
	}
	if req.MaxAttempts != 3 {
		t.Fatalf("MaxAttempts = %d, want 3", req.MaxAttempts)
	}
	if req.Constraints != (domain.Constraints{Width: 992, Height: 1056}) {
		t.Fatalf("Constraints = %+v, want override", req.Constraints)
	}
}

func TestBuildRejectsInvalidOverride(t *testing.T) {
	b := NewStandardBuilder(RequestDefaults{Model: "gemini"})

	bad := 42.0
	spec := domain.VariantSpec{Platform: "instagram", Overrides: &domain.RequestOverrides{QualityThreshold: &bad}}
	if _, err := b.Build(spec, builderContent(), domain.RequestContext{}); err == nil {
		t.Fatal("Build accepted out-of-range quality threshold")
	}
}

func TestBuildRejectsNilContent(t *testing.T) {
	b := NewStandardBuilder(RequestDefaults{Model: "gemini"})
	if _, err := b.Build(domain.VariantSpec{Platform: "instagram"}, nil, domain.RequestContext{}); err == nil {
		t.Fatal("Build accepted nil content")
	}
}
