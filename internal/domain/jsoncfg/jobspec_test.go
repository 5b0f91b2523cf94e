package jsoncfg

import (
	"testing"

	"genengine/internal/domain"
)

func TestJobSpecNormalizeDefaults(t *testing.T) {
	s := &JobSpec{}
	s.Normalize("")

	if s.Version != DefaultJobVersion {
		t.Fatalf("Version = %q, want %q", s.Version, DefaultJobVersion)
	}
	if s.Modality != string(domain.ModalityImage) {
		t.Fatalf("Modality = %q, want %q", s.Modality, domain.ModalityImage)
	}
	if s.Context.Locale != DefaultJobLocale {
		t.Fatalf("Context.Locale = %q, want %q", s.Context.Locale, DefaultJobLocale)
	}
	if len(s.Variants) != 1 {
		t.Fatalf("Variants len = %d, want 1", len(s.Variants))
	}
	if s.Variants[0].Platform != DefaultJobPlatform {
		t.Fatalf("Variants[0].Platform = %q, want %q", s.Variants[0].Platform, DefaultJobPlatform)
	}
	if s.Variants[0].AspectRatio != DefaultJobAspectRatio {
		t.Fatalf("Variants[0].AspectRatio = %q, want %q", s.Variants[0].AspectRatio, DefaultJobAspectRatio)
	}
}

func TestJobSpecNormalizePreferredLocaleAndVariantCap(t *testing.T) {
	s := &JobSpec{
		Context: JobContext{Platform: "tiktok"},
		Variants: []JobVariant{
			{}, {}, {}, {}, {}, {}, {}, {},
		},
	}
	s.Normalize("id")

	if s.Context.Locale != "id" {
		t.Fatalf("Context.Locale = %q, want %q", s.Context.Locale, "id")
	}
	if len(s.Variants) != MaxJobVariants {
		t.Fatalf("Variants len = %d, want cap %d", len(s.Variants), MaxJobVariants)
	}
	for i, v := range s.Variants {
		if v.Platform != "tiktok" {
			t.Fatalf("Variants[%d].Platform = %q, want context platform", i, v.Platform)
		}
	}
}

func TestJobSpecValidate(t *testing.T) {
	threshold := 7.5
	badThreshold := 42.0

	tests := []struct {
		name    string
		spec    JobSpec
		wantErr bool
	}{
		{
			name: "valid",
			spec: JobSpec{
				Modality: "image",
				Context:  JobContext{BusinessName: "Kopi Sudut"},
				Variants: []JobVariant{{Platform: "instagram", AspectRatio: "1:1", QualityThreshold: &threshold}},
			},
		},
		{
			name: "missing business context",
			spec: JobSpec{
				Modality: "image",
				Variants: []JobVariant{{Platform: "instagram", AspectRatio: "1:1"}},
			},
			wantErr: true,
		},
		{
			name: "bad modality",
			spec: JobSpec{
				Modality: "audio",
				Context:  JobContext{BusinessType: "cafe"},
				Variants: []JobVariant{{Platform: "instagram", AspectRatio: "1:1"}},
			},
			wantErr: true,
		},
		{
			name: "bad aspect ratio",
			spec: JobSpec{
				Modality: "image",
				Context:  JobContext{BusinessType: "cafe"},
				Variants: []JobVariant{{Platform: "instagram", AspectRatio: "2:7"}},
			},
			wantErr: true,
		},
		{
			name: "threshold out of range",
			spec: JobSpec{
				Modality: "image",
				Context:  JobContext{BusinessType: "cafe"},
				Variants: []JobVariant{{Platform: "instagram", AspectRatio: "1:1", QualityThreshold: &badThreshold}},
			},
			wantErr: true,
		},
		{
			name: "attempts over cap",
			spec: JobSpec{
				Modality: "image",
				Context:  JobContext{BusinessType: "cafe"},
				Variants: []JobVariant{{Platform: "instagram", AspectRatio: "1:1", MaxAttempts: MaxJobAttempts + 1}},
			},
			wantErr: true,
		},
		{
			name: "width without height",
			spec: JobSpec{
				Modality: "image",
				Context:  JobContext{BusinessType: "cafe"},
				Variants: []JobVariant{{Platform: "instagram", AspectRatio: "1:1", Width: 992}},
			},
			wantErr: true,
		},
		{
			name: "no variants",
			spec: JobSpec{
				Modality: "image",
				Context:  JobContext{BusinessType: "cafe"},
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.spec.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestJobSpecVariantSpecs(t *testing.T) {
	threshold := 8.0
	s := JobSpec{
		Modality: "image",
		Context:  JobContext{BusinessName: "Kopi Sudut", Seed: 9},
		Variants: []JobVariant{
			{Platform: "instagram", AspectRatio: "1:1"},
			{Platform: "facebook", AspectRatio: "16:9", Model: "qwen-image-plus", QualityThreshold: &threshold, Width: 992, Height: 1056},
		},
	}

	specs := s.VariantSpecs()
	if len(specs) != 2 {
		t.Fatalf("VariantSpecs len = %d, want 2", len(specs))
	}
	if specs[0].Overrides != nil {
		t.Fatalf("plain variant should carry no overrides, got %+v", specs[0].Overrides)
	}
	o := specs[1].Overrides
	if o == nil {
		t.Fatal("tuned variant should carry overrides")
	}
	if o.Model != "qwen-image-plus" {
		t.Fatalf("Overrides.Model = %q, want %q", o.Model, "qwen-image-plus")
	}
	if o.QualityThreshold == nil || *o.QualityThreshold != 8.0 {
		t.Fatalf("Overrides.QualityThreshold = %v, want 8.0", o.QualityThreshold)
	}
	if o.Constraints == nil || o.Constraints.Width != 992 || o.Constraints.Height != 1056 {
		t.Fatalf("Overrides.Constraints = %+v, want 992x1056", o.Constraints)
	}
}

func TestJobSpecVariantSpecsInheritJobModel(t *testing.T) {
	s := JobSpec{
		Modality: "image",
		Model:    "synthetic",
		Context:  JobContext{BusinessName: "Kopi Sudut"},
		Variants: []JobVariant{
			{Platform: "instagram", AspectRatio: "1:1"},
			{Platform: "facebook", AspectRatio: "16:9", Model: "qwen-image-plus"},
		},
	}

	specs := s.VariantSpecs()
	if specs[0].Overrides == nil || specs[0].Overrides.Model != "synthetic" {
		t.Fatalf("plain variant should inherit job model, got %+v", specs[0].Overrides)
	}
	if specs[1].Overrides == nil || specs[1].Overrides.Model != "qwen-image-plus" {
		t.Fatalf("tuned variant should keep its own model, got %+v", specs[1].Overrides)
	}
}

func TestJobSpecRequestContextCopiesSlices(t *testing.T) {
	s := JobSpec{
		Context: JobContext{
			BusinessName: "Kopi Sudut",
			Keywords:     []string{"espresso"},
			PriorOutputs: []string{"old caption"},
			Fields:       map[string]string{"city": "Bandung"},
			Seed:         42,
		},
	}

	reqCtx := s.RequestContext()
	s.Context.Keywords[0] = "mutated"
	s.Context.Fields["city"] = "mutated"

	if reqCtx.Keywords[0] != "espresso" {
		t.Fatalf("Keywords aliased: %q", reqCtx.Keywords[0])
	}
	if reqCtx.Fields["city"] != "Bandung" {
		t.Fatalf("Fields aliased: %q", reqCtx.Fields["city"])
	}
	if reqCtx.Seed != 42 {
		t.Fatalf("Seed = %d, want 42", reqCtx.Seed)
	}
}
