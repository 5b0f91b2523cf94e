package domain

// RequestOverrides carries optional per-variant tweaks applied when a
// GenerationRequest is derived from a VariantSpec.
type RequestOverrides struct {
	Model            string
	QualityThreshold *float64
	MaxAttempts      int
	Constraints      *Constraints
}

// VariantSpec names one rendering target for the same logical content:
// a platform plus aspect ratio, with optional request overrides.
type VariantSpec struct {
	Platform    string
	AspectRatio string
	Overrides   *RequestOverrides
}

// Key returns a stable identifier for logging and asset naming.
func (s VariantSpec) Key() string {
	if s.AspectRatio == "" {
		return s.Platform
	}
	return s.Platform + "/" + s.AspectRatio
}

// VariantResult is the terminal state of one variant: either an artifact or
// an error, never both. Results are independent across variants; a fatal
// error here says nothing about the siblings.
type VariantResult struct {
	Spec         VariantSpec
	Artifact     *Artifact
	Attempts     int
	ThresholdMet bool
	Corrected    bool
	History      []Attempt
	Err          error
}

// Succeeded reports whether the variant produced an artifact.
func (r VariantResult) Succeeded() bool {
	return r.Err == nil && r.Artifact != nil
}
