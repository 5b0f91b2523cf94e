package domain

import (
	"strings"
	"time"
)

// Modality selects the kind of artifact a request produces.
type Modality string

const (
	ModalityImage Modality = "image"
	ModalityVideo Modality = "video"
)

// PartKind discriminates prompt part payloads.
type PartKind string

const (
	PartText  PartKind = "text"
	PartMedia PartKind = "media"
)

// PromptPart is one ordered element of a prompt. The engine never interprets
// the content; it only carries parts to the backend and appends improvement
// directives as additional text parts.
type PromptPart struct {
	Kind     PartKind
	Text     string
	MediaURL string
	MimeType string
}

// TextPart builds a text prompt part.
func TextPart(text string) PromptPart {
	return PromptPart{Kind: PartText, Text: text}
}

// MediaPart builds a media-reference prompt part.
func MediaPart(url, mimeType string) PromptPart {
	return PromptPart{Kind: PartMedia, MediaURL: url, MimeType: mimeType}
}

// Constraints are hard structural requirements on a produced artifact.
// Zero values mean unconstrained.
type Constraints struct {
	Width  int
	Height int
}

// Empty reports whether no constraint is set.
func (c Constraints) Empty() bool {
	return c.Width == 0 && c.Height == 0
}

// SatisfiedBy reports whether the artifact meets every set constraint.
func (c Constraints) SatisfiedBy(a *Artifact) bool {
	if a == nil {
		return false
	}
	if c.Width != 0 && a.Width != c.Width {
		return false
	}
	if c.Height != 0 && a.Height != c.Height {
		return false
	}
	return true
}

// GenerationRequest is the immutable description of one "produce an artifact"
// need. It is never mutated: deriving an improved prompt yields a fresh value
// via WithDirectives while the ID keeps identifying the logical need.
type GenerationRequest struct {
	ID               string
	Parts            []PromptPart
	Modality         Modality
	Model            string
	QualityThreshold float64
	MaxAttempts      int
	Constraints      Constraints
	Deadline         time.Time
	Seed             int64
}

// PromptText flattens the text parts into a single prompt string for
// backends that take plain text. Media parts are skipped.
func (r GenerationRequest) PromptText() string {
	var b strings.Builder
	for _, part := range r.Parts {
		if part.Kind != PartText || strings.TrimSpace(part.Text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

// WithDirectives returns a copy of the request with the given directives
// appended as text parts. The receiver is left untouched; the copy owns a
// fresh parts slice so later appends cannot alias.
func (r GenerationRequest) WithDirectives(directives ...string) GenerationRequest {
	parts := make([]PromptPart, 0, len(r.Parts)+len(directives))
	parts = append(parts, r.Parts...)
	for _, d := range directives {
		if strings.TrimSpace(d) == "" {
			continue
		}
		parts = append(parts, TextPart(d))
	}
	out := r
	out.Parts = parts
	return out
}

// Validate checks the request contract before the loop accepts it.
func (r GenerationRequest) Validate() error {
	if len(r.Parts) == 0 {
		return ErrInvalidRequest
	}
	if r.Modality != ModalityImage && r.Modality != ModalityVideo {
		return ErrInvalidRequest
	}
	if r.MaxAttempts < 1 {
		return ErrInvalidRequest
	}
	if r.QualityThreshold < 0 || r.QualityThreshold > 10 {
		return ErrInvalidRequest
	}
	return nil
}
