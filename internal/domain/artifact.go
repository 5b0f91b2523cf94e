package domain

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
)

// Artifact is a produced media reference plus its measured metadata. It is
// owned by the attempt that produced it until the loop terminates, at which
// point ownership transfers to the caller.
type Artifact struct {
	URL         string
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Measure decodes the artifact header to fill Width/Height. Artifacts that
// carry no bytes (URL-only references) keep whatever dimensions the backend
// reported. Undecodable bytes leave the dimensions untouched.
func (a *Artifact) Measure() {
	if a == nil || len(a.Data) == 0 {
		return
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(a.Data))
	if err != nil {
		return
	}
	a.Width = cfg.Width
	a.Height = cfg.Height
}

// Size returns the payload length in bytes, zero for URL-only artifacts.
func (a *Artifact) Size() int64 {
	if a == nil {
		return 0
	}
	return int64(len(a.Data))
}
