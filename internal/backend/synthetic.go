package backend

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"

	"genengine/internal/domain"
)

// Synthetic renders deterministic placeholder artifacts without any network
// call. It stands in for a real backend when no API key is configured, which
// keeps the whole pipeline exercisable in local and CI environments. The same
// request with the same seed always produces the same bytes.
type Synthetic struct {
	model string
}

// NewSynthetic builds a synthetic invoker answering for the given model id.
func NewSynthetic(model string) *Synthetic {
	if model == "" {
		model = "synthetic"
	}
	return &Synthetic{model: model}
}

var _ Invoker = (*Synthetic)(nil)

func (s *Synthetic) Model() string {
	return s.model
}

func (s *Synthetic) Invoke(ctx context.Context, req domain.GenerationRequest, cfg AttemptConfig) (*domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.ContextError(ctx)
	}

	seed := deterministicSeed(req.ID, req.PromptText(), req.Seed, s.model)
	if req.Modality == domain.ModalityVideo {
		return &domain.Artifact{
			Data:        renderSyntheticVideo(seed, req.PromptText()),
			ContentType: "video/mp4",
		}, nil
	}

	width, height := req.Constraints.Width, req.Constraints.Height
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 1024
	}
	return &domain.Artifact{
		Data:        renderSyntheticImage(width, height, seed),
		ContentType: "image/png",
		Width:       width,
		Height:      height,
	}, nil
}

func renderSyntheticImage(width, height int, seed string) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &image.Uniform{base}, image.Point{}, draw.Src)

	stripeHeight := maxInt(32, height/12)
	for y := 0; y < height; y += stripeHeight * 2 {
		stripe := image.Rect(0, y, width, minInt(height, y+stripeHeight))
		draw.Draw(img, stripe, &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	diagonal := colorFromSeed(seed, 2)
	for i := 0; i < maxInt(width, height); i += maxInt(16, width/32) {
		for y := 0; y < height; y++ {
			xx := i + y
			if xx >= width {
				break
			}
			img.Set(xx, y, diagonal)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func renderSyntheticVideo(seed, prompt string) []byte {
	lines := []string{
		"Synthetic video placeholder",
		fmt.Sprintf("Seed: %s", seed),
		fmt.Sprintf("Prompt: %s", strings.TrimSpace(prompt)),
		"",
		"This placeholder represents where rendered video bytes would be stored",
		"once a video backend credential is configured.",
	}
	return []byte(strings.Join(lines, "\n"))
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if seed == "" {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	r := mustParseHexByte(segment[0:2])
	g := mustParseHexByte(segment[2:4])
	b := mustParseHexByte(segment[4:6])
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func mustParseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(fmt.Sprintf("%v", part)))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}
