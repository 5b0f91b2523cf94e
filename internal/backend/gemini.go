package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"genengine/internal/domain"
	"genengine/internal/infra"
)

// GeminiOptions controls how the Gemini invoker is configured.
type GeminiOptions struct {
	APIKey       string
	BaseURL      string
	Model        string
	HTTPClient   *http.Client
	Logger       *infra.Logger
	PollInterval time.Duration
}

// Gemini invokes the Gemini generateContent API for images and the
// predictLongRunning API for video. Video runs as submit and poll phases
// inside a single Invoke so the retry policy treats both as one attempt.
type Gemini struct {
	apiKey       string
	baseURL      string
	model        string
	httpClient   *http.Client
	logger       *infra.Logger
	pollInterval time.Duration
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	FileData   *geminiFileData   `json:"fileData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type geminiGenerationConfig struct {
	CandidateCount     int      `json:"candidateCount,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

type geminiPredictRequest struct {
	Instances  []geminiVideoInstance `json:"instances"`
	Parameters *geminiVideoParams    `json:"parameters,omitempty"`
}

type geminiVideoInstance struct {
	Prompt string `json:"prompt"`
}

type geminiVideoParams struct {
	AspectRatio    string `json:"aspectRatio,omitempty"`
	NumberOfVideos int    `json:"numberOfVideos,omitempty"`
}

type geminiOperation struct {
	Name     string                `json:"name"`
	Done     bool                  `json:"done"`
	Error    *geminiOperationError `json:"error,omitempty"`
	Response *geminiVideoResponse  `json:"response,omitempty"`
}

type geminiOperationError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type geminiVideoResponse struct {
	GenerateVideoResponse struct {
		GeneratedSamples []struct {
			Video struct {
				URI string `json:"uri"`
			} `json:"video"`
		} `json:"generatedSamples"`
	} `json:"generateVideoResponse"`
}

// NewGemini constructs a Gemini invoker with sane defaults. Callers may
// provide a nil HTTP client; a reusable one with sensible timeouts will be
// created.
func NewGemini(opts GeminiOptions) (*Gemini, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash-image-preview"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	return &Gemini{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		model:        model,
		httpClient:   client,
		logger:       logger,
		pollInterval: pollInterval,
	}, nil
}

var _ Invoker = (*Gemini)(nil)

// Model returns the configured Gemini model identifier.
func (g *Gemini) Model() string {
	return g.model
}

func (g *Gemini) Invoke(ctx context.Context, req domain.GenerationRequest, cfg AttemptConfig) (*domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.ContextError(ctx)
	}
	switch req.Modality {
	case domain.ModalityVideo:
		return g.generateVideo(ctx, req)
	default:
		return g.generateImage(ctx, req, cfg)
	}
}

func (g *Gemini) generateImage(ctx context.Context, req domain.GenerationRequest, cfg AttemptConfig) (*domain.Artifact, error) {
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: geminiParts(req, cfg),
		}},
		GenerationConfig: &geminiGenerationConfig{
			CandidateCount:     1,
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	var response geminiGenerateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(g.model))
	if err := g.post(ctx, path, payload, &response); err != nil {
		return nil, err
	}

	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			artifact, err := g.decodePart(ctx, part)
			if err != nil {
				return nil, err
			}
			if artifact == nil {
				continue
			}
			artifact.Measure()
			g.logger.Debug().
				Str("request_id", req.ID).
				Str("model", g.model).
				Int64("bytes", artifact.Size()).
				Msg("gemini: generated image artifact")
			return artifact, nil
		}
	}

	// An empty candidate list is a backend hiccup, not a caller mistake.
	return nil, domain.NewBackendError(domain.KindTransient, g.model,
		fmt.Errorf("%w: empty gemini response", domain.ErrNoArtifact))
}

func (g *Gemini) generateVideo(ctx context.Context, req domain.GenerationRequest) (*domain.Artifact, error) {
	payload := geminiPredictRequest{
		Instances: []geminiVideoInstance{{Prompt: req.PromptText()}},
		Parameters: &geminiVideoParams{
			AspectRatio:    aspectFromConstraints(req.Constraints),
			NumberOfVideos: 1,
		},
	}

	var submitted geminiOperation
	path := fmt.Sprintf("/models/%s:predictLongRunning", url.PathEscape(g.model))
	if err := g.post(ctx, path, payload, &submitted); err != nil {
		return nil, err
	}
	if submitted.Name == "" {
		return nil, domain.NewBackendError(domain.KindTransient, g.model,
			fmt.Errorf("predictLongRunning returned no operation name"))
	}

	g.logger.Debug().
		Str("request_id", req.ID).
		Str("operation", submitted.Name).
		Msg("gemini: video operation submitted")

	operation, err := g.pollOperation(ctx, submitted.Name)
	if err != nil {
		return nil, err
	}
	if operation.Error != nil {
		return nil, domain.NewBackendError(classifyOperationCode(operation.Error.Code), g.model,
			fmt.Errorf("video operation failed: %s", operation.Error.Message))
	}
	if operation.Response == nil {
		return nil, domain.NewBackendError(domain.KindTransient, g.model,
			fmt.Errorf("%w: operation finished without response", domain.ErrNoArtifact))
	}

	for _, sample := range operation.Response.GenerateVideoResponse.GeneratedSamples {
		uri := sample.Video.URI
		if uri == "" {
			continue
		}
		data, mime, err := g.download(ctx, uri)
		if err != nil {
			return nil, err
		}
		return &domain.Artifact{
			URL:         uri,
			Data:        data,
			ContentType: firstNonEmpty(mime, "video/mp4"),
		}, nil
	}

	return nil, domain.NewBackendError(domain.KindTransient, g.model,
		fmt.Errorf("%w: operation produced no video", domain.ErrNoArtifact))
}

// pollOperation checks the long-running operation until it reports done or
// the context ends. Poll failures carry the same classification as any other
// backend call, so a transient poll failure makes the whole attempt retryable.
func (g *Gemini) pollOperation(ctx context.Context, name string) (*geminiOperation, error) {
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		var operation geminiOperation
		if err := g.get(ctx, "/"+strings.TrimLeft(name, "/"), &operation); err != nil {
			return nil, err
		}
		if operation.Done {
			return &operation, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, domain.ContextError(ctx)
		}
	}
}

func (g *Gemini) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.NewBackendError(domain.KindFatal, g.model, fmt.Errorf("marshal request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return domain.NewBackendError(domain.KindFatal, g.model, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	return g.roundTrip(req, out)
}

func (g *Gemini) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return domain.NewBackendError(domain.KindFatal, g.model, fmt.Errorf("create request: %w", err))
	}
	return g.roundTrip(req, out)
}

func (g *Gemini) roundTrip(req *http.Request, out any) error {
	if g.apiKey != "" {
		q := req.URL.Query()
		q.Set("key", g.apiKey)
		req.URL.RawQuery = q.Encode()
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return transportErrorf(g.model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		data, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return statusErrorf(g.model, resp.StatusCode, apiErr.Error.Message)
		}
		return statusErrorf(g.model, resp.StatusCode, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewBackendError(domain.KindTransient, g.model, fmt.Errorf("decode gemini response: %w", err))
	}
	return nil
}

func (g *Gemini) decodePart(ctx context.Context, part geminiPart) (*domain.Artifact, error) {
	if part.InlineData != nil && part.InlineData.Data != "" {
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return nil, domain.NewBackendError(domain.KindTransient, g.model, fmt.Errorf("decode inline data: %w", err))
		}
		return &domain.Artifact{
			Data:        data,
			ContentType: firstNonEmpty(part.InlineData.MimeType, "image/png"),
		}, nil
	}

	if part.FileData != nil && part.FileData.FileURI != "" {
		data, mime, err := g.download(ctx, part.FileData.FileURI)
		if err != nil {
			return nil, err
		}
		return &domain.Artifact{
			URL:         part.FileData.FileURI,
			Data:        data,
			ContentType: firstNonEmpty(part.FileData.MimeType, mime),
		}, nil
	}

	return nil, nil
}

func (g *Gemini) download(ctx context.Context, uri string) ([]byte, string, error) {
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = g.baseURL + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", domain.NewBackendError(domain.KindFatal, g.model, fmt.Errorf("create download request: %w", err))
	}
	if g.apiKey != "" {
		q := req.URL.Query()
		q.Set("key", g.apiKey)
		req.URL.RawQuery = q.Encode()
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, "", transportErrorf(g.model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, "", statusErrorf(g.model, resp.StatusCode, string(data))
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", domain.NewBackendError(domain.KindTransient, g.model, fmt.Errorf("read artifact body: %w", err))
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

// geminiParts translates prompt parts onto the wire. A strict attempt appends
// an exact-dimensions instruction so corrective regenerations reach the
// backend with the constraint spelled out.
func geminiParts(req domain.GenerationRequest, cfg AttemptConfig) []geminiPart {
	parts := make([]geminiPart, 0, len(req.Parts)+1)
	for _, part := range req.Parts {
		switch part.Kind {
		case domain.PartText:
			if strings.TrimSpace(part.Text) == "" {
				continue
			}
			parts = append(parts, geminiPart{Text: part.Text})
		case domain.PartMedia:
			if part.MediaURL == "" {
				continue
			}
			parts = append(parts, geminiPart{FileData: &geminiFileData{
				MimeType: part.MimeType,
				FileURI:  part.MediaURL,
			}})
		}
	}
	if cfg.Strict && !req.Constraints.Empty() {
		parts = append(parts, geminiPart{Text: fmt.Sprintf(
			"Render the image at exactly %dx%d pixels.", req.Constraints.Width, req.Constraints.Height)})
	}
	if len(parts) == 0 {
		parts = append(parts, geminiPart{Text: "Create a marketing image"})
	}
	return parts
}

// classifyOperationCode maps long-running operation error codes, which follow
// gRPC status numbering, onto the error taxonomy.
func classifyOperationCode(code int) domain.ErrorKind {
	switch code {
	case 8: // RESOURCE_EXHAUSTED
		return domain.KindRateLimited
	case 14: // UNAVAILABLE
		return domain.KindOverloaded
	case 4, 13: // DEADLINE_EXCEEDED, INTERNAL
		return domain.KindTransient
	}
	return domain.KindFatal
}

func aspectFromConstraints(c domain.Constraints) string {
	if c.Width <= 0 || c.Height <= 0 {
		return ""
	}
	switch {
	case c.Width == c.Height:
		return "1:1"
	case c.Width*9 == c.Height*16:
		return "16:9"
	case c.Height*9 == c.Width*16:
		return "9:16"
	case c.Width*5 == c.Height*4:
		return "4:5"
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
