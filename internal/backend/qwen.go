package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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

// ErrMissingAPIKey indicates that the invoker was configured without
// credentials.
var ErrMissingAPIKey = errors.New("qwen: api key is required")

// QwenOptions configures the DashScope Qwen invoker.
type QwenOptions struct {
	APIKey         string
	BaseURL        string
	Model          string
	DefaultSize    string
	PromptExtend   bool
	Watermark      bool
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Qwen invokes the DashScope multimodal generation API. It only produces
// images; video requests are rejected as fatal before any network call.
type Qwen struct {
	apiKey       string
	baseURL      string
	model        string
	defaultSize  string
	promptExtend bool
	watermark    bool
	httpClient   *http.Client
	logger       *infra.Logger
}

type qwenRequest struct {
	Model      string     `json:"model"`
	Input      qwenInput  `json:"input"`
	Parameters qwenParams `json:"parameters"`
}

type qwenInput struct {
	Messages []qwenMessage `json:"messages"`
}

type qwenMessage struct {
	Role    string        `json:"role"`
	Content []qwenContent `json:"content"`
}

type qwenContent struct {
	Text string `json:"text,omitempty"`
}

type qwenParams struct {
	Size         string `json:"size,omitempty"`
	PromptExtend *bool  `json:"prompt_extend,omitempty"`
	Watermark    *bool  `json:"watermark,omitempty"`
	Seed         *int   `json:"seed,omitempty"`
}

type qwenResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Image string `json:"image"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Usage struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"usage"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type qwenErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewQwen constructs an invoker with sane defaults and injected dependencies.
func NewQwen(opts QwenOptions) (*Qwen, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "qwen-image-plus"
	}
	defaultSize := strings.TrimSpace(opts.DefaultSize)
	if defaultSize == "" {
		defaultSize = "1328*1328"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Qwen{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		model:        model,
		defaultSize:  defaultSize,
		promptExtend: opts.PromptExtend,
		watermark:    opts.Watermark,
		httpClient:   httpClient,
		logger:       logger,
	}, nil
}

var _ Invoker = (*Qwen)(nil)

// Model returns the configured model identifier.
func (q *Qwen) Model() string {
	return q.model
}

// HasCredentials reports whether the invoker can perform remote calls.
func (q *Qwen) HasCredentials() bool {
	return q.apiKey != ""
}

func (q *Qwen) Invoke(ctx context.Context, req domain.GenerationRequest, cfg AttemptConfig) (*domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.ContextError(ctx)
	}
	if req.Modality == domain.ModalityVideo {
		return nil, domain.NewBackendError(domain.KindFatal, q.model,
			fmt.Errorf("%w: qwen does not generate video", domain.ErrUnsupportedModel))
	}
	if !q.HasCredentials() {
		return nil, domain.NewBackendError(domain.KindFatal, q.model, ErrMissingAPIKey)
	}
	prompt := strings.TrimSpace(req.PromptText())
	if prompt == "" {
		return nil, domain.NewBackendError(domain.KindFatal, q.model, domain.ErrInvalidRequest)
	}

	payload := qwenRequest{
		Model: q.model,
		Input: qwenInput{
			Messages: []qwenMessage{{
				Role:    "user",
				Content: []qwenContent{{Text: prompt}},
			}},
		},
		Parameters: qwenParams{Size: q.size(req.Constraints)},
	}
	if extend := q.promptExtend; extend {
		payload.Parameters.PromptExtend = &extend
	}
	if req.Seed > 0 {
		seed := int(req.Seed % (1 << 31))
		payload.Parameters.Seed = &seed
	}
	watermark := q.watermark
	payload.Parameters.Watermark = &watermark

	endpoint := q.baseURL + "/services/aigc/multimodal-generation/generation"
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.NewBackendError(domain.KindFatal, q.model, fmt.Errorf("qwen: encode request: %w", err))
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewBackendError(domain.KindFatal, q.model, fmt.Errorf("qwen: build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+q.apiKey)

	resp, err := q.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportErrorf(q.model, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewBackendError(domain.KindTransient, q.model, fmt.Errorf("qwen: read response: %w", err))
	}

	if resp.StatusCode >= 300 {
		var detail qwenErrorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Code != "" {
			return nil, domain.NewBackendError(classifyQwenCode(detail.Code, resp.StatusCode), q.model,
				fmt.Errorf("qwen: %s (%s)", detail.Message, detail.Code))
		}
		return nil, statusErrorf(q.model, resp.StatusCode, string(raw))
	}

	var decoded qwenResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, domain.NewBackendError(domain.KindTransient, q.model, fmt.Errorf("qwen: decode response: %w", err))
	}
	if decoded.Code != "" {
		return nil, domain.NewBackendError(classifyQwenCode(decoded.Code, resp.StatusCode), q.model,
			fmt.Errorf("qwen: %s (%s)", decoded.Message, decoded.Code))
	}
	imageURL := firstQwenImageURL(decoded)
	if imageURL == "" {
		return nil, domain.NewBackendError(domain.KindTransient, q.model,
			fmt.Errorf("%w: empty image url", domain.ErrNoArtifact))
	}
	data, format, err := q.download(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	artifact := &domain.Artifact{
		URL:         imageURL,
		Data:        data,
		ContentType: format,
		Width:       decoded.Usage.Width,
		Height:      decoded.Usage.Height,
	}
	if artifact.Width == 0 || artifact.Height == 0 {
		artifact.Measure()
	}

	q.logger.Debug().
		Str("model", q.model).
		Str("request_id", decoded.RequestID).
		Str("url", imageURL).
		Msg("qwen: generated image artifact")
	return artifact, nil
}

func (q *Qwen) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil || parsed.Scheme == "" {
		return nil, "", domain.NewBackendError(domain.KindTransient, q.model,
			fmt.Errorf("qwen: invalid image url: %s", imageURL))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", domain.NewBackendError(domain.KindFatal, q.model, fmt.Errorf("qwen: build download request: %w", err))
	}
	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, "", transportErrorf(q.model, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", statusErrorf(q.model, resp.StatusCode, "image download failed")
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", domain.NewBackendError(domain.KindTransient, q.model, fmt.Errorf("qwen: read image: %w", err))
	}
	format := resp.Header.Get("Content-Type")
	if format == "" {
		format = "image/png"
	}
	return data, format, nil
}

// size maps structural constraints onto the DashScope size parameter.
func (q *Qwen) size(c domain.Constraints) string {
	if c.Width > 0 && c.Height > 0 {
		return fmt.Sprintf("%d*%d", c.Width, c.Height)
	}
	return q.defaultSize
}

// classifyQwenCode maps DashScope error code strings onto the taxonomy.
// Throttling codes come in several flavors (Throttling, Throttling.RateQuota,
// Throttling.AllocationQuota) so the prefix decides.
func classifyQwenCode(code string, status int) domain.ErrorKind {
	switch {
	case strings.HasPrefix(code, "Throttling"):
		return domain.KindRateLimited
	case code == "InternalError", code == "SystemError", code == "RequestTimeOut":
		return domain.KindTransient
	case code == "ModelServingError", code == "ModelUnavailable":
		return domain.KindOverloaded
	}
	if status >= 300 {
		return ClassifyStatus(status)
	}
	return domain.KindFatal
}

func firstQwenImageURL(resp qwenResponse) string {
	for _, choice := range resp.Output.Choices {
		for _, content := range choice.Message.Content {
			if url := strings.TrimSpace(content.Image); url != "" {
				return url
			}
		}
	}
	return ""
}
