package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const geminiComposerTimeout = 15 * time.Second

// GeminiComposerOptions configures the Gemini-backed composer.
type GeminiComposerOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiComposer writes copy with a Gemini text model. Unlike the static
// composer it can fail; callers decide the fallback policy, the composer
// only reports what happened.
type GeminiComposer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type geminiComposeRequest struct {
	Contents         []geminiComposeContent  `json:"contents"`
	GenerationConfig *geminiComposeGenConfig `json:"generationConfig,omitempty"`
}

type geminiComposeContent struct {
	Role  string              `json:"role,omitempty"`
	Parts []geminiComposePart `json:"parts"`
}

type geminiComposePart struct {
	Text string `json:"text,omitempty"`
}

type geminiComposeGenConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiComposeResponse struct {
	Candidates []struct {
		Content geminiComposeContent `json:"content"`
	} `json:"candidates"`
}

func NewGeminiComposer(opts GeminiComposerOptions) (*GeminiComposer, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiComposerTimeout}
	}
	return &GeminiComposer{
		apiKey:  opts.APIKey,
		model:   model,
		baseURL: baseURL,
		client:  client,
	}, nil
}

func (g *GeminiComposer) Compose(ctx context.Context, req ComposeRequest) (*Draft, error) {
	payload := geminiComposeRequest{
		Contents: []geminiComposeContent{{
			Role:  "user",
			Parts: []geminiComposePart{{Text: buildComposePrompt(req)}},
		}},
		GenerationConfig: &geminiComposeGenConfig{
			Temperature:      0.7,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode compose request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(), &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gemini compose status %d", resp.StatusCode)
	}
	var out geminiComposeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode compose response: %w", err)
	}
	text := extractComposeText(out)
	if text == "" {
		return nil, errors.New("empty compose response")
	}
	draft, err := parseDraftPayload(text)
	if err != nil {
		return nil, fmt.Errorf("parse compose payload: %w", err)
	}
	return draft, nil
}

func (g *GeminiComposer) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL, url.PathEscape(g.model), url.QueryEscape(g.apiKey))
}

func buildComposePrompt(req ComposeRequest) string {
	c := req.Context
	sb := &strings.Builder{}
	sb.WriteString("You are a marketing copywriter for small businesses. Respond strictly with JSON matching this schema: ")
	sb.WriteString(`{"headline":string,"caption":string,"tags":string[]}`)
	fmt.Fprintf(sb, ". %s", strings.TrimSpace(req.Instruction))
	fmt.Fprintf(sb, " Business details: name=%q, type=%q, platform=%q, tone=%q, keywords=%q.",
		c.BusinessName, c.BusinessType, c.Platform, c.Tone, strings.Join(c.Keywords, ", "))
	if c.Locale != "" {
		fmt.Fprintf(sb, " Use locale '%s' for language choices.", c.Locale)
	}
	return sb.String()
}

func extractComposeText(resp geminiComposeResponse) string {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

func parseDraftPayload(raw string) (*Draft, error) {
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return nil, errors.New("empty payload")
	}
	var draft Draft
	if err := json.Unmarshal([]byte(cleaned), &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

var _ Composer = (*GeminiComposer)(nil)
