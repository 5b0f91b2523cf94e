package quality

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"genengine/internal/domain"
)

const (
	geminiDefaultTimeout = 15 * time.Second
	maxInlineImageBytes  = 4 << 20
)

// GeminiScorerOptions configures the Gemini-backed artifact scorer.
type GeminiScorerOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiScorer asks a multimodal Gemini model to judge an artifact against
// the prompt that produced it. The model answers in JSON mode with a score
// and improvement directives.
type GeminiScorer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type geminiScoreRequest struct {
	Contents         []geminiScoreContent    `json:"contents"`
	GenerationConfig *geminiScoreGenerationC `json:"generationConfig,omitempty"`
}

type geminiScoreContent struct {
	Role  string            `json:"role"`
	Parts []geminiScorePart `json:"parts"`
}

type geminiScorePart struct {
	Text       string                 `json:"text,omitempty"`
	InlineData *geminiScoreInlineData `json:"inlineData,omitempty"`
}

type geminiScoreInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiScoreGenerationC struct {
	Temperature      float64 `json:"temperature"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiScoreResponse struct {
	Candidates []struct {
		Content geminiScoreContent `json:"content"`
	} `json:"candidates"`
}

type reviewPayload struct {
	Score      float64  `json:"score"`
	Issues     []string `json:"issues"`
	Directives []string `json:"directives"`
}

func NewGeminiScorer(opts GeminiScorerOptions) (*GeminiScorer, error) {
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
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	return &GeminiScorer{
		apiKey:  opts.APIKey,
		model:   model,
		baseURL: baseURL,
		client:  client,
	}, nil
}

var _ Scorer = (*GeminiScorer)(nil)

func (g *GeminiScorer) Score(ctx context.Context, req domain.GenerationRequest, artifact *domain.Artifact) (*Review, error) {
	if artifact == nil {
		return nil, errors.New("nothing to score")
	}

	payload := geminiScoreRequest{
		Contents: []geminiScoreContent{{
			Role:  "user",
			Parts: g.buildParts(req, artifact),
		}},
		GenerationConfig: &geminiScoreGenerationC{
			Temperature:      0,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode score request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("build score request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("score artifact: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("score artifact: status %d", resp.StatusCode)
	}

	var out geminiScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode score response: %w", err)
	}
	text := extractScoreText(out)
	if text == "" {
		return nil, errors.New("empty score response")
	}
	parsed, err := parseReviewPayload(text)
	if err != nil {
		return nil, fmt.Errorf("parse score payload: %w", err)
	}

	directives := parsed.Directives
	if len(directives) == 0 {
		directives = directivesFromIssues(parsed.Issues)
	}
	return &Review{Score: parsed.Score, Directives: directives}, nil
}

func (g *GeminiScorer) buildParts(req domain.GenerationRequest, artifact *domain.Artifact) []geminiScorePart {
	parts := []geminiScorePart{{Text: buildRubric(req)}}
	if len(artifact.Data) > 0 && len(artifact.Data) <= maxInlineImageBytes && req.Modality == domain.ModalityImage {
		parts = append(parts, geminiScorePart{InlineData: &geminiScoreInlineData{
			MimeType: firstNonEmpty(artifact.ContentType, "image/png"),
			Data:     base64.StdEncoding.EncodeToString(artifact.Data),
		}})
	} else if artifact.URL != "" {
		parts = append(parts, geminiScorePart{Text: "Artifact URL: " + artifact.URL})
	}
	return parts
}

func buildRubric(req domain.GenerationRequest) string {
	sb := &strings.Builder{}
	sb.WriteString("You are a strict quality reviewer for generated marketing content. ")
	sb.WriteString("Judge how well the attached artifact fulfills the request below on a 0 to 10 scale, ")
	sb.WriteString("where 10 is flawless and anything under 7 has visible problems. ")
	sb.WriteString(`Respond strictly with JSON matching this schema: {"score":number,"issues":string[],"directives":string[]}. `)
	sb.WriteString("Directives must be short imperative prompt additions that would fix the issues. ")
	fmt.Fprintf(sb, "Request: %q.", req.PromptText())
	if !req.Constraints.Empty() {
		fmt.Fprintf(sb, " Required dimensions: %dx%d.", req.Constraints.Width, req.Constraints.Height)
	}
	return sb.String()
}

func directivesFromIssues(issues []string) []string {
	var out []string
	for _, issue := range issues {
		issue = strings.TrimSpace(issue)
		if issue == "" {
			continue
		}
		out = append(out, "Fix: "+issue)
	}
	return out
}

func extractScoreText(resp geminiScoreResponse) string {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

func parseReviewPayload(raw string) (*reviewPayload, error) {
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return nil, errors.New("empty payload")
	}
	var decoded reviewPayload
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil, err
	}
	return &decoded, nil
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

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
