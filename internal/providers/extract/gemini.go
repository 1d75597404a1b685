package extract

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

	"clipsheet/internal/domain"
)

const (
	geminiDefaultTimeout = 20 * time.Second
	geminiProviderName   = "gemini"
)

// GeminiOptions configures the Gemini-backed extractor.
type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiExtractor implements Extractor against the Gemini generateContent API.
type GeminiExtractor struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// NewGeminiExtractor validates options and builds the client.
func NewGeminiExtractor(opts GeminiOptions) (*GeminiExtractor, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	return &GeminiExtractor{apiKey: opts.APIKey, model: model, baseURL: baseURL, client: client}, nil
}

// Extract implements Extractor. Unlike advisory provider calls, this one is
// billed quota, so failures surface as domain.ErrProviderFailure instead of
// degrading to a fallback.
func (g *GeminiExtractor) Extract(ctx context.Context, req Request) (*Result, error) {
	if len(req.Columns) == 0 {
		return nil, fmt.Errorf("%w: columns are required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.PageText) == "" {
		return nil, fmt.Errorf("%w: page text is required", domain.ErrInvalidInput)
	}

	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildExtractionPrompt(req)}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      0.1,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode gemini request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(), &buf)
	if err != nil {
		return nil, fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %v", domain.ErrProviderFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: gemini status %d", domain.ErrProviderFailure, resp.StatusCode)
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: gemini decode: %v", domain.ErrProviderFailure, err)
	}

	text := firstCandidateText(out)
	if text == "" {
		return nil, fmt.Errorf("%w: gemini returned no candidates", domain.ErrProviderFailure)
	}

	rows, err := parseRows(text, req.Columns)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini payload: %v", domain.ErrProviderFailure, err)
	}
	return &Result{Rows: rows, Provider: geminiProviderName}, nil
}

func (g *GeminiExtractor) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
}

func buildExtractionPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Extract structured rows from the web page text below.\n")
	b.WriteString("Columns: " + strings.Join(req.Columns, ", ") + "\n")
	if req.Instructions != "" {
		b.WriteString("Instructions: " + req.Instructions + "\n")
	}
	b.WriteString(`Respond with JSON: {"rows":[{"<column>":"<value>", ...}]}. `)
	b.WriteString("Use empty strings for values not present on the page.\n")
	if req.PageURL != "" {
		b.WriteString("Page URL: " + req.PageURL + "\n")
	}
	b.WriteString("Page text:\n")
	b.WriteString(req.PageText)
	return b.String()
}

func firstCandidateText(resp geminiResponse) string {
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if text := strings.TrimSpace(part.Text); text != "" {
				return text
			}
		}
	}
	return ""
}

func parseRows(text string, columns []string) ([]Row, error) {
	// Models occasionally wrap JSON in a markdown fence despite the mime type.
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var payload struct {
		Rows []Row `json:"rows"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &payload); err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(payload.Rows))
	for _, raw := range payload.Rows {
		row := make(Row, len(columns))
		for _, col := range columns {
			row[col] = raw[col]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
