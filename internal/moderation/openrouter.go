package moderation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultJudgeBaseURL = "https://openrouter.ai/api/v1"
	defaultJudgeModel   = "openai/gpt-4o-mini"
	defaultJudgeTimeout = 60 * time.Second
)

// OpenRouterConfig configures the OpenRouter-backed judge.
type OpenRouterConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Referer string
	Title   string
}

// OpenRouterJudge implements Judge over the OpenRouter chat-completions
// API. Transport failures, timeouts and malformed responses all surface
// as degraded results.
type OpenRouterJudge struct {
	cfg    OpenRouterConfig
	client *http.Client
}

// NewOpenRouterJudge creates the judge client.
func NewOpenRouterJudge(cfg OpenRouterConfig, httpClient *http.Client) *OpenRouterJudge {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultJudgeBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultJudgeModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultJudgeTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenRouterJudge{cfg: cfg, client: httpClient}
}

// AnalyzeQuality asks for a rubric-based quality assessment of the paper.
func (j *OpenRouterJudge) AnalyzeQuality(ctx context.Context, content PaperContent) QualityResult {
	prompt := buildQualityPrompt(content)
	raw, err := j.complete(ctx, completionRequest{
		system:      "You are an academic paper quality assessment expert. Always respond with valid JSON only.",
		prompt:      prompt,
		document:    content.Document,
		temperature: 0.3,
		maxTokens:   1500,
	})
	if err != nil {
		return degradedQuality(err.Error())
	}

	var verdict QualityVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return degradedQuality(fmt.Sprintf("parse quality verdict: %v", err))
	}
	if verdict.QualityScore < 0 || verdict.QualityScore > 100 {
		return degradedQuality(fmt.Sprintf("quality score out of range: %d", verdict.QualityScore))
	}
	return QualityResult{Verdict: verdict}
}

// DetectBabble asks whether the paper reads as low-substance AI output.
func (j *OpenRouterJudge) DetectBabble(ctx context.Context, content PaperContent) BabbleResult {
	prompt := buildBabblePrompt(content)
	raw, err := j.complete(ctx, completionRequest{
		system:      "You are an AI content detection expert. Always respond with valid JSON only.",
		prompt:      prompt,
		document:    content.Document,
		temperature: 0.2,
		maxTokens:   1000,
	})
	if err != nil {
		return degradedBabble(err.Error())
	}

	var verdict BabbleVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return degradedBabble(fmt.Sprintf("parse babble verdict: %v", err))
	}
	return BabbleResult{Verdict: verdict}
}

// CheckSpam asks for a spam/not-spam classification of the paper text.
func (j *OpenRouterJudge) CheckSpam(ctx context.Context, content PaperContent) SpamResult {
	prompt := buildSpamPrompt(content)
	raw, err := j.complete(ctx, completionRequest{
		system:      "You are a spam detection expert. Always respond with valid JSON only.",
		prompt:      prompt,
		temperature: 0.1,
		maxTokens:   500,
	})
	if err != nil {
		return degradedSpam(err.Error())
	}

	var verdict SpamVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return degradedSpam(fmt.Sprintf("parse spam verdict: %v", err))
	}
	return SpamResult{Verdict: verdict}
}

type completionRequest struct {
	system      string
	prompt      string
	document    []byte
	temperature float64
	maxTokens   int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type string       `json:"type"`
	Text string       `json:"text,omitempty"`
	File *filePayload `json:"file,omitempty"`
}

type filePayload struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Plugins     []chatPlugin  `json:"plugins,omitempty"`
}

type chatPlugin struct {
	ID  string        `json:"id"`
	PDF pdfPluginSpec `json:"pdf"`
}

type pdfPluginSpec struct {
	Engine string `json:"engine"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (j *OpenRouterJudge) complete(ctx context.Context, req completionRequest) (string, error) {
	if strings.TrimSpace(j.cfg.APIKey) == "" {
		return "", fmt.Errorf("judge api key missing")
	}

	userContent := any(req.prompt)
	payload := chatRequest{
		Model:       j.cfg.Model,
		Temperature: req.temperature,
		MaxTokens:   req.maxTokens,
	}
	if len(req.document) > 0 {
		dataURL := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(req.document)
		userContent = []contentPart{
			{Type: "text", Text: req.prompt},
			{Type: "file", File: &filePayload{Filename: "paper.pdf", FileData: dataURL}},
		}
		payload.Plugins = []chatPlugin{{ID: "file-parser", PDF: pdfPluginSpec{Engine: "pdf-text"}}}
	}
	payload.Messages = []chatMessage{
		{Role: "system", Content: req.system},
		{Role: "user", Content: userContent},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost,
		strings.TrimRight(j.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+j.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if j.cfg.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", j.cfg.Referer)
	}
	if j.cfg.Title != "" {
		httpReq.Header.Set("X-Title", j.cfg.Title)
	}

	resp, err := j.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("judge request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("judge status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}

	return stripCodeFences(parsed.Choices[0].Message.Content), nil
}

// stripCodeFences unwraps JSON the model returned inside a markdown code
// block.
func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
