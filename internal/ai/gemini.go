package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNotConfigured = errors.New("ai: GEMINI_API_KEY not configured")
	ErrEmptyResponse = errors.New("ai: empty response")
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

const analystPrompt = `Eres analista de operaciones de un despacho jurídico. Comenta en español, ` +
	`en no más de 200 palabras, las métricas del reporte: tendencias, riesgos y una recomendación concreta.`

// Roles of a conversation turn.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Gemini calls the generateContent REST endpoint.
type Gemini struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewGemini(apiKey, model string) *Gemini {
	return &Gemini{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  genConfig       `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type genConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Summarize returns commentary on a report rendered as prompt.
func (g *Gemini) Summarize(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, []Turn{{Role: RoleUser, Text: prompt}})
}

// Chat continues a conversation. history must alternate user and model turns.
func (g *Gemini) Chat(ctx context.Context, history []Turn, message string) (string, error) {
	turns := append(append(make([]Turn, 0, len(history)+1), history...), Turn{Role: RoleUser, Text: message})
	return g.generate(ctx, turns)
}

func (g *Gemini) generate(ctx context.Context, turns []Turn) (string, error) {
	if g.apiKey == "" {
		return "", ErrNotConfigured
	}

	payload := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: analystPrompt}}},
		GenerationConfig:  genConfig{Temperature: 0.4, MaxOutputTokens: 1024},
	}
	for _, t := range turns {
		payload.Contents = append(payload.Contents, geminiContent{Role: t.Role, Parts: []geminiPart{{Text: t.Text}}})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ai: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("ai: cancelled: %w", ctx.Err())
		}
		return "", fmt.Errorf("ai: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	if err != nil {
		return "", fmt.Errorf("ai: read response: %w", err)
	}

	var parsed geminiResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(raw, &parsed) == nil && parsed.Error != nil {
			return "", fmt.Errorf("ai: gemini error %d: %s", parsed.Error.Code, parsed.Error.Message)
		}
		return "", fmt.Errorf("ai: gemini HTTP %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("ai: decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}
