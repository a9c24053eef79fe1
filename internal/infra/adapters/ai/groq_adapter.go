package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"feedback-analysis-service/internal/domain/ports/adapter"
	"feedback-analysis-service/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AnswerSynthesizer = (*GroqAdapter)(nil)

// GroqAdapter implements adapter.AnswerSynthesizer against Groq's
// OpenAI-compatible API. Base URL defaults to
// https://api.groq.com/openai/v1 (configurable).
// Chat completions path is the same as OpenAI: /chat/completions
// Authorization: Bearer <GROQ_API_KEY>
type GroqAdapter struct {
	apiKey      string
	base        string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

func NewGroqAdapter(apiKey, model, base string, temperature float64, maxTokens int) (*GroqAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("groq api key empty")
	}
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	if base == "" {
		base = "https://api.groq.com/openai/v1"
	}
	return &GroqAdapter{
		apiKey:      apiKey,
		base:        strings.TrimRight(base, "/"),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		client:      &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (g *GroqAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{g.model}, nil
}

func (g *GroqAdapter) GetModelInfo(model string) (adapter.ModelInfo, error) {
	if model == "" {
		model = g.model
	}
	return adapter.ModelInfo{
		Name:        model,
		Description: "Groq OpenAI-compatible model",
		MaxTokens:   g.maxTokens,
		Supports:    []string{"text"},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (g *GroqAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := g.generate(ctx, prompt)
	metrics.ObserveSynthesizerCall("groq", int(time.Since(start).Milliseconds()), err == nil)
	return text, err
}

func (g *GroqAdapter) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := struct {
		Model       string        `json:"model"`
		Messages    []chatMessage `json:"messages"`
		Temperature float64       `json:"temperature"`
		MaxTokens   int           `json:"max_tokens,omitempty"`
	}{
		Model:       g.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, g.base+"/chat/completions", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("groq http %d", resp.StatusCode)
	}
	var payload struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", errors.New("no choice content")
}
