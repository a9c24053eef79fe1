package adapter

import "context"

// ModelInfo describes a model.
type ModelInfo struct {
	Name        string
	Description string
	MaxTokens   int
	Supports    []string
}

// AnswerSynthesizer is the port for the LLM backend that turns a composed
// textual context into natural language. It is the only external call that
// may fail a whole Router turn.
type AnswerSynthesizer interface {
	ListModels(ctx context.Context) ([]string, error)
	GetModelInfo(model string) (ModelInfo, error)

	// Generate returns the model's text for the given prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}
