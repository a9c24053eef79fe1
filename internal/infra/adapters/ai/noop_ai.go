package ai

import (
	"context"

	"feedback-analysis-service/internal/domain/ports/adapter"
)

var _ adapter.AnswerSynthesizer = (*NoopSynthesizer)(nil)

// NoopSynthesizer is wired in dev mode when no API key is configured. It
// answers every prompt with a fixed string so pipelines stay runnable.
type NoopSynthesizer struct{}

func NewNoopSynthesizer() *NoopSynthesizer { return &NoopSynthesizer{} }

func (n *NoopSynthesizer) ListModels(ctx context.Context) ([]string, error) {
	return []string{"noop"}, nil
}

func (n *NoopSynthesizer) GetModelInfo(model string) (adapter.ModelInfo, error) {
	return adapter.ModelInfo{Name: "noop", Description: "No-op synthesizer", Supports: []string{"text"}}, nil
}

func (n *NoopSynthesizer) Generate(ctx context.Context, prompt string) (string, error) {
	return "NEEDS_ANALYSIS: no\nNEEDS_FILTERING: no\nFILTER_CONDITIONS: {}", nil
}
