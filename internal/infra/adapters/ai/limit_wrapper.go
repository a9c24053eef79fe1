package ai

import (
	"context"

	"feedback-analysis-service/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.AnswerSynthesizer = (*limitedSynthesizer)(nil)

type limitedSynthesizer struct {
	inner adapter.AnswerSynthesizer
	sem   chan struct{}
}

// NewLimitedSynthesizer caps the number of in-flight Generate calls so a
// burst of column analyses cannot exhaust the provider's rate limit.
func NewLimitedSynthesizer(inner adapter.AnswerSynthesizer, maxConcurrent int) adapter.AnswerSynthesizer {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedSynthesizer{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedSynthesizer) ListModels(ctx context.Context) ([]string, error) {
	return l.inner.ListModels(ctx)
}

func (l *limitedSynthesizer) GetModelInfo(model string) (adapter.ModelInfo, error) {
	return l.inner.GetModelInfo(model)
}

func (l *limitedSynthesizer) Generate(ctx context.Context, prompt string) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Generate(ctx, prompt)
}
