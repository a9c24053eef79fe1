package mail

import (
	"context"

	"github.com/rs/zerolog"

	"feedback-analysis-service/internal/domain/model"
	"feedback-analysis-service/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier logs instead of sending. Wired in dev mode when no SMTP
// server is configured.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(log *zerolog.Logger) *NoopNotifier {
	return &NoopNotifier{log: log}
}

func (n *NoopNotifier) NotifyCompletion(ctx context.Context, job *model.Job, reportHTML string) error {
	n.log.Info().Str("job_id", job.ID).Str("recipient", job.Request.RecipientEmail).
		Int("report_bytes", len(reportHTML)).Msg("completion notification suppressed (noop notifier)")
	return nil
}

func (n *NoopNotifier) NotifyFailure(ctx context.Context, job *model.Job, cause error) error {
	n.log.Info().Str("job_id", job.ID).Err(cause).Msg("failure notification suppressed (noop notifier)")
	return nil
}
