package adapter

import (
	"context"

	"feedback-analysis-service/internal/domain/model"
)

// Notifier delivers job outcomes out-of-band. Calls are fire-and-forget from
// the pipeline's point of view: a delivery failure is logged by the caller
// and never re-raised into job processing.
type Notifier interface {
	// NotifyCompletion sends the rendered HTML report to the destination.
	NotifyCompletion(ctx context.Context, job *model.Job, reportHTML string) error

	// NotifyFailure tells the destination that the job failed and why.
	NotifyFailure(ctx context.Context, job *model.Job, cause error) error
}
