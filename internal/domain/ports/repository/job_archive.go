package repository

import (
	"context"

	"feedback-analysis-service/internal/domain/model"
)

// JobArchive persists terminal jobs for offline inspection. Writes are
// best-effort: the queue logs archive errors and moves on.
type JobArchive interface {
	Archive(ctx context.Context, job *model.Job) error
}
