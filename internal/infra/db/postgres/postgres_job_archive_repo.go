package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"feedback-analysis-service/internal/domain/model"
	"feedback-analysis-service/internal/domain/ports/repository"
)

var _ repository.JobArchive = (*jobArchiveRepo)(nil)

// jobArchiveRepo persists job outcomes for audit queries. The in-memory
// queue stays authoritative while a job is live; only snapshots land here.
type jobArchiveRepo struct {
	pool *pgxpool.Pool
}

func NewJobArchiveRepo(pool *pgxpool.Pool) *jobArchiveRepo {
	return &jobArchiveRepo{pool: pool}
}

// EnsureSchema creates the archive table when it does not exist yet.
func (r *jobArchiveRepo) EnsureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS analysis_jobs (
  id              TEXT PRIMARY KEY,
  event_name      TEXT NOT NULL,
  worksheet_url   TEXT NOT NULL,
  recipient_email TEXT NOT NULL,
  status          TEXT NOT NULL,
  last_error      TEXT NOT NULL DEFAULT '',
  created_at      TIMESTAMPTZ NOT NULL,
  started_at      TIMESTAMPTZ,
  completed_at    TIMESTAMPTZ
);`
	_, err := r.pool.Exec(ctx, q)
	return err
}

func (r *jobArchiveRepo) Archive(ctx context.Context, job *model.Job) error {
	const q = `
INSERT INTO analysis_jobs (id, event_name, worksheet_url, recipient_email, status, last_error, created_at, started_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  last_error = EXCLUDED.last_error,
  started_at = EXCLUDED.started_at,
  completed_at = EXCLUDED.completed_at;`

	_, err := r.pool.Exec(ctx, q,
		job.ID, job.Request.EventName, job.Request.WorksheetURL, job.Request.RecipientEmail,
		string(job.Status), job.LastError, job.CreatedAt, job.StartedAt, job.CompletedAt)
	return err
}
