//go:build integration

package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"feedback-analysis-service/internal/domain/model"
)

func TestJobArchiveRepo_ArchiveAndUpdate(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	repo := NewJobArchiveRepo(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	job := model.NewJob(uuid.NewString(), model.AnalysisRequest{
		EventName:      "Integration Test Event",
		WorksheetURL:   "https://docs.google.com/spreadsheets/d/test/edit",
		RecipientEmail: "test@example.com",
	})
	if err := repo.Archive(ctx, job); err != nil {
		t.Fatalf("archive queued job: %v", err)
	}

	job.MarkProcessing()
	job.MarkFailed(errors.New("boom"))
	if err := repo.Archive(ctx, job); err != nil {
		t.Fatalf("archive failed job: %v", err)
	}

	var status, lastError string
	row := pool.QueryRow(ctx, `SELECT status, last_error FROM analysis_jobs WHERE id = $1`, job.ID)
	if err := row.Scan(&status, &lastError); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			t.Fatal("archived job not found")
		}
		t.Fatalf("scan: %v", err)
	}
	if status != string(model.JobStatusFailed) || lastError != "boom" {
		t.Fatalf("unexpected archived state: %s / %s", status, lastError)
	}
}
