// File: internal/infra/queue/pipeline.go
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"feedback-analysis-service/internal/domain"
	"feedback-analysis-service/internal/domain/model"
	"feedback-analysis-service/internal/domain/ports/adapter"
	"feedback-analysis-service/internal/infra/logging"
	"feedback-analysis-service/internal/infra/metrics"
	"feedback-analysis-service/internal/infra/worker"
	"feedback-analysis-service/internal/report"
	"feedback-analysis-service/internal/usecase"
)

// AnalysisPipeline runs one feedback analysis job end to end: fetch the
// worksheet, drop and classify columns, analyze every column, render the
// HTML report and deliver it.
type AnalysisPipeline struct {
	fetcher  adapter.WorksheetFetcher
	analyzer *usecase.Analyzer
	notifier adapter.Notifier
	pool     *worker.Pool
	maxRows  int
	log      *zerolog.Logger
}

var _ Pipeline = (*AnalysisPipeline)(nil)

func NewAnalysisPipeline(
	fetcher adapter.WorksheetFetcher,
	analyzer *usecase.Analyzer,
	notifier adapter.Notifier,
	pool *worker.Pool,
	maxRows int,
	log *zerolog.Logger,
) *AnalysisPipeline {
	return &AnalysisPipeline{
		fetcher:  fetcher,
		analyzer: analyzer,
		notifier: notifier,
		pool:     pool,
		maxRows:  maxRows,
		log:      log,
	}
}

func (p *AnalysisPipeline) Run(ctx context.Context, job *model.Job) error {
	log := logging.With(ctx, p.log)

	frame, err := p.stageFetch(ctx, job)
	if err != nil {
		return err
	}

	if frame.RowCount() == 0 {
		// An empty worksheet is not a failure: the requester receives a
		// notice instead of a report.
		log.Info().Str("event", job.Request.EventName).Msg("worksheet has no data rows, sending empty notice")
		return p.deliver(ctx, job, report.RenderEmptyNotice(job.Request.EventName, job.Request.WorksheetURL))
	}

	if p.maxRows > 0 && frame.RowCount() > p.maxRows {
		log.Info().Int("rows", frame.RowCount()).Int("limit", p.maxRows).Msg("truncating worksheet to row limit")
		frame = frame.Head(p.maxRows)
	}

	trimmed, descriptors, err := p.stagePreprocess(frame)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyDataset) {
			log.Info().Str("event", job.Request.EventName).Msg("no analyzable columns, sending empty notice")
			return p.deliver(ctx, job, report.RenderEmptyNotice(job.Request.EventName, job.Request.WorksheetURL))
		}
		return err
	}

	columns, err := p.stageAnalyze(ctx, trimmed, descriptors)
	if err != nil {
		return err
	}

	rep := &model.Report{
		EventName: job.Request.EventName,
		RowCount:  trimmed.RowCount(),
		Columns:   columns,
	}

	html, err := report.Render(rep)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return p.deliver(ctx, job, html)
}

func (p *AnalysisPipeline) stageFetch(ctx context.Context, job *model.Job) (*model.Frame, error) {
	start := time.Now()
	frame, err := p.fetcher.Fetch(ctx, job.Request.WorksheetURL)
	metrics.ObserveJobStage("fetch", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("fetch worksheet: %w", err)
	}
	return frame, nil
}

func (p *AnalysisPipeline) stagePreprocess(frame *model.Frame) (*model.Frame, []model.ColumnDescriptor, error) {
	start := time.Now()
	trimmed, descriptors, err := p.analyzer.Preprocess(frame)
	metrics.ObserveJobStage("preprocess", time.Since(start).Seconds())
	if err != nil {
		return nil, nil, err
	}
	return trimmed, descriptors, nil
}

// stageAnalyze fans the columns out over the shared worker pool and collects
// the reports back in column order. Each task runs under the job's umbrella
// context, not the pool's, so the job deadline bounds every synthesizer call
// and an expired deadline aborts the collection instead of waiting forever.
func (p *AnalysisPipeline) stageAnalyze(ctx context.Context, frame *model.Frame, descriptors []model.ColumnDescriptor) ([]model.ColumnReport, error) {
	start := time.Now()
	defer func() { metrics.ObserveJobStage("analyze", time.Since(start).Seconds()) }()

	type indexed struct {
		pos    int
		report model.ColumnReport
	}
	// Buffered to len(descriptors): workers never block on send, even when
	// the collector has already bailed out on a dead context.
	results := make(chan indexed, len(descriptors))

	for i, desc := range descriptors {
		i, desc := i, desc
		err := p.pool.Submit(ctx, func(context.Context) error {
			results <- indexed{pos: i, report: p.analyzer.AnalyzeColumn(ctx, frame, desc)}
			return nil
		})
		if err != nil {
			results <- indexed{pos: i, report: model.ColumnReport{
				Column: desc.Name, Kind: desc.Kind, Err: err.Error(),
			}}
		}
	}

	reports := make([]model.ColumnReport, len(descriptors))
	for range descriptors {
		select {
		case r := <-results:
			reports[r.pos] = r.report
		case <-ctx.Done():
			return nil, fmt.Errorf("column analysis aborted: %w", ctx.Err())
		}
	}
	return reports, nil
}

func (p *AnalysisPipeline) deliver(ctx context.Context, job *model.Job, html string) error {
	start := time.Now()
	err := p.notifier.NotifyCompletion(ctx, job, html)
	metrics.ObserveJobStage("deliver", time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("deliver report: %w", err)
	}
	return nil
}
