// File: internal/infra/queue/queue.go
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"feedback-analysis-service/internal/domain"
	"feedback-analysis-service/internal/domain/model"
	"feedback-analysis-service/internal/domain/ports/adapter"
	"feedback-analysis-service/internal/domain/ports/repository"
	"feedback-analysis-service/internal/infra/logging"
	"feedback-analysis-service/internal/infra/metrics"
)

const submitBuffer = 1024

// Pipeline runs one job end to end. Implementations must be safe for
// concurrent calls with distinct jobs.
type Pipeline interface {
	Run(ctx context.Context, job *model.Job) error
}

// Queue accepts analysis jobs, starts them in submission order with at most
// maxConcurrent running at once, and tracks lifecycle state in memory.
//
// A single coordinator goroutine dequeues; it shuts itself down after
// idleShutdown without work and is restarted by the next Submit. The running
// flag is checked and set under the same lock as the enqueue, so exactly one
// coordinator ever runs.
type Queue struct {
	mu      sync.Mutex
	jobs    map[string]*model.Job
	fifo    chan string
	running bool

	permits       chan struct{}
	maxConcurrent int
	idleShutdown  time.Duration
	jobTimeout    time.Duration

	pipeline Pipeline
	notifier adapter.Notifier
	archive  repository.JobArchive // optional
	log      *zerolog.Logger

	// wg tracks the coordinator and in-flight jobs for clean shutdown.
	wg sync.WaitGroup
}

func New(maxConcurrent int, idleShutdown, jobTimeout time.Duration, pipeline Pipeline, notifier adapter.Notifier, archive repository.JobArchive, log *zerolog.Logger) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Queue{
		jobs:          make(map[string]*model.Job),
		fifo:          make(chan string, submitBuffer),
		permits:       make(chan struct{}, maxConcurrent),
		maxConcurrent: maxConcurrent,
		idleShutdown:  idleShutdown,
		jobTimeout:    jobTimeout,
		pipeline:      pipeline,
		notifier:      notifier,
		archive:       archive,
		log:           log,
	}
}

// Submit registers the job and enqueues it. The job is visible to GetStatus
// before Submit returns.
func (q *Queue) Submit(req model.AnalysisRequest) (string, error) {
	id := uuid.NewString()
	job := model.NewJob(id, req)

	q.mu.Lock()
	select {
	case q.fifo <- id:
	default:
		q.mu.Unlock()
		return "", domain.ErrQueueSaturated
	}
	q.jobs[id] = job
	if !q.running {
		q.running = true
		q.wg.Add(1)
		go q.coordinate()
	}
	q.mu.Unlock()

	q.log.Debug().Str("job_id", id).Str("event", req.EventName).Msg("job queued")
	q.updateDepthGauge()
	return id, nil
}

// GetStatus returns a snapshot of the job, or domain.ErrNotFound.
func (q *Queue) GetStatus(id string) (*model.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job.Clone(), nil
}

// Info derives a point-in-time snapshot from job statuses, not from the raw
// channel length, so it stays consistent while workers hold in-flight jobs.
func (q *Queue) Info() model.QueueInfo {
	q.mu.Lock()
	defer q.mu.Unlock()
	info := model.QueueInfo{MaxConcurrent: q.maxConcurrent, TotalTasks: len(q.jobs)}
	for _, j := range q.jobs {
		switch j.Status {
		case model.JobStatusProcessing:
			info.ActiveTasks++
		case model.JobStatusQueued:
			info.QueuedTasks++
		}
	}
	return info
}

// Drain blocks until the coordinator and all in-flight jobs have finished.
// Intended for shutdown and tests; new submissions during Drain may still
// start a fresh coordinator.
func (q *Queue) Drain() {
	q.wg.Wait()
}

// coordinate is the single scheduler loop: FIFO dequeue, one permit per job.
func (q *Queue) coordinate() {
	defer q.wg.Done()
	q.log.Debug().Msg("queue coordinator started")
	for {
		select {
		case id := <-q.fifo:
			// Acquiring here, before spawning, keeps starts in
			// submission order.
			q.permits <- struct{}{}
			q.wg.Add(1)
			go q.runJob(id)
		case <-time.After(q.idleShutdown):
			q.mu.Lock()
			if len(q.fifo) > 0 {
				q.mu.Unlock()
				continue
			}
			q.running = false
			q.mu.Unlock()
			q.log.Debug().Msg("queue coordinator idle, shutting down")
			return
		}
	}
}

func (q *Queue) runJob(id string) {
	defer q.wg.Done()
	defer func() { <-q.permits }()

	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || !job.MarkProcessing() {
		q.mu.Unlock()
		return
	}
	snapshot := job.Clone()
	q.mu.Unlock()
	q.updateDepthGauge()

	ctx, cancel := context.WithTimeout(context.Background(), q.jobTimeout)
	defer cancel()
	ctx = logging.WithJobID(ctx, id)
	log := logging.With(ctx, q.log)

	start := time.Now()
	log.Info().Str("event", snapshot.Request.EventName).Msg("job processing started")

	err := q.runPipeline(ctx, snapshot)
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("pipeline timed out: %w", ctx.Err())
	}

	q.mu.Lock()
	if err != nil {
		job.MarkFailed(err)
	} else {
		job.MarkCompleted()
	}
	final := job.Clone()
	q.mu.Unlock()
	q.updateDepthGauge()

	metrics.IncJob(string(final.Status))
	if err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("job failed")
		q.notifyFailure(final, err)
	} else {
		log.Info().Dur("duration", time.Since(start)).Msg("job completed")
	}
	q.archiveJob(final)
}

// runPipeline isolates the pipeline call so a panicking stage becomes a
// terminal job failure instead of taking down the coordinator.
func (q *Queue) runPipeline(ctx context.Context, job *model.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	return q.pipeline.Run(ctx, job)
}

// notifyFailure is best-effort; delivery problems are logged and dropped.
func (q *Queue) notifyFailure(job *model.Job, cause error) {
	if q.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if nerr := q.notifier.NotifyFailure(ctx, job, cause); nerr != nil {
		q.log.Error().Err(nerr).Str("job_id", job.ID).Msg("failure notification not delivered")
	}
}

func (q *Queue) archiveJob(job *model.Job) {
	if q.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := q.archive.Archive(ctx, job); err != nil {
		q.log.Warn().Err(err).Str("job_id", job.ID).Msg("job archive write failed")
	}
}

func (q *Queue) updateDepthGauge() {
	info := q.Info()
	metrics.SetQueueDepth(info.QueuedTasks, info.ActiveTasks)
}
