package model

import "time"

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// rank orders statuses so transitions can only move forward.
func (s JobStatus) rank() int {
	switch s {
	case JobStatusQueued:
		return 0
	case JobStatusProcessing:
		return 1
	case JobStatusCompleted, JobStatusFailed:
		return 2
	}
	return -1
}

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// AnalysisRequest is the payload of one analysis job: where the worksheet
// lives, who receives the report, and the display name used in it.
type AnalysisRequest struct {
	EventName      string `json:"event_name"`
	WorksheetURL   string `json:"worksheet_url"`
	RecipientEmail string `json:"recipient_email"`
}

// Job tracks one queued analysis request through its lifecycle.
// Status only moves forward: queued -> processing -> completed|failed.
type Job struct {
	ID          string
	Request     AnalysisRequest
	Status      JobStatus
	LastError   string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

func NewJob(id string, req AnalysisRequest) *Job {
	return &Job{
		ID:        id,
		Request:   req,
		Status:    JobStatusQueued,
		CreatedAt: time.Now(),
	}
}

// MarkProcessing records the start of execution. It is a no-op if the job
// already advanced past queued.
func (j *Job) MarkProcessing() bool {
	if JobStatusProcessing.rank() <= j.Status.rank() {
		return false
	}
	now := time.Now()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
	return true
}

// MarkCompleted moves the job to its successful terminal state.
func (j *Job) MarkCompleted() bool {
	return j.finish(JobStatusCompleted, "")
}

// MarkFailed moves the job to its failed terminal state with the causing error.
func (j *Job) MarkFailed(cause error) bool {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return j.finish(JobStatusFailed, msg)
}

func (j *Job) finish(status JobStatus, lastError string) bool {
	if j.Status.Terminal() {
		return false
	}
	now := time.Now()
	j.Status = status
	j.LastError = lastError
	j.CompletedAt = &now
	return true
}

// Clone returns a copy safe to hand outside the queue's lock.
func (j *Job) Clone() *Job {
	cp := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// QueueInfo is a point-in-time snapshot of the task queue, derived from job
// statuses rather than the raw channel length.
type QueueInfo struct {
	ActiveTasks   int `json:"active_tasks"`
	QueuedTasks   int `json:"queued_tasks"`
	TotalTasks    int `json:"total_tasks"`
	MaxConcurrent int `json:"max_concurrent"`
}
