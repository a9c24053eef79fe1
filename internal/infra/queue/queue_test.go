package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"feedback-analysis-service/internal/domain"
	"feedback-analysis-service/internal/domain/model"
)

func nopLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

// fakePipeline records start order and concurrency, and lets tests control
// when each job finishes.
type fakePipeline struct {
	mu         sync.Mutex
	startOrder []string
	active     int
	maxActive  int
	block      chan struct{} // jobs wait here when non-nil
	fail       map[string]error
	runDelay   time.Duration
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{fail: make(map[string]error)}
}

func (p *fakePipeline) Run(ctx context.Context, job *model.Job) error {
	p.mu.Lock()
	p.startOrder = append(p.startOrder, job.Request.EventName)
	p.active++
	if p.active > p.maxActive {
		p.maxActive = p.active
	}
	block := p.block
	err := p.fail[job.Request.EventName]
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}
	if p.runDelay > 0 {
		time.Sleep(p.runDelay)
	}

	p.mu.Lock()
	p.active--
	p.mu.Unlock()
	return err
}

func (p *fakePipeline) started() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.startOrder...)
}

func req(name string) model.AnalysisRequest {
	return model.AnalysisRequest{
		EventName:      name,
		WorksheetURL:   "https://docs.google.com/spreadsheets/d/x/edit",
		RecipientEmail: "team@example.com",
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestQueue_SubmitVisibleBeforeReturn(t *testing.T) {
	p := newFakePipeline()
	q := New(1, 50*time.Millisecond, time.Minute, p, nil, nil, nopLogger())

	id, err := q.Submit(req("visible"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := q.GetStatus(id); err != nil {
		t.Fatalf("job not visible right after submit: %v", err)
	}
	q.Drain()
}

func TestQueue_GetStatus_UnknownID(t *testing.T) {
	q := New(1, 50*time.Millisecond, time.Minute, newFakePipeline(), nil, nil, nopLogger())
	if _, err := q.GetStatus("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestQueue_FIFOStartOrder(t *testing.T) {
	p := newFakePipeline()
	// One permit serializes execution, so start order equals submit order.
	q := New(1, 50*time.Millisecond, time.Minute, p, nil, nil, nopLogger())

	names := []string{"first", "second", "third", "fourth", "fifth"}
	for _, n := range names {
		if _, err := q.Submit(req(n)); err != nil {
			t.Fatalf("submit %s: %v", n, err)
		}
	}
	q.Drain()

	got := p.started()
	if len(got) != len(names) {
		t.Fatalf("want %d jobs run, got %d", len(names), len(got))
	}
	for i, n := range names {
		if got[i] != n {
			t.Fatalf("start order broken at %d: want %s, got %v", i, n, got)
		}
	}
}

func TestQueue_ConcurrencyBounded(t *testing.T) {
	p := newFakePipeline()
	p.block = make(chan struct{})
	q := New(2, 50*time.Millisecond, time.Minute, p, nil, nil, nopLogger())

	for _, n := range []string{"a", "b", "c", "d", "e"} {
		if _, err := q.Submit(req(n)); err != nil {
			t.Fatalf("submit %s: %v", n, err)
		}
	}

	// Exactly two jobs start; the rest wait for permits.
	waitFor(t, time.Second, func() bool { return len(p.started()) == 2 })
	time.Sleep(50 * time.Millisecond)
	if n := len(p.started()); n != 2 {
		t.Fatalf("want 2 started while blocked, got %d", n)
	}

	info := q.Info()
	if info.ActiveTasks != 2 || info.QueuedTasks != 3 {
		t.Fatalf("want 2 active / 3 queued, got %+v", info)
	}

	close(p.block)
	q.Drain()

	if p.maxActive > 2 {
		t.Fatalf("concurrency exceeded: %d", p.maxActive)
	}
	if len(p.started()) != 5 {
		t.Fatalf("want all 5 run, got %d", len(p.started()))
	}
}

func TestQueue_StatusTransitions(t *testing.T) {
	p := newFakePipeline()
	p.fail["bad"] = errors.New("fetch exploded")
	q := New(2, 50*time.Millisecond, time.Minute, p, nil, nil, nopLogger())

	goodID, _ := q.Submit(req("good"))
	badID, _ := q.Submit(req("bad"))
	q.Drain()

	good, err := q.GetStatus(goodID)
	if err != nil {
		t.Fatalf("get good: %v", err)
	}
	if good.Status != model.JobStatusCompleted {
		t.Fatalf("want completed, got %s", good.Status)
	}
	if good.StartedAt == nil || good.CompletedAt == nil {
		t.Fatal("timestamps not recorded")
	}

	bad, err := q.GetStatus(badID)
	if err != nil {
		t.Fatalf("get bad: %v", err)
	}
	if bad.Status != model.JobStatusFailed {
		t.Fatalf("want failed, got %s", bad.Status)
	}
	if bad.LastError == "" {
		t.Fatal("failure cause not recorded")
	}
}

func TestQueue_CoordinatorRestartsAfterIdle(t *testing.T) {
	p := newFakePipeline()
	q := New(1, 20*time.Millisecond, time.Minute, p, nil, nil, nopLogger())

	if _, err := q.Submit(req("one")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	q.Drain() // coordinator exits after idle timeout

	// A fresh submission must start a new coordinator and run.
	if _, err := q.Submit(req("two")); err != nil {
		t.Fatalf("submit after idle: %v", err)
	}
	q.Drain()

	if got := p.started(); len(got) != 2 || got[1] != "two" {
		t.Fatalf("second job did not run: %v", got)
	}
}

func TestQueue_JobTimeoutFailsJob(t *testing.T) {
	p := newFakePipeline()
	p.block = make(chan struct{}) // never closed; only ctx can release
	q := New(1, 50*time.Millisecond, 30*time.Millisecond, p, nil, nil, nopLogger())

	id, _ := q.Submit(req("slow"))
	q.Drain()

	job, err := q.GetStatus(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != model.JobStatusFailed {
		t.Fatalf("want failed on timeout, got %s", job.Status)
	}
}

func TestQueue_PanicBecomesFailure(t *testing.T) {
	q := New(1, 50*time.Millisecond, time.Minute, panicPipeline{}, nil, nil, nopLogger())

	id, _ := q.Submit(req("boom"))
	q.Drain()

	job, err := q.GetStatus(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != model.JobStatusFailed {
		t.Fatalf("want failed after panic, got %s", job.Status)
	}
}

type panicPipeline struct{}

func (panicPipeline) Run(ctx context.Context, job *model.Job) error { panic("stage blew up") }

func TestQueue_Info_Empty(t *testing.T) {
	q := New(3, 50*time.Millisecond, time.Minute, newFakePipeline(), nil, nil, nopLogger())
	info := q.Info()
	if info.TotalTasks != 0 || info.MaxConcurrent != 3 {
		t.Fatalf("unexpected empty info: %+v", info)
	}
}
