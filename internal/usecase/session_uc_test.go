package usecase

import (
	"context"
	"errors"
	"testing"

	"feedback-analysis-service/internal/config"
	"feedback-analysis-service/internal/domain"
	"feedback-analysis-service/internal/domain/model"
	"feedback-analysis-service/internal/domain/ports/repository"
)

type memSessionStore struct {
	sessions map[string]*model.Session
	setCalls int
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]*model.Session)}
}

func (m *memSessionStore) Init(ctx context.Context) {}

func (m *memSessionStore) Set(ctx context.Context, s *model.Session) error {
	m.setCalls++
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (m *memSessionStore) Delete(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *memSessionStore) Stats(ctx context.Context) repository.CacheStats {
	return repository.CacheStats{LocalSize: len(m.sessions)}
}

type fakeFetcher struct {
	frame   *model.Frame
	err     error
	fetches int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*model.Frame, error) {
	f.fetches++
	return f.frame, f.err
}

type fakeRetrieval struct {
	indexed  [][]string
	searched []string
	indexErr error
}

func (f *fakeRetrieval) Index(ctx context.Context, chunks []string) (any, error) {
	if f.indexErr != nil {
		return nil, f.indexErr
	}
	f.indexed = append(f.indexed, chunks)
	return &f.indexed, nil
}

func (f *fakeRetrieval) Search(ctx context.Context, handle any, query string, k int) ([]string, error) {
	f.searched = append(f.searched, query)
	return []string{"Rating: 5 | Comments: great"}, nil
}

func feedbackFrame() *model.Frame {
	return frameOf(
		[]string{"Rating", "Comments"},
		[]string{"5", "great talk"},
		[]string{"4", "could be shorter"},
		[]string{"3", "room was cold"},
	)
}

func newSessionUC(store repository.SessionStore, fetcher *fakeFetcher, retrieval *fakeRetrieval, synth *scriptedSynth) *SessionUseCase {
	analyzer := NewAnalyzer(nil, nopLogger())
	router := NewRouter(synth, &fakeTools{}, nopLogger())
	cfg := config.RetrievalConfig{ChunkSize: 500, ChunkOverlap: 50, TopK: 5}
	return NewSessionUseCase(store, fetcher, retrieval, router, analyzer, cfg, nopLogger())
}

func TestSessionUC_Initialize(t *testing.T) {
	store := newMemSessionStore()
	fetcher := &fakeFetcher{frame: feedbackFrame()}
	retr := &fakeRetrieval{}
	uc := newSessionUC(store, fetcher, retr, &scriptedSynth{})

	session, err := uc.Initialize(context.Background(), "s1", "https://docs.google.com/spreadsheets/d/x/edit", "talk feedback", true)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if session.RowCount != 3 || session.ChunkCount == 0 {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.RetrievalHandle == nil {
		t.Fatal("retrieval handle not attached")
	}
	if len(session.Columns) != 2 {
		t.Fatalf("columns not classified: %v", session.Columns)
	}
	if _, ok := store.sessions["s1"]; !ok {
		t.Fatal("session not stored")
	}
}

func TestSessionUC_Initialize_Validation(t *testing.T) {
	uc := newSessionUC(newMemSessionStore(), &fakeFetcher{}, &fakeRetrieval{}, &scriptedSynth{})
	if _, err := uc.Initialize(context.Background(), "", "url", "d", true); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}

func TestSessionUC_Initialize_EmptyWorksheet(t *testing.T) {
	fetcher := &fakeFetcher{frame: model.NewFrame([]string{"Rating"})}
	uc := newSessionUC(newMemSessionStore(), fetcher, &fakeRetrieval{}, &scriptedSynth{})
	if _, err := uc.Initialize(context.Background(), "s1", "url", "d", true); !errors.Is(err, domain.ErrEmptyDataset) {
		t.Fatalf("want ErrEmptyDataset, got %v", err)
	}
}

func TestSessionUC_Initialize_IndexFailureStoresNothing(t *testing.T) {
	store := newMemSessionStore()
	fetcher := &fakeFetcher{frame: feedbackFrame()}
	retr := &fakeRetrieval{indexErr: errors.New("index down")}
	uc := newSessionUC(store, fetcher, retr, &scriptedSynth{})

	if _, err := uc.Initialize(context.Background(), "s1", "url", "d", true); err == nil {
		t.Fatal("want error from index failure")
	}
	if len(store.sessions) != 0 {
		t.Fatal("failed initialization must not store a session")
	}
}

func TestSessionUC_Query(t *testing.T) {
	store := newMemSessionStore()
	fetcher := &fakeFetcher{frame: feedbackFrame()}
	retr := &fakeRetrieval{}
	synth := &scriptedSynth{responses: []string{
		"NEEDS_ANALYSIS: no\nNEEDS_FILTERING: no\nFILTER_CONDITIONS: {}",
		"most people liked the talk",
	}}
	uc := newSessionUC(store, fetcher, retr, synth)

	if _, err := uc.Initialize(context.Background(), "s1", "url", "d", true); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	result, err := uc.Query(context.Background(), "s1", "did people like it?", true)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if result.Answer != "most people liked the talk" {
		t.Fatalf("unexpected answer %q", result.Answer)
	}
	if result.UsedTool != "none" {
		t.Fatalf("no tool ran, want used_tool none, got %q", result.UsedTool)
	}
	if result.SourceCount != 1 {
		t.Fatalf("want 1 retrieved source, got %d", result.SourceCount)
	}
	if len(retr.searched) != 1 {
		t.Fatalf("retrieval not used: %v", retr.searched)
	}
}

func TestSessionUC_Query_UnknownSession(t *testing.T) {
	uc := newSessionUC(newMemSessionStore(), &fakeFetcher{}, &fakeRetrieval{}, &scriptedSynth{})
	if _, err := uc.Query(context.Background(), "ghost", "q", true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSessionUC_Query_RebuildsLostIndex(t *testing.T) {
	store := newMemSessionStore()
	fetcher := &fakeFetcher{frame: feedbackFrame()}
	retr := &fakeRetrieval{}
	synth := &scriptedSynth{responses: []string{
		"NEEDS_ANALYSIS: no\nNEEDS_FILTERING: no\nFILTER_CONDITIONS: {}",
		"answer",
	}}
	uc := newSessionUC(store, fetcher, retr, synth)

	// A session recovered from the remote tier only: no live handle.
	session := model.NewSession("s1", "url", "d", true)
	session.Columns = []model.ColumnDescriptor{{Name: "Rating", Kind: model.ColumnRating}}
	store.sessions["s1"] = session

	if _, err := uc.Query(context.Background(), "s1", "q", false); err != nil {
		t.Fatalf("query with lost index: %v", err)
	}
	if fetcher.fetches != 1 {
		t.Fatalf("worksheet not refetched for rebuild: %d", fetcher.fetches)
	}
	if session.RetrievalHandle == nil {
		t.Fatal("index not rebuilt onto session")
	}
}

func TestSessionUC_ChunkRows_PacksByBudget(t *testing.T) {
	uc := newSessionUC(newMemSessionStore(), &fakeFetcher{}, &fakeRetrieval{}, &scriptedSynth{})
	uc.cfg.ChunkSize = 60
	uc.cfg.ChunkOverlap = 0

	frame := frameOf([]string{"Comments"},
		[]string{"first row with a fairly long comment"},
		[]string{"second row with another long comment"},
		[]string{"third row"},
	)
	chunks := uc.chunkRows(frame)
	if len(chunks) < 2 {
		t.Fatalf("want multiple chunks under a 60-byte budget, got %d", len(chunks))
	}
}
