// File: internal/usecase/session_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"feedback-analysis-service/internal/config"
	"feedback-analysis-service/internal/domain"
	"feedback-analysis-service/internal/domain/model"
	"feedback-analysis-service/internal/domain/ports/adapter"
	"feedback-analysis-service/internal/domain/ports/repository"
)

// SessionUseCase owns the interactive Q&A lifecycle: build a session from a
// worksheet, answer questions against it, tear it down.
type SessionUseCase struct {
	store     repository.SessionStore
	fetcher   adapter.WorksheetFetcher
	retrieval adapter.RetrievalProvider
	router    *Router
	analyzer  *Analyzer
	cfg       config.RetrievalConfig
	log       *zerolog.Logger
}

func NewSessionUseCase(
	store repository.SessionStore,
	fetcher adapter.WorksheetFetcher,
	retrieval adapter.RetrievalProvider,
	router *Router,
	analyzer *Analyzer,
	cfg config.RetrievalConfig,
	log *zerolog.Logger,
) *SessionUseCase {
	return &SessionUseCase{
		store:     store,
		fetcher:   fetcher,
		retrieval: retrieval,
		router:    router,
		analyzer:  analyzer,
		cfg:       cfg,
		log:       log,
	}
}

// Initialize fetches the worksheet, indexes its rows for retrieval, and
// stores the resulting session. The session is only stored once every step
// has succeeded, so a failed initialization leaves no partial state behind.
func (uc *SessionUseCase) Initialize(ctx context.Context, id, sheetURL, description string, useGraph bool) (*model.Session, error) {
	if id == "" || sheetURL == "" {
		return nil, fmt.Errorf("%w: session id and sheet url are required", domain.ErrInvalidArgument)
	}

	frame, err := uc.fetcher.Fetch(ctx, sheetURL)
	if err != nil {
		return nil, fmt.Errorf("fetch worksheet: %w", err)
	}
	if frame.RowCount() == 0 {
		return nil, domain.ErrEmptyDataset
	}

	chunks := uc.chunkRows(frame)
	handle, err := uc.retrieval.Index(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("index worksheet: %w", err)
	}

	session := model.NewSession(id, sheetURL, description, useGraph)
	session.Columns = uc.analyzer.Classify(frame)
	session.RowCount = frame.RowCount()
	session.ChunkCount = len(chunks)
	session.RetrievalHandle = handle

	if err := uc.store.Set(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	uc.log.Info().Str("session_id", id).Int("rows", session.RowCount).
		Int("chunks", session.ChunkCount).Msg("session initialized")
	return session, nil
}

// QueryResult is the answer to one question plus where it came from: which
// tool contributed and how many retrieved snippets backed the context.
type QueryResult struct {
	Answer      string `json:"answer"`
	UsedTool    string `json:"used_tool"`
	SourceCount int    `json:"source_count"`
}

// Query answers one question against an existing session. useHybrid is the
// caller's retrieval preference; with only the lexical index wired it selects
// the same engine either way and is recorded for the logs.
func (uc *SessionUseCase) Query(ctx context.Context, id, question string, useHybrid bool) (*QueryResult, error) {
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidArgument)
	}

	session, err := uc.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// The retrieval index never survives the remote tier. When the local
	// entry was evicted the index is rebuilt from the source worksheet.
	if session.RetrievalHandle == nil {
		if err := uc.rebuildIndex(ctx, session); err != nil {
			return nil, fmt.Errorf("rebuild retrieval index: %w", err)
		}
	}

	chunks, err := uc.retrieval.Search(ctx, session.RetrievalHandle, question, uc.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("search session %s: %w", id, err)
	}
	uc.log.Debug().Str("session_id", id).Int("sources", len(chunks)).
		Bool("hybrid", useHybrid).Msg("context retrieved")

	routed, err := uc.router.Answer(ctx, session, question, strings.Join(chunks, "\n\n"))
	if err != nil {
		return nil, err
	}
	return &QueryResult{
		Answer:      routed.Answer,
		UsedTool:    routed.UsedTool,
		SourceCount: len(chunks),
	}, nil
}

// Describe returns the stored session without side effects beyond the TTL
// extension the store applies on read.
func (uc *SessionUseCase) Describe(ctx context.Context, id string) (*model.Session, error) {
	return uc.store.Get(ctx, id)
}

func (uc *SessionUseCase) Delete(ctx context.Context, id string) error {
	return uc.store.Delete(ctx, id)
}

func (uc *SessionUseCase) Stats(ctx context.Context) repository.CacheStats {
	return uc.store.Stats(ctx)
}

func (uc *SessionUseCase) rebuildIndex(ctx context.Context, session *model.Session) error {
	uc.log.Info().Str("session_id", session.ID).Msg("retrieval index missing, rebuilding from worksheet")

	frame, err := uc.fetcher.Fetch(ctx, session.SheetURL)
	if err != nil {
		return err
	}
	chunks := uc.chunkRows(frame)
	handle, err := uc.retrieval.Index(ctx, chunks)
	if err != nil {
		return err
	}
	session.RetrievalHandle = handle
	session.ChunkCount = len(chunks)
	if err := uc.store.Set(ctx, session); err != nil {
		uc.log.Warn().Err(err).Str("session_id", session.ID).Msg("could not persist rebuilt session")
	}
	return nil
}

// chunkRows flattens rows to "column: value" lines and packs them into
// chunks of roughly ChunkSize characters. The last rows of a chunk are
// repeated at the start of the next one so row groups that span a boundary
// stay retrievable.
func (uc *SessionUseCase) chunkRows(frame *model.Frame) []string {
	size := uc.cfg.ChunkSize
	if size <= 0 {
		size = 1000
	}

	var chunks []string
	var current []string
	currentLen := 0
	for i := 0; i < frame.RowCount(); i++ {
		line := frame.RowText(i)
		if currentLen+len(line) > size && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = overlapTail(current, uc.cfg.ChunkOverlap)
			currentLen = joinedLen(current)
		}
		current = append(current, line)
		currentLen += len(line) + 1
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks
}

func overlapTail(lines []string, overlap int) []string {
	if overlap <= 0 {
		return nil
	}
	kept := 0
	var tail []string
	for i := len(lines) - 1; i >= 0 && kept < overlap; i-- {
		tail = append([]string{lines[i]}, tail...)
		kept += len(lines[i]) + 1
	}
	return tail
}

func joinedLen(lines []string) int {
	n := 0
	for _, l := range lines {
		n += len(l) + 1
	}
	return n
}
