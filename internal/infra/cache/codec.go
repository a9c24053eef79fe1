package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"feedback-analysis-service/internal/domain"
	"feedback-analysis-service/internal/domain/model"
)

// ComplexObjectPlaceholder stands in for the session's live retrieval handle
// on the remote tier. The handle is never reconstructed from remote data; it
// is only ever recovered from the local tier at read time.
const ComplexObjectPlaceholder = "COMPLEX_OBJECT_PLACEHOLDER"

// taggedTime serializes a timestamp with an explicit tag so the reader can
// tell it apart from a plain string and rebuild the identical instant.
type taggedTime struct {
	time.Time
}

func (t taggedTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DateTime bool   `json:"__datetime__"`
		Value    string `json:"value"`
	}{DateTime: true, Value: t.UTC().Format(time.RFC3339Nano)})
}

func (t *taggedTime) UnmarshalJSON(data []byte) error {
	var wire struct {
		DateTime bool   `json:"__datetime__"`
		Value    string `json:"value"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if !wire.DateTime {
		return fmt.Errorf("not a tagged datetime value")
	}
	parsed, err := time.Parse(time.RFC3339Nano, wire.Value)
	if err != nil {
		return fmt.Errorf("parse tagged datetime: %w", err)
	}
	t.Time = parsed
	return nil
}

// wireSession is the tier-portable form of a Session.
type wireSession struct {
	ID              string                   `json:"session_id"`
	Description     string                   `json:"description"`
	SheetURL        string                   `json:"sheet_url"`
	Columns         []model.ColumnDescriptor `json:"columns"`
	RowCount        int                      `json:"row_count"`
	ChunkCount      int                      `json:"chunk_count"`
	UseGraph        bool                     `json:"use_graph"`
	CreatedAt       taggedTime               `json:"created_at"`
	RetrievalHandle string                   `json:"retrieval_handle"`
}

func encodeSession(s *model.Session) ([]byte, error) {
	return json.Marshal(wireSession{
		ID:              s.ID,
		Description:     s.Description,
		SheetURL:        s.SheetURL,
		Columns:         s.Columns,
		RowCount:        s.RowCount,
		ChunkCount:      s.ChunkCount,
		UseGraph:        s.UseGraph,
		CreatedAt:       taggedTime{s.CreatedAt},
		RetrievalHandle: ComplexObjectPlaceholder,
	})
}

// decodeSession rebuilds a Session from remote data. The retrieval handle
// comes back nil; merge-on-read fills it from the local tier when possible.
func decodeSession(data []byte) (*model.Session, error) {
	var wire wireSession
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSessionCorrupted, err)
	}
	return &model.Session{
		ID:          wire.ID,
		Description: wire.Description,
		SheetURL:    wire.SheetURL,
		Columns:     wire.Columns,
		RowCount:    wire.RowCount,
		ChunkCount:  wire.ChunkCount,
		UseGraph:    wire.UseGraph,
		CreatedAt:   wire.CreatedAt.Time,
	}, nil
}
