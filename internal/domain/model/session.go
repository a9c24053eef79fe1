package model

import "time"

type ColumnKind string

const (
	ColumnNumerical   ColumnKind = "numerical"
	ColumnRating      ColumnKind = "rating"
	ColumnCategorical ColumnKind = "categorical"
	ColumnText        ColumnKind = "text"
)

// ColumnDescriptor describes one worksheet column as seen at session init.
type ColumnDescriptor struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"type"`
}

// Session holds the prepared context for one interactive analysis
// conversation. RetrievalHandle is a live in-process object (the built
// retrieval index); it is never serialized to the remote cache tier and is
// only ever recovered from the local tier.
type Session struct {
	ID          string             `json:"session_id"`
	Description string             `json:"description"`
	SheetURL    string             `json:"sheet_url"`
	Columns     []ColumnDescriptor `json:"columns"`
	RowCount    int                `json:"row_count"`
	ChunkCount  int                `json:"chunk_count"`
	UseGraph    bool               `json:"use_graph"`
	CreatedAt   time.Time          `json:"created_at"`

	RetrievalHandle any `json:"-"`
}

func NewSession(id, sheetURL, description string, useGraph bool) *Session {
	return &Session{
		ID:          id,
		SheetURL:    sheetURL,
		Description: description,
		UseGraph:    useGraph,
		CreatedAt:   time.Now(),
	}
}

// ColumnNames returns the descriptor names in worksheet order.
func (s *Session) ColumnNames() []string {
	names := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		names = append(names, c.Name)
	}
	return names
}
