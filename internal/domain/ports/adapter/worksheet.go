package adapter

import (
	"context"

	"feedback-analysis-service/internal/domain/model"
)

// WorksheetFetcher loads a remote tabular source into a Frame. The URL may be
// a Google Sheets link (rewritten to its CSV export), a plain CSV endpoint,
// or an XLSX file.
type WorksheetFetcher interface {
	Fetch(ctx context.Context, url string) (*model.Frame, error)
}
