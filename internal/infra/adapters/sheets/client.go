// Package sheets fetches worksheet data from Google Sheets share links and
// direct CSV/XLSX exports.
package sheets

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"feedback-analysis-service/internal/domain/model"
	"feedback-analysis-service/internal/domain/ports/adapter"
)

var _ adapter.WorksheetFetcher = (*Client)(nil)

var sheetIDPattern = regexp.MustCompile(`/d/([a-zA-Z0-9-_]+)`)

// Sheets sometimes serves the login page to unauthenticated fetches; the
// browser user agent avoids a class of 403s on public sheets.
const fetchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

const maxBodyBytes = 32 << 20

// Client downloads a worksheet and parses it into a Frame. Google Sheets
// URLs are rewritten to their CSV export form; any other URL is fetched as
// is and decoded by content type (CSV or XLSX).
type Client struct {
	http *http.Client
	log  *zerolog.Logger
}

func NewClient(log *zerolog.Logger) *Client {
	return &Client{
		http: &http.Client{Timeout: 15 * time.Second},
		log:  log,
	}
}

func (c *Client) Fetch(ctx context.Context, rawURL string) (*model.Frame, error) {
	fetchURL, err := ExportURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build worksheet request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch worksheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch worksheet: http %d, make sure the sheet is shared with anyone with the link", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "text/html") {
		return nil, errors.New("worksheet is not publicly accessible, share it with anyone with the link")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read worksheet body: %w", err)
	}

	var frame *model.Frame
	if isXLSX(contentType, rawURL, body) {
		frame, err = parseXLSX(body)
	} else {
		frame, err = parseCSV(body)
	}
	if err != nil {
		return nil, err
	}

	c.log.Debug().Int("rows", frame.RowCount()).Int("columns", len(frame.Columns)).
		Str("url", truncateURL(rawURL)).Msg("worksheet fetched")
	return frame, nil
}

// ExportURL rewrites a Google Sheets share link to its CSV export endpoint.
// Non-Google URLs pass through unchanged; a bare sheet ID is accepted too.
func ExportURL(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("worksheet url is empty")
	}
	if strings.Contains(rawURL, "docs.google.com/spreadsheets") {
		m := sheetIDPattern.FindStringSubmatch(rawURL)
		if m == nil {
			return "", fmt.Errorf("could not extract sheet id from %q", truncateURL(rawURL))
		}
		return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv", m[1]), nil
	}
	if len(rawURL) > 20 && !strings.Contains(rawURL, "/") {
		return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv", rawURL), nil
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "", fmt.Errorf("unsupported worksheet url %q", truncateURL(rawURL))
	}
	return rawURL, nil
}

func parseCSV(body []byte) (*model.Frame, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return model.NewFrame(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	frame := model.NewFrame(header)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv row %d: %w", frame.RowCount()+2, err)
		}
		frame.AppendRow(record)
	}
	return frame, nil
}

func parseXLSX(body []byte) (*model.Frame, error) {
	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return model.NewFrame(nil), nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return model.NewFrame(nil), nil
	}

	header := rows[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	frame := model.NewFrame(header)
	for _, row := range rows[1:] {
		frame.AppendRow(row)
	}
	return frame, nil
}

func isXLSX(contentType, rawURL string, body []byte) bool {
	if strings.Contains(contentType, "spreadsheetml") {
		return true
	}
	if strings.HasSuffix(strings.ToLower(rawURL), ".xlsx") {
		return true
	}
	// XLSX files are zip archives.
	return len(body) >= 4 && bytes.Equal(body[:4], []byte("PK\x03\x04"))
}

func truncateURL(u string) string {
	if len(u) <= 80 {
		return u
	}
	return u[:80] + "..."
}
