package sheets

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"feedback-analysis-service/internal/domain"
	"feedback-analysis-service/internal/domain/model"
	"feedback-analysis-service/internal/domain/ports/adapter"
)

var _ adapter.ToolProvider = (*ToolProvider)(nil)

// ToolProvider implements the statistics and row-filter tools on top of the
// worksheet fetcher. Every call re-reads the sheet so the tools see the
// current data rather than the snapshot the session was built from.
type ToolProvider struct {
	fetcher adapter.WorksheetFetcher
	log     *zerolog.Logger
}

func NewToolProvider(fetcher adapter.WorksheetFetcher, log *zerolog.Logger) *ToolProvider {
	return &ToolProvider{fetcher: fetcher, log: log}
}

func (t *ToolProvider) Analyze(ctx context.Context, sheetURL string, columns []string) (*adapter.DatasetAnalysis, error) {
	frame, err := t.fetcher.Fetch(ctx, sheetURL)
	if err != nil {
		return nil, err
	}

	analysis := &adapter.DatasetAnalysis{
		Columns:      make(map[string]adapter.ColumnStats, len(columns)),
		TotalRows:    frame.RowCount(),
		TotalColumns: len(frame.Columns),
		AllColumns:   append([]string(nil), frame.Columns...),
	}

	for _, requested := range columns {
		resolved := resolveColumn(frame, requested)
		if resolved == "" {
			t.log.Warn().Str("column", requested).Msg("requested column not found in worksheet")
			analysis.Columns[requested] = adapter.ColumnStats{Column: requested, Err: "column not found"}
			continue
		}
		analysis.Columns[requested] = columnStats(frame, resolved)
	}
	return analysis, nil
}

func (t *ToolProvider) Filter(ctx context.Context, sheetURL string, conditions map[string]string) (*adapter.FilterResult, error) {
	if len(conditions) == 0 {
		return nil, fmt.Errorf("%w: no filter conditions specified", domain.ErrInvalidArgument)
	}

	frame, err := t.fetcher.Fetch(ctx, sheetURL)
	if err != nil {
		return nil, err
	}

	applied := make(map[string]string, len(conditions))
	matched := make([]int, 0, frame.RowCount())
	for i := 0; i < frame.RowCount(); i++ {
		matched = append(matched, i)
	}

	for requested, expected := range conditions {
		resolved := resolveColumn(frame, requested)
		if resolved == "" {
			return nil, fmt.Errorf("%w: column %q, available: %s",
				domain.ErrColumnNotFound, requested, strings.Join(frame.Columns, ", "))
		}
		applied[resolved] = expected

		idx := frame.ColumnIndex(resolved)
		numeric := isNumericColumn(frame, resolved)
		var expectedNum float64
		if numeric {
			expectedNum, err = strconv.ParseFloat(strings.TrimSpace(expected), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: value %q cannot be compared to numeric column %q",
					domain.ErrInvalidArgument, expected, resolved)
			}
		}

		kept := matched[:0]
		for _, row := range matched {
			cell := strings.TrimSpace(frame.Rows[row][idx])
			if numeric {
				v, perr := strconv.ParseFloat(cell, 64)
				if perr == nil && v == expectedNum {
					kept = append(kept, row)
				}
			} else if strings.EqualFold(cell, strings.TrimSpace(expected)) {
				kept = append(kept, row)
			}
		}
		matched = kept
	}

	result := &adapter.FilterResult{
		Rows:       make([]map[string]string, 0, len(matched)),
		MatchCount: len(matched),
		TotalRows:  frame.RowCount(),
		Applied:    applied,
	}
	for _, row := range matched {
		result.Rows = append(result.Rows, frame.RowMap(row))
	}
	if frame.RowCount() > 0 {
		result.MatchPercent = math.Round(float64(len(matched))/float64(frame.RowCount())*10000) / 100
	}

	t.log.Info().Int("matches", result.MatchCount).Int("total", result.TotalRows).
		Interface("conditions", applied).Msg("row filter applied")
	return result, nil
}

// resolveColumn finds a worksheet column for a requested name: exact match
// first, then the first case-insensitive substring match in column order.
func resolveColumn(frame *model.Frame, name string) string {
	if frame.ColumnIndex(name) >= 0 {
		return name
	}
	lower := strings.ToLower(name)
	for _, col := range frame.Columns {
		if strings.Contains(strings.ToLower(col), lower) {
			return col
		}
	}
	return ""
}

func isNumericColumn(frame *model.Frame, col string) bool {
	_, ok := frame.NumericValues(col)
	return ok && len(frame.Values(col)) > 0
}

func columnStats(frame *model.Frame, col string) adapter.ColumnStats {
	stats := adapter.ColumnStats{
		Column:  col,
		Count:   len(frame.Values(col)),
		Missing: frame.MissingCount(col),
	}
	if stats.Count == 0 {
		stats.Err = "no valid data"
		return stats
	}

	if nums, ok := frame.NumericValues(col); ok {
		stats.Type = "numeric"
		sorted := append([]float64(nil), nums...)
		sort.Float64s(sorted)
		stats.Mean = ptr(round2(mean(nums)))
		stats.Median = ptr(round2(median(sorted)))
		stats.StdDev = ptr(round2(stdDev(nums)))
		stats.Min = ptr(sorted[0])
		stats.Max = ptr(sorted[len(sorted)-1])
		return stats
	}

	stats.Type = "object"
	values := frame.Values(col)
	dist := make(map[string]int, 16)
	for _, v := range values {
		dist[v]++
	}
	most, mostN := "", 0
	for v, n := range dist {
		if n > mostN || (n == mostN && v < most) {
			most, mostN = v, n
		}
	}
	stats.Mode = most
	stats.UniqueCount = len(dist)
	stats.MostFrequent = most
	stats.MostFrequentCount = mostN
	stats.Distribution = dist
	return stats
}

func ptr(v float64) *float64 { return &v }

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
