package model

import (
	"strconv"
	"strings"
)

// Frame is an in-memory tabular dataset: a header row plus string cells.
// Cells keep their raw worksheet text; typed access goes through the helper
// methods so every consumer applies the same parsing rules.
type Frame struct {
	Columns []string
	Rows    [][]string
}

func NewFrame(columns []string) *Frame {
	return &Frame{Columns: columns}
}

func (f *Frame) AppendRow(row []string) {
	// Pad short rows so column indexing stays safe.
	for len(row) < len(f.Columns) {
		row = append(row, "")
	}
	f.Rows = append(f.Rows, row[:len(f.Columns)])
}

func (f *Frame) RowCount() int { return len(f.Rows) }

// Head returns a frame truncated to at most n rows, sharing storage.
func (f *Frame) Head(n int) *Frame {
	if n < 0 || n >= len(f.Rows) {
		return f
	}
	return &Frame{Columns: f.Columns, Rows: f.Rows[:n]}
}

// ColumnIndex resolves a column name to its position, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Values returns the non-empty cells of a column in row order.
func (f *Frame) Values(name string) []string {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]string, 0, len(f.Rows))
	for _, row := range f.Rows {
		if v := strings.TrimSpace(row[idx]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// MissingCount returns how many cells of a column are empty.
func (f *Frame) MissingCount(name string) int {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return 0
	}
	missing := 0
	for _, row := range f.Rows {
		if strings.TrimSpace(row[idx]) == "" {
			missing++
		}
	}
	return missing
}

// NumericValues parses the column's non-empty cells as floats. The second
// result reports whether every non-empty cell parsed, which is the test a
// column must pass to count as numeric.
func (f *Frame) NumericValues(name string) ([]float64, bool) {
	values := f.Values(name)
	out := make([]float64, 0, len(values))
	for _, v := range values {
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return out, false
		}
		out = append(out, n)
	}
	return out, len(out) > 0
}

// RowMap renders one row as column->cell, used by the filter tool output.
func (f *Frame) RowMap(i int) map[string]string {
	out := make(map[string]string, len(f.Columns))
	for j, c := range f.Columns {
		out[c] = f.Rows[i][j]
	}
	return out
}

// RowText flattens one row to "col: value | col: value" form for retrieval
// chunking, skipping empty cells.
func (f *Frame) RowText(i int) string {
	parts := make([]string, 0, len(f.Columns))
	for j, c := range f.Columns {
		if v := strings.TrimSpace(f.Rows[i][j]); v != "" {
			parts = append(parts, c+": "+v)
		}
	}
	return strings.Join(parts, " | ")
}
