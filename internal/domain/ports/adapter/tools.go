package adapter

import "context"

// ColumnStats carries the statistics the analysis tool computed for one
// column. Numeric and categorical fields are mutually exclusive; Err is set
// when that single column could not be analyzed.
type ColumnStats struct {
	Column string `json:"column_name"`
	Type   string `json:"type"`

	Mean   *float64 `json:"mean,omitempty"`
	Median *float64 `json:"median,omitempty"`
	StdDev *float64 `json:"std_dev,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`

	Mode              string         `json:"mode,omitempty"`
	UniqueCount       int            `json:"unique_count,omitempty"`
	MostFrequent      string         `json:"most_frequent,omitempty"`
	MostFrequentCount int            `json:"most_frequent_count,omitempty"`
	Distribution      map[string]int `json:"distribution,omitempty"`

	Count   int    `json:"count"`
	Missing int    `json:"missing"`
	Err     string `json:"error,omitempty"`
}

// DatasetAnalysis is the full output of the statistics tool.
type DatasetAnalysis struct {
	Columns      map[string]ColumnStats `json:"columns"`
	TotalRows    int                    `json:"total_rows"`
	TotalColumns int                    `json:"total_columns"`
	AllColumns   []string               `json:"all_columns"`
}

// FilterResult is the output of the row-filter tool. Applied holds the
// conditions after fuzzy column resolution, keyed by the resolved names.
type FilterResult struct {
	Rows         []map[string]string `json:"filtered_rows"`
	MatchCount   int                 `json:"total_matches"`
	TotalRows    int                 `json:"total_rows"`
	Applied      map[string]string   `json:"conditions_applied"`
	MatchPercent float64             `json:"match_percentage"`
}

// ToolProvider is the port for the expensive structured computations the
// Router can route to. Both operate against the remote tabular source named
// by sheetURL, not against retrieved snippets.
type ToolProvider interface {
	// Analyze runs dataset-wide statistics across the named columns.
	Analyze(ctx context.Context, sheetURL string, columns []string) (*DatasetAnalysis, error)

	// Filter returns rows matching all conditions (AND semantics). Column
	// names are resolved exact-first, then case-insensitive substring; an
	// unresolvable column fails the whole call.
	Filter(ctx context.Context, sheetURL string, conditions map[string]string) (*FilterResult, error)
}
