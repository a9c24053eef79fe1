package model

// NumericAnalysis summarizes a numerical or rating column.
type NumericAnalysis struct {
	TotalResponses int     `json:"total_responses"`
	Mean           float64 `json:"mean"`
	Median         float64 `json:"median"`
	StdDev         float64 `json:"std_dev"`
	Min            float64 `json:"min_value"`
	Max            float64 `json:"max_value"`
	Q1             float64 `json:"q1"`
	Q3             float64 `json:"q3"`
	Mode           string  `json:"mode,omitempty"`
}

// CategoricalAnalysis summarizes a categorical column.
type CategoricalAnalysis struct {
	TotalResponses   int            `json:"total_responses"`
	UniqueCategories int            `json:"unique_categories"`
	Distribution     map[string]int `json:"distribution"`
	MostCommon       string         `json:"most_common"`
	LeastCommon      string         `json:"least_common"`
}

// TextAnalysis summarizes a free-text column.
type TextAnalysis struct {
	TotalResponses int     `json:"total_responses"`
	AvgLength      float64 `json:"avg_length"`
	AvgWordCount   float64 `json:"avg_word_count"`
}

// ColumnReport is the per-column output of the job pipeline: the structured
// stats for the column's kind plus an optional synthesized insight.
// Err is set instead of the stats when analysis of that column failed.
type ColumnReport struct {
	Column      string               `json:"column"`
	Kind        ColumnKind           `json:"type"`
	Numeric     *NumericAnalysis     `json:"numeric,omitempty"`
	Categorical *CategoricalAnalysis `json:"categorical,omitempty"`
	Text        *TextAnalysis        `json:"text,omitempty"`
	Insight     string               `json:"insight,omitempty"`
	Err         string               `json:"error,omitempty"`
}

// Report is the assembled result of one analysis job.
type Report struct {
	EventName string         `json:"event_name"`
	RowCount  int            `json:"row_count"`
	Columns   []ColumnReport `json:"columns"`
}

// CountByKind tallies analyzed columns per kind, skipping failed ones.
func (r *Report) CountByKind() map[ColumnKind]int {
	counts := make(map[ColumnKind]int)
	for _, c := range r.Columns {
		if c.Err != "" {
			continue
		}
		counts[c.Kind]++
	}
	return counts
}
