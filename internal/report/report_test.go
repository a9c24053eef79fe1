package report

import (
	"strings"
	"testing"

	"feedback-analysis-service/internal/domain/model"
)

func sampleReport() *model.Report {
	return &model.Report{
		EventName: "Tech Talk 2026",
		RowCount:  42,
		Columns: []model.ColumnReport{
			{
				Column: "Overall Rating",
				Kind:   model.ColumnRating,
				Numeric: &model.NumericAnalysis{
					TotalResponses: 42, Mean: 4.2, Median: 4, StdDev: 0.8,
					Min: 1, Max: 5, Q1: 4, Q3: 5, Mode: "5",
				},
				Insight: "• Ratings skew strongly positive",
			},
			{
				Column: "Would Recommend",
				Kind:   model.ColumnCategorical,
				Categorical: &model.CategoricalAnalysis{
					TotalResponses: 40, UniqueCategories: 2,
					Distribution: map[string]int{"Yes": 30, "No": 10},
					MostCommon:   "Yes", LeastCommon: "No",
				},
			},
			{
				Column: "Suggestions",
				Kind:   model.ColumnText,
				Err:    "synthesizer unavailable",
			},
		},
	}
}

func TestRender(t *testing.T) {
	html, err := Render(sampleReport())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"Tech Talk 2026",
		"42 responses across 3 feedback columns",
		"Overall Rating",
		"Ratings skew strongly positive",
		"Would Recommend",
		"75.0%", // 30 of 40
		"Analysis unavailable: synthesizer unavailable",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}

	// Distribution rows are ordered by count, largest first.
	if strings.Index(html, ">Yes<") > strings.Index(html, ">No<") {
		t.Error("distribution not sorted by count")
	}
}

func TestRender_EscapesWorksheetContent(t *testing.T) {
	r := &model.Report{
		EventName: "<script>alert(1)</script>",
		Columns:   []model.ColumnReport{},
	}
	html, err := Render(r)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("event name not escaped")
	}
}

func TestRenderEmptyNotice(t *testing.T) {
	html := RenderEmptyNotice("Tech Talk", "https://example.com/sheet.csv")
	if !strings.Contains(html, "Tech Talk") || !strings.Contains(html, "no analyzable feedback data") {
		t.Fatalf("notice: %s", html)
	}
}

func TestCountByKind_SkipsFailedColumns(t *testing.T) {
	counts := sampleReport().CountByKind()
	if counts[model.ColumnRating] != 1 || counts[model.ColumnCategorical] != 1 {
		t.Fatalf("counts: %v", counts)
	}
	if counts[model.ColumnText] != 0 {
		t.Fatalf("failed column counted: %v", counts)
	}
}
