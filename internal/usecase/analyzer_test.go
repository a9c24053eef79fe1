package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"feedback-analysis-service/internal/domain"
	"feedback-analysis-service/internal/domain/model"
)

func frameOf(columns []string, rows ...[]string) *model.Frame {
	f := model.NewFrame(columns)
	for _, r := range rows {
		f.AppendRow(r)
	}
	return f
}

func TestAnalyzer_Preprocess_DropsIdentityColumns(t *testing.T) {
	a := NewAnalyzer(nil, nopLogger())
	frame := frameOf(
		[]string{"Timestamp", "Email Address", "Name", "Rating", "Comments"},
		[]string{"2025-01-01", "a@x.com", "Alice", "5", "great session"},
		[]string{"2025-01-02", "b@x.com", "Bob", "4", "good pacing"},
	)

	trimmed, descriptors, err := a.Preprocess(frame)
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	want := []string{"Rating", "Comments"}
	if len(trimmed.Columns) != len(want) {
		t.Fatalf("want columns %v, got %v", want, trimmed.Columns)
	}
	for i, c := range want {
		if trimmed.Columns[i] != c {
			t.Fatalf("want columns %v, got %v", want, trimmed.Columns)
		}
	}
	if len(descriptors) != 2 {
		t.Fatalf("want 2 descriptors, got %d", len(descriptors))
	}
	if trimmed.RowCount() != 2 {
		t.Fatalf("rows lost in preprocessing: %d", trimmed.RowCount())
	}
}

func TestAnalyzer_Preprocess_AllDroppedIsEmptyDataset(t *testing.T) {
	a := NewAnalyzer(nil, nopLogger())
	frame := frameOf(
		[]string{"Timestamp", "Email Address"},
		[]string{"2025-01-01", "a@x.com"},
	)
	if _, _, err := a.Preprocess(frame); !errors.Is(err, domain.ErrEmptyDataset) {
		t.Fatalf("want ErrEmptyDataset, got %v", err)
	}
}

func TestAnalyzer_Classify(t *testing.T) {
	a := NewAnalyzer(nil, nopLogger())

	cases := []struct {
		name   string
		values []string
		want   model.ColumnKind
	}{
		{"rating scale", []string{"5", "4", "3", "5", "2", "4"}, model.ColumnRating},
		{"continuous numbers", []string{"10.5", "23.1", "7.2", "99.9", "15.0", "31.4", "42.1", "8.8", "61.3", "70.7", "5.5"}, model.ColumnNumerical},
		{"satisfaction words", []string{"Excellent", "Good", "Poor", "Excellent", "Good", "Good", "Excellent", "Poor"}, model.ColumnCategorical},
		{"free text", []string{"the venue was cramped", "loved the speakers", "wifi kept dropping", "more snacks please", "would attend again"}, model.ColumnText},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rows := make([][]string, len(c.values))
			for i, v := range c.values {
				rows[i] = []string{v}
			}
			frame := frameOf([]string{"col"}, rows...)
			if got := a.classifyColumn(frame, "col"); got != c.want {
				t.Fatalf("want %s, got %s", c.want, got)
			}
		})
	}
}

func TestAnalyzer_AnalyzeColumn_Numeric(t *testing.T) {
	a := NewAnalyzer(nil, nopLogger())
	frame := frameOf([]string{"Score"},
		[]string{"1"}, []string{"2"}, []string{"3"}, []string{"4"}, []string{"5"})

	report := a.AnalyzeColumn(context.Background(), frame, model.ColumnDescriptor{Name: "Score", Kind: model.ColumnRating})
	if report.Err != "" {
		t.Fatalf("unexpected error: %s", report.Err)
	}
	n := report.Numeric
	if n == nil {
		t.Fatal("numeric analysis missing")
	}
	if n.TotalResponses != 5 || n.Mean != 3 || n.Median != 3 || n.Min != 1 || n.Max != 5 {
		t.Fatalf("wrong stats: %+v", n)
	}
	if n.Q1 != 2 || n.Q3 != 4 {
		t.Fatalf("wrong quartiles: Q1=%v Q3=%v", n.Q1, n.Q3)
	}
	if math.Abs(n.StdDev-1.58) > 0.01 {
		t.Fatalf("wrong stddev: %v", n.StdDev)
	}
	// Without a synthesizer the insight falls back to the computed summary.
	if report.Insight == "" {
		t.Fatal("insight fallback missing")
	}
}

func TestAnalyzer_AnalyzeColumn_Categorical(t *testing.T) {
	a := NewAnalyzer(nil, nopLogger())
	frame := frameOf([]string{"Verdict"},
		[]string{"Good"}, []string{"Good"}, []string{"Poor"}, []string{"Good"}, []string{"Excellent"})

	report := a.AnalyzeColumn(context.Background(), frame, model.ColumnDescriptor{Name: "Verdict", Kind: model.ColumnCategorical})
	c := report.Categorical
	if c == nil {
		t.Fatal("categorical analysis missing")
	}
	if c.TotalResponses != 5 || c.UniqueCategories != 3 {
		t.Fatalf("wrong counts: %+v", c)
	}
	if c.MostCommon != "Good" {
		t.Fatalf("want most common Good, got %s", c.MostCommon)
	}
	if c.Distribution["Good"] != 3 {
		t.Fatalf("wrong distribution: %v", c.Distribution)
	}
}

func TestAnalyzer_AnalyzeColumn_Text(t *testing.T) {
	a := NewAnalyzer(nil, nopLogger())
	frame := frameOf([]string{"Comments"},
		[]string{"great event"}, []string{"too long"}, []string{""})

	report := a.AnalyzeColumn(context.Background(), frame, model.ColumnDescriptor{Name: "Comments", Kind: model.ColumnText})
	tx := report.Text
	if tx == nil {
		t.Fatal("text analysis missing")
	}
	// Empty cells are excluded from the response count.
	if tx.TotalResponses != 2 {
		t.Fatalf("want 2 responses, got %d", tx.TotalResponses)
	}
	if tx.AvgWordCount != 2 {
		t.Fatalf("want 2 words average, got %v", tx.AvgWordCount)
	}
}

func TestAnalyzer_InsightUsesSynthesizer(t *testing.T) {
	synth := &scriptedSynth{responses: []string{"• participants were satisfied"}}
	a := NewAnalyzer(synth, nopLogger())
	frame := frameOf([]string{"Score"}, []string{"4"}, []string{"5"})

	report := a.AnalyzeColumn(context.Background(), frame, model.ColumnDescriptor{Name: "Score", Kind: model.ColumnRating})
	if report.Insight != "• participants were satisfied" {
		t.Fatalf("synthesizer insight not used: %q", report.Insight)
	}
	if len(synth.prompts) != 1 || !strings.Contains(synth.prompts[0], "Score") {
		t.Fatalf("insight prompt missing column name: %v", synth.prompts)
	}
}

func TestAnalyzer_InsightFallsBackOnSynthError(t *testing.T) {
	synth := &scriptedSynth{errs: []error{errors.New("rate limited")}}
	a := NewAnalyzer(synth, nopLogger())
	frame := frameOf([]string{"Score"}, []string{"4"}, []string{"5"})

	report := a.AnalyzeColumn(context.Background(), frame, model.ColumnDescriptor{Name: "Score", Kind: model.ColumnRating})
	if report.Err != "" {
		t.Fatalf("synth failure must not fail the column: %s", report.Err)
	}
	if !strings.Contains(report.Insight, "Score") {
		t.Fatalf("fallback insight missing: %q", report.Insight)
	}
}
