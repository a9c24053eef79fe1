// File: internal/usecase/analyzer.go
package usecase

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"feedback-analysis-service/internal/domain"
	"feedback-analysis-service/internal/domain/model"
	"feedback-analysis-service/internal/domain/ports/adapter"
)

// Columns matching these patterns carry identity or bookkeeping data, not
// feedback, and are dropped before analysis.
var irrelevantColumnPatterns = []*regexp.Regexp{
	// Identity / ID
	regexp.MustCompile(`^usn$`), regexp.MustCompile(`^roll.*no$`),
	regexp.MustCompile(`^student.*id$`), regexp.MustCompile(`^id$`),
	regexp.MustCompile(`^entry.*id$`), regexp.MustCompile(`^serial$`), regexp.MustCompile(`^index$`),
	// Contact information
	regexp.MustCompile(`^email.*address$`), regexp.MustCompile(`^phone$`),
	regexp.MustCompile(`^contact$`), regexp.MustCompile(`^mobile$`), regexp.MustCompile(`^address$`),
	// Personal identification
	regexp.MustCompile(`^name$`), regexp.MustCompile(`^participant.*name$`),
	regexp.MustCompile(`^student.*name$`), regexp.MustCompile(`^user.*name$`),
	regexp.MustCompile(`^full.*name$`), regexp.MustCompile(`^first.*name$`), regexp.MustCompile(`^last.*name$`),
	// Organization identification
	regexp.MustCompile(`^organization$`), regexp.MustCompile(`^institution$`),
	regexp.MustCompile(`^university$`), regexp.MustCompile(`^college$`),
	regexp.MustCompile(`^department$`), regexp.MustCompile(`^branch$`),
	regexp.MustCompile(`^batch$`), regexp.MustCompile(`^section$`),
	// Date/time bookkeeping
	regexp.MustCompile(`^timestamp$`), regexp.MustCompile(`^date$`), regexp.MustCompile(`^time$`),
	regexp.MustCompile(`^created$`), regexp.MustCompile(`^updated$`), regexp.MustCompile(`^submitted$`),
	// Registration
	regexp.MustCompile(`^registration.*id$`), regexp.MustCompile(`^participant.*id$`),
	regexp.MustCompile(`^team.*name$`), regexp.MustCompile(`^team.*id$`),
}

var categoricalKeywords = []string{
	"excellent", "good", "poor", "bad", "average", "satisfied", "dissatisfied", "yes", "no",
}

// Analyzer classifies worksheet columns and computes per-column statistics.
// The synthesizer is used for insight text only and is best-effort: on error
// the report falls back to a computed summary.
type Analyzer struct {
	synth adapter.AnswerSynthesizer
	log   *zerolog.Logger
}

func NewAnalyzer(synth adapter.AnswerSynthesizer, log *zerolog.Logger) *Analyzer {
	return &Analyzer{synth: synth, log: log}
}

// Preprocess drops irrelevant columns and classifies the rest. It returns
// domain.ErrEmptyDataset when nothing analyzable remains.
func (a *Analyzer) Preprocess(frame *model.Frame) (*model.Frame, []model.ColumnDescriptor, error) {
	kept := make([]string, 0, len(frame.Columns))
	removed := make([]string, 0)
	for _, col := range frame.Columns {
		if a.isIrrelevant(frame, col) {
			removed = append(removed, col)
			continue
		}
		kept = append(kept, col)
	}
	a.log.Debug().Strs("kept", kept).Strs("removed", removed).Msg("columns preprocessed")

	if len(kept) == 0 {
		return nil, nil, domain.ErrEmptyDataset
	}

	trimmed := model.NewFrame(kept)
	for i := range frame.Rows {
		row := make([]string, len(kept))
		for j, col := range kept {
			row[j] = frame.Rows[i][frame.ColumnIndex(col)]
		}
		trimmed.AppendRow(row)
	}

	return trimmed, a.Classify(trimmed), nil
}

func (a *Analyzer) isIrrelevant(frame *model.Frame, col string) bool {
	normalized := strings.ReplaceAll(strings.TrimSpace(strings.ToLower(col)), " ", ".*")
	for _, p := range irrelevantColumnPatterns {
		if p.MatchString(normalized) {
			return true
		}
	}

	// Near-unique non-numeric columns whose samples look like identifiers
	// are dropped too.
	values := frame.Values(col)
	if len(values) == 0 {
		return false
	}
	unique := uniqueCount(values)
	if unique > 10 && float64(unique)/float64(frame.RowCount()) > 0.9 {
		indicators := []string{"hackathon", "event", "workshop", "participant", "student", "user"}
		limit := 10
		if len(values) < limit {
			limit = len(values)
		}
		for _, v := range values[:limit] {
			lower := strings.ToLower(v)
			for _, ind := range indicators {
				if strings.Contains(lower, ind) {
					return true
				}
			}
		}
	}
	return false
}

// Classify assigns each column a kind: numeric columns with at most 10
// distinct values count as ratings; low-cardinality strings are categorical;
// everything else is free text.
func (a *Analyzer) Classify(frame *model.Frame) []model.ColumnDescriptor {
	descriptors := make([]model.ColumnDescriptor, 0, len(frame.Columns))
	for _, col := range frame.Columns {
		descriptors = append(descriptors, model.ColumnDescriptor{Name: col, Kind: a.classifyColumn(frame, col)})
	}
	return descriptors
}

func (a *Analyzer) classifyColumn(frame *model.Frame, col string) model.ColumnKind {
	values := frame.Values(col)
	if len(values) == 0 {
		return model.ColumnText
	}

	if nums, ok := frame.NumericValues(col); ok {
		if uniqueFloatCount(nums) <= 10 {
			return model.ColumnRating
		}
		return model.ColumnNumerical
	}

	unique := uniqueCount(values)
	if unique <= 20 && float64(unique)/float64(len(values)) < 0.5 {
		limit := 10
		if len(values) < limit {
			limit = len(values)
		}
		for _, v := range values[:limit] {
			lower := strings.ToLower(v)
			for _, kw := range categoricalKeywords {
				if strings.Contains(lower, kw) {
					return model.ColumnCategorical
				}
			}
		}
		if unique <= 10 {
			return model.ColumnCategorical
		}
	}
	return model.ColumnText
}

// AnalyzeColumn computes the stats for one column and asks the synthesizer
// for an insight paragraph. A per-column failure is recorded in the report,
// never raised: one bad column must not fail the job.
func (a *Analyzer) AnalyzeColumn(ctx context.Context, frame *model.Frame, desc model.ColumnDescriptor) model.ColumnReport {
	report := model.ColumnReport{Column: desc.Name, Kind: desc.Kind}

	var summary string
	switch desc.Kind {
	case model.ColumnNumerical, model.ColumnRating:
		numeric, err := analyzeNumeric(frame, desc.Name)
		if err != nil {
			report.Err = err.Error()
			return report
		}
		report.Numeric = numeric
		summary = fmt.Sprintf("mean %.2f, median %.2f, std dev %.2f, range %v to %v over %d responses",
			numeric.Mean, numeric.Median, numeric.StdDev, numeric.Min, numeric.Max, numeric.TotalResponses)
	case model.ColumnCategorical:
		categorical, err := analyzeCategorical(frame, desc.Name)
		if err != nil {
			report.Err = err.Error()
			return report
		}
		report.Categorical = categorical
		summary = fmt.Sprintf("%d categories over %d responses, most common %q, least common %q",
			categorical.UniqueCategories, categorical.TotalResponses, categorical.MostCommon, categorical.LeastCommon)
	default:
		text, err := analyzeText(frame, desc.Name)
		if err != nil {
			report.Err = err.Error()
			return report
		}
		report.Text = text
		summary = fmt.Sprintf("%d responses, average length %.0f characters, average %.0f words",
			text.TotalResponses, text.AvgLength, text.AvgWordCount)
	}

	report.Insight = a.generateInsight(ctx, desc, summary)
	return report
}

func (a *Analyzer) generateInsight(ctx context.Context, desc model.ColumnDescriptor, summary string) string {
	fallback := fmt.Sprintf("• %s (%s): %s", desc.Name, desc.Kind, summary)
	if a.synth == nil {
		return fallback
	}
	prompt := fmt.Sprintf(`You are analyzing participant feedback. Column %q (%s) has these statistics: %s.
Write 2-3 short bullet points with the key takeaways. Only use the statistics provided.`, desc.Name, desc.Kind, summary)

	insight, err := a.synth.Generate(ctx, prompt)
	if err != nil {
		a.log.Warn().Err(err).Str("column", desc.Name).Msg("insight generation failed, using computed summary")
		return fallback
	}
	return strings.TrimSpace(insight)
}

func analyzeNumeric(frame *model.Frame, col string) (*model.NumericAnalysis, error) {
	values, _ := frame.NumericValues(col)
	if len(values) == 0 {
		return nil, fmt.Errorf("no valid numerical data in column %q", col)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	analysis := &model.NumericAnalysis{
		TotalResponses: len(values),
		Mean:           round2(mean(values)),
		Median:         round2(quantile(sorted, 0.5)),
		StdDev:         round2(stdDev(values)),
		Min:            sorted[0],
		Max:            sorted[len(sorted)-1],
		Q1:             round2(quantile(sorted, 0.25)),
		Q3:             round2(quantile(sorted, 0.75)),
	}
	if uniqueFloatCount(values) <= 10 {
		analysis.Mode = modeOf(frame.Values(col))
	}
	return analysis, nil
}

func analyzeCategorical(frame *model.Frame, col string) (*model.CategoricalAnalysis, error) {
	values := frame.Values(col)
	if len(values) == 0 {
		return nil, fmt.Errorf("no valid categorical data in column %q", col)
	}
	dist := make(map[string]int, 16)
	for _, v := range values {
		dist[v]++
	}
	most, least := "", ""
	for v, n := range dist {
		if most == "" || n > dist[most] {
			most = v
		}
		if least == "" || n < dist[least] {
			least = v
		}
	}
	return &model.CategoricalAnalysis{
		TotalResponses:   len(values),
		UniqueCategories: len(dist),
		Distribution:     dist,
		MostCommon:       most,
		LeastCommon:      least,
	}, nil
}

func analyzeText(frame *model.Frame, col string) (*model.TextAnalysis, error) {
	values := frame.Values(col)
	if len(values) == 0 {
		return nil, fmt.Errorf("no valid text data in column %q", col)
	}
	var lengthSum, wordSum int
	for _, v := range values {
		lengthSum += len(v)
		wordSum += len(strings.Fields(v))
	}
	n := float64(len(values))
	return &model.TextAnalysis{
		TotalResponses: len(values),
		AvgLength:      round2(float64(lengthSum) / n),
		AvgWordCount:   round2(float64(wordSum) / n),
	}, nil
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the sample standard deviation; zero for a single observation.
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

// quantile interpolates linearly on a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

func modeOf(values []string) string {
	counts := make(map[string]int, len(values))
	best := ""
	for _, v := range values {
		counts[v]++
		if best == "" || counts[v] > counts[best] {
			best = v
		}
	}
	return best
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func uniqueCount(values []string) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

func uniqueFloatCount(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}
