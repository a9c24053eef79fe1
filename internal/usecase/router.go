// File: internal/usecase/router.go
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"feedback-analysis-service/internal/domain"
	"feedback-analysis-service/internal/domain/model"
	"feedback-analysis-service/internal/domain/ports/adapter"
	"feedback-analysis-service/internal/infra/logging"
	"feedback-analysis-service/internal/infra/metrics"
)

// Decision is the routing outcome of the decision step.
type Decision string

const (
	DecisionEnough        Decision = "enough"
	DecisionNeedAnalysis  Decision = "need_analysis"
	DecisionNeedFiltering Decision = "need_filtering"
	DecisionNeedBoth      Decision = "need_both"
)

// routingState carries the intermediate results of one query through the
// decision, tool and answer steps.
type routingState struct {
	question    string
	context     string
	session     *model.Session
	decision    Decision
	conditions  map[string]string
	analysis    *adapter.DatasetAnalysis
	analysisErr error
	filtered    *adapter.FilterResult
	filterErr   error
}

// usedTool names the tools whose results actually reached the synthesizer.
// A tool that was routed to but failed does not count as used.
func (s *routingState) usedTool() string {
	switch {
	case s.analysis != nil && s.filtered != nil:
		return "analysis+filter"
	case s.analysis != nil:
		return "analysis"
	case s.filtered != nil:
		return "filter"
	default:
		return "none"
	}
}

// RouteResult is the outcome of one routed question.
type RouteResult struct {
	Answer   string
	UsedTool string
}

// Router drives a query through the decision state machine: decide which
// tools are needed, invoke them, then synthesize the answer. Tool failures
// degrade to answering from retrieved context alone.
type Router struct {
	synth adapter.AnswerSynthesizer
	tools adapter.ToolProvider
	log   *zerolog.Logger
}

func NewRouter(synth adapter.AnswerSynthesizer, tools adapter.ToolProvider, log *zerolog.Logger) *Router {
	return &Router{synth: synth, tools: tools, log: log}
}

// Answer runs the full routing pipeline for one question against a session.
func (r *Router) Answer(ctx context.Context, session *model.Session, question, retrieved string) (*RouteResult, error) {
	defer logging.TraceDuration(r.log, "Router.Answer")()

	state := &routingState{question: question, context: retrieved, session: session}

	if err := r.decide(ctx, state); err != nil {
		return nil, fmt.Errorf("decision step: %w", err)
	}
	metrics.IncRouterDecision(string(state.decision))
	r.log.Info().Str("decision", string(state.decision)).
		Interface("conditions", state.conditions).Msg("query routed")

	// Both tools run when needed, analysis first. A tool error is captured
	// in the state and surfaced to the synthesizer, not returned.
	if state.decision == DecisionNeedAnalysis || state.decision == DecisionNeedBoth {
		r.runAnalysis(ctx, state)
	}
	if state.decision == DecisionNeedFiltering || state.decision == DecisionNeedBoth {
		r.runFilter(ctx, state)
	}

	answer, err := r.synthesize(ctx, state)
	if err != nil {
		return nil, err
	}
	return &RouteResult{Answer: answer, UsedTool: state.usedTool()}, nil
}

const decisionPromptTemplate = `You are a decision agent that determines which tools are needed to answer a query.

AVAILABLE TOOLS:
1. Statistical Analysis Tool - Analyzes entire dataset for statistics (mean, median, counts, distributions)
2. Row Filter Tool - Retrieves specific rows matching conditions

AVAILABLE COLUMNS: %s

USER QUERY: "%s"

SAMPLE CONTEXT:
%s

DECISION CRITERIA:

Use Statistical Analysis if query asks for:
- Statistics (average, mean, median, std dev, min, max)
- Counts, percentages, distributions
- Overall patterns or trends
Examples: "What's the average score?", "How many students rated Excellent?"

Use Row Filter if query asks for:
- Specific rows matching criteria
- Details about records with certain conditions
- Information filtered by specific values
Examples: "Show students who rated Excellent", "Get records where department is Engineering"

Respond in this EXACT format:
NEEDS_ANALYSIS: yes/no
NEEDS_FILTERING: yes/no
FILTER_CONDITIONS: {"column1": "value1"} (if filtering needed, otherwise {})

Your response:`

func (r *Router) decide(ctx context.Context, state *routingState) error {
	prompt := fmt.Sprintf(decisionPromptTemplate,
		strings.Join(state.session.ColumnNames(), ", "),
		state.question,
		truncate(state.context, 1500),
	)

	response, err := r.synth.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSynthesizer, err)
	}

	needsAnalysis := parseYesLine(response, "NEEDS_ANALYSIS:")
	needsFiltering := parseYesLine(response, "NEEDS_FILTERING:")
	conditions := parseFilterConditions(response)
	if len(conditions) == 0 && needsFiltering {
		// A filter decision with no usable conditions cannot be executed.
		r.log.Warn().Str("response", truncate(response, 200)).
			Msg("filter requested without parseable conditions, skipping filter step")
		needsFiltering = false
	}

	switch {
	case needsAnalysis && needsFiltering:
		state.decision = DecisionNeedBoth
	case needsAnalysis:
		state.decision = DecisionNeedAnalysis
	case needsFiltering:
		state.decision = DecisionNeedFiltering
	default:
		state.decision = DecisionEnough
	}
	state.conditions = conditions
	return nil
}

// parseYesLine reads the value after a marker like "NEEDS_ANALYSIS:" on its
// own line. Missing or malformed markers default to no.
func parseYesLine(response, marker string) bool {
	idx := strings.Index(response, marker)
	if idx < 0 {
		return false
	}
	rest := response[idx+len(marker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	return strings.Contains(strings.ToLower(rest), "yes")
}

var conditionsPattern = regexp.MustCompile(`(?s)FILTER_CONDITIONS:\s*(\{.*?\})`)

// parseFilterConditions extracts the condition map. Models frequently emit
// single-quoted dicts instead of JSON, so quotes are normalized before
// decoding.
func parseFilterConditions(response string) map[string]string {
	m := conditionsPattern.FindStringSubmatch(response)
	if m == nil {
		return nil
	}
	raw := strings.ReplaceAll(m[1], "'", `"`)

	var typed map[string]any
	if err := json.Unmarshal([]byte(raw), &typed); err != nil {
		return nil
	}
	if len(typed) == 0 {
		return nil
	}
	conditions := make(map[string]string, len(typed))
	for k, v := range typed {
		conditions[k] = fmt.Sprint(v)
	}
	return conditions
}

func (r *Router) runAnalysis(ctx context.Context, state *routingState) {
	analysis, err := r.tools.Analyze(ctx, state.session.SheetURL, state.session.ColumnNames())
	metrics.IncToolCall("analysis", err != nil)
	if err != nil {
		r.log.Warn().Err(err).Msg("analysis tool failed, answering without statistics")
		state.analysisErr = err
		return
	}
	state.analysis = analysis
}

func (r *Router) runFilter(ctx context.Context, state *routingState) {
	filtered, err := r.tools.Filter(ctx, state.session.SheetURL, state.conditions)
	metrics.IncToolCall("filter", err != nil)
	if err != nil {
		r.log.Warn().Err(err).Msg("filter tool failed, answering without filtered rows")
		state.filterErr = err
		return
	}
	state.filtered = filtered
}

func (r *Router) synthesize(ctx context.Context, state *routingState) (string, error) {
	var extra strings.Builder

	if state.analysis != nil {
		writeAnalysisContext(&extra, state.analysis)
	} else if state.analysisErr != nil {
		fmt.Fprintf(&extra, "\n\nNote: statistical analysis was unavailable (%v).\n", state.analysisErr)
	}

	if state.filtered != nil {
		writeFilterContext(&extra, state.filtered)
	} else if state.filterErr != nil {
		fmt.Fprintf(&extra, "\n\nNote: row filtering was unavailable (%v).\n", state.filterErr)
	}

	prompt := fmt.Sprintf(`You are a data analysis assistant providing accurate insights.

USER QUESTION: %s

REFERENCE CONTEXT:
%s
%s

INSTRUCTIONS:
1. Use the statistical analysis and filtered data provided above
2. Be specific with numbers and facts
3. Format your response clearly
4. If you have filtered rows, reference them specifically
5. Don't make up information - only use what's provided

Generate your answer now:`, state.question, truncate(state.context, 2000), extra.String())

	answer, err := r.synth.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: answer step: %v", domain.ErrSynthesizer, err)
	}
	return strings.TrimSpace(answer), nil
}

func writeAnalysisContext(b *strings.Builder, analysis *adapter.DatasetAnalysis) {
	b.WriteString("\n\nCOMPLETE DATASET STATISTICAL ANALYSIS\n")
	fmt.Fprintf(b, "Total Records: %d\nTotal Columns: %d\n", analysis.TotalRows, analysis.TotalColumns)

	for _, name := range analysis.AllColumns {
		stats, ok := analysis.Columns[name]
		if !ok || stats.Err != "" {
			continue
		}
		fmt.Fprintf(b, "\nColumn: %s\n", name)
		if stats.Mean != nil {
			fmt.Fprintf(b, "  Mean: %.2f\n  Median: %.2f\n  Std Dev: %.2f\n  Range: %g to %g\n",
				*stats.Mean, *stats.Median, *stats.StdDev, *stats.Min, *stats.Max)
		}
		if stats.MostFrequent != "" {
			fmt.Fprintf(b, "  Most Frequent: %s (%d times)\n  Unique Values: %d\n",
				stats.MostFrequent, stats.MostFrequentCount, stats.UniqueCount)
		}
		fmt.Fprintf(b, "  Responses: %d (missing %d)\n", stats.Count, stats.Missing)
	}
}

func writeFilterContext(b *strings.Builder, filtered *adapter.FilterResult) {
	b.WriteString("\n\nFILTERED ROWS (Matching Conditions)\n")
	fmt.Fprintf(b, "Conditions Applied: %v\n", filtered.Applied)
	fmt.Fprintf(b, "Total Matches: %d out of %d rows (%.2f%%)\n",
		filtered.MatchCount, filtered.TotalRows, filtered.MatchPercent)

	limit := 50
	for i, row := range filtered.Rows {
		if i >= limit {
			fmt.Fprintf(b, "\n... and %d more records\n", len(filtered.Rows)-limit)
			break
		}
		fmt.Fprintf(b, "\nRecord %d:\n", i+1)
		for k, v := range row {
			fmt.Fprintf(b, "  %s: %s\n", k, v)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
