// File: internal/report/report.go

// Package report renders analysis results into the HTML document mailed to
// the requester.
package report

import (
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"feedback-analysis-service/internal/domain/model"
)

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct": func(count, total int) string {
		if total == 0 {
			return "0.0%"
		}
		return fmt.Sprintf("%.1f%%", float64(count)/float64(total)*100)
	},
}).Parse(reportHTML))

type distributionRow struct {
	Value string
	Count int
	Total int
}

type columnView struct {
	Column       string
	Kind         string
	Numeric      *model.NumericAnalysis
	Categorical  *model.CategoricalAnalysis
	Text         *model.TextAnalysis
	Distribution []distributionRow
	Insight      string
	Err          string
}

type reportView struct {
	EventName   string
	GeneratedAt string
	RowCount    int
	ColumnCount int
	KindCounts  []string
	Columns     []columnView
}

// Render produces the full HTML report for a completed analysis.
func Render(r *model.Report) (string, error) {
	view := reportView{
		EventName:   r.EventName,
		GeneratedAt: time.Now().Format("January 2, 2006 at 15:04 MST"),
		RowCount:    r.RowCount,
		ColumnCount: len(r.Columns),
	}
	for kind, n := range r.CountByKind() {
		view.KindCounts = append(view.KindCounts, fmt.Sprintf("%d %s", n, kind))
	}
	sort.Strings(view.KindCounts)

	for _, col := range r.Columns {
		cv := columnView{
			Column:      col.Column,
			Kind:        string(col.Kind),
			Numeric:     col.Numeric,
			Categorical: col.Categorical,
			Text:        col.Text,
			Insight:     col.Insight,
			Err:         col.Err,
		}
		if col.Categorical != nil {
			cv.Distribution = sortedDistribution(col.Categorical)
		}
		view.Columns = append(view.Columns, cv)
	}

	var b strings.Builder
	if err := reportTmpl.Execute(&b, view); err != nil {
		return "", fmt.Errorf("execute report template: %w", err)
	}
	return b.String(), nil
}

// RenderEmptyNotice is the message sent when the worksheet had no rows or no
// analyzable columns.
func RenderEmptyNotice(eventName, sheetURL string) string {
	var b strings.Builder
	noticeTmpl.Execute(&b, struct {
		EventName string
		SheetURL  string
	}{EventName: eventName, SheetURL: sheetURL})
	return b.String()
}

func sortedDistribution(c *model.CategoricalAnalysis) []distributionRow {
	rows := make([]distributionRow, 0, len(c.Distribution))
	for v, n := range c.Distribution {
		rows = append(rows, distributionRow{Value: v, Count: n, Total: c.TotalResponses})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Value < rows[j].Value
	})
	return rows
}

var noticeTmpl = template.Must(template.New("notice").Parse(`<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Feedback Analysis: {{.EventName}}</h2>
  <p>The worksheet you submitted contains no analyzable feedback data.</p>
  <p>Please check that the sheet has at least one data row and one feedback
  column, then submit it again.</p>
  <p style="color: #888; font-size: 12px;">Source: {{.SheetURL}}</p>
</body>
</html>`))

const reportHTML = `<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 800px; margin: auto;">
  <h1 style="color: #2c3e50;">Feedback Analysis Report</h1>
  <h2 style="color: #34495e;">{{.EventName}}</h2>
  <p style="color: #888;">Generated {{.GeneratedAt}}</p>

  <div style="background: #ecf0f1; padding: 12px; border-radius: 6px;">
    <strong>Overview:</strong>
    {{.RowCount}} responses across {{.ColumnCount}} feedback columns
    ({{range $i, $k := .KindCounts}}{{if $i}}, {{end}}{{$k}}{{end}}).
  </div>

  {{range .Columns}}
  <div style="margin-top: 24px; border: 1px solid #ddd; border-radius: 6px; padding: 16px;">
    <h3 style="margin-top: 0;">{{.Column}}
      <span style="font-size: 12px; color: #888;">({{.Kind}})</span></h3>

    {{if .Err}}
    <p style="color: #c0392b;">Analysis unavailable: {{.Err}}</p>
    {{else}}

    {{with .Numeric}}
    <table style="border-collapse: collapse;">
      <tr><td style="padding: 2px 12px 2px 0;">Responses</td><td>{{.TotalResponses}}</td></tr>
      <tr><td style="padding: 2px 12px 2px 0;">Mean</td><td>{{.Mean}}</td></tr>
      <tr><td style="padding: 2px 12px 2px 0;">Median</td><td>{{.Median}}</td></tr>
      <tr><td style="padding: 2px 12px 2px 0;">Std Dev</td><td>{{.StdDev}}</td></tr>
      <tr><td style="padding: 2px 12px 2px 0;">Range</td><td>{{.Min}} to {{.Max}}</td></tr>
      <tr><td style="padding: 2px 12px 2px 0;">Quartiles</td><td>Q1 {{.Q1}}, Q3 {{.Q3}}</td></tr>
      {{if .Mode}}<tr><td style="padding: 2px 12px 2px 0;">Mode</td><td>{{.Mode}}</td></tr>{{end}}
    </table>
    {{end}}

    {{with .Categorical}}
    <p>{{.TotalResponses}} responses, {{.UniqueCategories}} categories.
       Most common: <strong>{{.MostCommon}}</strong>.</p>
    {{end}}
    {{if .Distribution}}
    <table style="border-collapse: collapse; width: 100%;">
      <tr style="background: #ecf0f1;">
        <th style="text-align: left; padding: 4px;">Response</th>
        <th style="text-align: right; padding: 4px;">Count</th>
        <th style="text-align: right; padding: 4px;">Share</th>
      </tr>
      {{range .Distribution}}
      <tr>
        <td style="padding: 4px; border-top: 1px solid #eee;">{{.Value}}</td>
        <td style="text-align: right; padding: 4px; border-top: 1px solid #eee;">{{.Count}}</td>
        <td style="text-align: right; padding: 4px; border-top: 1px solid #eee;">{{pct .Count .Total}}</td>
      </tr>
      {{end}}
    </table>
    {{end}}

    {{with .Text}}
    <p>{{.TotalResponses}} responses, average {{.AvgWordCount}} words
       ({{.AvgLength}} characters) each.</p>
    {{end}}

    {{if .Insight}}
    <div style="background: #fef9e7; padding: 10px; border-radius: 4px; margin-top: 8px; white-space: pre-line;">{{.Insight}}</div>
    {{end}}
    {{end}}
  </div>
  {{end}}

  <p style="color: #888; font-size: 12px; margin-top: 32px;">
    This report was generated automatically from the submitted worksheet.</p>
</body>
</html>`
