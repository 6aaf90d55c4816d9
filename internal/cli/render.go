package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/certcheck/internal/engine"
	"github.com/Veraticus/certcheck/internal/model"
)

// Table writes aligned columns with a styled header row.
type Table struct {
	tw *tabwriter.Writer
}

// NewTable starts a table on w and writes the header row.
func NewTable(w io.Writer, headers ...string) *Table {
	t := &Table{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	styled := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = TableHeaderStyle.Render(h)
	}
	fmt.Fprintln(t.tw, strings.Join(styled, "\t"))
	return t
}

// Row appends one row. Values are formatted with %v.
func (t *Table) Row(values ...any) {
	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = fmt.Sprint(v)
	}
	fmt.Fprintln(t.tw, strings.Join(cells, "\t"))
}

// Flush writes the buffered table.
func (t *Table) Flush() error {
	return t.tw.Flush()
}

// FormatPercent renders a 0..1 score as a percentage.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// FormatSGPA renders an optional SGPA.
func FormatSGPA(sgpa *float64) string {
	if sgpa == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *sgpa)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// RenderFields formats extracted fields as a labeled block.
func RenderFields(fields model.ExtractedFields) string {
	var b strings.Builder
	rows := []struct {
		label string
		value string
	}{
		{"Seat No", orDash(fields.SeatNo)},
		{"Student Name", orDash(fields.StudentName)},
		{"Mother Name", orDash(fields.MotherName)},
		{"SGPA", FormatSGPA(fields.SGPA)},
		{"Result Date", orDash(fields.ResultDate)},
		{"Subject", orDash(fields.Subject)},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "%s %s\n", SubtleStyle.Render(fmt.Sprintf("%-13s", r.label+":")), r.value)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderQuality formats an extraction quality summary.
func RenderQuality(q model.ExtractionQuality) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extraction quality: %s", FormatPercent(q.OverallConfidence))
	for _, issue := range q.Issues {
		fmt.Fprintf(&b, "\n  %s", FormatWarning(issue))
	}
	return b.String()
}

// RenderBreakdown lists per-field scores and weights in a stable order.
func RenderBreakdown(bd *model.ConfidenceBreakdown) string {
	if bd == nil {
		return ""
	}
	keys := make([]string, 0, len(bd.FieldScores))
	for k := range bd.FieldScores {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "  %-13s %7s  (weight %.2f)\n", k, FormatPercent(bd.FieldScores[k]), bd.FieldWeights[k])
	}
	fmt.Fprintf(&b, "  %s", SubtleStyle.Render(bd.Explanation))
	return b.String()
}

// RenderReport formats the full result of one verification.
func RenderReport(report *engine.Report) string {
	outcome := report.Outcome

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", FormatStatus(outcome.Status), BoldStyle.Render(FormatPercent(outcome.Confidence)))
	fmt.Fprintf(&b, "%s\n\n", SubtleStyle.Render(fmt.Sprintf("%s via %s in %s", report.Filename, orDash(report.Source), report.Duration.Round(time.Millisecond))))
	b.WriteString(RenderFields(report.Fields))
	b.WriteString("\n\n")
	b.WriteString(RenderQuality(report.Quality))

	if outcome.MatchedRecord != nil {
		fmt.Fprintf(&b, "\n\nMatched record #%d (%s, %s)", outcome.MatchedRecord.ID, outcome.MatchedRecord.SeatNo, outcome.MatchedRecord.StudentName)
	}
	if outcome.Breakdown != nil {
		b.WriteString("\n\nScore breakdown:\n")
		b.WriteString(RenderBreakdown(outcome.Breakdown))
	}
	if len(outcome.Anomalies) > 0 {
		b.WriteString("\n\nAnomalies:")
		for _, a := range outcome.Anomalies {
			fmt.Fprintf(&b, "\n  %s", StatusStyle(outcome.Status).Render("• "+a))
		}
	}
	if len(report.Recommendations) > 0 {
		b.WriteString("\n\nRecommendations:")
		for _, r := range report.Recommendations {
			fmt.Fprintf(&b, "\n  • %s", r)
		}
	}
	return RenderBox(SearchIcon+" Verification Result", b.String())
}

// RenderSummary formats the totals of a batch run.
func RenderSummary(summary engine.BatchSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Processed %d documents in %s", summary.Total, summary.ProcessingTime.Round(time.Millisecond))
	for _, status := range []model.Status{model.StatusAuthentic, model.StatusSuspicious, model.StatusFake, model.StatusError} {
		if n := summary.ByStatus[status]; n > 0 {
			fmt.Fprintf(&b, "\n  %s: %d", FormatStatus(status), n)
		}
	}
	if summary.Failed > 0 {
		fmt.Fprintf(&b, "\n  %s", FormatError(fmt.Sprintf("%d failed", summary.Failed)))
	}
	return RenderBox(ChartIcon+" Batch Summary", b.String())
}
