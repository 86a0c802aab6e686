// Package report renders run summaries as terminal tables.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"carpivot/internal"
	"carpivot/internal/pipeline"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// RenderRun prints the counts of one conversion followed by the fields that
// fell back to defaults.
func RenderRun(w io.Writer, res pipeline.RunResult, output string) {
	t := newTable(w)
	t.SetTitle("run " + res.TraceID)
	t.AppendRows([]table.Row{
		{"raw rows", res.RawRows},
		{"listings", res.Listings},
		{"missing ids", formatIDs(res.MissingIDs, res.MissingCount)},
		{"unknown attributes", strings.Join(res.UnknownAttributes, ", ")},
		{"total ms", fmt.Sprintf("%.1f", res.TimingsMs["totalMs"])},
		{"output", output},
	})
	t.Render()

	if len(res.Defaults) == 0 {
		return
	}
	d := newTable(w)
	d.AppendHeader(table.Row{"field", "reason", "listings"})
	for _, c := range res.Defaults {
		d.AppendRow(table.Row{c.Field, string(c.Reason), c.Count})
	}
	d.Render()
}

func RenderRuns(w io.Writer, runs []internal.RunRow) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "(0 runs)")
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"id", "trace", "created", "input", "output", "listings", "defaults", "total ms"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID, r.TraceID, r.CreatedAt, r.Input, r.Output,
			r.Counts["listings"], sumDefaults(r.Counts), fmt.Sprintf("%.1f", r.TimingsMs["totalMs"]),
		})
	}
	t.Render()
}

func sumDefaults(counts map[string]int) int {
	total := 0
	for k, n := range counts {
		if strings.HasPrefix(k, "default:") {
			total += n
		}
	}
	return total
}

// formatIDs shortens long ID lists to the first few entries.
func formatIDs(ids []int, total int) string {
	const shown = 10
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, 0, shown)
	for i, id := range ids {
		if i == shown {
			break
		}
		parts = append(parts, fmt.Sprint(id))
	}
	if total > len(parts) {
		parts = append(parts, fmt.Sprintf("... (%d total)", total))
	}
	return strings.Join(parts, ", ")
}
