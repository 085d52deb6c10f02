package reporting

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func consoleCell(c Cell) string {
	switch c.Highlight {
	case HighlightGood:
		return text.FgGreen.Sprint(c.Text)
	case HighlightBad:
		return text.FgRed.Sprint(c.Text)
	default:
		return c.Text
	}
}

func consoleResult(row Comparison) string {
	return row.Outcome.String()
}

// PrintSummary writes a console rendering of every report to w.
func PrintSummary(w io.Writer, reports []*Report) {
	for _, r := range reports {
		printReport(w, r)
	}
}

func printReport(w io.Writer, r *Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Verification results: %s", r.Name))

	t.AppendHeader(table.Row{
		"Test", "Section", "Result",
		"Base #", "Base T_t", "Base T_v",
		"Unique #", "Unique T_t", "Unique T_v",
		"Speedup_v",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", AutoMerge: true, WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Section", AutoMerge: true},
		{Name: "Base #", Align: text.AlignRight},
		{Name: "Base T_t", Align: text.AlignRight},
		{Name: "Base T_v", Align: text.AlignRight},
		{Name: "Unique #", Align: text.AlignRight},
		{Name: "Unique T_t", Align: text.AlignRight},
		{Name: "Unique T_v", Align: text.AlignRight},
		{Name: "Speedup_v", Align: text.AlignRight},
	})

	rows := 0
	for _, sec := range r.Sections {
		if len(sec.Rows) == 0 {
			continue
		}
		for _, row := range sec.Rows {
			t.AppendRow(table.Row{
				sec.Test, sec.Label, consoleResult(row),
				consoleCell(row.Normal.Count), consoleCell(row.Normal.Wall), consoleCell(row.Normal.Phase),
				consoleCell(row.Unique.Count), consoleCell(row.Unique.Wall), consoleCell(row.Unique.Phase),
				consoleCell(row.Speedup),
			})
			rows++
		}
		t.AppendSeparator()
	}

	t.SetStyle(table.StyleLight)
	t.AppendFooter(table.Row{
		"TOTAL", "", fmt.Sprintf("%d tests", r.Totals.Tests),
		"", r.Totals.NormalWall, r.Totals.NormalPhase,
		"", r.Totals.UniqueWall, r.Totals.UniquePhase,
		consoleCell(r.Totals.Speedup().Cell()),
	})

	if rows == 0 {
		t.AppendRow(table.Row{"(no records)"})
	}
	t.Render()
}
