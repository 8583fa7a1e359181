package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/tutorlink/tutorlink/internal/core"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatResults renders results as a table followed by per-item details.
func (f *TableFormatter) FormatResults(results []core.Result) (string, error) {
	if len(results) == 0 {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Shape", "Status", "Summary", "Notes"})

	for i, r := range results {
		t.AppendRow(table.Row{
			fmt.Sprintf("%d", i),
			string(r.Shape),
			statusLabel(r),
			truncate(summaryLine(r), 60),
			truncate(formatNotes(r), 48),
		})
	}

	t.AppendFooter(table.Row{"", "", Count(results).String(), "", ""})

	rendered := t.Render()
	rendered += renderDetailSections(detailSections(results), false)
	return rendered, nil
}
