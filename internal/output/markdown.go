package output

import (
	"fmt"
	"strings"

	"github.com/tutorlink/tutorlink/internal/core"
)

// MarkdownFormatter renders results as a markdown table.
type MarkdownFormatter struct{}

// FormatResults renders results as Markdown.
func (f *MarkdownFormatter) FormatResults(results []core.Result) (string, error) {
	if len(results) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## Results\n\n")
	sb.WriteString("| # | Shape | Status | Summary | Notes |\n")
	sb.WriteString("|---|-------|--------|---------|-------|\n")

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i,
			escapeMarkdownCell(string(r.Shape)),
			escapeMarkdownCell(statusLabel(r)),
			escapeMarkdownCell(summaryLine(r)),
			escapeMarkdownCell(formatNotes(r)),
		))
	}

	sb.WriteString(fmt.Sprintf("\n**Outcome**: %s\n", Count(results)))
	sb.WriteString(renderDetailSections(detailSections(results), true))
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.ReplaceAll(value, "|", "\\|")
}
