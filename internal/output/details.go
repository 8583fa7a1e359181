package output

import (
	"fmt"
	"strings"

	"github.com/tutorlink/tutorlink/internal/core"
)

type detailSection struct {
	Title string
	Lines []string
}

// detailSections expands payloads that do not fit a table cell.
func detailSections(results []core.Result) []detailSection {
	sections := make([]detailSection, 0)
	for i, r := range results {
		if section, ok := resultDetail(i, r); ok {
			sections = append(sections, section)
		}
	}
	return sections
}

func resultDetail(index int, r core.Result) (detailSection, bool) {
	switch p := r.Payload.(type) {
	case core.QAList:
		if len(p.Items) == 0 {
			return detailSection{}, false
		}
		lines := make([]string, 0, len(p.Items))
		for n, item := range p.Items {
			line := fmt.Sprintf("Q%d: %s -> %s", n+1, item.Question, item.Answer)
			if len(item.Options) > 0 {
				line += fmt.Sprintf(" [%s]", strings.Join(item.Options, " / "))
			}
			lines = append(lines, line)
		}
		return detailSection{Title: fmt.Sprintf("Item %d questions", index), Lines: lines}, true
	case core.Summary:
		if len(p.Points) == 0 {
			return detailSection{}, false
		}
		return detailSection{Title: fmt.Sprintf("Item %d key points", index), Lines: p.Points}, true
	case core.Grade:
		if len(p.Feedback) <= 60 {
			return detailSection{}, false
		}
		return detailSection{Title: fmt.Sprintf("Item %d feedback", index), Lines: []string{p.Feedback}}, true
	default:
		return detailSection{}, false
	}
}

func renderDetailSections(sections []detailSection, markdown bool) string {
	if len(sections) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, section := range sections {
		if i > 0 {
			sb.WriteString("\n")
		}
		if markdown {
			sb.WriteString(fmt.Sprintf("\n\n### %s\n", section.Title))
			for _, line := range section.Lines {
				sb.WriteString(fmt.Sprintf("- %s\n", line))
			}
		} else {
			sb.WriteString(fmt.Sprintf("\n\n%s:\n", section.Title))
			for _, line := range section.Lines {
				sb.WriteString(fmt.Sprintf("  %s\n", line))
			}
		}
	}
	return sb.String()
}
