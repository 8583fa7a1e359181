package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tutorlink/tutorlink/internal/core"
)

func statusLabel(r core.Result) string {
	switch {
	case r.Status != core.StatusSuccess:
		if r.Failure != nil {
			return "failed: " + string(r.Failure.Kind)
		}
		return "failed"
	case r.Fallback:
		return "fallback"
	default:
		return "ok"
	}
}

// summaryLine condenses a payload to one line.
func summaryLine(r core.Result) string {
	switch p := r.Payload.(type) {
	case core.Grade:
		score := "n/a"
		if p.Score != nil {
			score = fmt.Sprintf("%.2f", *p.Score)
		}
		return fmt.Sprintf("score %s: %s", score, p.Feedback)
	case core.QAList:
		return fmt.Sprintf("%d items", len(p.Items))
	case core.Recommendation:
		return p.Topic
	case core.Summary:
		return p.Summary
	case core.Flags:
		raised := raisedFlags(p)
		if len(raised) == 0 {
			return "no flags raised"
		}
		return strings.Join(raised, ", ")
	default:
		return ""
	}
}

func formatNotes(r core.Result) string {
	notes := make([]string, 0, 2)
	if r.Failure != nil && strings.TrimSpace(r.Failure.Message) != "" {
		notes = append(notes, r.Failure.Message)
	}
	if r.Degradation != nil {
		notes = append(notes, "degraded: "+string(r.Degradation.Kind))
	}
	if rec, ok := r.Payload.(core.Recommendation); ok && strings.TrimSpace(rec.Reason) != "" {
		notes = append(notes, rec.Reason)
	}
	return strings.Join(notes, "; ")
}

func raisedFlags(f core.Flags) []string {
	raised := make([]string, 0, len(f.Flags))
	for name, set := range f.Flags {
		if set {
			raised = append(raised, name)
		}
	}
	sort.Strings(raised)
	return raised
}

func truncate(value string, max int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if max <= 3 || len(runes) <= max {
		return value
	}
	return string(runes[:max-3]) + "..."
}
