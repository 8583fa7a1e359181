package output

import (
	"fmt"
	"strings"

	"github.com/tutorlink/tutorlink/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders orchestration results.
type Formatter interface {
	FormatResults(results []core.Result) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// FormatResults renders results using the requested format.
func FormatResults(format Format, results []core.Result) (string, error) {
	return NewFormatter(format).FormatResults(results)
}

// Tally counts results by outcome.
type Tally struct {
	Total    int
	Success  int
	Fallback int
	Failed   int
}

// Count tallies results. Fallback successes are counted apart from genuine ones.
func Count(results []core.Result) Tally {
	t := Tally{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Status != core.StatusSuccess:
			t.Failed++
		case r.Fallback:
			t.Fallback++
		default:
			t.Success++
		}
	}
	return t
}

func (t Tally) String() string {
	summary := fmt.Sprintf("%d/%d succeeded", t.Success, t.Total)
	if t.Fallback > 0 {
		summary += fmt.Sprintf(", %d fallback", t.Fallback)
	}
	if t.Failed > 0 {
		summary += fmt.Sprintf(", %d failed", t.Failed)
	}
	return summary
}
