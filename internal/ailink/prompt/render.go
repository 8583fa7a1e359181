package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tutorlink/tutorlink/internal/core"
)

// Shape returns the result shape the prompt asks for.
func (p *Prompt) Shape() core.Shape {
	return core.Shape(strings.ToLower(strings.TrimSpace(p.Config.Shape)))
}

// Render fills the template with vars. Defaults apply to variables that are
// missing or blank. Every required variable must end up non-blank.
func (p *Prompt) Render(vars map[string]string) (string, error) {
	if p == nil {
		return "", fmt.Errorf("prompt is required")
	}

	merged := make(map[string]string, len(vars)+len(p.Config.Defaults))
	for key, value := range p.Config.Defaults {
		merged[key] = value
	}
	for key, value := range vars {
		if strings.TrimSpace(value) == "" {
			continue
		}
		merged[key] = value
	}

	for _, name := range p.Config.Input.OptionalVariables {
		if _, ok := merged[name]; !ok {
			merged[name] = ""
		}
	}

	var missing []string
	for _, name := range p.Config.Input.RequiredVariables {
		if strings.TrimSpace(merged[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("prompt %s: missing required variables: %s", p.Config.Slug, strings.Join(missing, ", "))
	}

	out := applyConditionals(p.Config.Template, merged)
	out = applyVars(out, merged)
	return strings.TrimSpace(out), nil
}

// Envelope renders the prompt and pairs it with its shape.
func (p *Prompt) Envelope(vars map[string]string) (core.Envelope, error) {
	text, err := p.Render(vars)
	if err != nil {
		return core.Envelope{}, err
	}
	return core.Envelope{Prompt: text, Shape: p.Shape()}, nil
}

// applyVars substitutes {{name}} placeholders in one pass, so values that
// themselves contain braces are never expanded. Unknown placeholders stay.
func applyVars(template string, vars map[string]string) string {
	var b strings.Builder
	rest := template
	for {
		open := strings.Index(rest, "{{")
		if open == -1 {
			break
		}
		end := strings.Index(rest[open:], "}}")
		if end == -1 {
			break
		}
		end += open

		if value, ok := vars[strings.TrimSpace(rest[open+2:end])]; ok {
			b.WriteString(rest[:open])
			b.WriteString(value)
		} else {
			b.WriteString(rest[:end+2])
		}
		rest = rest[end+2:]
	}
	b.WriteString(rest)
	return b.String()
}

// applyConditionals handles {{#if var}}content{{else}}fallback{{/if}} blocks.
// If the variable exists and is non-empty, the content is included; otherwise the fallback is used.
func applyConditionals(template string, vars map[string]string) string {
	result := template
	for {
		start := strings.Index(result, "{{#if")
		if start == -1 {
			break
		}
		tagEnd := strings.Index(result[start:], "}}")
		if tagEnd == -1 {
			break
		}
		tagEnd += start

		varName := strings.TrimSpace(result[start+len("{{#if") : tagEnd])
		blockStart := tagEnd + 2

		elseStart, elseEnd, endStart, endEnd := findConditionalBlock(result, blockStart)
		if endStart == -1 {
			break
		}

		ifContent := result[blockStart:endStart]
		elseContent := ""
		if elseStart != -1 {
			ifContent = result[blockStart:elseStart]
			elseContent = result[elseEnd:endStart]
		}

		replacement := elseContent
		if strings.TrimSpace(vars[varName]) != "" {
			replacement = ifContent
		}

		result = result[:start] + replacement + result[endEnd:]
	}
	return result
}

func findConditionalBlock(input string, start int) (int, int, int, int) {
	depth := 0
	elseStart := -1
	elseEnd := -1

	pos := start
	for {
		openIdx := strings.Index(input[pos:], "{{")
		if openIdx == -1 {
			return -1, -1, -1, -1
		}
		openIdx += pos

		closeIdx := strings.Index(input[openIdx:], "}}")
		if closeIdx == -1 {
			return -1, -1, -1, -1
		}
		closeIdx += openIdx

		tag := strings.TrimSpace(input[openIdx+2 : closeIdx])
		switch {
		case tag == "#if" || strings.HasPrefix(tag, "#if "):
			depth++
		case tag == "/if":
			if depth == 0 {
				return elseStart, elseEnd, openIdx, closeIdx + 2
			}
			depth--
		case tag == "else" && depth == 0 && elseStart == -1:
			elseStart = openIdx
			elseEnd = closeIdx + 2
		}

		pos = closeIdx + 2
	}
}
