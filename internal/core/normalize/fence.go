package normalize

import "strings"

const fenceMarker = "```"

// StripFence trims the text and, when it contains a fenced code block,
// returns the content of the first block. An info string on the opening
// fence line (for example "json") is dropped. An unterminated fence yields
// everything after the opening line.
func StripFence(text string) string {
	text = strings.TrimSpace(text)
	start := strings.Index(text, fenceMarker)
	if start < 0 {
		return text
	}

	body := text[start+len(fenceMarker):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		if info := strings.TrimSpace(body[:nl]); isInfoString(info) {
			body = body[nl+1:]
		}
	} else if rest := strings.TrimLeftFunc(body, isLetter); strings.HasPrefix(rest, "{") || strings.HasPrefix(rest, "[") {
		body = rest
	}

	if end := strings.Index(body, fenceMarker); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// isInfoString reports whether the opening fence line is a language tag
// rather than the start of the payload itself.
func isInfoString(value string) bool {
	if value == "" {
		return true
	}
	for _, r := range value {
		if !isLetter(r) && r != '-' && r != '_' && r != '+' {
			return false
		}
	}
	return true
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
