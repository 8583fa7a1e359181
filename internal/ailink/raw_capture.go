package ailink

import (
	"strings"
	"unicode/utf8"
)

const defaultRawCaptureBytes = 2048

// captureRaw returns the provider text trimmed for logging, or "" when
// capture is disabled.
func captureRaw(cfg DebugConfig, raw string) string {
	if !cfg.CaptureRawEnabled {
		return ""
	}
	limit := cfg.CaptureRawMaxBytes
	if limit <= 0 {
		limit = defaultRawCaptureBytes
	}
	return safeOneLine(truncateString(raw, limit))
}

// truncateString cuts s to at most max bytes without splitting a rune.
func truncateString(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func safeOneLine(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}
