package ailink

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruncateString(t *testing.T) {
	require.Equal(t, "01234567", truncateString("0123456789", 8))
	require.Equal(t, "short", truncateString("short", 1024))
	require.Empty(t, truncateString("anything", 0))

	// never split a multi-byte rune
	require.Equal(t, "ab", truncateString("abé", 3))
}

func TestCaptureRaw(t *testing.T) {
	require.Empty(t, captureRaw(DebugConfig{}, "payload"))

	out := captureRaw(DebugConfig{CaptureRawEnabled: true, CaptureRawMaxBytes: 12}, "line one\nline two\nline three")
	require.Equal(t, "line one lin", out)

	long := strings.Repeat("x", defaultRawCaptureBytes+10)
	require.Len(t, captureRaw(DebugConfig{CaptureRawEnabled: true}, long), defaultRawCaptureBytes)
}
