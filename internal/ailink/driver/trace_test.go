package driver

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactURL(t *testing.T) {
	require.Equal(t,
		"https://example.test/v1beta/models/m:generateContent?key=REDACTED",
		RedactURL("https://example.test/v1beta/models/m:generateContent?key=secret"),
	)
	require.Equal(t, "https://example.test/chat", RedactURL("https://example.test/chat"))
}

func TestTraceWritesNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.ndjson")
	stop, err := EnableTracing(path)
	require.NoError(t, err)

	Trace(TraceEntry{
		Driver:      "gemini",
		Endpoint:    "https://example.test/x?key=secret",
		RequestBody: []byte(`{"a":1}`),
		Response:    []byte("not json"),
		StatusCode:  200,
	})
	stop()
	Trace(TraceEntry{Driver: "after-stop"})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() // nolint:errcheck // test cleanup

	var lines []TraceEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry TraceEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		lines = append(lines, entry)
	}
	require.Len(t, lines, 1)
	require.Equal(t, "gemini", lines[0].Driver)
	require.NotContains(t, lines[0].Endpoint, "secret")
	require.JSONEq(t, `"not json"`, string(lines[0].Response))
	require.False(t, lines[0].Timestamp.IsZero())
}
