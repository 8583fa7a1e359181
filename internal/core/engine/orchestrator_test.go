package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tutorlink/tutorlink/internal/core"
)

// stubAdapter answers prompts from a table and records what it saw.
type stubAdapter struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	seen      []string
}

func (s *stubAdapter) Send(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.seen = append(s.seen, prompt)
	s.mu.Unlock()

	if err, ok := s.failures[prompt]; ok {
		return "", err
	}
	if resp, ok := s.responses[prompt]; ok {
		return resp, nil
	}
	return `{"summary":"echo: ` + prompt + `"}`, nil
}

func (s *stubAdapter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

type codedErr struct{ code string }

func (e codedErr) Error() string     { return "provider said no" }
func (e codedErr) ErrorCode() string { return e.code }

func newTestOrchestrator(t *testing.T, adapter Adapter, opts Options) *Orchestrator {
	t.Helper()
	if opts.RequestsPerMinute == 0 {
		opts.RequestsPerMinute = 60000
	}
	opts.Logger = zaptest.NewLogger(t)
	o, err := New(adapter, opts)
	require.NoError(t, err)
	return o
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := New(nil, Options{RequestsPerMinute: 60})
	require.ErrorIs(t, err, ErrNilAdapter)

	_, err = New(&stubAdapter{}, Options{RequestsPerMinute: 0})
	require.ErrorIs(t, err, ErrInvalidRateLimit)

	o, err := New(&stubAdapter{}, Options{RequestsPerMinute: 60})
	require.NoError(t, err)
	require.Equal(t, DefaultMaxWorkers, o.MaxWorkers())
	require.Equal(t, DefaultTimeout, o.timeout)
}

func TestExecuteSuccess(t *testing.T) {
	adapter := &stubAdapter{responses: map[string]string{
		"grade": "```json\n{\"score\": 0.8, \"feedback\": \"Nice work\"}\n```",
	}}
	o := newTestOrchestrator(t, adapter, Options{})

	result := o.Execute(context.Background(), core.Envelope{Prompt: "grade", Shape: core.ShapeScoreFeedback})
	require.True(t, result.OK())
	require.False(t, result.Fallback)
	require.Nil(t, result.Failure)

	grade := result.Payload.(core.Grade)
	require.InDelta(t, 0.8, *grade.Score, 1e-9)
	require.Equal(t, "Nice work", grade.Feedback)
}

func TestExecuteMalformedUsesFallback(t *testing.T) {
	adapter := &stubAdapter{responses: map[string]string{"p": "I cannot help with that"}}
	o := newTestOrchestrator(t, adapter, Options{})

	result := o.Execute(context.Background(), core.Envelope{Prompt: "p", Shape: core.ShapeScoreFeedback})
	require.Equal(t, core.StatusSuccess, result.Status)
	require.True(t, result.Fallback)
	require.NotNil(t, result.Degradation)
	require.Equal(t, core.KindMalformedOutput, result.Degradation.Kind)
	require.Equal(t, "I cannot help with that", *result.Degradation.Raw)

	grade := result.Payload.(core.Grade)
	require.Equal(t, FallbackScore, *grade.Score)
	require.Equal(t, FallbackFeedback, grade.Feedback)
}

func TestExecuteSchemaMismatchFallbackPerShape(t *testing.T) {
	adapter := &stubAdapter{responses: map[string]string{"p": `{"unexpected": true}`}}
	o := newTestOrchestrator(t, adapter, Options{})

	for _, shape := range []core.Shape{core.ShapeTopicReason, core.ShapeSummary, core.ShapeFlags, core.ShapeQAList} {
		result := o.Execute(context.Background(), core.Envelope{Prompt: "p", Shape: shape})
		require.True(t, result.OK(), shape)
		require.True(t, result.Fallback, shape)
		require.Equal(t, core.KindSchemaMismatch, result.Degradation.Kind, shape)
		require.Equal(t, FallbackPayload(shape), result.Payload, shape)
	}
}

func TestExecuteRemoteFailureIsNotDegraded(t *testing.T) {
	adapter := &stubAdapter{failures: map[string]error{
		"down":    errors.New("connection refused"),
		"limited": codedErr{code: "AILINK_PROVIDER_RATE_LIMIT"},
	}}
	o := newTestOrchestrator(t, adapter, Options{})

	result := o.Execute(context.Background(), core.Envelope{Prompt: "down", Shape: core.ShapeSummary})
	require.Equal(t, core.StatusFailure, result.Status)
	require.Nil(t, result.Payload)
	require.False(t, result.Fallback)
	require.Equal(t, core.KindRemoteUnavailable, result.Failure.Kind)
	require.Contains(t, result.Failure.Message, "connection refused")

	result = o.Execute(context.Background(), core.Envelope{Prompt: "limited", Shape: core.ShapeSummary})
	require.Equal(t, core.KindRemoteUnavailable, result.Failure.Kind)
	require.True(t, strings.HasPrefix(result.Failure.Message, "AILINK_PROVIDER_RATE_LIMIT"))
}

func TestExecuteTimeout(t *testing.T) {
	adapter := AdapterFunc(func(ctx context.Context, prompt string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	o := newTestOrchestrator(t, adapter, Options{Timeout: 20 * time.Millisecond})

	result := o.Execute(context.Background(), core.Envelope{Prompt: "slow", Shape: core.ShapeSummary})
	require.Equal(t, core.KindRemoteUnavailable, result.Failure.Kind)
	require.Contains(t, result.Failure.Message, "timeout")
}

func TestExecuteAdapterPanic(t *testing.T) {
	adapter := AdapterFunc(func(ctx context.Context, prompt string) (string, error) {
		panic("boom")
	})
	o := newTestOrchestrator(t, adapter, Options{})

	result := o.Execute(context.Background(), core.Envelope{Prompt: "p", Shape: core.ShapeFlags})
	require.Equal(t, core.KindRemoteUnavailable, result.Failure.Kind)
	require.Contains(t, result.Failure.Message, "boom")
}

func TestExecuteInvalidEnvelope(t *testing.T) {
	adapter := &stubAdapter{}
	o := newTestOrchestrator(t, adapter, Options{})

	result := o.Execute(context.Background(), core.Envelope{Prompt: "  ", Shape: core.ShapeSummary})
	require.Equal(t, core.KindInvalidInput, result.Failure.Kind)

	result = o.Execute(context.Background(), core.Envelope{Prompt: "p", Shape: "essay"})
	require.Equal(t, core.KindInvalidInput, result.Failure.Kind)
	require.Zero(t, adapter.calls())
}

func TestExecuteSequentialCallsAreSpaced(t *testing.T) {
	o := newTestOrchestrator(t, &stubAdapter{}, Options{RequestsPerMinute: 60})

	started := time.Now()
	first := o.Execute(context.Background(), core.Envelope{Prompt: "a", Shape: core.ShapeSummary})
	second := o.Execute(context.Background(), core.Envelope{Prompt: "b", Shape: core.ShapeSummary})
	require.True(t, first.OK())
	require.True(t, second.OK())
	require.GreaterOrEqual(t, time.Since(started), time.Second)
}

func TestExecuteCanceledWhileThrottled(t *testing.T) {
	o := newTestOrchestrator(t, &stubAdapter{}, Options{RequestsPerMinute: 1})
	require.True(t, o.Execute(context.Background(), core.Envelope{Prompt: "a", Shape: core.ShapeSummary}).OK())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	result := o.Execute(ctx, core.Envelope{Prompt: "b", Shape: core.ShapeSummary})
	require.Equal(t, core.KindRemoteUnavailable, result.Failure.Kind)
	require.Contains(t, result.Failure.Message, "throttle")
}

// memoryCache is a ResultCache backed by a map.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]core.Payload
}

func (m *memoryCache) Lookup(ctx context.Context, env core.Envelope) (core.Payload, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.entries[core.EnvelopeKey(env)]
	return payload, ok, nil
}

func (m *memoryCache) Store(ctx context.Context, env core.Envelope, payload core.Payload, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]core.Payload)
	}
	m.entries[core.EnvelopeKey(env)] = payload
	return nil
}

func TestExecuteCachesOnlyGenuineSuccess(t *testing.T) {
	adapter := &stubAdapter{responses: map[string]string{
		"good": `{"topic":"Fractions","reason":"practice"}`,
		"bad":  `not json`,
	}}
	cache := &memoryCache{}
	o := newTestOrchestrator(t, adapter, Options{Cache: cache, CacheTTL: time.Hour})

	good := core.Envelope{Prompt: "good", Shape: core.ShapeTopicReason}
	bad := core.Envelope{Prompt: "bad", Shape: core.ShapeTopicReason}

	require.True(t, o.Execute(context.Background(), good).OK())
	require.True(t, o.Execute(context.Background(), good).OK())
	require.True(t, o.Execute(context.Background(), bad).Fallback)
	require.True(t, o.Execute(context.Background(), bad).Fallback)

	require.Equal(t, 3, adapter.calls())
	require.Len(t, cache.entries, 1)
}
