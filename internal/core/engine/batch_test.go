package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlink/tutorlink/internal/core"
)

func TestExecuteBatchEmpty(t *testing.T) {
	o := newTestOrchestrator(t, &stubAdapter{}, Options{})

	results := o.ExecuteBatch(context.Background(), nil)
	require.NotNil(t, results)
	require.Empty(t, results)
}

func TestExecuteBatchPreservesOrder(t *testing.T) {
	adapter := &stubAdapter{}
	o := newTestOrchestrator(t, adapter, Options{})

	envelopes := make([]core.Envelope, 20)
	for i := range envelopes {
		envelopes[i] = core.Envelope{Prompt: fmt.Sprintf("item-%02d", i), Shape: core.ShapeSummary}
	}

	results := o.ExecuteBatch(context.Background(), envelopes, WithMaxWorkers(5))
	require.Len(t, results, len(envelopes))
	for i, result := range results {
		require.True(t, result.OK(), i)
		require.Equal(t, i, result.Index)
		require.Equal(t, "echo: "+envelopes[i].Prompt, result.Payload.(core.Summary).Summary)
	}
	require.Equal(t, len(envelopes), adapter.calls())
}

func TestExecuteBatchIsolatesFailures(t *testing.T) {
	adapter := &stubAdapter{
		responses: map[string]string{
			"grade":   `{"score": 1.4, "feedback": "x"}`,
			"garbled": `I cannot help with that`,
		},
		failures: map[string]error{"down": errors.New("503 service unavailable")},
	}
	o := newTestOrchestrator(t, adapter, Options{})

	envelopes := []core.Envelope{
		{Prompt: "grade", Shape: core.ShapeScoreFeedback},
		{Prompt: "down", Shape: core.ShapeSummary},
		{Prompt: "", Shape: core.ShapeSummary},
		{Prompt: "garbled", Shape: core.ShapeQAList},
		{Prompt: "plain", Shape: core.ShapeSummary},
	}
	results := o.ExecuteBatch(context.Background(), envelopes)
	require.Len(t, results, 5)

	require.True(t, results[0].OK())
	require.Equal(t, 1.0, *results[0].Payload.(core.Grade).Score)

	require.Equal(t, core.KindRemoteUnavailable, results[1].Failure.Kind)
	require.Equal(t, core.KindInvalidInput, results[2].Failure.Kind)

	require.True(t, results[3].Fallback)
	require.Empty(t, results[3].Payload.(core.QAList).Items)

	require.True(t, results[4].OK())
	require.False(t, results[4].Fallback)

	// the invalid envelope never reached the adapter
	require.Equal(t, 4, adapter.calls())
}

func TestExecuteBatchPanicStaysInItsSlot(t *testing.T) {
	adapter := AdapterFunc(func(ctx context.Context, prompt string) (string, error) {
		if prompt == "explode" {
			panic("kaboom")
		}
		return `{"flags":{"ok":true}}`, nil
	})
	o := newTestOrchestrator(t, adapter, Options{})

	results := o.ExecuteBatch(context.Background(), []core.Envelope{
		{Prompt: "a", Shape: core.ShapeFlags},
		{Prompt: "explode", Shape: core.ShapeFlags},
		{Prompt: "b", Shape: core.ShapeFlags},
	})
	require.True(t, results[0].OK())
	require.Equal(t, core.KindRemoteUnavailable, results[1].Failure.Kind)
	require.True(t, results[2].OK())
}

func TestExecuteBatchBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	adapter := AdapterFunc(func(ctx context.Context, prompt string) (string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return `{"summary":"ok"}`, nil
	})
	o := newTestOrchestrator(t, adapter, Options{MaxWorkers: 3})

	envelopes := make([]core.Envelope, 12)
	for i := range envelopes {
		envelopes[i] = core.Envelope{Prompt: fmt.Sprintf("p%d", i), Shape: core.ShapeSummary}
	}
	results := o.ExecuteBatch(context.Background(), envelopes)
	require.Len(t, results, 12)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestExecuteBatchCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	var started atomic.Int32
	adapter := AdapterFunc(func(callCtx context.Context, prompt string) (string, error) {
		if started.Add(1) == 1 {
			cancel()
			<-release
		}
		if callCtx.Err() != nil {
			return "", callCtx.Err()
		}
		return `{"summary":"done"}`, nil
	})
	o := newTestOrchestrator(t, adapter, Options{})

	envelopes := make([]core.Envelope, 6)
	for i := range envelopes {
		envelopes[i] = core.Envelope{Prompt: fmt.Sprintf("p%d", i), Shape: core.ShapeSummary}
	}

	done := make(chan []core.Result)
	go func() {
		done <- o.ExecuteBatch(ctx, envelopes, WithMaxWorkers(1))
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	results := <-done

	require.Len(t, results, 6)
	// the claimed item ran to completion despite the cancel
	require.True(t, results[0].OK())

	canceled := 0
	for _, result := range results[1:] {
		if result.Failure != nil && result.Failure.Kind == core.KindCanceled {
			canceled++
		}
	}
	require.GreaterOrEqual(t, canceled, 4)
}
