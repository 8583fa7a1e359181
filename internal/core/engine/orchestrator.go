package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tutorlink/tutorlink/internal/core"
	"github.com/tutorlink/tutorlink/internal/core/normalize"
	"github.com/tutorlink/tutorlink/internal/metrics"
)

const (
	DefaultTimeout           = 30 * time.Second
	DefaultMaxWorkers        = 4
	DefaultRequestsPerMinute = 60
)

// ErrNilAdapter is returned when no adapter is supplied.
var ErrNilAdapter = errors.New("adapter is required")

// Adapter submits a prompt to the text provider and returns its raw text.
type Adapter interface {
	Send(ctx context.Context, prompt string) (string, error)
}

// AdapterFunc adapts a function to Adapter.
type AdapterFunc func(ctx context.Context, prompt string) (string, error)

func (f AdapterFunc) Send(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Logger is the subset of *zap.Logger the orchestrator uses.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// ResultCache stores genuine successes keyed by envelope.
type ResultCache interface {
	Lookup(ctx context.Context, env core.Envelope) (core.Payload, bool, error)
	Store(ctx context.Context, env core.Envelope, payload core.Payload, ttl time.Duration) error
}

// Options configures an Orchestrator.
type Options struct {
	RequestsPerMinute int
	Timeout           time.Duration
	MaxWorkers        int
	Cache             ResultCache
	CacheTTL          time.Duration
	Logger            Logger
	Clock             func() time.Time
}

// Orchestrator runs envelopes through the throttle, the adapter and the
// normalizer. It is safe for concurrent use.
type Orchestrator struct {
	adapter    Adapter
	gate       *Gate
	timeout    time.Duration
	maxWorkers int
	cache      ResultCache
	cacheTTL   time.Duration
	logger     Logger
	clock      func() time.Time
}

// New builds an orchestrator around adapter.
func New(adapter Adapter, opts Options) (*Orchestrator, error) {
	if adapter == nil {
		return nil, ErrNilAdapter
	}
	gate, err := NewGate(opts.RequestsPerMinute)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		adapter:    adapter,
		gate:       gate,
		timeout:    opts.Timeout,
		maxWorkers: opts.MaxWorkers,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		logger:     opts.Logger,
		clock:      opts.Clock,
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}
	if o.maxWorkers <= 0 {
		o.maxWorkers = DefaultMaxWorkers
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o, nil
}

// Gate exposes the throttle shared by every call on this orchestrator.
func (o *Orchestrator) Gate() *Gate {
	return o.gate
}

// MaxWorkers is the default batch concurrency.
func (o *Orchestrator) MaxWorkers() int {
	return o.maxWorkers
}

// Execute runs one envelope. It always returns a Result; provider and
// parsing problems are reported inside it, never as a panic.
func (o *Orchestrator) Execute(ctx context.Context, env core.Envelope) (result core.Result) {
	if ctx == nil {
		ctx = context.Background()
	}
	started := o.now()

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordPanic()
			result = core.Failed(env.Shape, core.NewFailure(core.KindRemoteUnavailable, fmt.Sprintf("internal error: %v", r), nil))
		}
		o.observe(env, result, started)
	}()

	if failure := env.Validate(); failure != nil {
		return core.Failed(env.Shape, failure)
	}

	if payload, ok := o.lookup(ctx, env); ok {
		return core.Success(env.Shape, payload)
	}

	waited, err := o.gate.Acquire(ctx)
	if err != nil {
		return core.Failed(env.Shape, core.NewFailure(core.KindRemoteUnavailable, fmt.Sprintf("throttle: %v", err), nil))
	}
	metrics.RecordThrottleWait(waited)

	raw, err := o.send(ctx, env)
	if err != nil {
		return core.Failed(env.Shape, core.NewFailure(core.KindRemoteUnavailable, describeRemoteError(err), nil))
	}

	normalized := normalize.Normalize(raw, env.Shape)
	if normalized.OK() {
		o.store(ctx, env, normalized.Payload)
		return normalized
	}
	if !normalized.Failure.Degradable() {
		return normalized
	}

	degraded := core.Success(env.Shape, FallbackPayload(env.Shape))
	degraded.Fallback = true
	degraded.Degradation = normalized.Failure
	return degraded
}

func (o *Orchestrator) send(ctx context.Context, env core.Envelope) (raw string, err error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	started := o.now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter panic: %v", r)
		}
		metrics.RecordRemoteCall(string(env.Shape), err == nil, o.now().Sub(started))
	}()

	return o.adapter.Send(callCtx, env.Prompt)
}

func (o *Orchestrator) lookup(ctx context.Context, env core.Envelope) (core.Payload, bool) {
	if o.cache == nil {
		return nil, false
	}
	payload, ok, err := o.cache.Lookup(ctx, env)
	if err != nil {
		o.logger.Warn("Result cache lookup failed", zap.String("shape", string(env.Shape)), zap.Error(err))
		return nil, false
	}
	hit := ok && payload != nil && payload.Shape() == env.Shape
	metrics.RecordCacheLookup(cacheBackend(o.cache), hit)
	if !hit {
		return nil, false
	}
	return payload, true
}

// cacheBackend labels cache metrics; caches may name themselves.
func cacheBackend(c ResultCache) string {
	if named, ok := c.(interface{ Backend() string }); ok {
		return named.Backend()
	}
	return "custom"
}

func (o *Orchestrator) store(ctx context.Context, env core.Envelope, payload core.Payload) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Store(ctx, env, payload, o.cacheTTL); err != nil {
		o.logger.Warn("Result cache store failed", zap.String("shape", string(env.Shape)), zap.Error(err))
	}
}

func (o *Orchestrator) observe(env core.Envelope, result core.Result, started time.Time) {
	kind := ""
	switch {
	case result.Failure != nil:
		kind = string(result.Failure.Kind)
	case result.Degradation != nil:
		kind = string(result.Degradation.Kind)
	}
	metrics.RecordOrchestration(string(env.Shape), string(result.Status), result.Fallback, kind)

	fields := []zap.Field{
		zap.String("shape", string(env.Shape)),
		zap.String("status", string(result.Status)),
		zap.Duration("elapsed", o.now().Sub(started)),
	}
	switch {
	case result.Failure != nil:
		o.logger.Warn("Request failed", append(fields, zap.String("kind", kind), zap.String("reason", result.Failure.Message))...)
	case result.Fallback:
		o.logger.Warn("Using fallback payload", append(fields, zap.String("kind", kind), zap.String("reason", result.Degradation.Message))...)
	default:
		o.logger.Debug("Request completed", fields...)
	}
}

func (o *Orchestrator) now() time.Time {
	if o != nil && o.clock != nil {
		return o.clock()
	}
	return time.Now()
}

// codedError is implemented by adapter errors that carry a classification.
type codedError interface {
	ErrorCode() string
}

func describeRemoteError(err error) string {
	var coded codedError
	if errors.As(err, &coded) && coded.ErrorCode() != "" {
		return fmt.Sprintf("%s: %v", coded.ErrorCode(), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("timeout: %v", err)
	}
	return err.Error()
}
