// Package learning turns educational requests into prompt envelopes and runs
// them through the request orchestrator.
package learning

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tutorlink/tutorlink/internal/ailink/prompt"
	"github.com/tutorlink/tutorlink/internal/core"
	"github.com/tutorlink/tutorlink/internal/core/engine"
	"github.com/tutorlink/tutorlink/internal/metrics"
)

// Prompt slugs used by the service.
const (
	SlugGrade        = "grade-submission"
	SlugExplanation  = "explanation"
	SlugSummary      = "study-summary"
	SlugQuiz         = "quiz"
	SlugFlashcards   = "flashcards"
	SlugTutorChat    = "tutor-chat"
	SlugLessonPlan   = "lesson-plan"
	SlugResources    = "teaching-resources"
	SlugPerformance  = "performance-flags"
	SlugLearningPath = "learning-path"
	SlugStudyGuide   = "study-guide"
)

// Slugs lists every prompt the service renders.
func Slugs() []string {
	return []string{
		SlugGrade, SlugExplanation, SlugSummary, SlugQuiz, SlugFlashcards, SlugTutorChat,
		SlugLessonPlan, SlugResources, SlugPerformance, SlugLearningPath, SlugStudyGuide,
	}
}

// MaxItems caps generated question and card counts.
const MaxItems = 50

// DefaultHistoryTurns is how many prior exchanges tutor chat replays.
const DefaultHistoryTurns = 10

// ErrInvalidRequest marks validation failures that happen before a request
// reaches the orchestrator.
var ErrInvalidRequest = errors.New("invalid request")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Executor runs envelopes. *engine.Orchestrator satisfies it.
type Executor interface {
	Execute(ctx context.Context, env core.Envelope) core.Result
	ExecuteBatch(ctx context.Context, envelopes []core.Envelope, opts ...engine.BatchOption) []core.Result
}

// Service exposes the educational operations.
type Service struct {
	engine   Executor
	prompts  prompt.Registry
	sessions Sessions
	history  int
	logger   Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSessions enables tutor session persistence.
func WithSessions(s Sessions) Option {
	return func(svc *Service) { svc.sessions = s }
}

// WithHistoryTurns sets how many prior exchanges are replayed into chat prompts.
func WithHistoryTurns(n int) Option {
	return func(svc *Service) {
		if n >= 0 {
			svc.history = n
		}
	}
}

// Logger is satisfied by *zap.Logger and the gofulmen logger.
type Logger interface {
	Warn(msg string, fields ...zap.Field)
}

// WithLogger sets the service logger.
func WithLogger(l Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// NewService wires an executor and prompt registry.
func NewService(exec Executor, prompts prompt.Registry, opts ...Option) (*Service, error) {
	if exec == nil {
		return nil, errors.New("executor is required")
	}
	if prompts == nil {
		return nil, errors.New("prompt registry is required")
	}
	svc := &Service{
		engine:  exec,
		prompts: prompts,
		history: DefaultHistoryTurns,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

type request interface {
	slug() string
	vars() (map[string]string, error)
}

func (s *Service) Grade(ctx context.Context, req GradeRequest) (core.Result, error) {
	return s.run(ctx, req)
}

func (s *Service) Explain(ctx context.Context, req ExplanationRequest) (core.Result, error) {
	return s.run(ctx, req)
}

func (s *Service) Summarize(ctx context.Context, req SummaryRequest) (core.Result, error) {
	return s.run(ctx, req)
}

func (s *Service) Quiz(ctx context.Context, req QuizRequest) (core.Result, error) {
	return s.run(ctx, req)
}

func (s *Service) Flashcards(ctx context.Context, req FlashcardRequest) (core.Result, error) {
	return s.run(ctx, req)
}

func (s *Service) LessonPlan(ctx context.Context, req LessonPlanRequest) (core.Result, error) {
	return s.run(ctx, req)
}

func (s *Service) Resources(ctx context.Context, req ResourceRequest) (core.Result, error) {
	return s.run(ctx, req)
}

func (s *Service) Performance(ctx context.Context, req PerformanceRequest) (core.Result, error) {
	return s.run(ctx, req)
}

func (s *Service) LearningPath(ctx context.Context, req LearningPathRequest) (core.Result, error) {
	return s.run(ctx, req)
}

func (s *Service) StudyGuide(ctx context.Context, req StudyGuideRequest) (core.Result, error) {
	return s.run(ctx, req)
}

func (s *Service) run(ctx context.Context, req request) (core.Result, error) {
	env, err := s.envelope(req, nil)
	if err != nil {
		metrics.RecordLearningRequest(req.slug(), outcome(core.Result{}, err))
		return core.Result{}, err
	}
	result := s.engine.Execute(ctx, env)
	metrics.RecordLearningRequest(req.slug(), outcome(result, nil))
	return result, nil
}

func outcome(result core.Result, err error) string {
	switch {
	case err != nil:
		return "invalid"
	case result.Failure != nil:
		return "error"
	case result.Fallback:
		return "fallback"
	default:
		return "ok"
	}
}

// envelope validates req and renders its prompt. extra vars are layered on
// top of the request's own.
func (s *Service) envelope(req request, extra map[string]string) (core.Envelope, error) {
	vars, err := req.vars()
	if err != nil {
		return core.Envelope{}, err
	}
	for key, value := range extra {
		vars[key] = value
	}

	p, err := s.prompts.Get(req.slug())
	if err != nil {
		return core.Envelope{}, fmt.Errorf("load prompt: %w", err)
	}
	env, err := p.Envelope(vars)
	if err != nil {
		return core.Envelope{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return env, nil
}
