package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tutorlink/tutorlink/internal/core"
	"github.com/tutorlink/tutorlink/internal/core/engine"
)

// BatchItem is one heterogeneous request in a batch.
type BatchItem struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params"`
}

type batchKind struct {
	shape  core.Shape
	decode func(json.RawMessage) (request, error)
}

func decodeAs[T request](raw json.RawMessage) (request, error) {
	var req T
	if len(raw) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, invalidf("params: %v", err)
	}
	return req, nil
}

// batchKinds maps batch item types to requests. Tutor chat is excluded
// because it is bound to a session.
var batchKinds = map[string]batchKind{
	"grade":         {core.ShapeScoreFeedback, decodeAs[GradeRequest]},
	"explanation":   {core.ShapeSummary, decodeAs[ExplanationRequest]},
	"summary":       {core.ShapeSummary, decodeAs[SummaryRequest]},
	"quiz":          {core.ShapeQAList, decodeAs[QuizRequest]},
	"flashcards":    {core.ShapeQAList, decodeAs[FlashcardRequest]},
	"lesson_plan":   {core.ShapeSummary, decodeAs[LessonPlanRequest]},
	"resources":     {core.ShapeSummary, decodeAs[ResourceRequest]},
	"performance":   {core.ShapeFlags, decodeAs[PerformanceRequest]},
	"learning_path": {core.ShapeTopicReason, decodeAs[LearningPathRequest]},
	"study_guide":   {core.ShapeSummary, decodeAs[StudyGuideRequest]},
}

// BatchTypes lists the accepted batch item types.
func BatchTypes() []string {
	return []string{"grade", "explanation", "summary", "quiz", "flashcards", "lesson_plan", "resources", "performance", "learning_path", "study_guide"}
}

// Batch runs items concurrently. The output has one result per item in
// input order. Items with an unknown type or bad params fail with
// InvalidInput in their own slot and never reach the remote model.
func (s *Service) Batch(ctx context.Context, items []BatchItem, maxWorkers int) []core.Result {
	results := make([]core.Result, len(items))
	envelopes := make([]core.Envelope, 0, len(items))
	positions := make([]int, 0, len(items))

	for i, item := range items {
		env, shape, err := s.batchEnvelope(item)
		if err != nil {
			failed := core.Failed(shape, core.NewFailure(core.KindInvalidInput, err.Error(), nil))
			failed.Index = i
			results[i] = failed
			continue
		}
		envelopes = append(envelopes, env)
		positions = append(positions, i)
	}

	var opts []engine.BatchOption
	if maxWorkers > 0 {
		opts = append(opts, engine.WithMaxWorkers(maxWorkers))
	}
	for j, result := range s.engine.ExecuteBatch(ctx, envelopes, opts...) {
		result.Index = positions[j]
		results[positions[j]] = result
	}
	return results
}

func (s *Service) batchEnvelope(item BatchItem) (core.Envelope, core.Shape, error) {
	typ := strings.ToLower(strings.TrimSpace(item.Type))
	kind, ok := batchKinds[typ]
	if !ok {
		return core.Envelope{}, "", fmt.Errorf("unknown batch item type %q", item.Type)
	}
	req, err := kind.decode(item.Params)
	if err != nil {
		return core.Envelope{}, kind.shape, err
	}
	env, err := s.envelope(req, nil)
	if err != nil {
		return core.Envelope{}, kind.shape, err
	}
	return env, kind.shape, nil
}
