package engine

import "github.com/tutorlink/tutorlink/internal/core"

const (
	FallbackScore    = 0.5
	FallbackFeedback = "Thanks for your answer! We couldn't generate detailed feedback right now, but keep going: review the question once more and try to explain your reasoning step by step."
	FallbackTopic    = "Review fundamentals"
	FallbackReason   = "A personalized recommendation is not available right now. Revisiting the core concepts is a solid next step."
	FallbackSummary  = "This content is temporarily unavailable. Please try again shortly."
)

// FallbackPayload returns the fixed payload substituted when a provider
// response cannot be normalized. The same shape always yields the same
// payload.
func FallbackPayload(shape core.Shape) core.Payload {
	switch shape {
	case core.ShapeScoreFeedback:
		score := FallbackScore
		return core.Grade{Score: &score, Feedback: FallbackFeedback}
	case core.ShapeQAList:
		return core.QAList{Items: []core.QAItem{}}
	case core.ShapeTopicReason:
		return core.Recommendation{Topic: FallbackTopic, Reason: FallbackReason}
	case core.ShapeSummary:
		return core.Summary{Summary: FallbackSummary}
	case core.ShapeFlags:
		return core.Flags{Flags: map[string]bool{}}
	default:
		return nil
	}
}
