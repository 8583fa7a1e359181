package core

import (
	"encoding/json"
	"fmt"
)

// Payload is a validated, shape-specific record.
type Payload interface {
	Shape() Shape
}

// Grade is the score_feedback payload. Score is nil when the provider
// returned no score.
type Grade struct {
	Score    *float64 `json:"score"`
	Feedback string   `json:"feedback"`
}

func (Grade) Shape() Shape { return ShapeScoreFeedback }

// QAItem is one question/answer pair.
type QAItem struct {
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	Options     []string `json:"options,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// QAList is the qa_list payload.
type QAList struct {
	Items []QAItem `json:"items"`
}

func (QAList) Shape() Shape { return ShapeQAList }

// Recommendation is the topic_reason payload.
type Recommendation struct {
	Topic  string `json:"topic"`
	Reason string `json:"reason"`
}

func (Recommendation) Shape() Shape { return ShapeTopicReason }

// Summary is the summary payload.
type Summary struct {
	Summary string   `json:"summary"`
	Points  []string `json:"points,omitempty"`
}

func (Summary) Shape() Shape { return ShapeSummary }

// Flags is the flags payload.
type Flags struct {
	Flags map[string]bool `json:"flags"`
}

func (Flags) Shape() Shape { return ShapeFlags }

// DecodePayload rebuilds a payload from its JSON encoding.
func DecodePayload(shape Shape, data []byte) (Payload, error) {
	var (
		payload Payload
		err     error
	)
	switch shape {
	case ShapeScoreFeedback:
		var v Grade
		err = json.Unmarshal(data, &v)
		payload = v
	case ShapeQAList:
		var v QAList
		err = json.Unmarshal(data, &v)
		payload = v
	case ShapeTopicReason:
		var v Recommendation
		err = json.Unmarshal(data, &v)
		payload = v
	case ShapeSummary:
		var v Summary
		err = json.Unmarshal(data, &v)
		payload = v
	case ShapeFlags:
		var v Flags
		err = json.Unmarshal(data, &v)
		payload = v
	default:
		return nil, fmt.Errorf("unknown shape %q", shape)
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}
