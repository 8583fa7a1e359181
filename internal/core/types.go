package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Shape identifies the structured result expected from a prompt.
type Shape string

const (
	ShapeScoreFeedback Shape = "score_feedback"
	ShapeQAList        Shape = "qa_list"
	ShapeTopicReason   Shape = "topic_reason"
	ShapeSummary       Shape = "summary"
	ShapeFlags         Shape = "flags"
)

// Shapes lists every supported shape.
var Shapes = []Shape{ShapeScoreFeedback, ShapeQAList, ShapeTopicReason, ShapeSummary, ShapeFlags}

// Valid reports whether the shape is known.
func (s Shape) Valid() bool {
	switch s {
	case ShapeScoreFeedback, ShapeQAList, ShapeTopicReason, ShapeSummary, ShapeFlags:
		return true
	default:
		return false
	}
}

// ParseShape normalizes a shape tag.
func ParseShape(value string) (Shape, error) {
	shape := Shape(strings.ToLower(strings.TrimSpace(value)))
	if !shape.Valid() {
		return "", fmt.Errorf("unknown shape %q", value)
	}
	return shape, nil
}

// Envelope is one unit of work: an opaque prompt plus the shape its
// response must be normalized into.
type Envelope struct {
	Prompt string `json:"prompt"`
	Shape  Shape  `json:"shape"`
}

// Validate returns an InvalidInput failure when the envelope cannot be sent.
func (e Envelope) Validate() *Failure {
	if strings.TrimSpace(e.Prompt) == "" {
		return NewFailure(KindInvalidInput, "prompt is required", nil)
	}
	if !e.Shape.Valid() {
		return NewFailure(KindInvalidInput, fmt.Sprintf("unknown shape %q", e.Shape), nil)
	}
	return nil
}

// EnvelopeKey is a stable identifier for an envelope's content.
func EnvelopeKey(e Envelope) string {
	sum := sha256.Sum256([]byte(string(e.Shape) + "\x00" + e.Prompt))
	return hex.EncodeToString(sum[:])
}

// Status discriminates Result.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Result is the outcome of one envelope. Exactly one of Payload and Failure
// is set.
type Result struct {
	Index    int      `json:"index"`
	Shape    Shape    `json:"shape"`
	Status   Status   `json:"status"`
	Payload  Payload  `json:"payload,omitempty"`
	Failure  *Failure `json:"failure,omitempty"`
	Fallback bool     `json:"fallback,omitempty"`
	// Degradation records the normalizer failure behind a fallback payload.
	Degradation *Failure `json:"degradation,omitempty"`
}

// UnmarshalJSON decodes the payload by the result's shape.
func (r *Result) UnmarshalJSON(data []byte) error {
	var wire struct {
		Index       int             `json:"index"`
		Shape       Shape           `json:"shape"`
		Status      Status          `json:"status"`
		Payload     json.RawMessage `json:"payload"`
		Failure     *Failure        `json:"failure"`
		Fallback    bool            `json:"fallback"`
		Degradation *Failure        `json:"degradation"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = Result{
		Index:       wire.Index,
		Shape:       wire.Shape,
		Status:      wire.Status,
		Failure:     wire.Failure,
		Fallback:    wire.Fallback,
		Degradation: wire.Degradation,
	}
	if len(wire.Payload) == 0 || string(wire.Payload) == "null" {
		return nil
	}
	payload, err := DecodePayload(wire.Shape, wire.Payload)
	if err != nil {
		return err
	}
	r.Payload = payload
	return nil
}

// Success builds a successful result.
func Success(shape Shape, payload Payload) Result {
	return Result{Shape: shape, Status: StatusSuccess, Payload: payload}
}

// Failed builds a failed result.
func Failed(shape Shape, failure *Failure) Result {
	return Result{Shape: shape, Status: StatusFailure, Failure: failure}
}

// OK reports whether the result carries a payload.
func (r Result) OK() bool {
	return r.Status == StatusSuccess && r.Payload != nil
}

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}
