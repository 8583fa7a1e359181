// Package normalize converts untrusted provider text into validated payloads.
//
// Lists are lenient: malformed elements are dropped. Scalar shapes are
// strict: a missing or wrongly typed required field fails the whole
// response. The normalizer never substitutes fallback content.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/tutorlink/tutorlink/internal/core"
)

// listKeys are object keys under which a qa_list array may be wrapped.
var listKeys = []string{"items", "questions", "cards", "flashcards"}

// Normalize parses raw provider text into the payload for shape.
func Normalize(raw string, shape core.Shape) core.Result {
	value, err := Parse(raw)
	if err != nil {
		return core.Failed(shape, core.WithRaw(core.KindMalformedOutput, err.Error(), raw))
	}

	var (
		payload core.Payload
		failure *core.Failure
	)
	switch shape {
	case core.ShapeScoreFeedback:
		payload, failure = toGrade(value)
	case core.ShapeQAList:
		payload, failure = toQAList(value)
	case core.ShapeTopicReason:
		payload, failure = toRecommendation(value)
	case core.ShapeSummary:
		payload, failure = toSummary(value)
	case core.ShapeFlags:
		payload, failure = toFlags(value)
	default:
		return core.Failed(shape, core.NewFailure(core.KindInvalidInput, fmt.Sprintf("unknown shape %q", shape), nil))
	}
	if failure != nil {
		failure.Raw = &raw
		return core.Failed(shape, failure)
	}
	return core.Success(shape, payload)
}

// Parse strips an optional code fence and decodes exactly one JSON value.
func Parse(raw string) (any, error) {
	text := StripFence(raw)
	if text == "" {
		return nil, errors.New("empty response")
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("parse json: trailing data after value")
	}
	return value, nil
}

func toGrade(value any) (core.Payload, *core.Failure) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, mismatch("expected object, got %s", typeName(value))
	}

	grade := core.Grade{}
	if rawScore, present := obj["score"]; present && rawScore != nil {
		score, ok := toFloat(rawScore)
		if !ok {
			return nil, mismatch("score is not numeric")
		}
		clamped := clamp(score, 0, 1)
		grade.Score = &clamped
	}

	if rawFeedback, present := obj["feedback"]; present && rawFeedback != nil {
		feedback, ok := rawFeedback.(string)
		if !ok {
			return nil, mismatch("feedback is not a string")
		}
		grade.Feedback = feedback
	}
	return grade, nil
}

func toQAList(value any) (core.Payload, *core.Failure) {
	elements, ok := value.([]any)
	if !ok {
		if obj, isObj := value.(map[string]any); isObj {
			elements, ok = wrappedList(obj)
		}
	}
	if !ok {
		return nil, mismatch("expected array, got %s", typeName(value))
	}

	items := make([]core.QAItem, 0, len(elements))
	for _, element := range elements {
		item, ok := toQAItem(element)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return core.QAList{Items: items}, nil
}

func wrappedList(obj map[string]any) ([]any, bool) {
	for _, key := range listKeys {
		if list, ok := obj[key].([]any); ok {
			return list, true
		}
	}
	return nil, false
}

func toQAItem(value any) (core.QAItem, bool) {
	obj, ok := value.(map[string]any)
	if !ok {
		return core.QAItem{}, false
	}
	question, ok := obj["question"].(string)
	if !ok {
		return core.QAItem{}, false
	}
	answer, ok := obj["answer"].(string)
	if !ok {
		return core.QAItem{}, false
	}

	item := core.QAItem{Question: question, Answer: answer}
	if options, ok := stringList(obj["options"]); ok {
		item.Options = options
	}
	if explanation, ok := obj["explanation"].(string); ok {
		item.Explanation = explanation
	}
	return item, true
}

func toRecommendation(value any) (core.Payload, *core.Failure) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, mismatch("expected object, got %s", typeName(value))
	}
	topic, ok := obj["topic"].(string)
	if !ok {
		return nil, mismatch("topic is missing or not a string")
	}
	reason, ok := obj["reason"].(string)
	if !ok {
		return nil, mismatch("reason is missing or not a string")
	}
	return core.Recommendation{Topic: topic, Reason: reason}, nil
}

func toSummary(value any) (core.Payload, *core.Failure) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, mismatch("expected object, got %s", typeName(value))
	}
	text, ok := obj["summary"].(string)
	if !ok {
		return nil, mismatch("summary is missing or not a string")
	}

	summary := core.Summary{Summary: text}
	if rawPoints, present := obj["points"]; present && rawPoints != nil {
		points, ok := stringList(rawPoints)
		if !ok {
			return nil, mismatch("points is not a list of strings")
		}
		summary.Points = points
	}
	return summary, nil
}

func toFlags(value any) (core.Payload, *core.Failure) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, mismatch("expected object, got %s", typeName(value))
	}
	rawFlags, ok := obj["flags"].(map[string]any)
	if !ok {
		return nil, mismatch("flags is missing or not an object")
	}

	flags := make(map[string]bool, len(rawFlags))
	for name, rawValue := range rawFlags {
		set, ok := rawValue.(bool)
		if !ok {
			return nil, mismatch("flag %q is not a boolean", name)
		}
		flags[name] = set
	}
	return core.Flags{Flags: flags}, nil
}

func toFloat(value any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch v := value.(type) {
	case json.Number:
		f, err = v.Float64()
	case float64:
		f = v
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func stringList(value any) ([]string, bool) {
	list, ok := value.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, element := range list {
		s, ok := element.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func mismatch(format string, args ...any) *core.Failure {
	return core.NewFailure(core.KindSchemaMismatch, fmt.Sprintf(format, args...), nil)
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", value)
	}
}

// Canonical renders a payload the way it would be cached or logged.
func Canonical(payload core.Payload) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
