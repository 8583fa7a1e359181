package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlink/tutorlink/internal/core"
)

func TestStripFence(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `  {"a":1}  `, want: `{"a":1}`},
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n[1,2]\n```", want: `[1,2]`},
		{name: "prose around fence", in: "Here you go:\n```json\n{\"a\":1}\n```\nThanks!", want: `{"a":1}`},
		{name: "first of two fences", in: "```json\n{\"a\":1}\n```\n```json\n{\"b\":2}\n```", want: `{"a":1}`},
		{name: "single line", in: "```json{\"a\":1}```", want: `{"a":1}`},
		{name: "payload on fence line", in: "```\n{\"a\":1}```", want: `{"a":1}`},
		{name: "unterminated", in: "```json\n{\"a\":1}", want: `{"a":1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, StripFence(tc.in))
		})
	}
}

func TestNormalizeScoreClamped(t *testing.T) {
	result := Normalize(`{"score": 1.4, "feedback": "x"}`, core.ShapeScoreFeedback)
	require.True(t, result.OK())

	grade := result.Payload.(core.Grade)
	require.NotNil(t, grade.Score)
	require.Equal(t, 1.0, *grade.Score)
	require.Equal(t, "x", grade.Feedback)

	result = Normalize(`{"score": -3, "feedback": "y"}`, core.ShapeScoreFeedback)
	require.True(t, result.OK())
	require.Equal(t, 0.0, *result.Payload.(core.Grade).Score)
}

func TestNormalizeScoreFromString(t *testing.T) {
	result := Normalize("```json\n{\"score\": \"0.75\", \"feedback\": \"good\"}\n```", core.ShapeScoreFeedback)
	require.True(t, result.OK())
	require.InDelta(t, 0.75, *result.Payload.(core.Grade).Score, 1e-9)
}

func TestNormalizeScoreMissing(t *testing.T) {
	result := Normalize(`{"feedback": "no score given"}`, core.ShapeScoreFeedback)
	require.True(t, result.OK())
	grade := result.Payload.(core.Grade)
	require.Nil(t, grade.Score)
	require.Equal(t, "no score given", grade.Feedback)

	result = Normalize(`{"score": null}`, core.ShapeScoreFeedback)
	require.True(t, result.OK())
	grade = result.Payload.(core.Grade)
	require.Nil(t, grade.Score)
	require.Empty(t, grade.Feedback)
}

func TestNormalizeScoreMismatch(t *testing.T) {
	for _, raw := range []string{
		`{"score": "excellent", "feedback": "x"}`,
		`{"score": true}`,
		`{"score": 0.5, "feedback": 12}`,
		`[{"score": 0.5}]`,
		`"just a string"`,
	} {
		result := Normalize(raw, core.ShapeScoreFeedback)
		require.Equal(t, core.StatusFailure, result.Status, raw)
		require.Equal(t, core.KindSchemaMismatch, result.Failure.Kind, raw)
		require.NotNil(t, result.Failure.Raw)
		require.Equal(t, raw, *result.Failure.Raw)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	raw := "I cannot help with that"
	result := Normalize(raw, core.ShapeScoreFeedback)
	require.Equal(t, core.StatusFailure, result.Status)
	require.Nil(t, result.Payload)
	require.Equal(t, core.KindMalformedOutput, result.Failure.Kind)
	require.NotNil(t, result.Failure.Raw)
	require.Equal(t, raw, *result.Failure.Raw)

	for _, raw := range []string{"", "   ", "```json\n```", `{"a":1} {"b":2}`, `{"a":`} {
		result := Normalize(raw, core.ShapeSummary)
		require.Equal(t, core.KindMalformedOutput, result.Failure.Kind, raw)
	}
}

func TestNormalizeQAListDropsIncomplete(t *testing.T) {
	raw := `[{"question":"A","answer":"1"},{"question":"B"},{"answer":"3"},"junk",{"question":"C","answer":"2","options":["x","y"],"explanation":"because"}]`
	result := Normalize(raw, core.ShapeQAList)
	require.True(t, result.OK())

	list := result.Payload.(core.QAList)
	require.Len(t, list.Items, 2)
	assert.Equal(t, core.QAItem{Question: "A", Answer: "1"}, list.Items[0])
	assert.Equal(t, "C", list.Items[1].Question)
	assert.Equal(t, []string{"x", "y"}, list.Items[1].Options)
	assert.Equal(t, "because", list.Items[1].Explanation)
}

func TestNormalizeQAListWrapped(t *testing.T) {
	result := Normalize(`{"questions":[{"question":"Q","answer":"A"}]}`, core.ShapeQAList)
	require.True(t, result.OK())
	require.Len(t, result.Payload.(core.QAList).Items, 1)

	result = Normalize(`[]`, core.ShapeQAList)
	require.True(t, result.OK())
	require.Empty(t, result.Payload.(core.QAList).Items)
}

func TestNormalizeQAListMismatch(t *testing.T) {
	result := Normalize(`{"question":"Q","answer":"A"}`, core.ShapeQAList)
	require.Equal(t, core.KindSchemaMismatch, result.Failure.Kind)
}

func TestNormalizeTopicReason(t *testing.T) {
	result := Normalize(`{"topic":"Fractions","reason":"Scores dipped"}`, core.ShapeTopicReason)
	require.True(t, result.OK())
	require.Equal(t, core.Recommendation{Topic: "Fractions", Reason: "Scores dipped"}, result.Payload)

	result = Normalize(`{"topic":"Fractions"}`, core.ShapeTopicReason)
	require.Equal(t, core.KindSchemaMismatch, result.Failure.Kind)
}

func TestNormalizeSummary(t *testing.T) {
	result := Normalize(`{"summary":"Plants make food","points":["light","water"]}`, core.ShapeSummary)
	require.True(t, result.OK())
	require.Equal(t, core.Summary{Summary: "Plants make food", Points: []string{"light", "water"}}, result.Payload)

	result = Normalize(`{"summary":"ok","points":[1,2]}`, core.ShapeSummary)
	require.Equal(t, core.KindSchemaMismatch, result.Failure.Kind)

	result = Normalize(`{"text":"wrong key"}`, core.ShapeSummary)
	require.Equal(t, core.KindSchemaMismatch, result.Failure.Kind)
}

func TestNormalizeFlags(t *testing.T) {
	result := Normalize(`{"flags":{"needs_support":true,"advanced":false}}`, core.ShapeFlags)
	require.True(t, result.OK())
	require.Equal(t, map[string]bool{"needs_support": true, "advanced": false}, result.Payload.(core.Flags).Flags)

	result = Normalize(`{"flags":{"needs_support":"yes"}}`, core.ShapeFlags)
	require.Equal(t, core.KindSchemaMismatch, result.Failure.Kind)

	result = Normalize(`{"flags":["a"]}`, core.ShapeFlags)
	require.Equal(t, core.KindSchemaMismatch, result.Failure.Kind)
}

func TestNormalizeUnknownShape(t *testing.T) {
	result := Normalize(`{}`, core.Shape("essay"))
	require.Equal(t, core.KindInvalidInput, result.Failure.Kind)
}

func TestCanonical(t *testing.T) {
	out, err := Canonical(core.Recommendation{Topic: "a<b", Reason: "r"})
	require.NoError(t, err)
	require.Equal(t, `{"topic":"a<b","reason":"r"}`, out)
}
