package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShape(t *testing.T) {
	shape, err := ParseShape("  QA_List ")
	require.NoError(t, err)
	assert.Equal(t, ShapeQAList, shape)

	_, err = ParseShape("essay")
	assert.Error(t, err)
}

func TestEnvelopeValidate(t *testing.T) {
	assert.Nil(t, Envelope{Prompt: "p", Shape: ShapeSummary}.Validate())

	failure := Envelope{Prompt: "  ", Shape: ShapeSummary}.Validate()
	require.NotNil(t, failure)
	assert.Equal(t, KindInvalidInput, failure.Kind)

	failure = Envelope{Prompt: "p", Shape: "essay"}.Validate()
	require.NotNil(t, failure)
	assert.Equal(t, KindInvalidInput, failure.Kind)
}

func TestEnvelopeKeyDependsOnShapeAndPrompt(t *testing.T) {
	a := EnvelopeKey(Envelope{Prompt: "p", Shape: ShapeSummary})
	assert.Equal(t, a, EnvelopeKey(Envelope{Prompt: "p", Shape: ShapeSummary}))
	assert.NotEqual(t, a, EnvelopeKey(Envelope{Prompt: "p", Shape: ShapeFlags}))
	assert.NotEqual(t, a, EnvelopeKey(Envelope{Prompt: "q", Shape: ShapeSummary}))
	assert.Len(t, a, 64)
}

func TestResultDecodesPayloadByShape(t *testing.T) {
	var result Result
	require.NoError(t, json.Unmarshal([]byte(`{
		"index": 2,
		"shape": "topic_reason",
		"status": "success",
		"payload": {"topic": "Fractions", "reason": "Scores dipped"},
		"fallback": true,
		"degradation": {"kind": "malformed_output", "message": "no JSON"}
	}`), &result))

	assert.Equal(t, 2, result.Index)
	assert.True(t, result.OK())
	assert.Equal(t, Recommendation{Topic: "Fractions", Reason: "Scores dipped"}, result.Payload)
	require.NotNil(t, result.Degradation)
	assert.Equal(t, KindMalformedOutput, result.Degradation.Kind)
}

func TestResultDecodesFailure(t *testing.T) {
	var result Result
	require.NoError(t, json.Unmarshal([]byte(`{"shape":"summary","status":"failure","failure":{"kind":"remote_unavailable","message":"down"}}`), &result))
	assert.False(t, result.OK())
	assert.Nil(t, result.Payload)
	require.Error(t, result.Err())
	assert.Equal(t, "remote_unavailable: down", result.Err().Error())
}

func TestResultRejectsPayloadOfUnknownShape(t *testing.T) {
	var result Result
	err := json.Unmarshal([]byte(`{"shape":"essay","status":"success","payload":{"text":"x"}}`), &result)
	assert.Error(t, err)
}
