package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlink/tutorlink/internal/core"
	"github.com/tutorlink/tutorlink/internal/server/middleware"
)

func TestHTTPStatusFromCode(t *testing.T) {
	cases := map[string]int{
		CodeInvalidInput:       http.StatusBadRequest,
		CodeNotFound:           http.StatusNotFound,
		CodeMethodNotAllowed:   http.StatusMethodNotAllowed,
		CodeExternalService:    http.StatusBadGateway,
		CodeInvalidOutput:      http.StatusBadGateway,
		CodeTimeout:            http.StatusGatewayTimeout,
		CodeServiceUnavailable: http.StatusServiceUnavailable,
		"SOMETHING_ELSE":       http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatusFromCode(code), code)
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromEnvelope(nil))
}

func TestNewSetsSeverityForServerCodes(t *testing.T) {
	internal := New(CodeInternal, "boom")
	assert.Equal(t, CodeInternal, internal.Code)
	assert.NotEmpty(t, internal.Severity)
	assert.NotEqual(t, internal.Severity, New(CodeExternalService, "down").Severity)
}

func TestFromFailure(t *testing.T) {
	raw := "not json"
	cases := []struct {
		failure *core.Failure
		code    string
	}{
		{core.NewFailure(core.KindRemoteUnavailable, "connection refused", nil), CodeExternalService},
		{core.NewFailure(core.KindRemoteUnavailable, "timeout: context deadline exceeded", nil), CodeTimeout},
		{core.NewFailure(core.KindInvalidInput, "prompt is empty", nil), CodeInvalidInput},
		{core.WithRaw(core.KindMalformedOutput, "no JSON object", raw), CodeInvalidOutput},
		{core.NewFailure(core.KindSchemaMismatch, "score is not a number", nil), CodeInvalidOutput},
		{core.NewFailure(core.KindCanceled, "batch canceled", nil), CodeCanceled},
	}
	for _, tc := range cases {
		envelope := FromFailure(tc.failure)
		assert.Equal(t, tc.code, envelope.Code, tc.failure.Message)
		assert.Equal(t, tc.failure.Message, envelope.Message)
		assert.Equal(t, string(tc.failure.Kind), envelope.Details["kind"])
	}

	envelope := FromFailure(core.WithRaw(core.KindMalformedOutput, "bad", raw))
	assert.Equal(t, raw, envelope.Details["raw_output"])
	assert.Equal(t, CodeInternal, FromFailure(nil).Code)
}

func TestEnsureEnvelope(t *testing.T) {
	original := New(CodeNotFound, "missing")
	assert.Same(t, original, EnsureEnvelope(original))

	wrapped := EnsureEnvelope(stderrors.New("disk full"))
	assert.Equal(t, CodeInternal, wrapped.Code)
	assert.Equal(t, "disk full", wrapped.Context["wrapped_error"])

	assert.Equal(t, CodeInternal, EnsureEnvelope(nil).Code)
}

func TestWrapUsesRequestID(t *testing.T) {
	var envelopeID string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelopeID = Wrap(r.Context(), CodeDatabase, stderrors.New("locked"), "store failed").CorrelationID
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "wrap-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "wrap-1", envelopeID)

	assert.NotEmpty(t, Wrap(context.Background(), CodeDatabase, nil, "x").CorrelationID)
}

func TestRespondWithEnvelope(t *testing.T) {
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RespondWithEnvelope(w, r, FromFailure(core.NewFailure(core.KindRemoteUnavailable, "provider down", nil)))
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/grade", nil)
	req.Header.Set(middleware.RequestIDHeader, "resp-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, CodeExternalService, body.Error.Code)
	assert.Equal(t, "provider down", body.Error.Message)
	assert.Equal(t, "resp-1", body.Error.RequestID)
	assert.Equal(t, "remote_unavailable", body.Error.Details["kind"])
}

func TestRespondWithErrorFallbackCorrelation(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithError(rec, httptest.NewRequest(http.MethodGet, "/", nil), stderrors.New("oops"))

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body.Error.RequestID, "fallback-")
}
