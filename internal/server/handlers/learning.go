package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tutorlink/tutorlink/internal/core"
	apperrors "github.com/tutorlink/tutorlink/internal/errors"
	"github.com/tutorlink/tutorlink/internal/learning"
)

const (
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes = 1 << 20
	// MaxBatchRequests caps the items in one batch call.
	MaxBatchRequests = 200
)

// BatchRequest is the body of POST /api/batch/process.
type BatchRequest struct {
	Requests   []learning.BatchItem `json:"requests"`
	MaxWorkers int                  `json:"max_workers,omitempty"`
}

// BatchResponse carries one result per request, in request order.
type BatchResponse struct {
	Results []core.Result `json:"results"`
}

// SessionResponse acknowledges a started tutor session.
type SessionResponse struct {
	Status    string            `json:"status"`
	SessionID string            `json:"session_id"`
	Subject   string            `json:"subject,omitempty"`
	Context   map[string]string `json:"context,omitempty"`
}

// Learning serves the learning API on top of the service.
type Learning struct {
	service *learning.Service
}

// NewLearning returns handlers bound to service.
func NewLearning(service *learning.Service) *Learning {
	return &Learning{service: service}
}

func (l *Learning) Grade() http.HandlerFunc        { return serve(l.service.Grade) }
func (l *Learning) Explain() http.HandlerFunc      { return serve(l.service.Explain) }
func (l *Learning) Summarize() http.HandlerFunc    { return serve(l.service.Summarize) }
func (l *Learning) Quiz() http.HandlerFunc         { return serve(l.service.Quiz) }
func (l *Learning) Flashcards() http.HandlerFunc   { return serve(l.service.Flashcards) }
func (l *Learning) Chat() http.HandlerFunc         { return serve(l.service.Chat) }
func (l *Learning) LessonPlan() http.HandlerFunc   { return serve(l.service.LessonPlan) }
func (l *Learning) Resources() http.HandlerFunc    { return serve(l.service.Resources) }
func (l *Learning) Performance() http.HandlerFunc  { return serve(l.service.Performance) }
func (l *Learning) LearningPath() http.HandlerFunc { return serve(l.service.LearningPath) }
func (l *Learning) StudyGuide() http.HandlerFunc   { return serve(l.service.StudyGuide) }

// StartSession serves POST /api/tutor/session/{sessionID}. The optional
// body is the session context; scalar values are kept as text.
func (l *Learning) StartSession(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := decodeBody(w, r, &raw, true); err != nil {
		respondDecodeError(w, r, err)
		return
	}
	sessionCtx, err := flattenContext(raw)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	sess, err := l.service.StartSession(r.Context(), chi.URLParam(r, "sessionID"), sessionCtx)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{
		Status:    "session_created",
		SessionID: sess.ID,
		Subject:   sess.Subject,
		Context:   sess.Context,
	})
}

// Batch serves POST /api/batch/process. Item failures are reported in
// their slot, so the response is always 200 once the body parses.
func (l *Learning) Batch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		respondDecodeError(w, r, err)
		return
	}
	if len(req.Requests) > MaxBatchRequests {
		respondServiceError(w, r, fmt.Errorf("%w: at most %d requests per batch", learning.ErrInvalidRequest, MaxBatchRequests))
		return
	}
	results := l.service.Batch(r.Context(), req.Requests, req.MaxWorkers)
	writeJSON(w, http.StatusOK, BatchResponse{Results: results})
}

// serve decodes T, runs op and writes the result. A remote failure is a
// 502 that still carries the result body.
func serve[T any](op func(context.Context, T) (core.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req T
		if err := decodeBody(w, r, &req, false); err != nil {
			respondDecodeError(w, r, err)
			return
		}
		result, err := op(r.Context(), req)
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		writeJSON(w, resultStatus(result), result)
	}
}

func resultStatus(result core.Result) int {
	if result.Failure != nil && result.Failure.Kind == core.KindRemoteUnavailable {
		return http.StatusBadGateway
	}
	return http.StatusOK
}

var errEmptyBody = errors.New("request body is required")

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}
			return errEmptyBody
		}
		return err
	}
	if dec.More() {
		return errors.New("request body has trailing data")
	}
	return nil
}

func respondDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	message := "request body is not valid JSON"
	switch {
	case errors.As(err, &tooLarge):
		message = fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)
	case errors.Is(err, errEmptyBody):
		message = err.Error()
	}
	apperrors.RespondWithEnvelope(w, r, apperrors.Wrap(r.Context(), apperrors.CodeInvalidInput, err, message))
}

func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, learning.ErrInvalidRequest):
		apperrors.RespondWithEnvelope(w, r, apperrors.New(apperrors.CodeInvalidInput, err.Error()))
	case errors.Is(err, learning.ErrSessionsDisabled):
		apperrors.RespondWithEnvelope(w, r, apperrors.New(apperrors.CodeServiceUnavailable, err.Error()))
	default:
		apperrors.RespondWithEnvelope(w, r, apperrors.Wrap(r.Context(), apperrors.CodeInternal, err, "request could not be processed"))
	}
}

func flattenContext(raw map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			out[key] = strings.TrimSpace(v)
		case bool, float64:
			out[key] = fmt.Sprint(v)
		default:
			data, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("%w: context %q: %v", learning.ErrInvalidRequest, key, err)
			}
			out[key] = string(data)
		}
	}
	return out, nil
}
