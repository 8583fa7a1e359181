package learning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tutorlink/tutorlink/internal/core"
	"github.com/tutorlink/tutorlink/internal/core/store"
	"github.com/tutorlink/tutorlink/internal/metrics"
)

// Message roles stored for tutor sessions.
const (
	RoleStudent = "user"
	RoleTutor   = "assistant"
)

// Sessions persists tutor conversations. *store.Store satisfies it.
type Sessions interface {
	SaveSession(ctx context.Context, id, subject string, sessionCtx map[string]string) (*store.Session, error)
	GetSession(ctx context.Context, id string) (*store.Session, error)
	AppendMessages(ctx context.Context, sessionID string, messages ...store.Message) error
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]store.Message, error)
}

// ErrSessionsDisabled is returned when no session store is configured.
var ErrSessionsDisabled = errors.New("tutor sessions are not configured")

// StartSession creates or resets a tutor session's context.
func (s *Service) StartSession(ctx context.Context, id string, sessionCtx map[string]string) (*store.Session, error) {
	if s.sessions == nil {
		return nil, ErrSessionsDisabled
	}
	if strings.TrimSpace(id) == "" {
		return nil, invalidf("session id is required")
	}
	subject := sessionCtx["subject"]
	sess, err := s.sessions.SaveSession(ctx, id, subject, sessionCtx)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return sess, nil
}

// Chat sends a student message with the session's context and recent
// history. Successful, non-fallback replies are recorded for the next turn.
// Without a session store the chat is stateless.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (core.Result, error) {
	if _, err := req.vars(); err != nil {
		return core.Result{}, err
	}

	extra := map[string]string{}
	if s.sessions != nil {
		sess, err := s.sessions.GetSession(ctx, req.SessionID)
		switch {
		case err == nil:
			extra["session_context"] = describeContext(sess.Context)
			if strings.TrimSpace(req.Subject) == "" && sess.Subject != "" {
				req.Subject = sess.Subject
			}
		case errors.Is(err, store.ErrSessionNotFound):
		default:
			s.logger.Warn("Tutor session lookup failed", zap.String("session_id", req.SessionID), zap.Error(err))
		}

		if s.history > 0 {
			history, err := s.sessions.RecentMessages(ctx, req.SessionID, s.history*2)
			if err != nil {
				s.logger.Warn("Tutor history lookup failed", zap.String("session_id", req.SessionID), zap.Error(err))
			}
			extra["history"] = formatHistory(history)
		}
	}

	env, err := s.envelope(req, extra)
	if err != nil {
		metrics.RecordLearningRequest(req.slug(), outcome(core.Result{}, err))
		return core.Result{}, err
	}
	result := s.engine.Execute(ctx, env)
	metrics.RecordLearningRequest(req.slug(), outcome(result, nil))

	if s.sessions != nil && result.OK() && !result.Fallback {
		reply := replyText(result.Payload)
		if err := s.sessions.AppendMessages(ctx, req.SessionID,
			store.Message{Role: RoleStudent, Content: req.Message},
			store.Message{Role: RoleTutor, Content: reply},
		); err != nil {
			s.logger.Warn("Failed to record tutor exchange", zap.String("session_id", req.SessionID), zap.Error(err))
		} else {
			metrics.RecordTutorMessages(2)
		}
	}
	return result, nil
}

func formatHistory(messages []store.Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		speaker := "Student"
		if msg.Role == RoleTutor {
			speaker = "Tutor"
		}
		lines = append(lines, speaker+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

func replyText(payload core.Payload) string {
	if summary, ok := payload.(core.Summary); ok {
		return summary.Summary
	}
	return ""
}
