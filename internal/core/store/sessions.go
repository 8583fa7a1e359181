package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown tutor session ids.
var ErrSessionNotFound = errors.New("tutor session not found")

// Session is a tutor conversation.
type Session struct {
	ID        string            `json:"id"`
	Subject   string            `json:"subject,omitempty"`
	Context   map[string]string `json:"context,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Message is one turn of a tutor conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveSession creates or replaces the session context. An empty id gets a
// fresh uuid. Existing messages are kept.
func (s *Store) SaveSession(ctx context.Context, id, subject string, sessionCtx map[string]string) (*Session, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	if sessionCtx == nil {
		sessionCtx = map[string]string{}
	}
	encoded, err := json.Marshal(sessionCtx)
	if err != nil {
		return nil, fmt.Errorf("encode session context: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO tutor_sessions (id, subject, context_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id)
		 DO UPDATE SET subject = excluded.subject,
		               context_json = excluded.context_json,
		               updated_at = excluded.updated_at`,
		id, strings.TrimSpace(subject), string(encoded), now.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("save session %s: %w", id, err)
	}
	return s.GetSession(ctx, id)
}

// GetSession returns the session or ErrSessionNotFound.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		sess    Session
		ctxJSON string
		created int64
		updated int64
	)
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, subject, context_json, created_at, updated_at FROM tutor_sessions WHERE id = ?`,
		strings.TrimSpace(id),
	)
	if err := row.Scan(&sess.ID, &sess.Subject, &ctxJSON, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(ctxJSON), &sess.Context); err != nil {
		return nil, fmt.Errorf("decode session context: %w", err)
	}
	sess.CreatedAt = time.UnixMilli(created).UTC()
	sess.UpdatedAt = time.UnixMilli(updated).UTC()
	return &sess, nil
}

// AppendMessages records turns for a session, creating the session if it
// does not exist yet.
func (s *Store) AppendMessages(ctx context.Context, sessionID string, messages ...Message) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("session id is required")
	}
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tutor_sessions (id, subject, context_json, created_at, updated_at)
		 VALUES (?, '', '{}', ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, now.UnixMilli(), now.UnixMilli(),
	); err != nil {
		return fmt.Errorf("touch session %s: %w", sessionID, err)
	}

	for _, msg := range messages {
		at := msg.CreatedAt
		if at.IsZero() {
			at = now
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tutor_messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
			sessionID, msg.Role, msg.Content, at.UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("append message: %w", err)
		}
	}
	return tx.Commit()
}

// RecentMessages returns up to limit of the latest messages, oldest first.
func (s *Store) RecentMessages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT role, content, created_at FROM tutor_messages
		 WHERE session_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		strings.TrimSpace(sessionID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var out []Message
	for rows.Next() {
		var (
			msg Message
			at  int64
		)
		if err := rows.Scan(&msg.Role, &msg.Content, &at); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.CreatedAt = time.UnixMilli(at).UTC()
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
