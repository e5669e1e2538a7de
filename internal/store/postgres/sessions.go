package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dostify/dostify/internal/types"
)

// SessionStore is the PostgreSQL types.SessionStore.
type SessionStore struct {
	db *pgxpool.Pool
}

func NewSessionStore(db *pgxpool.Pool) *SessionStore {
	return &SessionStore{db: db}
}

const sessionCols = "id, user_id, key, title, created_at, updated_at"

func scanSession(row pgx.Row) (*types.Session, error) {
	var sess types.Session
	err := row.Scan(&sess.ID, &sess.UserID, &sess.Key, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SessionStore) GetOrCreate(ctx context.Context, userID types.UserID, key string) (*types.Session, error) {
	sess, err := s.Get(ctx, userID, key)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, types.ErrSessionNotFound) {
		return nil, err
	}

	now := time.Now()
	sess = &types.Session{
		ID:        types.NewSessionID(),
		UserID:    userID,
		Key:       key,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO sessions (id, user_id, key, title, created_at, updated_at)
		 VALUES ($1, $2, $3, '', $4, $4)
		 ON CONFLICT (user_id, key) DO NOTHING`,
		sess.ID, userID, key, now)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	// A concurrent insert may have won the conflict; read back either way.
	return s.Get(ctx, userID, key)
}

func (s *SessionStore) Get(ctx context.Context, userID types.UserID, key string) (*types.Session, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE user_id = $1 AND key = $2`,
		userID, key)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	msgs, err := s.loadMessages(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	sess.Messages = msgs
	sess.MessageCount = len(msgs)
	return sess, nil
}

func (s *SessionStore) List(ctx context.Context, userID types.UserID) ([]*types.Session, error) {
	rows, err := s.db.Query(ctx,
		`SELECT s.id, s.user_id, s.key, s.title, s.created_at, s.updated_at,
		        (SELECT count(*) FROM messages m WHERE m.session_id = s.id)
		 FROM sessions s WHERE s.user_id = $1
		 ORDER BY s.updated_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*types.Session
	for rows.Next() {
		var sess types.Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Key, &sess.Title,
			&sess.CreatedAt, &sess.UpdatedAt, &sess.MessageCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

func (s *SessionStore) Search(ctx context.Context, userID types.UserID, query string) ([]*types.Session, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT s.id, s.user_id, s.key, s.title, s.created_at, s.updated_at,
		        (SELECT count(*) FROM messages m WHERE m.session_id = s.id)
		 FROM sessions s
		 LEFT JOIN messages m ON m.session_id = s.id
		 WHERE s.user_id = $1
		   AND (s.title ILIKE '%' || $2 || '%' OR m.content ILIKE '%' || $2 || '%')
		 ORDER BY s.updated_at DESC`,
		userID, query)
	if err != nil {
		return nil, fmt.Errorf("search sessions: %w", err)
	}
	defer rows.Close()

	var out []*types.Session
	for rows.Next() {
		var sess types.Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Key, &sess.Title,
			&sess.CreatedAt, &sess.UpdatedAt, &sess.MessageCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

func (s *SessionStore) Rename(ctx context.Context, userID types.UserID, key, title string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE sessions SET title = $3, updated_at = now() WHERE user_id = $1 AND key = $2`,
		userID, key, title)
	if err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, userID types.UserID, key string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM sessions WHERE user_id = $1 AND key = $2`,
		userID, key)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) AppendMessages(ctx context.Context, userID types.UserID, key string, msgs []types.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	var sessionID types.SessionID
	err := s.db.QueryRow(ctx,
		`SELECT id FROM sessions WHERE user_id = $1 AND key = $2`,
		userID, key).Scan(&sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.ErrSessionNotFound
		}
		return fmt.Errorf("resolve session: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, msg := range msgs {
		if msg.ID == "" {
			msg.ID = types.NewMessageID()
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now()
		}

		var toolCalls, result []byte
		if len(msg.ToolCalls) > 0 {
			if toolCalls, err = json.Marshal(msg.ToolCalls); err != nil {
				return fmt.Errorf("marshal tool calls: %w", err)
			}
		}
		if msg.Result != nil {
			if result, err = json.Marshal(msg.Result); err != nil {
				return fmt.Errorf("marshal tool result: %w", err)
			}
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO messages
			   (id, session_id, role, content, content_type, image_url,
			    tool_calls, tool_call_id, tool_name, result, feedback, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			msg.ID, sessionID, msg.Role, msg.Content, msg.ContentType, msg.ImageURL,
			toolCalls, msg.ToolCallID, msg.ToolName, result, msg.Feedback, msg.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE sessions SET updated_at = now() WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *SessionStore) SetFeedback(ctx context.Context, userID types.UserID, key string, msgID types.MessageID, rating int) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE messages SET feedback = $4
		 FROM sessions s
		 WHERE messages.session_id = s.id
		   AND s.user_id = $1 AND s.key = $2 AND messages.id = $3`,
		userID, key, msgID, rating)
	if err != nil {
		return fmt.Errorf("set feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrMessageNotFound
	}
	return nil
}

func (s *SessionStore) Messages(ctx context.Context, userID types.UserID, key string, limit, offset int) ([]types.Message, int, error) {
	var sessionID types.SessionID
	err := s.db.QueryRow(ctx,
		`SELECT id FROM sessions WHERE user_id = $1 AND key = $2`,
		userID, key).Scan(&sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, types.ErrSessionNotFound
		}
		return nil, 0, fmt.Errorf("resolve session: %w", err)
	}

	var total int
	if err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM messages WHERE session_id = $1`, sessionID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, role, content, content_type, image_url,
		        tool_calls, tool_call_id, tool_name, result, feedback, created_at
		 FROM messages WHERE session_id = $1
		 ORDER BY seq
		 LIMIT $2 OFFSET $3`,
		sessionID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

func (s *SessionStore) loadMessages(ctx context.Context, sessionID types.SessionID) ([]types.Message, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, role, content, content_type, image_url,
		        tool_calls, tool_call_id, tool_name, result, feedback, created_at
		 FROM messages WHERE session_id = $1
		 ORDER BY seq`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]types.Message, error) {
	var msgs []types.Message
	for rows.Next() {
		var msg types.Message
		var toolCalls, result []byte
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &msg.ContentType, &msg.ImageURL,
			&toolCalls, &msg.ToolCallID, &msg.ToolName, &result, &msg.Feedback, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if len(toolCalls) > 0 {
			if err := json.Unmarshal(toolCalls, &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("unmarshal tool calls: %w", err)
			}
		}
		if len(result) > 0 {
			if err := json.Unmarshal(result, &msg.Result); err != nil {
				return nil, fmt.Errorf("unmarshal tool result: %w", err)
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
