// Package memory provides in-memory store implementations. They back unit
// tests and local development mode; production uses the postgres package.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dostify/dostify/internal/types"
)

type sessionKey struct {
	userID types.UserID
	key    string
}

// SessionStore is an in-memory types.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[sessionKey]*types.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[sessionKey]*types.Session)}
}

func (s *SessionStore) GetOrCreate(_ context.Context, userID types.UserID, key string) (*types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := sessionKey{userID, key}
	if sess, ok := s.sessions[k]; ok {
		return cloneSession(sess), nil
	}

	now := time.Now()
	sess := &types.Session{
		ID:        types.NewSessionID(),
		UserID:    userID,
		Key:       key,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[k] = sess
	return cloneSession(sess), nil
}

func (s *SessionStore) Get(_ context.Context, userID types.UserID, key string) (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionKey{userID, key}]
	if !ok {
		return nil, types.ErrSessionNotFound
	}
	return cloneSession(sess), nil
}

func (s *SessionStore) List(_ context.Context, userID types.UserID) ([]*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*types.Session
	for _, sess := range s.sessions {
		if sess.UserID != userID {
			continue
		}
		c := cloneSession(sess)
		c.MessageCount = len(c.Messages)
		c.Messages = nil
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (s *SessionStore) Search(_ context.Context, userID types.UserID, query string) ([]*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	var result []*types.Session
	for _, sess := range s.sessions {
		if sess.UserID != userID {
			continue
		}
		if !sessionMatches(sess, q) {
			continue
		}
		c := cloneSession(sess)
		c.MessageCount = len(c.Messages)
		c.Messages = nil
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func sessionMatches(sess *types.Session, q string) bool {
	if strings.Contains(strings.ToLower(sess.Title), q) {
		return true
	}
	for _, msg := range sess.Messages {
		if strings.Contains(strings.ToLower(msg.Content), q) {
			return true
		}
	}
	return false
}

func (s *SessionStore) Rename(_ context.Context, userID types.UserID, key, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionKey{userID, key}]
	if !ok {
		return types.ErrSessionNotFound
	}
	sess.Title = title
	sess.UpdatedAt = time.Now()
	return nil
}

func (s *SessionStore) Delete(_ context.Context, userID types.UserID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := sessionKey{userID, key}
	if _, ok := s.sessions[k]; !ok {
		return types.ErrSessionNotFound
	}
	delete(s.sessions, k)
	return nil
}

func (s *SessionStore) AppendMessages(_ context.Context, userID types.UserID, key string, msgs []types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionKey{userID, key}]
	if !ok {
		return types.ErrSessionNotFound
	}
	for _, msg := range msgs {
		if msg.ID == "" {
			msg.ID = types.NewMessageID()
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now()
		}
		sess.Messages = append(sess.Messages, msg)
	}
	sess.UpdatedAt = time.Now()
	return nil
}

func (s *SessionStore) SetFeedback(_ context.Context, userID types.UserID, key string, msgID types.MessageID, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionKey{userID, key}]
	if !ok {
		return types.ErrSessionNotFound
	}
	for i := range sess.Messages {
		if sess.Messages[i].ID == msgID {
			sess.Messages[i].Feedback = rating
			return nil
		}
	}
	return types.ErrMessageNotFound
}

func (s *SessionStore) Messages(_ context.Context, userID types.UserID, key string, limit, offset int) ([]types.Message, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionKey{userID, key}]
	if !ok {
		return nil, 0, types.ErrSessionNotFound
	}

	total := len(sess.Messages)
	if offset >= total {
		return []types.Message{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	page := make([]types.Message, end-offset)
	copy(page, sess.Messages[offset:end])
	return page, total, nil
}

func cloneSession(sess *types.Session) *types.Session {
	c := *sess
	c.Messages = make([]types.Message, len(sess.Messages))
	copy(c.Messages, sess.Messages)
	return &c
}
