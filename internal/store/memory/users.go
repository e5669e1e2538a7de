package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dostify/dostify/internal/types"
)

type resetToken struct {
	userID    types.UserID
	expiresAt time.Time
}

// UserStore is an in-memory types.UserStore.
type UserStore struct {
	mu     sync.RWMutex
	users  map[types.UserID]*types.User
	resets map[string]resetToken
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:  make(map[types.UserID]*types.User),
		resets: make(map[string]resetToken),
	}
}

func (s *UserStore) Create(_ context.Context, user *types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return types.ErrEmailTaken
		}
	}
	if user.ID == "" {
		user.ID = types.NewUserID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id types.UserID) (*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	c := *user
	return &c, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			c := *user
			return &c, nil
		}
	}
	return nil, types.ErrUserNotFound
}

func (s *UserStore) SetPassword(_ context.Context, id types.UserID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return types.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (s *UserStore) SetResetToken(_ context.Context, id types.UserID, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return types.ErrUserNotFound
	}
	s.resets[token] = resetToken{userID: id, expiresAt: expiresAt}
	return nil
}

func (s *UserStore) ConsumeResetToken(_ context.Context, token string) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.resets[token]
	if !ok {
		return nil, types.ErrResetTokenInvalid
	}
	delete(s.resets, token)
	if time.Now().After(rt.expiresAt) {
		return nil, types.ErrResetTokenInvalid
	}
	user, ok := s.users[rt.userID]
	if !ok {
		return nil, types.ErrResetTokenInvalid
	}
	c := *user
	return &c, nil
}
