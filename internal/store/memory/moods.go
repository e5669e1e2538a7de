package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dostify/dostify/internal/types"
)

// MoodStore is an in-memory types.MoodStore.
type MoodStore struct {
	mu   sync.RWMutex
	logs []*types.MoodLog
}

func NewMoodStore() *MoodStore {
	return &MoodStore{}
}

func (s *MoodStore) Create(_ context.Context, log *types.MoodLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if log.ID == "" {
		log.ID = types.NewMoodLogID()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	c := *log
	s.logs = append(s.logs, &c)
	return nil
}

func (s *MoodStore) ListSince(_ context.Context, userID types.UserID, since time.Time) ([]*types.MoodLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*types.MoodLog
	for _, log := range s.logs {
		if log.UserID != userID || log.CreatedAt.Before(since) {
			continue
		}
		c := *log
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
