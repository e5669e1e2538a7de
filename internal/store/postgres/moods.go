package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dostify/dostify/internal/types"
)

// MoodStore is the PostgreSQL types.MoodStore.
type MoodStore struct {
	db *pgxpool.Pool
}

func NewMoodStore(db *pgxpool.Pool) *MoodStore {
	return &MoodStore{db: db}
}

func (s *MoodStore) Create(ctx context.Context, log *types.MoodLog) error {
	if log.ID == "" {
		log.ID = types.NewMoodLogID()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO mood_logs (id, user_id, mood, note, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		log.ID, log.UserID, log.Mood, log.Note, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("create mood log: %w", err)
	}
	return nil
}

func (s *MoodStore) ListSince(ctx context.Context, userID types.UserID, since time.Time) ([]*types.MoodLog, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, mood, note, created_at
		 FROM mood_logs
		 WHERE user_id = $1 AND created_at >= $2
		 ORDER BY created_at DESC`,
		userID, since)
	if err != nil {
		return nil, fmt.Errorf("list mood logs: %w", err)
	}
	defer rows.Close()

	var out []*types.MoodLog
	for rows.Next() {
		var log types.MoodLog
		if err := rows.Scan(&log.ID, &log.UserID, &log.Mood, &log.Note, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mood log: %w", err)
		}
		out = append(out, &log)
	}
	return out, rows.Err()
}
