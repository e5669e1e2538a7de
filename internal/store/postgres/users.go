package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dostify/dostify/internal/types"
)

// UserStore is the PostgreSQL types.UserStore.
type UserStore struct {
	db *pgxpool.Pool
}

func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{db: db}
}

const userCols = "id, email, name, password_hash, telegram_chat_id, created_at"

func scanUser(row pgx.Row) (*types.User, error) {
	var user types.User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		&user.TelegramChatID, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) Create(ctx context.Context, user *types.User) error {
	if user.ID == "" {
		user.ID = types.NewUserID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, email, name, password_hash, telegram_chat_id, created_at)
		 VALUES ($1, lower($2), $3, $4, $5, $6)`,
		user.ID, user.Email, user.Name, user.PasswordHash, user.TelegramChatID, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return types.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id types.UserID) (*types.User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE email = lower($1)`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (s *UserStore) SetPassword(ctx context.Context, id types.UserID, passwordHash string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) SetResetToken(ctx context.Context, id types.UserID, token string, expiresAt time.Time) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO reset_tokens (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		token, id, expiresAt)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return nil
}

func (s *UserStore) ConsumeResetToken(ctx context.Context, token string) (*types.User, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID types.UserID
	err = tx.QueryRow(ctx,
		`DELETE FROM reset_tokens WHERE token = $1 AND expires_at > now()
		 RETURNING user_id`,
		token).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrResetTokenInvalid
		}
		return nil, fmt.Errorf("consume reset token: %w", err)
	}

	user, err := scanUser(tx.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("resolve reset token user: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return user, nil
}
