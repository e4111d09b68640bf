package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"habit_reminder_bot/internal/domain/user"
)

// Custom errors
var ErrUserNotFound = errors.New("user not found")

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// GetByTelegramChatID returns the user linked to chatID. If several accounts
// share a chat the oldest one wins.
func (r *PostgresUserRepository) GetByTelegramChatID(ctx context.Context, chatID int64) (*user.User, error) {
	query := `SELECT id, email, timezone, tg_chat_id, is_active, created_at
               FROM users WHERE tg_chat_id = $1 ORDER BY id LIMIT 1`
	u := &user.User{}
	err := r.db.QueryRowContext(ctx, query, chatID).Scan(&u.ID, &u.Email, &u.Timezone, &u.TelegramChatID, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user by Telegram chat ID: %w", err)
	}
	return u, nil
}
