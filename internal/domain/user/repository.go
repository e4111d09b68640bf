package user

import (
	"context"
)

// Repository gives read access to users.
type Repository interface {
	GetByTelegramChatID(ctx context.Context, chatID int64) (*User, error)
}
