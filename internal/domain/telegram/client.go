package telegram

import "context"

// Sender delivers a text message to a Telegram chat. Implementations must not
// return delivery failures to the caller; they record them instead.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string)
}
