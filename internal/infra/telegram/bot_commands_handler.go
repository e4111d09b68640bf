// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"habit_reminder_bot/internal/domain/user"
	idb "habit_reminder_bot/internal/infra/database" // For ErrUserNotFound

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const statusCheckFailedReply = "Произошла ошибка при проверке вашего статуса. Пожалуйста, попробуйте позже."

// RegisterBotCommands wires /start and /help. Both only read user data: they
// tell the sender which chat id to put into their profile and whether this
// chat already receives reminders.
func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	userRepo user.Repository,
	baseLogger *logrus.Entry, // For contextual logging
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		chatID := c.Chat().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("chat_id", chatID)
		logCtx.Info("Processing /start command")
		return c.Send(startReply(ctx, userRepo, chatID, logCtx))
	})

	b.Handle("/help", func(c telebot.Context) error {
		chatID := c.Chat().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("chat_id", chatID)
		logCtx.Info("Processing /help command")
		return c.Send(helpReply(chatID), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}

func startReply(ctx context.Context, userRepo user.Repository, chatID int64, logCtx *logrus.Entry) string {
	u, err := userRepo.GetByTelegramChatID(ctx, chatID)
	if err == nil {
		logCtx.WithField("user_id", u.ID).Info("Chat is linked to a user")
		return fmt.Sprintf("Привет! Напоминания о привычках аккаунта %s приходят в этот чат. Часовой пояс: %s.", u.Email, u.Timezone)
	}
	if !errors.Is(err, idb.ErrUserNotFound) {
		logCtx.WithError(err).Error("Error looking up user for /start command")
		return statusCheckFailedReply
	}

	logCtx.Info("Chat is not linked to any user")
	return fmt.Sprintf("Привет! Ваш chat-id: %d. Укажите его в профиле, чтобы получать напоминания о привычках.", chatID)
}

func helpReply(chatID int64) string {
	var helpText strings.Builder
	helpText.WriteString("Я присылаю напоминания о ваших привычках в назначенное время по вашему часовому поясу.\n\n")
	helpText.WriteString(fmt.Sprintf("Ваш chat-id: `%d`. Укажите его в профиле, чтобы включить напоминания.\n\n", chatID))
	helpText.WriteString("`/start`\n - Проверить, привязан ли этот чат к аккаунту.\n\n")
	helpText.WriteString("`/help`\n - Показать это справочное сообщение.")
	return helpText.String()
}
