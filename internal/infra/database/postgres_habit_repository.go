package database

import (
	"context"
	"database/sql"
	"fmt" // For error wrapping

	"habit_reminder_bot/internal/domain/habit"
	"habit_reminder_bot/internal/domain/reminder"
	"habit_reminder_bot/internal/domain/user"
)

type PostgresHabitRepository struct {
	db *sql.DB
}

func NewPostgresHabitRepository(db *sql.DB) *PostgresHabitRepository {
	return &PostgresHabitRepository{db: db}
}

const listReminderCandidatesQuery = `SELECT h.id, h.user_id, h.action, h.place, h.habit_time, h.periodicity, h.duration,
               h.is_pleasant, h.reward, h.related_habit_id, h.is_public, h.created_at, h.updated_at,
               u.id, u.email, u.timezone, u.tg_chat_id, u.is_active, u.created_at,
               COALESCE(r.action, '')
               FROM habits h
               JOIN users u ON u.id = h.user_id
               LEFT JOIN habits r ON r.id = h.related_habit_id
               WHERE u.tg_chat_id IS NOT NULL
               ORDER BY h.periodicity, h.habit_time, h.id`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ListReminderCandidates returns every habit whose owner has a Telegram chat id,
// together with the owner and the action of the linked pleasant habit.
func (r *PostgresHabitRepository) ListReminderCandidates(ctx context.Context) ([]*reminder.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, listReminderCandidatesQuery)
	if err != nil {
		return nil, fmt.Errorf("error listing reminder candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]*reminder.Candidate, 0)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning reminder candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminder candidates: %w", err)
	}
	return candidates, nil
}

func scanCandidate(row rowScanner) (*reminder.Candidate, error) {
	h := &habit.Habit{}
	u := &user.User{}
	var habitTime sql.NullString
	var relatedAction string

	err := row.Scan(
		&h.ID, &h.UserID, &h.Action, &h.Place, &habitTime, &h.Periodicity, &h.Duration,
		&h.IsPleasant, &h.Reward, &h.RelatedHabitID, &h.IsPublic, &h.CreatedAt, &h.UpdatedAt,
		&u.ID, &u.Email, &u.Timezone, &u.TelegramChatID, &u.IsActive, &u.CreatedAt,
		&relatedAction,
	)
	if err != nil {
		return nil, err
	}

	// An unparsable time leaves Time nil, which the evaluator treats as "no reminder time".
	if habitTime.Valid {
		if tod, perr := habit.ParseTimeOfDay(habitTime.String); perr == nil {
			h.Time = &tod
		}
	}

	return &reminder.Candidate{Habit: h, Owner: u, RelatedAction: relatedAction}, nil
}
