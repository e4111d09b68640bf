// internal/domain/reminder/reminder.go
package reminder

import (
	"fmt"

	"habit_reminder_bot/internal/domain/habit"
	"habit_reminder_bot/internal/domain/user"
)

// Candidate is a habit together with what the evaluator needs to know about
// its owner and its linked pleasant habit.
type Candidate struct {
	Habit *habit.Habit
	Owner *user.User
	// RelatedAction is the action of the linked pleasant habit, empty when
	// there is none or it has been deleted.
	RelatedAction string
}

// Reminder is a message ready to be handed to a sender.
type Reminder struct {
	HabitID   int64
	ChatID    int64
	Text      string
	LocalDate string // YYYY-MM-DD in the owner's zone
	LocalTime string // HH:MM in the owner's zone
}

// IdempotencyKey identifies one reminder slot of one habit.
func (r *Reminder) IdempotencyKey() string {
	return fmt.Sprintf("reminder:%d:%s:%s", r.HabitID, r.LocalDate, r.LocalTime)
}

// Outcome is the result of evaluating one candidate. Reminder is set only for OutcomeDue,
// Reason only for OutcomeSkippedInvalid.
type Outcome struct {
	Kind     OutcomeKind
	HabitID  int64
	Reminder *Reminder
	Reason   string
}
