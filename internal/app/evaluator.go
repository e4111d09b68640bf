// internal/app/evaluator.go
package app

import (
	"fmt"
	"time"

	"habit_reminder_bot/internal/domain/habit"
	"habit_reminder_bot/internal/domain/reminder"
	"habit_reminder_bot/internal/domain/user"
)

const (
	baseMessageFormat   = "Время выполнить привычку: %s. Это займёт всего пару минут, ты справишься!"
	rewardClauseFormat  = " Награда: %s."
	relatedClauseFormat = " После этого можно порадовать себя: %s."
	localDateLayout     = "2006-01-02"
	localTimeLayout     = "15:04"
	secondsPerCivilDay  = 24 * 60 * 60
)

// LocalNow converts an absolute instant into the user's zone, truncated to the minute.
func LocalNow(now time.Time, loc *time.Location) time.Time {
	return now.In(loc).Truncate(time.Minute)
}

// civilDay numbers calendar dates so that consecutive dates differ by one,
// regardless of DST shifts in the zone t is expressed in.
func civilDay(t time.Time) int64 {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix() / secondsPerCivilDay
}

// IsDue reports whether h fires at userNow. userNow must already be in the
// owner's zone; the creation instant is converted into the same zone.
func IsDue(h *habit.Habit, userNow time.Time) bool {
	if h.Time == nil || h.Periodicity < 1 {
		return false
	}
	if userNow.Hour() != h.Time.Hour || userNow.Minute() != h.Time.Minute {
		return false
	}

	createdLocal := h.CreatedAt.In(userNow.Location())
	daysPassed := civilDay(userNow) - civilDay(createdLocal)
	return daysPassed == 0 || daysPassed%int64(h.Periodicity) == 0
}

// BuildMessage assembles the reminder text. At most one of the reward and
// related-habit clauses is added, reward first.
func BuildMessage(c *reminder.Candidate) string {
	h := c.Habit
	msg := fmt.Sprintf(baseMessageFormat, h.Action)
	if h.HasReward() {
		msg += fmt.Sprintf(rewardClauseFormat, h.Reward.String)
	} else if h.HasRelatedHabit() && c.RelatedAction != "" {
		msg += fmt.Sprintf(relatedClauseFormat, c.RelatedAction)
	}
	return msg
}

// EvaluateCandidate decides whether c is due at now. It never fails: bad
// records come back as OutcomeSkippedInvalid.
func EvaluateCandidate(now time.Time, c *reminder.Candidate) reminder.Outcome {
	if c == nil || c.Habit == nil || c.Owner == nil {
		return skipped(c, reminder.ReasonIncompleteCandidate)
	}
	h := c.Habit
	if !c.Owner.CanBeReminded() {
		return skipped(c, reminder.ReasonNoChatID)
	}
	if h.Time == nil {
		return skipped(c, reminder.ReasonNoTime)
	}
	if h.Periodicity < 1 {
		return skipped(c, reminder.ReasonBadPeriodicity)
	}
	loc, err := user.LoadLocation(c.Owner.Timezone)
	if err != nil {
		return skipped(c, reminder.ReasonBadTimezone)
	}

	userNow := LocalNow(now, loc)
	if !IsDue(h, userNow) {
		return reminder.Outcome{Kind: reminder.OutcomeNotDue, HabitID: h.ID}
	}

	return reminder.Outcome{
		Kind:    reminder.OutcomeDue,
		HabitID: h.ID,
		Reminder: &reminder.Reminder{
			HabitID:   h.ID,
			ChatID:    c.Owner.TelegramChatID.Int64,
			Text:      BuildMessage(c),
			LocalDate: userNow.Format(localDateLayout),
			LocalTime: userNow.Format(localTimeLayout),
		},
	}
}

// Evaluate runs EvaluateCandidate over every candidate, preserving order.
func Evaluate(now time.Time, candidates []*reminder.Candidate) []reminder.Outcome {
	outcomes := make([]reminder.Outcome, 0, len(candidates))
	for _, c := range candidates {
		outcomes = append(outcomes, EvaluateCandidate(now, c))
	}
	return outcomes
}

func skipped(c *reminder.Candidate, reason string) reminder.Outcome {
	o := reminder.Outcome{Kind: reminder.OutcomeSkippedInvalid, Reason: reason}
	if c != nil && c.Habit != nil {
		o.HabitID = c.Habit.ID
	}
	return o
}
