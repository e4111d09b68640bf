// internal/domain/habit/habit.go
package habit

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	MaxDuration    = 120 // seconds
	MinPeriodicity = 1
	MaxPeriodicity = 7
)

var (
	ErrRewardAndRelated      = errors.New("habit cannot have both a reward and a related habit")
	ErrPleasantWithReward    = errors.New("pleasant habit cannot have a reward or a related habit")
	ErrRelatedNotPleasant    = errors.New("related habit must be pleasant")
	ErrDurationTooLong       = fmt.Errorf("duration must not exceed %d seconds", MaxDuration)
	ErrPeriodicityOutOfRange = fmt.Errorf("periodicity must be between %d and %d days", MinPeriodicity, MaxPeriodicity)
	ErrInvalidTimeOfDay      = errors.New("invalid time of day")
)

// TimeOfDay is a wall-clock hour and minute with no zone attached.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS" (the Postgres TIME text form).
// Seconds are discarded.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
}

// Habit is a user's recurring action. Time is nil when no reminder time is set.
type Habit struct {
	ID             int64
	UserID         int64
	Action         string
	Place          string
	Time           *TimeOfDay
	Periodicity    int
	Duration       int
	IsPleasant     bool
	Reward         sql.NullString
	RelatedHabitID sql.NullInt64
	IsPublic       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (h *Habit) HasReward() bool {
	return h.Reward.Valid && h.Reward.String != ""
}

func (h *Habit) HasRelatedHabit() bool {
	return h.RelatedHabitID.Valid
}

// Validate checks the invariants a habit must satisfy before it is persisted.
// related is the habit referenced by RelatedHabitID, or nil if it is unknown.
// Uniqueness of (user, action, place) is enforced by the store.
func Validate(h *Habit, related *Habit) error {
	if h.HasReward() && h.HasRelatedHabit() {
		return ErrRewardAndRelated
	}
	if h.IsPleasant && (h.HasReward() || h.HasRelatedHabit()) {
		return ErrPleasantWithReward
	}
	if h.HasRelatedHabit() && related != nil && !related.IsPleasant {
		return ErrRelatedNotPleasant
	}
	if h.Duration > MaxDuration {
		return ErrDurationTooLong
	}
	if h.Periodicity < MinPeriodicity || h.Periodicity > MaxPeriodicity {
		return ErrPeriodicityOutOfRange
	}
	return nil
}
