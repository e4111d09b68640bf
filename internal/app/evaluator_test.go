package app

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"habit_reminder_bot/internal/domain/habit"
	"habit_reminder_bot/internal/domain/reminder"
	"habit_reminder_bot/internal/domain/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utc(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func newCandidate(tz string, at habit.TimeOfDay, periodicity int, createdAt time.Time) *reminder.Candidate {
	return &reminder.Candidate{
		Habit: &habit.Habit{
			ID:          1,
			UserID:      1,
			Action:      "выпить стакан воды",
			Place:       "дома",
			Time:        &at,
			Periodicity: periodicity,
			Duration:    120,
			CreatedAt:   createdAt,
		},
		Owner: &user.User{
			ID:             1,
			Email:          "user@test.com",
			Timezone:       tz,
			TelegramChatID: sql.NullInt64{Int64: 111, Valid: true},
		},
	}
}

func TestEvaluateCandidate_FiresOnCreationDayAtLocalTime(t *testing.T) {
	c := newCandidate("Europe/Moscow", habit.TimeOfDay{Hour: 10}, 1, utc(2024, 1, 1, 6, 0))

	outcome := EvaluateCandidate(utc(2024, 1, 1, 7, 0), c)

	require.Equal(t, reminder.OutcomeDue, outcome.Kind)
	require.NotNil(t, outcome.Reminder)
	assert.Equal(t, int64(111), outcome.Reminder.ChatID)
	assert.Equal(t, int64(1), outcome.Reminder.HabitID)
	assert.Equal(t, "2024-01-01", outcome.Reminder.LocalDate)
	assert.Equal(t, "10:00", outcome.Reminder.LocalTime)
	assert.Contains(t, outcome.Reminder.Text, "выпить стакан воды")
}

func TestEvaluateCandidate_MinuteMismatch(t *testing.T) {
	c := newCandidate("Europe/Moscow", habit.TimeOfDay{Hour: 10}, 1, utc(2024, 1, 1, 6, 0))

	outcome := EvaluateCandidate(utc(2024, 1, 1, 7, 1), c)

	assert.Equal(t, reminder.OutcomeNotDue, outcome.Kind)
	assert.Nil(t, outcome.Reminder)
}

func TestEvaluateCandidate_SecondsAreIgnored(t *testing.T) {
	c := newCandidate("Europe/Moscow", habit.TimeOfDay{Hour: 10}, 1, utc(2024, 1, 1, 6, 0))

	outcome := EvaluateCandidate(utc(2024, 1, 1, 7, 0).Add(59*time.Second), c)

	assert.Equal(t, reminder.OutcomeDue, outcome.Kind)
}

func TestEvaluateCandidate_Periodicity(t *testing.T) {
	created := utc(2024, 1, 1, 7, 0)
	tests := []struct {
		name        string
		periodicity int
		now         time.Time
		want        reminder.OutcomeKind
	}{
		{name: "three days, every three days", periodicity: 3, now: utc(2024, 1, 4, 7, 0), want: reminder.OutcomeDue},
		{name: "two days, every three days", periodicity: 3, now: utc(2024, 1, 3, 7, 0), want: reminder.OutcomeNotDue},
		{name: "six days, every three days", periodicity: 3, now: utc(2024, 1, 7, 7, 0), want: reminder.OutcomeDue},
		{name: "daily", periodicity: 1, now: utc(2024, 1, 9, 7, 0), want: reminder.OutcomeDue},
		{name: "weekly on day seven", periodicity: 7, now: utc(2024, 1, 8, 7, 0), want: reminder.OutcomeDue},
		{name: "weekly on day six", periodicity: 7, now: utc(2024, 1, 7, 7, 0), want: reminder.OutcomeNotDue},
		{name: "creation day ignores periodicity", periodicity: 7, now: utc(2024, 1, 1, 7, 0), want: reminder.OutcomeDue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCandidate("Europe/Moscow", habit.TimeOfDay{Hour: 10}, tt.periodicity, created)
			assert.Equal(t, tt.want, EvaluateCandidate(tt.now, c).Kind)
		})
	}
}

func TestEvaluateCandidate_UsesLocalDatesNotUTCDates(t *testing.T) {
	// 23:00 local on Jan 1 is still Jan 1 in UTC (11:00). At 08:00 local on
	// Jan 3 it is Jan 2 in UTC, so only local dates give two days passed.
	created := utc(2024, 1, 1, 11, 0)
	c := newCandidate("Asia/Kamchatka", habit.TimeOfDay{Hour: 8}, 2, created)

	outcome := EvaluateCandidate(utc(2024, 1, 2, 20, 0), c)

	require.Equal(t, reminder.OutcomeDue, outcome.Kind)
	assert.Equal(t, "2024-01-03", outcome.Reminder.LocalDate)
}

func TestEvaluateCandidate_DaylightSavingTransition(t *testing.T) {
	// Berlin moves to CEST on 2024-03-31. Created 09:00 CET on Mar 30, checked
	// 09:00 CEST on Apr 1: 47 elapsed hours but two calendar days.
	created := utc(2024, 3, 30, 8, 0)
	c := newCandidate("Europe/Berlin", habit.TimeOfDay{Hour: 9}, 2, created)

	assert.Equal(t, reminder.OutcomeDue, EvaluateCandidate(utc(2024, 4, 1, 7, 0), c).Kind)
	assert.Equal(t, reminder.OutcomeNotDue, EvaluateCandidate(utc(2024, 4, 1, 8, 0), c).Kind)
}

func TestEvaluateCandidate_CreatedInTheFuture(t *testing.T) {
	created := utc(2024, 1, 4, 6, 0)

	c := newCandidate("Europe/Moscow", habit.TimeOfDay{Hour: 10}, 3, created)
	assert.Equal(t, reminder.OutcomeDue, EvaluateCandidate(utc(2024, 1, 1, 7, 0), c).Kind, "-3 is a multiple of 3")

	c = newCandidate("Europe/Moscow", habit.TimeOfDay{Hour: 10}, 2, created)
	assert.Equal(t, reminder.OutcomeNotDue, EvaluateCandidate(utc(2024, 1, 1, 7, 0), c).Kind)
}

func TestEvaluateCandidate_SkipsInvalidRecords(t *testing.T) {
	now := utc(2024, 1, 1, 7, 0)
	created := utc(2024, 1, 1, 6, 0)

	badTZ := newCandidate("Mars/Olympus", habit.TimeOfDay{Hour: 10}, 1, created)
	emptyTZ := newCandidate("", habit.TimeOfDay{Hour: 10}, 1, created)

	noTime := newCandidate("Europe/Moscow", habit.TimeOfDay{Hour: 10}, 1, created)
	noTime.Habit.Time = nil

	noChat := newCandidate("Europe/Moscow", habit.TimeOfDay{Hour: 10}, 1, created)
	noChat.Owner.TelegramChatID = sql.NullInt64{}

	zeroPeriod := newCandidate("Europe/Moscow", habit.TimeOfDay{Hour: 10}, 0, created)

	noOwner := newCandidate("Europe/Moscow", habit.TimeOfDay{Hour: 10}, 1, created)
	noOwner.Owner = nil

	tests := []struct {
		name   string
		c      *reminder.Candidate
		reason string
	}{
		{"unknown zone", badTZ, reminder.ReasonBadTimezone},
		{"empty zone", emptyTZ, reminder.ReasonBadTimezone},
		{"no time", noTime, reminder.ReasonNoTime},
		{"no chat", noChat, reminder.ReasonNoChatID},
		{"zero periodicity", zeroPeriod, reminder.ReasonBadPeriodicity},
		{"no owner", noOwner, reminder.ReasonIncompleteCandidate},
		{"nil candidate", nil, reminder.ReasonIncompleteCandidate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := EvaluateCandidate(now, tt.c)
			assert.Equal(t, reminder.OutcomeSkippedInvalid, outcome.Kind)
			assert.Equal(t, tt.reason, outcome.Reason)
			assert.Nil(t, outcome.Reminder)
		})
	}
}

func TestEvaluate_BadRecordDoesNotAbortBatch(t *testing.T) {
	now := utc(2024, 1, 1, 7, 0)
	created := utc(2024, 1, 1, 6, 0)

	bad := newCandidate("Mars/Olympus", habit.TimeOfDay{Hour: 10}, 1, created)
	good := newCandidate("Europe/Moscow", habit.TimeOfDay{Hour: 10}, 1, created)
	good.Habit.ID = 2

	outcomes := Evaluate(now, []*reminder.Candidate{bad, good})

	require.Len(t, outcomes, 2)
	assert.Equal(t, reminder.OutcomeSkippedInvalid, outcomes[0].Kind)
	assert.Equal(t, reminder.OutcomeDue, outcomes[1].Kind)
	assert.Equal(t, int64(2), outcomes[1].HabitID)
}

func TestEvaluate_IsIdempotent(t *testing.T) {
	created := utc(2024, 1, 1, 6, 0)
	var candidates []*reminder.Candidate
	for i, tz := range user.SupportedTimezones {
		c := newCandidate(tz, habit.TimeOfDay{Hour: 10, Minute: i}, i%7+1, created)
		c.Habit.ID = int64(i + 1)
		candidates = append(candidates, c)
	}

	for minute := 0; minute < 24*60; minute += 7 {
		now := created.Add(time.Duration(minute) * time.Minute)
		assert.Equal(t, Evaluate(now, candidates), Evaluate(now, candidates))
	}
}

func TestIsDue_MatchesRule(t *testing.T) {
	loc, err := user.LoadLocation("Asia/Vladivostok")
	require.NoError(t, err)

	created := time.Date(2024, 5, 10, 21, 30, 0, 0, loc)
	for periodicity := 1; periodicity <= 7; periodicity++ {
		h := &habit.Habit{Time: &habit.TimeOfDay{Hour: 6, Minute: 15}, Periodicity: periodicity, CreatedAt: created.UTC()}
		for day := 0; day < 30; day++ {
			at := time.Date(2024, 5, 10+day, 6, 15, 0, 0, loc)
			assert.Equal(t, day%periodicity == 0, IsDue(h, at), "periodicity %d day %d", periodicity, day)

			off := at.Add(time.Minute)
			assert.False(t, IsDue(h, off))
		}
	}
}

func TestBuildMessage(t *testing.T) {
	created := utc(2024, 1, 1, 6, 0)

	t.Run("reward only", func(t *testing.T) {
		c := newCandidate("Europe/Moscow", habit.TimeOfDay{Hour: 10}, 1, created)
		c.Habit.Reward = sql.NullString{String: "candy", Valid: true}

		msg := BuildMessage(c)
		assert.Contains(t, msg, "candy")
		assert.Contains(t, msg, strings.TrimSpace(strings.Split(rewardClauseFormat, "%s")[0]))
		assert.NotContains(t, msg, strings.TrimSpace(strings.Split(relatedClauseFormat, "%s")[0]))
	})

	t.Run("related habit only", func(t *testing.T) {
		c := newCandidate("Europe/Moscow", habit.TimeOfDay{Hour: 10}, 1, created)
		c.Habit.RelatedHabitID = sql.NullInt64{Int64: 5, Valid: true}
		c.RelatedAction = "съесть яблоко"

		msg := BuildMessage(c)
		assert.Contains(t, msg, "съесть яблоко")
		assert.NotContains(t, msg, strings.TrimSpace(strings.Split(rewardClauseFormat, "%s")[0]))
	})

	t.Run("both set keeps only reward", func(t *testing.T) {
		c := newCandidate("Europe/Moscow", habit.TimeOfDay{Hour: 10}, 1, created)
		c.Habit.Reward = sql.NullString{String: "candy", Valid: true}
		c.Habit.RelatedHabitID = sql.NullInt64{Int64: 5, Valid: true}
		c.RelatedAction = "съесть яблоко"

		msg := BuildMessage(c)
		assert.Contains(t, msg, "candy")
		assert.NotContains(t, msg, "съесть яблоко")
	})

	t.Run("deleted related habit", func(t *testing.T) {
		c := newCandidate("Europe/Moscow", habit.TimeOfDay{Hour: 10}, 1, created)
		c.Habit.RelatedHabitID = sql.NullInt64{Int64: 5, Valid: true}

		assert.Equal(t, "Время выполнить привычку: выпить стакан воды. Это займёт всего пару минут, ты справишься!", BuildMessage(c))
	})

	t.Run("no reward or related", func(t *testing.T) {
		c := newCandidate("Europe/Moscow", habit.TimeOfDay{Hour: 10}, 1, created)
		assert.Equal(t, "Время выполнить привычку: выпить стакан воды. Это займёт всего пару минут, ты справишься!", BuildMessage(c))
	})
}
