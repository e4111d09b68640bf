// internal/app/reminder_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"habit_reminder_bot/internal/domain/habit"
	"habit_reminder_bot/internal/domain/reminder"
	"habit_reminder_bot/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReminderService runs one evaluation pass over all eligible habits.
type ReminderService interface {
	RunOnce(ctx context.Context) (RunStats, error)
}

// Enqueuer accepts reminders for asynchronous delivery without blocking.
type Enqueuer interface {
	Enqueue(r *reminder.Reminder) bool
}

// RunStats summarises one evaluation pass.
type RunStats struct {
	Candidates int
	Due        int
	NotDue     int
	Skipped    int
	Duplicates int
	Enqueued   int
	Dropped    int
}

// ReminderServiceImpl implements ReminderService.
type ReminderServiceImpl struct {
	source  reminder.CandidateSource
	queue   Enqueuer
	deduper reminder.Deduper // nil disables the duplicate guard
	metrics *metrics.Metrics
	now     func() time.Time
	logger  *logrus.Entry
}

func NewReminderServiceImpl(
	source reminder.CandidateSource,
	queue Enqueuer,
	deduper reminder.Deduper,
	m *metrics.Metrics,
	now func() time.Time, // nil means time.Now
	logger *logrus.Entry,
) *ReminderServiceImpl {
	if now == nil {
		now = time.Now
	}
	return &ReminderServiceImpl{
		source:  source,
		queue:   queue,
		deduper: deduper,
		metrics: m,
		now:     now,
		logger:  logger.WithField("component", "reminder_service"),
	}
}

// RunOnce loads candidates, evaluates them against the current instant and
// enqueues the due reminders. Only a failure to load candidates is returned;
// per-habit problems are logged and the pass continues.
func (s *ReminderServiceImpl) RunOnce(ctx context.Context) (RunStats, error) {
	var stats RunStats
	start := time.Now()
	now := s.now().UTC()
	logCtx := s.logger.WithFields(logrus.Fields{
		"run_id": uuid.NewString(),
		"now":    now.Format(time.RFC3339),
	})

	candidates, err := s.source.ListReminderCandidates(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load reminder candidates")
		return stats, fmt.Errorf("failed to load reminder candidates: %w", err)
	}
	stats.Candidates = len(candidates)
	logCtx.WithField("candidates", stats.Candidates).Debug("Evaluating habits")

	for _, c := range candidates {
		if c != nil && c.Habit != nil {
			if verr := habit.Validate(c.Habit, nil); verr != nil {
				logCtx.WithError(verr).WithField("habit_id", c.Habit.ID).Warn("Habit violates write-time invariants, evaluating anyway")
			}
		}

		outcome := EvaluateCandidate(now, c)
		s.metrics.IncEvaluation(string(outcome.Kind))

		switch outcome.Kind {
		case reminder.OutcomeNotDue:
			stats.NotDue++
		case reminder.OutcomeSkippedInvalid:
			stats.Skipped++
			logCtx.WithFields(logrus.Fields{
				"habit_id": outcome.HabitID,
				"reason":   outcome.Reason,
			}).Warn("Habit skipped")
		case reminder.OutcomeDue:
			stats.Due++
			s.handOff(ctx, logCtx, outcome.Reminder, &stats)
		}
	}

	s.metrics.ObserveRunDuration(time.Since(start).Seconds())
	logCtx.WithFields(logrus.Fields{
		"candidates": stats.Candidates,
		"due":        stats.Due,
		"skipped":    stats.Skipped,
		"duplicates": stats.Duplicates,
		"enqueued":   stats.Enqueued,
		"dropped":    stats.Dropped,
	}).Info("Reminder evaluation finished")
	return stats, nil
}

func (s *ReminderServiceImpl) handOff(ctx context.Context, logCtx *logrus.Entry, r *reminder.Reminder, stats *RunStats) {
	key := r.IdempotencyKey()
	if s.deduper != nil && !s.deduper.AcquireOnce(ctx, key) {
		stats.Duplicates++
		s.metrics.IncDuplicate()
		logCtx.WithFields(logrus.Fields{
			"habit_id": r.HabitID,
			"key":      key,
		}).Info("Reminder already claimed for this slot, skipping")
		return
	}

	if s.queue.Enqueue(r) {
		stats.Enqueued++
		return
	}
	stats.Dropped++
}
