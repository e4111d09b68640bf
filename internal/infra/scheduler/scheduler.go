package scheduler

import (
	"context"
	"fmt"
	"time"

	"habit_reminder_bot/internal/app" // For ReminderService interface

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type ReminderScheduler struct {
	cronEngine            *cron.Cron
	reminderService       app.ReminderService
	logger                *logrus.Entry
	cronSpecReminderCheck string
	runTimeout            time.Duration
}

func NewReminderScheduler(
	reminderService app.ReminderService,
	logger *logrus.Entry,
	cronSpecReminderCheck string, // e.g., "* * * * *" (every minute)
	runTimeout time.Duration,
) *ReminderScheduler {
	schedLogger := logger.WithField("component", "scheduler")
	return &ReminderScheduler{
		// Habit times are compared in each user's own zone, so the trigger itself runs in UTC.
		// An overlapping run is skipped rather than queued behind the slow one.
		cronEngine: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{schedLogger})),
		),
		reminderService:       reminderService,
		logger:                schedLogger,
		cronSpecReminderCheck: cronSpecReminderCheck,
		runTimeout:            runTimeout,
	}
}

// Start registers the reminder job and starts the cron engine.
func (s *ReminderScheduler) Start() error {
	s.logger.Info("Starting reminder scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecReminderCheck, s.runReminderCheck)
	if err != nil {
		return fmt.Errorf("could not add reminder check cron job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.WithField("spec", s.cronSpecReminderCheck).Info("Reminder scheduler started")
	return nil
}

func (s *ReminderScheduler) runReminderCheck() {
	s.logger.Debug("Cron job triggered for reminder check.")
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()
	if _, err := s.reminderService.RunOnce(ctx); err != nil {
		s.logger.WithError(err).Error("Error during reminder check")
	}
}

func (s *ReminderScheduler) Stop() {
	s.logger.Info("Stopping reminder scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Reminder scheduler gracefully stopped.")
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(toFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(toFields(keysAndValues)).WithError(err).Error(msg)
}

func toFields(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
