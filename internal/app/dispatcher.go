// internal/app/dispatcher.go
package app

import (
	"context"
	"sync"
	"time"

	"habit_reminder_bot/internal/domain/reminder"
	domainTelegram "habit_reminder_bot/internal/domain/telegram"
	"habit_reminder_bot/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

// Dispatcher is the asynchronous hand-off between evaluation and delivery.
// Enqueue never blocks; workers deliver independently of each other.
type Dispatcher struct {
	sender   domainTelegram.Sender
	queue    chan *reminder.Reminder
	workers  int
	deadline time.Duration
	metrics  *metrics.Metrics
	logger   *logrus.Entry

	mu      sync.RWMutex
	started bool
	closed  bool
	wg      sync.WaitGroup
}

func NewDispatcher(
	sender domainTelegram.Sender,
	queueSize int,
	workers int,
	deadline time.Duration, // upper bound for one delivery including retries
	m *metrics.Metrics,
	logger *logrus.Entry,
) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		sender:   sender,
		queue:    make(chan *reminder.Reminder, queueSize),
		workers:  workers,
		deadline: deadline,
		metrics:  m,
		logger:   logger.WithField("component", "dispatcher"),
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(i)
	}
	d.logger.WithField("workers", d.workers).Info("Dispatcher started")
}

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()
	for r := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.deadline)
		d.sender.Send(ctx, r.ChatID, r.Text)
		cancel()
		d.logger.WithFields(logrus.Fields{
			"worker":   id,
			"habit_id": r.HabitID,
		}).Debug("Reminder handed to sender")
	}
}

// Enqueue places r on the queue. It returns false if the queue is full or
// the dispatcher has been stopped; the reminder is dropped in that case.
func (d *Dispatcher) Enqueue(r *reminder.Reminder) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(r, "stopped")
		return false
	}
	select {
	case d.queue <- r:
		d.metrics.IncEnqueued()
		return true
	default:
		d.drop(r, "queue_full")
		return false
	}
}

func (d *Dispatcher) drop(r *reminder.Reminder, reason string) {
	d.metrics.IncDropped()
	d.logger.WithFields(logrus.Fields{
		"habit_id": r.HabitID,
		"chat_id":  r.ChatID,
		"reason":   reason,
	}).Warn("Reminder dropped")
}

// Stop closes the queue and waits for workers to drain it, or for ctx to end.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.logger.WithError(ctx.Err()).Warn("Dispatcher stop timed out, pending deliveries abandoned")
		return ctx.Err()
	}
}
