// internal/domain/reminder/repository.go
package reminder

import (
	"context"
)

// CandidateSource loads habits whose owner has a notification destination.
type CandidateSource interface {
	ListReminderCandidates(ctx context.Context) ([]*Candidate, error)
}

// Deduper claims an idempotency key. It returns true the first time a key is seen.
type Deduper interface {
	AcquireOnce(ctx context.Context, key string) bool
}
