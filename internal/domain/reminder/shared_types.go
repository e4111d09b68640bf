// internal/domain/reminder/shared_types.go
package reminder

// OutcomeKind says what the evaluator decided for a habit in one run.
type OutcomeKind string

const (
	OutcomeDue            OutcomeKind = "due"
	OutcomeNotDue         OutcomeKind = "not_due"
	OutcomeSkippedInvalid OutcomeKind = "skipped_invalid"
)

// Reasons attached to OutcomeSkippedInvalid.
const (
	ReasonNoTime              = "no_time"
	ReasonBadTimezone         = "bad_timezone"
	ReasonNoChatID            = "no_chat_id"
	ReasonBadPeriodicity      = "bad_periodicity"
	ReasonIncompleteCandidate = "incomplete_candidate"
)
