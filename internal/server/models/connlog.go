package models

import "time"

// Connection-log outcome tags. The log is append-only; the lockout policy
// engine derives its counters from it.
const (
	OutcomeFailPassword = "fail_password"
	OutcomeFailLogin    = "fail_login"
	OutcomeBlocked      = "blocked"
	OutcomeUnblocked    = "unblocked"
)

// ConnectionLogEntry records the outcome of a single login attempt or an
// administrative reset.
type ConnectionLogEntry struct {
	ID        int64
	Username  string
	Outcome   string
	CreatedAt time.Time
}
