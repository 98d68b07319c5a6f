package connlog

import (
	"context"
	"time"
)

// Repository is the append-only audit sink for login outcomes. The lockout
// engine derives its counters from CountSince at check time; no entry is
// ever updated or deleted.
type Repository interface {
	Append(ctx context.Context, username, outcome string, at time.Time) error
	CountSince(ctx context.Context, username, outcome string, since time.Time) (int, error)
}
