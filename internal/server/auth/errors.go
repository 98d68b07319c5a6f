package auth

import "errors"

// Authentication error taxonomy. Credential-shaped failures (wrong password,
// unknown account) are reported as a nil user / false result, never as an
// error, so the web layer cannot leak which case occurred. The sentinels
// below cover the cases that must stay distinguishable.
var (
	// ErrAccountInactive means the account was deactivated; retrying is
	// pointless without administrator action. Surfaced with its own
	// user-facing message.
	ErrAccountInactive = errors.New("account inactive")

	// ErrDirectoryUnavailable means the directory server or its
	// administrative bind is down. An operator problem, not a user error.
	ErrDirectoryUnavailable = errors.New("directory unavailable")

	// ErrNoDirectory means no directory server is configured at all, so a
	// first-time directory login cannot be resolved.
	ErrNoDirectory = errors.New("no default directory available")
)
