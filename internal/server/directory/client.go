// Package directory wraps the LDAP client used to authenticate accounts
// against external directory servers.
//
// Two fault shapes are kept distinct on the admin path: a bind that cannot
// be established at all (connectivity, wrong admin credentials) surfaces as
// ErrUnavailable, while a missing entry or a rejected end-user bind is a
// plain credential-shaped failure the caller swallows.
package directory

import (
	"context"
	"errors"

	"github.com/chestkeeper/chestkeeper/internal/server/models"
)

// ErrUnavailable means the directory server (or its administrative bind)
// cannot be reached. This is an operator problem, not a user error.
var ErrUnavailable = errors.New("directory unavailable")

// Entry is a resolved directory entry. Company carries the optional
// organizational attribute used for chest auto-provisioning.
type Entry struct {
	DN      string
	Company string
}

// Session is an established administrative connection to one directory
// server. Sessions are request-scoped; callers must Close them.
type Session interface {
	// SearchByAccount resolves an entry by account name under baseDN.
	// Returns nil (with no error) when no entry matches.
	SearchByAccount(ctx context.Context, account, baseDN string) (*Entry, error)

	// BindAsUser attempts an end-user bind with the entry DN and the
	// supplied password. Any error means the credentials were not accepted.
	BindAsUser(ctx context.Context, dn, password string) error

	Close()
}

// Client establishes administrative sessions against directory servers.
type Client interface {
	// BindAsAdmin connects to dir and binds with its administrative
	// credentials. Failures are reported as ErrUnavailable.
	BindAsAdmin(ctx context.Context, dir *models.Directory) (Session, error)
}
