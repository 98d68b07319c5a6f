// Package auth implements the authentication core: a pluggable credential
// backend (local database or external directory), the account-lockout policy
// engine driven by the connection log, TOTP secret enrollment, and session
// token minting.
package auth

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chestkeeper/chestkeeper/internal/common"
	"github.com/chestkeeper/chestkeeper/internal/logging"
	"github.com/chestkeeper/chestkeeper/internal/server/config"
	"github.com/chestkeeper/chestkeeper/internal/server/directory"
	"github.com/chestkeeper/chestkeeper/internal/server/models"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/repomanager"
	"github.com/chestkeeper/chestkeeper/internal/server/services"
)

// Redirect targets returned by OnSuccess/OnFailure.
const (
	LoginPath = "/login"
	HomePath  = "/"
)

// Credentials is what the login form submits.
type Credentials struct {
	Username string
	Password string
}

// FailureContext tells the lockout engine which username the failed attempt
// was for: the raw form value, or failing that, the login recovered from an
// existing (possibly stale) session token.
type FailureContext struct {
	FormUsername    string
	SessionUsername string
}

// Backend is the four-operation contract both credential backends satisfy.
// The web/session layer speaks only to this interface.
//
// GetUser resolves credentials to a stored user record, or nil when the
// account is unknown or the password cannot possibly match. CheckCredentials
// verifies the password (or bind) for the resolved user. OnFailure feeds the
// lockout policy engine and always returns the login redirect. OnSuccess
// clears transient lockout state and always returns the home redirect.
type Backend interface {
	GetUser(ctx context.Context, creds Credentials) (*models.User, error)
	CheckCredentials(ctx context.Context, creds Credentials, user *models.User) (bool, error)
	OnFailure(ctx context.Context, fc FailureContext) string
	OnSuccess(ctx context.Context, user *models.User) string
}

// New selects the credential backend once, from static configuration. The
// selection is never reevaluated per request.
func New(
	cfg *config.Config,
	db *sql.DB,
	repos repomanager.RepositoryManager,
	client directory.Client,
	userService *services.UserService,
	logger logging.Logger,
) (Backend, error) {

	b := base{
		cfg:     cfg,
		db:      db,
		repos:   repos,
		lockout: NewLockoutPolicy(db, repos, logger),
		logger:  logger,
		now:     time.Now,
	}

	switch cfg.AuthMode {
	case config.AuthModeDB:
		b.logger = logger.With("backend", "db")
		return &DBBackend{base: b}, nil
	case config.AuthModeDirectory:
		b.logger = logger.With("backend", "directory")
		return &DirectoryBackend{base: b, client: client, userService: userService}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}
}

// base carries everything shared by the two backend variants, including the
// failure/success handlers, which are backend-independent.
type base struct {
	cfg     *config.Config
	db      *sql.DB
	repos   repomanager.RepositoryManager
	lockout *LockoutPolicy
	logger  logging.Logger
	now     func() time.Time
}

// isOverride reports whether login matches the configured bypass identity.
// An empty configured login disables the bypass entirely.
func (b *base) isOverride(login string) bool {
	return b.cfg.OverrideLogin != "" && login == b.cfg.OverrideLogin
}

// overridePasswordMatches compares the submitted password against the
// configured bypass secret, not against any stored hash.
func (b *base) overridePasswordMatches(password string) bool {
	if b.cfg.OverridePassword == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(b.cfg.OverridePassword)) == 1
}

// OnFailure records the failed attempt with the lockout policy engine and
// returns the login redirect. Lockout bookkeeping never produces an error
// visible past this point.
func (b *base) OnFailure(ctx context.Context, fc FailureContext) string {
	b.lockout.RecordFailure(ctx, fc)
	return LoginPath
}

// OnSuccess lifts a transient lockout unconditionally: a successful
// credential check always clears blocked/blockedUntil. The Inactive state is
// never auto-reversed here. Faults are logged and swallowed; the caller
// always gets the home redirect.
func (b *base) OnSuccess(ctx context.Context, user *models.User) string {
	if user == nil || !user.Blocked {
		return HomePath
	}

	user.Blocked = false
	user.BlockedUntil = nil

	if err := b.repos.Users(b.db).Update(ctx, user); err != nil {
		b.logger.Error(ctx, "clearing lockout state failed", "login", user.Login, "error", err)
	}

	return HomePath
}

// lookupUser fetches a user by normalized login, mapping "not found" to a
// nil user so callers can branch without errors.Is noise.
func (b *base) lookupUser(ctx context.Context, login string) (*models.User, error) {
	user, err := b.repos.Users(b.db).GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}
