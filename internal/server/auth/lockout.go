package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/chestkeeper/chestkeeper/internal/common"
	"github.com/chestkeeper/chestkeeper/internal/logging"
	"github.com/chestkeeper/chestkeeper/internal/server/models"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/repomanager"
)

// Lockout thresholds. Counters are derived from connection-log queries at
// check time, so concurrent failures can transiently over- or under-count;
// the thresholds are best-effort, not exact.
const (
	deactivateThreshold = 9
	deactivateWindow    = 2 * time.Hour

	blockThreshold = 5
	blockWindow    = 15 * time.Minute
	blockDuration  = 15 * time.Minute

	// unblockGraceWindow is the tolerance added past blockedUntil before a
	// credential check honors the unblock again.
	unblockGraceWindow = time.Hour
)

// LockoutPolicy escalates account state after failed authentication
// attempts: repeated failures within a short window block the account
// temporarily, sustained failures deactivate it entirely. An administrative
// "unblocked" entry within the same window vetoes the escalation.
//
// Every fault on this path is logged and swallowed. Lockout bookkeeping must
// never add an error on top of the authentication failure the user already
// got.
type LockoutPolicy struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
	now    func() time.Time
}

func NewLockoutPolicy(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) *LockoutPolicy {
	return &LockoutPolicy{
		db:     db,
		repos:  repos,
		logger: logger.With("module", "lockout"),
		now:    time.Now,
	}
}

// RecordFailure books a failed attempt and applies the escalation rules.
func (p *LockoutPolicy) RecordFailure(ctx context.Context, fc FailureContext) {

	username := fc.FormUsername
	if username == "" {
		username = fc.SessionUsername
	}
	username = models.NormalizeLogin(username)

	usersRepo := p.repos.Users(p.db)
	logRepo := p.repos.ConnectionLog(p.db)
	now := p.now().UTC()

	user, err := usersRepo.GetByLogin(ctx, username)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			p.logger.Error(ctx, "lockout user lookup failed", "username", username, "error", err)
		}
		// Unknown account: just book the attempt.
		if err := logRepo.Append(ctx, username, models.OutcomeFailLogin, now); err != nil {
			p.logger.Error(ctx, "appending fail_login failed", "username", username, "error", err)
		}
		return
	}

	if user.Blocked {
		// Attempts during a lockout neither extend it nor count toward
		// escalation.
		if err := logRepo.Append(ctx, username, models.OutcomeBlocked, now); err != nil {
			p.logger.Error(ctx, "appending blocked failed", "username", username, "error", err)
		}
		return
	}

	if err := logRepo.Append(ctx, username, models.OutcomeFailPassword, now); err != nil {
		p.logger.Error(ctx, "appending fail_password failed", "username", username, "error", err)
		return
	}

	fails, err := logRepo.CountSince(ctx, username, models.OutcomeFailPassword, now.Add(-deactivateWindow))
	if err != nil {
		p.logger.Error(ctx, "counting failures failed", "username", username, "error", err)
		return
	}
	unblocks, err := logRepo.CountSince(ctx, username, models.OutcomeUnblocked, now.Add(-deactivateWindow))
	if err != nil {
		p.logger.Error(ctx, "counting unblocks failed", "username", username, "error", err)
		return
	}

	if fails >= deactivateThreshold && unblocks < 1 {
		p.deactivate(ctx, username, user)
		return
	}

	fails, err = logRepo.CountSince(ctx, username, models.OutcomeFailPassword, now.Add(-blockWindow))
	if err != nil {
		p.logger.Error(ctx, "counting failures failed", "username", username, "error", err)
		return
	}
	unblocks, err = logRepo.CountSince(ctx, username, models.OutcomeUnblocked, now.Add(-blockWindow))
	if err != nil {
		p.logger.Error(ctx, "counting unblocks failed", "username", username, "error", err)
		return
	}

	if fails >= blockThreshold && unblocks < 1 {
		p.block(ctx, username, user, now)
	}
}

// deactivate sets the account Inactive. Only an administrator can restore it.
func (p *LockoutPolicy) deactivate(ctx context.Context, username string, user *models.User) {
	state, err := p.repos.States(p.db).GetByName(ctx, models.StateInactive)
	if err != nil {
		p.logger.Error(ctx, "inactive state lookup failed", "username", username, "error", err)
		return
	}

	user.StateID = state.ID
	if err := p.repos.Users(p.db).Update(ctx, user); err != nil {
		p.logger.Error(ctx, "deactivating account failed", "username", username, "error", err)
		return
	}

	p.logger.Warn(ctx, "account deactivated after repeated failures", "username", username)
}

// block sets a temporary lockout ending blockDuration from now (UTC).
func (p *LockoutPolicy) block(ctx context.Context, username string, user *models.User, now time.Time) {
	until := now.Add(blockDuration)
	user.Blocked = true
	user.BlockedUntil = &until

	if err := p.repos.Users(p.db).Update(ctx, user); err != nil {
		p.logger.Error(ctx, "blocking account failed", "username", username, "error", err)
		return
	}

	p.logger.Warn(ctx, "account temporarily blocked", "username", username, "blocked_until", until)
}
