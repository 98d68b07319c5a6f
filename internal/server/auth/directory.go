package auth

import (
	"context"
	"fmt"

	"github.com/chestkeeper/chestkeeper/internal/server/directory"
	"github.com/chestkeeper/chestkeeper/internal/server/models"
	"github.com/chestkeeper/chestkeeper/internal/server/services"
)

// DirectoryBackend authenticates by binding against an external directory
// server and auto-provisions local user records on first successful login.
//
// The fault policy is asymmetric with the DB variant on purpose: failures
// that look like bad credentials (entry not found, end-user bind rejected)
// are swallowed into a nil user, but infrastructure faults (admin bind down,
// unexpected store errors during CheckCredentials) propagate to the caller.
type DirectoryBackend struct {
	base
	client      directory.Client
	userService *services.UserService
}

func (a *DirectoryBackend) GetUser(ctx context.Context, creds Credentials) (*models.User, error) {
	if creds.Password == "" {
		return nil, nil
	}

	login := models.NormalizeLogin(creds.Username)

	user, err := a.lookupUser(ctx, login)
	if err != nil {
		return nil, err
	}

	// The override identity never touches the directory.
	if a.isOverride(login) {
		return user, nil
	}

	if user != nil {
		return a.bindKnownUser(ctx, login, creds.Password, user)
	}
	return a.bindFirstTime(ctx, login, creds.Password)
}

// bindKnownUser verifies a user that already has a local record, using the
// directory server stored on that record.
func (a *DirectoryBackend) bindKnownUser(ctx context.Context, login, password string, user *models.User) (*models.User, error) {

	if user.DirectoryID == nil {
		a.logger.Warn(ctx, "user has no directory reference", "login", login)
		return nil, nil
	}

	dir, err := a.repos.Directories(a.db).GetByID(ctx, *user.DirectoryID)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving directory: %v", ErrDirectoryUnavailable, err)
	}

	sess, err := a.client.BindAsAdmin(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	defer sess.Close()

	samAccount := login
	if user.SamAccount != nil && *user.SamAccount != "" {
		samAccount = *user.SamAccount
	}
	baseDN := a.cfg.DirectoryDefaultDN
	if user.DirectoryDN != nil && *user.DirectoryDN != "" {
		baseDN = *user.DirectoryDN
	}

	entry, err := sess.SearchByAccount(ctx, samAccount, baseDN)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if entry == nil {
		// no such account anymore
		return nil, nil
	}

	if err := sess.BindAsUser(ctx, entry.DN, password); err != nil {
		// wrong credentials, swallowed
		a.logger.Debug(ctx, "directory rejected user bind", "login", login)
		return nil, nil
	}

	return user, nil
}

// bindFirstTime handles a login with no local record yet: the account may
// exist in the default directory, in which case a local user is provisioned
// atomically. A fault during provisioning fails closed; a user must never
// get a session backed by a half-created record.
func (a *DirectoryBackend) bindFirstTime(ctx context.Context, login, password string) (*models.User, error) {

	dirs, err := a.repos.Directories(a.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing directories: %v", ErrDirectoryUnavailable, err)
	}
	if len(dirs) == 0 {
		return nil, ErrNoDirectory
	}

	sess, err := a.client.BindAsAdmin(ctx, dirs[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	defer sess.Close()

	entry, err := sess.SearchByAccount(ctx, login, a.cfg.DirectoryDefaultDN)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if entry == nil {
		return nil, nil
	}

	if err := sess.BindAsUser(ctx, entry.DN, password); err != nil {
		a.logger.Debug(ctx, "directory rejected first-time user bind", "login", login)
		return nil, nil
	}

	user, err := a.userService.ProvisionDirectoryUser(ctx, services.ProvisionDirectoryUserParams{
		Login:       login,
		DirectoryID: dirs[0].ID,
		DirectoryDN: a.cfg.DirectoryDefaultDN,
		SamAccount:  login,
		Company:     entry.Company,
	})
	if err != nil {
		a.logger.Error(ctx, "auto-provisioning failed", "login", login, "error", err)
		return nil, nil
	}

	a.logger.Info(ctx, "auto-provisioned directory user", "login", login)
	return user, nil
}

func (a *DirectoryBackend) CheckCredentials(ctx context.Context, creds Credentials, user *models.User) (bool, error) {
	if user == nil {
		return false, nil
	}

	login := models.NormalizeLogin(creds.Username)

	if a.isOverride(login) {
		return a.overridePasswordMatches(creds.Password), nil
	}

	// Enrollment happens here, as a side effect of a successful credential
	// check, so directory users get a secret on their very first login.
	if user.TOTPSecret == nil || *user.TOTPSecret == "" {
		secret, err := generateTOTPSecret(a.cfg.TOTPIssuer, user.Login)
		if err != nil {
			a.logger.Error(ctx, "totp enrollment failed", "login", login, "error", err)
			return false, err
		}
		user.TOTPSecret = &secret
		user.TOTPConfirmed = false
		if err := a.repos.Users(a.db).Update(ctx, user); err != nil {
			a.logger.Error(ctx, "totp enrollment failed", "login", login, "error", err)
			return false, err
		}
	}

	state, err := a.repos.States(a.db).GetByID(ctx, user.StateID)
	if err != nil {
		a.logger.Error(ctx, "state lookup failed", "login", login, "error", err)
		return false, err
	}
	if state.Name == models.StateInactive {
		return false, ErrAccountInactive
	}

	// A fixed one-hour tolerance window past the stored lock end; within it
	// the answer is a generic credential failure so lockout state is not
	// revealed to the caller.
	if user.Blocked && user.BlockedUntil != nil {
		if a.now().Before(user.BlockedUntil.Add(unblockGraceWindow)) {
			return false, nil
		}
	}

	return true, nil
}
