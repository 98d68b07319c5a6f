package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/chestkeeper/chestkeeper/internal/server/models"
)

// DBBackend authenticates against password hashes stored in the local
// credential store. Unlike the directory variant, it converts every
// unexpected fault into a plain failed authentication: nothing thrown from
// here ever reaches the web layer.
type DBBackend struct {
	base
}

func (a *DBBackend) GetUser(ctx context.Context, creds Credentials) (*models.User, error) {
	if creds.Password == "" {
		return nil, nil
	}

	login := models.NormalizeLogin(creds.Username)

	user, err := a.lookupUser(ctx, login)
	if err != nil {
		a.logger.Error(ctx, "user lookup failed", "login", login, "error", err)
		return nil, nil
	}

	return user, nil
}

func (a *DBBackend) CheckCredentials(ctx context.Context, creds Credentials, user *models.User) (bool, error) {
	if user == nil {
		return false, nil
	}

	login := models.NormalizeLogin(creds.Username)

	if a.isOverride(login) {
		return a.overridePasswordMatches(creds.Password), nil
	}

	if user.PasswordHash == nil || *user.PasswordHash == "" {
		return false, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(creds.Password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			a.logger.Error(ctx, "credential check failed", "login", login, "error", err)
		}
		return false, nil
	}

	return true, nil
}
