// Package services contains server-side business logic around user accounts:
// administrative creation, directory auto-provisioning, and lockout resets.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/chestkeeper/chestkeeper/internal/common"
	"github.com/chestkeeper/chestkeeper/internal/dbx"
	"github.com/chestkeeper/chestkeeper/internal/logging"
	"github.com/chestkeeper/chestkeeper/internal/server/models"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/repomanager"
)

// UserService handles user lifecycle operations shared by the authenticator
// (auto-provisioning) and the operator CLI (creation, unblock, reactivate).
type UserService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
	now    func() time.Time
}

func NewUserService(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) *UserService {
	return &UserService{
		db:     db,
		repos:  repos,
		logger: logger.With("module", "users"),
		now:    time.Now,
	}
}

// CreateUserParams describes an administratively created (db mode) account.
type CreateUserParams struct {
	Login     string
	FirstName string
	LastName  string
	Email     string
	Role      string
	CreatorID *string
}

// CreateUser creates a db-mode user with a generated temporary password and
// a personal chest, all in one transaction. The cleartext temporary password
// is returned to the caller for out-of-band delivery; only its bcrypt hash
// is stored.
func (s *UserService) CreateUser(ctx context.Context, p CreateUserParams) (*models.User, string, error) {

	login := models.NormalizeLogin(p.Login)
	email := models.NormalizeLogin(p.Email)

	if _, err := s.repos.Users(s.db).GetByLogin(ctx, login); err == nil {
		return nil, "", common.ErrorLoginAlreadyUsed
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, "", err
	}
	if email != "" {
		if _, err := s.repos.Users(s.db).GetByEmail(ctx, email); err == nil {
			return nil, "", common.ErrorEmailAlreadyUsed
		} else if !errors.Is(err, common.ErrorNotFound) {
			return nil, "", err
		}
	}

	password, err := generateTemporaryPassword(24, 1)
	if err != nil {
		return nil, "", fmt.Errorf("generating password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	state, err := s.repos.States(s.db).GetByName(ctx, models.StateActive)
	if err != nil {
		return nil, "", fmt.Errorf("resolving active state: %w", err)
	}

	role := p.Role
	if role == "" {
		role = models.RoleUser
	}

	hashStr := string(hash)
	user := &models.User{
		Login:        login,
		PasswordHash: &hashStr,
		StateID:      state.ID,
		Roles:        []string{role},
	}
	if p.FirstName != "" {
		user.FirstName = &p.FirstName
	}
	if p.LastName != "" {
		user.LastName = &p.LastName
	}
	if email != "" {
		user.Email = &email
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repos.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		user = created

		description := "Chest of " + login
		creator := p.CreatorID
		if creator == nil {
			creator = &user.ID
		}
		chest, err := s.repos.Chests(tx).Create(ctx, &models.Chest{
			Name:        "My chest",
			Type:        models.ChestTypePersonal,
			Description: &description,
			CreatorID:   creator,
		})
		if err != nil {
			return err
		}
		return s.repos.Chests(tx).AddUser(ctx, chest.ID, user.ID)
	})
	if err != nil {
		return nil, "", err
	}

	s.logger.Info(ctx, "user created", "login", login)
	return user, password, nil
}

// ProvisionDirectoryUserParams links a first-time directory login to the
// directory server, DN and account name it was resolved with.
type ProvisionDirectoryUserParams struct {
	Login       string
	DirectoryID int64
	DirectoryDN string
	SamAccount  string
	Company     string
}

// ProvisionDirectoryUser creates a local record for a directory account on
// its first successful bind. When the directory entry carries a company
// attribute, the matching company chest is reused or created and the user is
// associated with it. The whole step is one transaction: a fault discards
// the in-progress record entirely.
func (s *UserService) ProvisionDirectoryUser(ctx context.Context, p ProvisionDirectoryUserParams) (*models.User, error) {

	login := models.NormalizeLogin(p.Login)

	state, err := s.repos.States(s.db).GetByName(ctx, models.StateActive)
	if err != nil {
		return nil, fmt.Errorf("resolving active state: %w", err)
	}

	user := &models.User{
		Login:       login,
		StateID:     state.ID,
		Roles:       []string{models.RoleUser},
		SamAccount:  &p.SamAccount,
		DirectoryID: &p.DirectoryID,
	}
	if p.DirectoryDN != "" {
		user.DirectoryDN = &p.DirectoryDN
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repos.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		user = created

		if p.Company == "" {
			return nil
		}

		chestsRepo := s.repos.Chests(tx)
		chest, err := chestsRepo.GetByLowerName(ctx, p.Company)
		if err != nil {
			if !errors.Is(err, common.ErrorNotFound) {
				return err
			}
			chest, err = chestsRepo.Create(ctx, &models.Chest{
				Name:      p.Company,
				Type:      models.ChestTypeCompany,
				CreatorID: &user.ID,
			})
			if err != nil {
				return err
			}
		}
		return chestsRepo.AddUser(ctx, chest.ID, user.ID)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Unblock clears a temporary lockout and books the administrative reset in
// the connection log; the "unblocked" entry is what vetoes re-escalation
// inside the lockout windows.
func (s *UserService) Unblock(ctx context.Context, login string) error {

	login = models.NormalizeLogin(login)

	user, err := s.repos.Users(s.db).GetByLogin(ctx, login)
	if err != nil {
		return err
	}

	user.Blocked = false
	user.BlockedUntil = nil
	if err := s.repos.Users(s.db).Update(ctx, user); err != nil {
		return err
	}

	if err := s.repos.ConnectionLog(s.db).Append(ctx, login, models.OutcomeUnblocked, s.now().UTC()); err != nil {
		return err
	}

	s.logger.Info(ctx, "user unblocked", "login", login)
	return nil
}

// Reactivate restores a deactivated account to Active.
func (s *UserService) Reactivate(ctx context.Context, login string) error {

	login = models.NormalizeLogin(login)

	user, err := s.repos.Users(s.db).GetByLogin(ctx, login)
	if err != nil {
		return err
	}

	state, err := s.repos.States(s.db).GetByName(ctx, models.StateActive)
	if err != nil {
		return err
	}

	user.StateID = state.ID
	if err := s.repos.Users(s.db).Update(ctx, user); err != nil {
		return err
	}

	s.logger.Info(ctx, "user reactivated", "login", login)
	return nil
}
