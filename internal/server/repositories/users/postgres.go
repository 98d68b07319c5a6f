package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chestkeeper/chestkeeper/internal/common"
	"github.com/chestkeeper/chestkeeper/internal/dbx"
	"github.com/chestkeeper/chestkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, login, password_hash, first_name, last_name, email,
		blocked, blocked_until, state_id, roles, totp_secret, totp_confirmed,
		sam_account, directory_id, directory_dn, created_at`

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	roles, err := json.Marshal(user.GetRoles())
	if err != nil {
		return nil, fmt.Errorf("roles encode error: %w", err)
	}

	query :=
		`INSERT INTO users (id, login, password_hash, first_name, last_name, email,
		     blocked, blocked_until, state_id, roles, totp_secret, totp_confirmed,
		     sam_account, directory_id, directory_dn)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING created_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		user.ID, user.Login, user.PasswordHash, user.FirstName, user.LastName, user.Email,
		user.Blocked, user.BlockedUntil, user.StateID, roles, user.TOTPSecret, user.TOTPConfirmed,
		user.SamAccount, user.DirectoryID, user.DirectoryDN).Scan(&user.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE login = $1`
	return r.getOne(ctx, query, login)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {

	user := &models.User{}
	var roles []byte

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Login, &user.PasswordHash, &user.FirstName, &user.LastName, &user.Email,
		&user.Blocked, &user.BlockedUntil, &user.StateID, &roles, &user.TOTPSecret, &user.TOTPConfirmed,
		&user.SamAccount, &user.DirectoryID, &user.DirectoryDN, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if len(roles) > 0 {
		if err := json.Unmarshal(roles, &user.Roles); err != nil {
			return nil, fmt.Errorf("roles decode error: %w", err)
		}
	}

	return user, nil
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {

	roles, err := json.Marshal(user.GetRoles())
	if err != nil {
		return fmt.Errorf("roles encode error: %w", err)
	}

	query :=
		`UPDATE users
		 SET password_hash = $2, blocked = $3, blocked_until = $4, state_id = $5,
		     roles = $6, totp_secret = $7, totp_confirmed = $8
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.PasswordHash, user.Blocked, user.BlockedUntil, user.StateID,
		roles, user.TOTPSecret, user.TOTPConfirmed)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}
