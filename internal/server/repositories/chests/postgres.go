package chests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

func (r *PostgresRepository) Create(ctx context.Context, chest *models.Chest) (*models.Chest, error) {

	query :=
		`INSERT INTO chests (name, type, description, creator_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		chest.Name, chest.Type, chest.Description, chest.CreatorID).Scan(&chest.ID, &chest.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return chest, nil
}

func (r *PostgresRepository) GetByLowerName(ctx context.Context, name string) (*models.Chest, error) {

	query :=
		`SELECT id, name, type, description, creator_id, created_at FROM chests
		 WHERE lower(name) = $1
		 `

	chest := &models.Chest{}
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(name)).Scan(
		&chest.ID, &chest.Name, &chest.Type, &chest.Description, &chest.CreatorID, &chest.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return chest, nil
}

func (r *PostgresRepository) AddUser(ctx context.Context, chestID int64, userID string) error {

	query :=
		`INSERT INTO chest_users (chest_id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING
		 `

	if _, err := r.db.ExecContext(ctx, query, chestID, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
