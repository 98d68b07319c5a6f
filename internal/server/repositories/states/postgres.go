package states

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.State, error) {
	return r.getOne(ctx, `SELECT id, name FROM states WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*models.State, error) {
	return r.getOne(ctx, `SELECT id, name FROM states WHERE name = $1`, name)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.State, error) {
	state := &models.State{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&state.ID, &state.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return state, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.State, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM states ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.State
	for rows.Next() {
		state := &models.State{}
		if err := rows.Scan(&state.ID, &state.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
