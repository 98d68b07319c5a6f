package directories

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

const directoryColumns = `id, name, url, bind_dn, bind_password, base_dn`

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Directory, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+directoryColumns+` FROM directories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Directory
	for rows.Next() {
		d := &models.Directory{}
		if err := rows.Scan(&d.ID, &d.Name, &d.URL, &d.BindDN, &d.BindPassword, &d.BaseDN); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Directory, error) {
	d := &models.Directory{}
	err := r.db.QueryRowContext(ctx, `SELECT `+directoryColumns+` FROM directories WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.URL, &d.BindDN, &d.BindPassword, &d.BaseDN)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}
