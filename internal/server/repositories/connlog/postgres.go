package connlog

import (
	"context"
	"fmt"
	"time"

	"github.com/chestkeeper/chestkeeper/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, username, outcome string, at time.Time) error {

	query :=
		`INSERT INTO connection_log (username, outcome, created_at)
		 VALUES ($1, $2, $3)
		 `

	if _, err := r.db.ExecContext(ctx, query, username, outcome, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) CountSince(ctx context.Context, username, outcome string, since time.Time) (int, error) {

	query :=
		`SELECT count(*) FROM connection_log
		 WHERE username = $1 AND outcome = $2 AND created_at >= $3
		 `

	var n int
	if err := r.db.QueryRowContext(ctx, query, username, outcome, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}
