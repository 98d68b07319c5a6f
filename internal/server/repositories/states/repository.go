package states

import (
	"context"

	"github.com/chestkeeper/chestkeeper/internal/server/models"
)

// Repository reads account-status values. States are seeded by migration and
// managed externally; this layer never creates them.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*models.State, error)
	GetByName(ctx context.Context, name string) (*models.State, error)
	List(ctx context.Context) ([]*models.State, error)
}
