package directories

import (
	"context"

	"github.com/chestkeeper/chestkeeper/internal/server/models"
)

// Repository reads configured directory servers. The first entry of List is
// the default directory used for first-time logins.
type Repository interface {
	List(ctx context.Context) ([]*models.Directory, error)
	GetByID(ctx context.Context, id int64) (*models.Directory, error)
}
