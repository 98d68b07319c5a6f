package users

import (
	"context"

	"github.com/chestkeeper/chestkeeper/internal/server/models"
)

// Repository persists user records. Logins are stored normalized
// (lowercased, trimmed); callers pass them through models.NormalizeLogin.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}
