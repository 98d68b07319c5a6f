package chests

import (
	"context"

	"github.com/chestkeeper/chestkeeper/internal/server/models"
)

// Repository persists chests and their user associations. Name lookup is
// case-insensitive so company chests created from directory attributes are
// reused regardless of letter case.
type Repository interface {
	Create(ctx context.Context, chest *models.Chest) (*models.Chest, error)
	GetByLowerName(ctx context.Context, name string) (*models.Chest, error)
	AddUser(ctx context.Context, chestID int64, userID string) error
}
