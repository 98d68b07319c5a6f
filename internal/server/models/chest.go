package models

import "time"

// Chest types.
const (
	ChestTypePersonal = "personal"
	ChestTypeCompany  = "company"
)

// Chest is an organizational container grouping users and their folders.
// Only lookup, creation and user association matter here; general chest
// management lives elsewhere.
type Chest struct {
	ID          int64
	Name        string
	Type        string
	Description *string
	CreatorID   *string
	CreatedAt   time.Time
}
