package models

// Account state names as stored in the states table.
const (
	StateActive   = "Active"
	StateInactive = "Inactive"
)

// State is an externally managed account-status value.
type State struct {
	ID   int64
	Name string
}
