package domain

import "time"

// Category groups tickets by topic. Removal is soft only: tickets keep
// referencing deactivated categories.
type Category struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
