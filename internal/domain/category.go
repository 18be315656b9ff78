package domain

import "time"

// CategoryRef is a ticket classification label.
type CategoryRef struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
