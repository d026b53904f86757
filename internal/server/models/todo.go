package models

import "time"

// Todo belongs to exactly one user. The owner side of the relation lives in
// the user_todos table; OwnerID is the resource side.
type Todo struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
