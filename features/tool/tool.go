package tool

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("tool not found")

// Tool is a registry entry that knowledge chunks are indexed under.
type Tool struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
