package domain

import (
	"time"

	"github.com/google/uuid"
)

// Task is a single entry of the ordered list. Rank defines the display order
// and is unique across all tasks.
type Task struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Rank      float64   `db:"rank" json:"rank"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Page is one forward slice of the list ordered by rank.
type Page struct {
	Tasks       []*Task
	HasNextPage bool
	// EndCursor is the rank of the last task in the page, nil when empty.
	EndCursor *float64
}
