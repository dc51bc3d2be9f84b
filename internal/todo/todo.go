// Package todo is a small todo-list service built on routekit. It holds the
// model, an in-memory repository and the route table.
package todo

import (
	"context"
	"time"
)

// Todo is a single todo item.
type Todo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Filter narrows List. A nil Completed matches every item; Limit <= 0 means
// no limit.
type Filter struct {
	Completed *bool
	Limit     int
}

// Patch holds the fields an update changes. Nil fields are left untouched.
type Patch struct {
	Title     *string
	Completed *bool
}

// Repository stores todos. Implementations must be safe for concurrent use.
// Missing items are reported with routekit.ErrNotFound and duplicate titles
// with routekit.ErrConflict.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Todo, error)
	Get(ctx context.Context, id string) (Todo, error)
	Create(ctx context.Context, title string, completed bool) (Todo, error)
	Update(ctx context.Context, id string, p Patch) (Todo, error)
	Delete(ctx context.Context, id string) error
}
