package recipe

import (
	"errors"
	"time"

	"github.com/jsvoboda/recipe-api/internal/taxonomy"
)

var ErrNotFound = errors.New("recipe not found")

// Recipe is the domain model. Ownership is implicit: every accessor is
// already scoped to the requesting user, so the owner ID never leaves the
// repository layer.
type Recipe struct {
	ID          int64
	Title       string
	Description string
	TimeMinutes int
	Price       float64
	Link        string
	ImageKey    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Tags        []taxonomy.Item
	Ingredients []taxonomy.Item
}

// ScalarFields are the non-relation recipe fields for creation.
type ScalarFields struct {
	Title       string
	Description string
	TimeMinutes int
	Price       float64
	Link        string
}

// ScalarChanges are optional scalar updates; nil fields are untouched.
type ScalarChanges struct {
	Title       *string
	Description *string
	TimeMinutes *int
	Price       *float64
	Link        *string
}
