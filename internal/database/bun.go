package database

import (
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// NewBunDB creates a Bun DB instance from an existing sql.DB connection and
// registers the many-to-many join models.
func NewBunDB(sqlDB *sql.DB) *bun.DB {
	db := bun.NewDB(sqlDB, pgdialect.New())
	db.RegisterModel((*RecipeTag)(nil), (*RecipeIngredient)(nil))
	return db
}
