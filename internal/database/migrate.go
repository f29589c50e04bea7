package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Migrate creates the schema if it does not exist. Deleting a user cascades
// to every recipe, tag, and ingredient they own; deleting a recipe removes
// its join rows but never the tag/ingredient entities.
func Migrate(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS "pgcrypto"`); err != nil {
		return fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	models := []struct {
		name  string
		model any
		fks   []string
	}{
		{"users", (*User)(nil), nil},
		{"tags", (*Tag)(nil), []string{
			`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
		}},
		{"ingredients", (*Ingredient)(nil), []string{
			`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
		}},
		{"recipes", (*Recipe)(nil), []string{
			`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
		}},
		{"recipe_tags", (*RecipeTag)(nil), []string{
			`("recipe_id") REFERENCES "recipes" ("id") ON DELETE CASCADE`,
			`("tag_id") REFERENCES "tags" ("id") ON DELETE CASCADE`,
		}},
		{"recipe_ingredients", (*RecipeIngredient)(nil), []string{
			`("recipe_id") REFERENCES "recipes" ("id") ON DELETE CASCADE`,
			`("ingredient_id") REFERENCES "ingredients" ("id") ON DELETE CASCADE`,
		}},
	}

	for _, m := range models {
		q := db.NewCreateTable().Model(m.model).IfNotExists()
		for _, fk := range m.fks {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %s: %w", m.name, err)
		}
	}

	// Unique (user_id, name) backs the reconciler's conflict-target upsert.
	indexes := []struct {
		name   string
		model  any
		unique bool
		cols   []string
	}{
		{"tags_user_id_name_idx", (*Tag)(nil), true, []string{"user_id", "name"}},
		{"ingredients_user_id_name_idx", (*Ingredient)(nil), true, []string{"user_id", "name"}},
		{"recipes_user_id_idx", (*Recipe)(nil), false, []string{"user_id"}},
	}

	for _, idx := range indexes {
		q := db.NewCreateIndex().Model(idx.model).Index(idx.name).IfNotExists()
		if idx.unique {
			q = q.Unique()
		}
		for _, col := range idx.cols {
			q = q.Column(col)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
