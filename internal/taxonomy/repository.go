package taxonomy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/jsvoboda/recipe-api/internal/database"
)

// Repository handles tag and ingredient persistence. Methods that may run
// inside a recipe transaction take a bun.IDB so callers can pass either the
// root DB or a transaction handle.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Upsert resolves (owner, name) to an entity ID, inserting if absent. The
// conflict target is the unique (user_id, name) index; the no-op DO UPDATE
// makes RETURNING yield the surviving row in both branches.
func (r *Repository) Upsert(ctx context.Context, idb bun.IDB, ownerID uuid.UUID, kind Kind, name string) (Item, error) {
	switch kind {
	case KindIngredient:
		model := &database.Ingredient{UserID: ownerID, Name: name}
		_, err := idb.NewInsert().
			Model(model).
			On("CONFLICT (user_id, name) DO UPDATE").
			Set("name = EXCLUDED.name").
			Returning("id").
			Exec(ctx)
		if err != nil {
			return Item{}, fmt.Errorf("failed to upsert ingredient: %w", err)
		}
		return Item{ID: model.ID, Name: model.Name}, nil
	default:
		model := &database.Tag{UserID: ownerID, Name: name}
		_, err := idb.NewInsert().
			Model(model).
			On("CONFLICT (user_id, name) DO UPDATE").
			Set("name = EXCLUDED.name").
			Returning("id").
			Exec(ctx)
		if err != nil {
			return Item{}, fmt.Errorf("failed to upsert tag: %w", err)
		}
		return Item{ID: model.ID, Name: model.Name}, nil
	}
}

// List returns the owner's entities, name-descending and deduplicated.
// assignedOnly keeps only entities linked to at least one recipe; the
// referencing recipe's owner is deliberately not constrained, matching the
// behavior of the original system.
func (r *Repository) List(ctx context.Context, ownerID uuid.UUID, kind Kind, assignedOnly bool) ([]Item, error) {
	var items []Item

	switch kind {
	case KindIngredient:
		var rows []database.Ingredient
		q := r.db.NewSelect().
			Model(&rows).
			Where("i.user_id = ?", ownerID)
		if assignedOnly {
			q = q.Join(`JOIN recipe_ingredients AS ri ON ri.ingredient_id = i.id`)
		}
		if err := q.Distinct().OrderExpr("i.name DESC").Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to list ingredients: %w", err)
		}
		items = make([]Item, len(rows))
		for idx, row := range rows {
			items[idx] = Item{ID: row.ID, Name: row.Name}
		}
	default:
		var rows []database.Tag
		q := r.db.NewSelect().
			Model(&rows).
			Where("t.user_id = ?", ownerID)
		if assignedOnly {
			q = q.Join(`JOIN recipe_tags AS rt ON rt.tag_id = t.id`)
		}
		if err := q.Distinct().OrderExpr("t.name DESC").Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to list tags: %w", err)
		}
		items = make([]Item, len(rows))
		for idx, row := range rows {
			items[idx] = Item{ID: row.ID, Name: row.Name}
		}
	}

	return items, nil
}

// UpdateOwned renames an entity addressed by (id, owner). A wrong owner and
// a missing ID are both ErrNotFound.
func (r *Repository) UpdateOwned(ctx context.Context, ownerID uuid.UUID, kind Kind, id int64, name string) (Item, error) {
	var model any
	switch kind {
	case KindIngredient:
		model = (*database.Ingredient)(nil)
	default:
		model = (*database.Tag)(nil)
	}

	result, err := r.db.NewUpdate().
		Model(model).
		Set("name = ?", name).
		Where("id = ?", id).
		Where("user_id = ?", ownerID).
		Exec(ctx)
	if err != nil {
		return Item{}, fmt.Errorf("failed to update %s: %w", kind, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return Item{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return Item{}, ErrNotFound
	}

	return Item{ID: id, Name: name}, nil
}

// DeleteOwned removes an entity addressed by (id, owner). Join rows go with
// it via cascade; recipes themselves are untouched.
func (r *Repository) DeleteOwned(ctx context.Context, ownerID uuid.UUID, kind Kind, id int64) error {
	var model any
	switch kind {
	case KindIngredient:
		model = (*database.Ingredient)(nil)
	default:
		model = (*database.Tag)(nil)
	}

	result, err := r.db.NewDelete().
		Model(model).
		Where("id = ?", id).
		Where("user_id = ?", ownerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
