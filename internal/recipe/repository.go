package recipe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/jsvoboda/recipe-api/internal/database"
	"github.com/jsvoboda/recipe-api/internal/taxonomy"
)

// Repository handles recipe persistence including the tag/ingredient join
// tables. Write methods take a bun.IDB so the service can run a whole
// create/update as one transaction.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// InTx runs fn inside a single transaction.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, idb bun.IDB) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

// Insert persists a new recipe and returns its ID. The owner is written
// here and never again.
func (r *Repository) Insert(ctx context.Context, idb bun.IDB, ownerID uuid.UUID, fields ScalarFields) (int64, error) {
	model := &database.Recipe{
		UserID:      ownerID,
		Title:       fields.Title,
		Description: fields.Description,
		TimeMinutes: fields.TimeMinutes,
		Price:       fields.Price,
		Link:        fields.Link,
	}

	_, err := idb.NewInsert().
		Model(model).
		Returning("id").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to insert recipe: %w", err)
	}

	return model.ID, nil
}

// UpdateScalars applies non-nil scalar changes to an owned recipe. The
// owner column is not part of any update set.
func (r *Repository) UpdateScalars(ctx context.Context, idb bun.IDB, ownerID uuid.UUID, id int64, changes ScalarChanges) error {
	q := idb.NewUpdate().
		Model((*database.Recipe)(nil)).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Where("user_id = ?", ownerID)

	if changes.Title != nil {
		q = q.Set("title = ?", *changes.Title)
	}
	if changes.Description != nil {
		q = q.Set("description = ?", *changes.Description)
	}
	if changes.TimeMinutes != nil {
		q = q.Set("time_minutes = ?", *changes.TimeMinutes)
	}
	if changes.Price != nil {
		q = q.Set("price = ?", *changes.Price)
	}
	if changes.Link != nil {
		q = q.Set("link = ?", *changes.Link)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
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

// ClearTags removes every tag join row for a recipe.
func (r *Repository) ClearTags(ctx context.Context, idb bun.IDB, recipeID int64) error {
	_, err := idb.NewDelete().
		Model((*database.RecipeTag)(nil)).
		Where("recipe_id = ?", recipeID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear recipe tags: %w", err)
	}
	return nil
}

// AttachTags links the given tag IDs to a recipe.
func (r *Repository) AttachTags(ctx context.Context, idb bun.IDB, recipeID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}

	rows := make([]database.RecipeTag, len(tagIDs))
	for i, tagID := range tagIDs {
		rows[i] = database.RecipeTag{RecipeID: recipeID, TagID: tagID}
	}

	_, err := idb.NewInsert().
		Model(&rows).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to attach tags: %w", err)
	}
	return nil
}

// ClearIngredients removes every ingredient join row for a recipe.
func (r *Repository) ClearIngredients(ctx context.Context, idb bun.IDB, recipeID int64) error {
	_, err := idb.NewDelete().
		Model((*database.RecipeIngredient)(nil)).
		Where("recipe_id = ?", recipeID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear recipe ingredients: %w", err)
	}
	return nil
}

// AttachIngredients links the given ingredient IDs to a recipe.
func (r *Repository) AttachIngredients(ctx context.Context, idb bun.IDB, recipeID int64, ingredientIDs []int64) error {
	if len(ingredientIDs) == 0 {
		return nil
	}

	rows := make([]database.RecipeIngredient, len(ingredientIDs))
	for i, ingredientID := range ingredientIDs {
		rows[i] = database.RecipeIngredient{RecipeID: recipeID, IngredientID: ingredientID}
	}

	_, err := idb.NewInsert().
		Model(&rows).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to attach ingredients: %w", err)
	}
	return nil
}

// GetOwned loads a recipe with its relations, addressed by (id, owner).
// Wrong owner and missing ID are both ErrNotFound.
func (r *Repository) GetOwned(ctx context.Context, idb bun.IDB, ownerID uuid.UUID, id int64) (*Recipe, error) {
	if idb == nil {
		idb = r.db
	}

	model := new(database.Recipe)
	err := idb.NewSelect().
		Model(model).
		Relation("Tags").
		Relation("Ingredients").
		Where("r.id = ?", id).
		Where("r.user_id = ?", ownerID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}

	return mapDBRecipeToModel(model), nil
}

// List returns the owner's recipes, newest first, optionally filtered to
// those intersecting the given tag/ingredient ID sets. Join fan-out is
// collapsed with DISTINCT.
func (r *Repository) List(ctx context.Context, ownerID uuid.UUID, tagIDs, ingredientIDs []int64) ([]Recipe, error) {
	var models []database.Recipe

	q := r.db.NewSelect().
		Model(&models).
		Relation("Tags").
		Relation("Ingredients").
		Where("r.user_id = ?", ownerID)

	if len(tagIDs) > 0 {
		q = q.
			Join(`JOIN recipe_tags AS frt ON frt.recipe_id = r.id`).
			Where("frt.tag_id IN (?)", bun.In(tagIDs))
	}
	if len(ingredientIDs) > 0 {
		q = q.
			Join(`JOIN recipe_ingredients AS fri ON fri.recipe_id = r.id`).
			Where("fri.ingredient_id IN (?)", bun.In(ingredientIDs))
	}

	if err := q.Distinct().OrderExpr("r.id DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	recipes := make([]Recipe, len(models))
	for i := range models {
		recipes[i] = *mapDBRecipeToModel(&models[i])
	}
	return recipes, nil
}

// DeleteOwned removes a recipe and, via cascade, its join rows. The tag and
// ingredient entities themselves survive.
func (r *Repository) DeleteOwned(ctx context.Context, ownerID uuid.UUID, id int64) error {
	result, err := r.db.NewDelete().
		Model((*database.Recipe)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", ownerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
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

// SetImageKey records the object-store key of an owned recipe's image.
func (r *Repository) SetImageKey(ctx context.Context, ownerID uuid.UUID, id int64, key string) error {
	result, err := r.db.NewUpdate().
		Model((*database.Recipe)(nil)).
		Set("image_key = ?", key).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Where("user_id = ?", ownerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set image key: %w", err)
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

func mapDBRecipeToModel(m *database.Recipe) *Recipe {
	rec := &Recipe{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		TimeMinutes: m.TimeMinutes,
		Price:       m.Price,
		Link:        m.Link,
		ImageKey:    m.ImageKey,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		Tags:        make([]taxonomy.Item, len(m.Tags)),
		Ingredients: make([]taxonomy.Item, len(m.Ingredients)),
	}
	for i, t := range m.Tags {
		rec.Tags[i] = taxonomy.Item{ID: t.ID, Name: t.Name}
	}
	for i, ing := range m.Ingredients {
		rec.Ingredients[i] = taxonomy.Item{ID: ing.ID, Name: ing.Name}
	}
	return rec
}
