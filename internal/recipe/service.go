package recipe

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/jsvoboda/recipe-api/internal/taxonomy"
)

var (
	ErrTitleRequired      = errors.New("title is required")
	ErrInvalidPrice       = errors.New("price must be between 0 and 999.99")
	ErrInvalidTimeMinutes = errors.New("time_minutes must not be negative")
)

// price is DECIMAL(5,2) in storage
const maxPrice = 999.99

// Store is the persistence surface the service needs.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, idb bun.IDB) error) error
	Insert(ctx context.Context, idb bun.IDB, ownerID uuid.UUID, fields ScalarFields) (int64, error)
	UpdateScalars(ctx context.Context, idb bun.IDB, ownerID uuid.UUID, id int64, changes ScalarChanges) error
	ClearTags(ctx context.Context, idb bun.IDB, recipeID int64) error
	AttachTags(ctx context.Context, idb bun.IDB, recipeID int64, tagIDs []int64) error
	ClearIngredients(ctx context.Context, idb bun.IDB, recipeID int64) error
	AttachIngredients(ctx context.Context, idb bun.IDB, recipeID int64, ingredientIDs []int64) error
	GetOwned(ctx context.Context, idb bun.IDB, ownerID uuid.UUID, id int64) (*Recipe, error)
	List(ctx context.Context, ownerID uuid.UUID, tagIDs, ingredientIDs []int64) ([]Recipe, error)
	DeleteOwned(ctx context.Context, ownerID uuid.UUID, id int64) error
	SetImageKey(ctx context.Context, ownerID uuid.UUID, id int64, key string) error
}

// Reconciler resolves descriptor lists to owned taxonomy entities inside
// the caller's transaction.
type Reconciler interface {
	Reconcile(ctx context.Context, idb bun.IDB, ownerID uuid.UUID, kind taxonomy.Kind, descriptors []taxonomy.Descriptor) ([]taxonomy.Item, error)
}

// ImageStore persists recipe images.
type ImageStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Remove(ctx context.Context, key string) error
}

// Service implements recipe CRUD with owner scoping and relation-set
// reconciliation.
type Service struct {
	repo       Store
	reconciler Reconciler
	images     ImageStore
}

func NewService(repo Store, reconciler Reconciler, images ImageStore) *Service {
	return &Service{repo: repo, reconciler: reconciler, images: images}
}

// CreateInput carries a new recipe. Absent tag/ingredient lists mean empty
// relation sets.
type CreateInput struct {
	Title       string
	Description string
	TimeMinutes int
	Price       float64
	Link        string
	Tags        []taxonomy.Descriptor
	Ingredients []taxonomy.Descriptor
}

// UpdateInput carries a partial update. Nil scalar fields are untouched.
// Relation lists follow replace semantics: a nil pointer leaves the set
// alone, a non-nil pointer (even to an empty list) replaces it entirely.
type UpdateInput struct {
	Title       *string
	Description *string
	TimeMinutes *int
	Price       *float64
	Link        *string
	Tags        *[]taxonomy.Descriptor
	Ingredients *[]taxonomy.Descriptor
}

func validateScalars(title string, timeMinutes int, price float64) error {
	if title == "" {
		return ErrTitleRequired
	}
	if timeMinutes < 0 {
		return ErrInvalidTimeMinutes
	}
	if price < 0 || price > maxPrice {
		return ErrInvalidPrice
	}
	return nil
}

// Create persists a new recipe owned by ownerID, reconciling and attaching
// its tag/ingredient descriptors. The whole write is one transaction.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*Recipe, error) {
	if err := validateScalars(input.Title, input.TimeMinutes, input.Price); err != nil {
		return nil, err
	}

	var created *Recipe
	err := s.repo.InTx(ctx, func(ctx context.Context, idb bun.IDB) error {
		id, err := s.repo.Insert(ctx, idb, ownerID, ScalarFields{
			Title:       input.Title,
			Description: input.Description,
			TimeMinutes: input.TimeMinutes,
			Price:       input.Price,
			Link:        input.Link,
		})
		if err != nil {
			return err
		}

		if err := s.reconcileAndAttach(ctx, idb, ownerID, id, input.Tags, input.Ingredients); err != nil {
			return err
		}

		created, err = s.repo.GetOwned(ctx, idb, ownerID, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Get returns an owned recipe. Wrong owner reads as not found.
func (s *Service) Get(ctx context.Context, ownerID uuid.UUID, id int64) (*Recipe, error) {
	return s.repo.GetOwned(ctx, nil, ownerID, id)
}

// List returns the owner's recipes, newest first, filtered by tag and
// ingredient ID sets (logical AND when both are given).
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, tagIDs, ingredientIDs []int64) ([]Recipe, error) {
	return s.repo.List(ctx, ownerID, tagIDs, ingredientIDs)
}

// Update applies scalar and relation changes as a single transaction. A
// relation list that is present in the payload fully replaces the existing
// set; an absent list leaves it untouched. The owner cannot be changed.
func (s *Service) Update(ctx context.Context, ownerID uuid.UUID, id int64, input UpdateInput) (*Recipe, error) {
	if input.Title != nil && *input.Title == "" {
		return nil, ErrTitleRequired
	}
	if input.TimeMinutes != nil && *input.TimeMinutes < 0 {
		return nil, ErrInvalidTimeMinutes
	}
	if input.Price != nil && (*input.Price < 0 || *input.Price > maxPrice) {
		return nil, ErrInvalidPrice
	}

	var updated *Recipe
	err := s.repo.InTx(ctx, func(ctx context.Context, idb bun.IDB) error {
		// Scoped read up front so wrong owner and missing ID fail identically
		// before anything is written.
		if _, err := s.repo.GetOwned(ctx, idb, ownerID, id); err != nil {
			return err
		}

		if err := s.repo.UpdateScalars(ctx, idb, ownerID, id, ScalarChanges{
			Title:       input.Title,
			Description: input.Description,
			TimeMinutes: input.TimeMinutes,
			Price:       input.Price,
			Link:        input.Link,
		}); err != nil {
			return err
		}

		if input.Tags != nil {
			if err := s.repo.ClearTags(ctx, idb, id); err != nil {
				return err
			}
			items, err := s.reconciler.Reconcile(ctx, idb, ownerID, taxonomy.KindTag, *input.Tags)
			if err != nil {
				return err
			}
			if err := s.repo.AttachTags(ctx, idb, id, itemIDs(items)); err != nil {
				return err
			}
		}

		if input.Ingredients != nil {
			if err := s.repo.ClearIngredients(ctx, idb, id); err != nil {
				return err
			}
			items, err := s.reconciler.Reconcile(ctx, idb, ownerID, taxonomy.KindIngredient, *input.Ingredients)
			if err != nil {
				return err
			}
			if err := s.repo.AttachIngredients(ctx, idb, id, itemIDs(items)); err != nil {
				return err
			}
		}

		var err error
		updated, err = s.repo.GetOwned(ctx, idb, ownerID, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes an owned recipe and its stored image. The removal of join
// rows is handled by the schema; tags and ingredients are never deleted
// here.
func (s *Service) Delete(ctx context.Context, ownerID uuid.UUID, id int64) error {
	existing, err := s.repo.GetOwned(ctx, nil, ownerID, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteOwned(ctx, ownerID, id); err != nil {
		return err
	}

	if existing.ImageKey != nil {
		// Best effort: a dangling object is preferable to failing the delete.
		_ = s.images.Remove(ctx, *existing.ImageKey)
	}

	return nil
}

// AttachImage stores image data for an owned recipe and records its object
// key, replacing any previous image.
func (s *Service) AttachImage(ctx context.Context, ownerID uuid.UUID, id int64, data []byte, contentType, ext string) (*Recipe, error) {
	existing, err := s.repo.GetOwned(ctx, nil, ownerID, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("recipes/%s%s", uuid.New().String(), ext)
	if err := s.images.Upload(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	if err := s.repo.SetImageKey(ctx, ownerID, id, key); err != nil {
		_ = s.images.Remove(ctx, key)
		return nil, err
	}

	if existing.ImageKey != nil {
		_ = s.images.Remove(ctx, *existing.ImageKey)
	}

	return s.repo.GetOwned(ctx, nil, ownerID, id)
}

func (s *Service) reconcileAndAttach(ctx context.Context, idb bun.IDB, ownerID uuid.UUID, recipeID int64, tags, ingredients []taxonomy.Descriptor) error {
	tagItems, err := s.reconciler.Reconcile(ctx, idb, ownerID, taxonomy.KindTag, tags)
	if err != nil {
		return err
	}
	if err := s.repo.AttachTags(ctx, idb, recipeID, itemIDs(tagItems)); err != nil {
		return err
	}

	ingredientItems, err := s.reconciler.Reconcile(ctx, idb, ownerID, taxonomy.KindIngredient, ingredients)
	if err != nil {
		return err
	}
	return s.repo.AttachIngredients(ctx, idb, recipeID, itemIDs(ingredientItems))
}

func itemIDs(items []taxonomy.Item) []int64 {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}
