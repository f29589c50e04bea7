package taxonomy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Store is the persistence surface the service needs.
type Store interface {
	Upsert(ctx context.Context, idb bun.IDB, ownerID uuid.UUID, kind Kind, name string) (Item, error)
	List(ctx context.Context, ownerID uuid.UUID, kind Kind, assignedOnly bool) ([]Item, error)
	UpdateOwned(ctx context.Context, ownerID uuid.UUID, kind Kind, id int64, name string) (Item, error)
	DeleteOwned(ctx context.Context, ownerID uuid.UUID, kind Kind, id int64) error
}

// Service reconciles descriptor lists into owned entities and manages the
// tag/ingredient listing surface. There is no direct create: entities come
// into existence only through reconciliation from a recipe write.
type Service struct {
	repo Store
}

func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Reconcile resolves an ordered descriptor list to a set of owned entities,
// creating missing ones. Duplicate names collapse to a single entity. The
// caller supplies the transaction handle so a recipe write and its
// reconciliation commit or roll back together.
func (s *Service) Reconcile(ctx context.Context, idb bun.IDB, ownerID uuid.UUID, kind Kind, descriptors []Descriptor) ([]Item, error) {
	if len(descriptors) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(descriptors))
	items := make([]Item, 0, len(descriptors))
	for _, d := range descriptors {
		if _, ok := seen[d.Name]; ok {
			continue
		}
		seen[d.Name] = struct{}{}

		item, err := s.repo.Upsert(ctx, idb, ownerID, kind, d.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to reconcile %s %q: %w", kind, d.Name, err)
		}
		items = append(items, item)
	}

	return items, nil
}

// List returns the requester's entities, optionally restricted to those
// assigned to at least one recipe.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, kind Kind, assignedOnly bool) ([]Item, error) {
	return s.repo.List(ctx, ownerID, kind, assignedOnly)
}

// Update renames an owned entity. A blank name is rejected: empty names
// exist only through reconciliation, never through a rename.
func (s *Service) Update(ctx context.Context, ownerID uuid.UUID, kind Kind, id int64, name string) (Item, error) {
	if name == "" {
		return Item{}, ErrNameRequired
	}
	return s.repo.UpdateOwned(ctx, ownerID, kind, id, name)
}

// Delete removes an owned entity.
func (s *Service) Delete(ctx context.Context, ownerID uuid.UUID, kind Kind, id int64) error {
	return s.repo.DeleteOwned(ctx, ownerID, kind, id)
}
