package taxonomy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type mockStore struct {
	UpsertFunc      func(ctx context.Context, idb bun.IDB, ownerID uuid.UUID, kind Kind, name string) (Item, error)
	ListFunc        func(ctx context.Context, ownerID uuid.UUID, kind Kind, assignedOnly bool) ([]Item, error)
	UpdateOwnedFunc func(ctx context.Context, ownerID uuid.UUID, kind Kind, id int64, name string) (Item, error)
	DeleteOwnedFunc func(ctx context.Context, ownerID uuid.UUID, kind Kind, id int64) error
}

func (m *mockStore) Upsert(ctx context.Context, idb bun.IDB, ownerID uuid.UUID, kind Kind, name string) (Item, error) {
	return m.UpsertFunc(ctx, idb, ownerID, kind, name)
}

func (m *mockStore) List(ctx context.Context, ownerID uuid.UUID, kind Kind, assignedOnly bool) ([]Item, error) {
	return m.ListFunc(ctx, ownerID, kind, assignedOnly)
}

func (m *mockStore) UpdateOwned(ctx context.Context, ownerID uuid.UUID, kind Kind, id int64, name string) (Item, error) {
	return m.UpdateOwnedFunc(ctx, ownerID, kind, id, name)
}

func (m *mockStore) DeleteOwned(ctx context.Context, ownerID uuid.UUID, kind Kind, id int64) error {
	return m.DeleteOwnedFunc(ctx, ownerID, kind, id)
}

func TestReconcile_CreatesAndReuses(t *testing.T) {
	ownerID := uuid.New()
	nextID := int64(1)
	byName := map[string]int64{}

	store := &mockStore{
		UpsertFunc: func(ctx context.Context, idb bun.IDB, owner uuid.UUID, kind Kind, name string) (Item, error) {
			if owner != ownerID {
				t.Errorf("Upsert owner = %v; want %v", owner, ownerID)
			}
			if id, ok := byName[name]; ok {
				return Item{ID: id, Name: name}, nil
			}
			byName[name] = nextID
			nextID++
			return Item{ID: byName[name], Name: name}, nil
		},
	}
	svc := NewService(store)

	first, err := svc.Reconcile(context.Background(), nil, ownerID, KindTag, []Descriptor{
		{Name: "Vegan"}, {Name: "Dessert"},
	})
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("Reconcile returned %d items; want 2", len(first))
	}

	// Same names again resolve to the same entities.
	second, err := svc.Reconcile(context.Background(), nil, ownerID, KindTag, []Descriptor{
		{Name: "Vegan"}, {Name: "Dessert"},
	})
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	for i := range first {
		if second[i].ID != first[i].ID {
			t.Errorf("item %q resolved to id %d on second pass; want %d", first[i].Name, second[i].ID, first[i].ID)
		}
	}
}

func TestReconcile_CollapsesDuplicates(t *testing.T) {
	calls := 0
	store := &mockStore{
		UpsertFunc: func(ctx context.Context, idb bun.IDB, owner uuid.UUID, kind Kind, name string) (Item, error) {
			calls++
			return Item{ID: int64(calls), Name: name}, nil
		},
	}
	svc := NewService(store)

	items, err := svc.Reconcile(context.Background(), nil, uuid.New(), KindIngredient, []Descriptor{
		{Name: "Salt"}, {Name: "Salt"}, {Name: "Pepper"}, {Name: "Salt"},
	})
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}

	if calls != 2 {
		t.Errorf("Upsert called %d times; want 2", calls)
	}
	if len(items) != 2 {
		t.Errorf("Reconcile returned %d items; want 2", len(items))
	}
}

func TestReconcile_EmptyList(t *testing.T) {
	store := &mockStore{
		UpsertFunc: func(ctx context.Context, idb bun.IDB, owner uuid.UUID, kind Kind, name string) (Item, error) {
			t.Fatal("Upsert must not be called for an empty descriptor list")
			return Item{}, nil
		},
	}
	svc := NewService(store)

	items, err := svc.Reconcile(context.Background(), nil, uuid.New(), KindTag, nil)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if items != nil {
		t.Errorf("Reconcile = %v; want nil for empty input", items)
	}
}

func TestReconcile_UpsertError(t *testing.T) {
	wantErr := errors.New("constraint violated")
	store := &mockStore{
		UpsertFunc: func(ctx context.Context, idb bun.IDB, owner uuid.UUID, kind Kind, name string) (Item, error) {
			return Item{}, wantErr
		},
	}
	svc := NewService(store)

	_, err := svc.Reconcile(context.Background(), nil, uuid.New(), KindTag, []Descriptor{{Name: "x"}})
	if !errors.Is(err, wantErr) {
		t.Errorf("Reconcile error = %v; want wrapped %v", err, wantErr)
	}
}

func TestUpdate_RejectsEmptyName(t *testing.T) {
	store := &mockStore{
		UpdateOwnedFunc: func(ctx context.Context, owner uuid.UUID, kind Kind, id int64, name string) (Item, error) {
			t.Fatal("store must not be reached for an empty name")
			return Item{}, nil
		},
	}
	svc := NewService(store)

	_, err := svc.Update(context.Background(), uuid.New(), KindIngredient, 3, "")
	if !errors.Is(err, ErrNameRequired) {
		t.Errorf("Update error = %v; want %v", err, ErrNameRequired)
	}
}
