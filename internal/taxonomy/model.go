// Package taxonomy manages the per-user tag and ingredient namespaces and
// the reconciliation of name descriptors into persisted entities.
package taxonomy

import "errors"

// Kind selects which namespace an operation targets. Tags and ingredients
// share shape and lifecycle but live in separate tables.
type Kind string

const (
	KindTag        Kind = "tag"
	KindIngredient Kind = "ingredient"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNameRequired = errors.New("name is required")
)

// Item is a tag or ingredient as seen by the API.
type Item struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Descriptor is a caller-supplied name to reconcile. An empty name is a
// legal, if unusual, value.
type Descriptor struct {
	Name string `json:"name"`
}
