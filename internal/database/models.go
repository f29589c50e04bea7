package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the users table. Email is stored normalized (domain lower-cased)
// and is globally unique.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Email        string    `bun:"email,notnull,unique"`
	Name         string    `bun:"name,notnull,default:''"`
	PasswordHash string    `bun:"password_hash,notnull"`
	IsActive     bool      `bun:"is_active,notnull,default:true"`
	IsStaff      bool      `bun:"is_staff,notnull,default:false"`
	IsSuperuser  bool      `bun:"is_superuser,notnull,default:false"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Tag is a per-user recipe label. (user_id, name) carries a unique index
// backing the reconciler's upsert.
type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:t"`

	ID     int64     `bun:"id,pk,autoincrement"`
	Name   string    `bun:"name,notnull"`
	UserID uuid.UUID `bun:"user_id,notnull,type:uuid"`
}

// Ingredient has the same shape and lifecycle as Tag but its own namespace.
type Ingredient struct {
	bun.BaseModel `bun:"table:ingredients,alias:i"`

	ID     int64     `bun:"id,pk,autoincrement"`
	Name   string    `bun:"name,notnull"`
	UserID uuid.UUID `bun:"user_id,notnull,type:uuid"`
}

// Recipe is the recipes table. UserID is written once at insert and never
// appears in update column sets.
type Recipe struct {
	bun.BaseModel `bun:"table:recipes,alias:r"`

	ID          int64     `bun:"id,pk,autoincrement"`
	UserID      uuid.UUID `bun:"user_id,notnull,type:uuid"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description,notnull,default:''"`
	TimeMinutes int       `bun:"time_minutes,notnull"`
	Price       float64   `bun:"price,notnull,type:numeric(5,2)"`
	Link        string    `bun:"link,notnull,default:''"`
	ImageKey    *string   `bun:"image_key"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	Tags        []*Tag        `bun:"m2m:recipe_tags,join:Recipe=Tag"`
	Ingredients []*Ingredient `bun:"m2m:recipe_ingredients,join:Recipe=Ingredient"`
}

// RecipeTag joins recipes to tags.
type RecipeTag struct {
	bun.BaseModel `bun:"table:recipe_tags,alias:rt"`

	RecipeID int64   `bun:"recipe_id,pk"`
	Recipe   *Recipe `bun:"rel:belongs-to,join:recipe_id=id"`
	TagID    int64   `bun:"tag_id,pk"`
	Tag      *Tag    `bun:"rel:belongs-to,join:tag_id=id"`
}

// RecipeIngredient joins recipes to ingredients.
type RecipeIngredient struct {
	bun.BaseModel `bun:"table:recipe_ingredients,alias:ri"`

	RecipeID     int64       `bun:"recipe_id,pk"`
	Recipe       *Recipe     `bun:"rel:belongs-to,join:recipe_id=id"`
	IngredientID int64       `bun:"ingredient_id,pk"`
	Ingredient   *Ingredient `bun:"rel:belongs-to,join:ingredient_id=id"`
}
