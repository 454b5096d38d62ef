package models

import (
	"context"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
type Repository[T Model] interface {
	Create(ctx context.Context, model T) error                      // Create inserts a new model into the database
	Get(ctx context.Context, id string) (T, error)                  // Get retrieves a model by its ID
	Delete(ctx context.Context, id string) error                    // Delete removes a model from the database by its ID
	List(ctx context.Context, criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Base carries the identity and lifecycle fields shared by persistent models.
type Base struct {
	id        string
	sequence  int
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

func newBase() Base {
	now := time.Now().UTC()
	return Base{createdAt: now, updatedAt: now}
}

func (b *Base) ID() string                { return b.id }
func (b *Base) Sequence() int             { return b.sequence }
func (b *Base) CreatedAt() time.Time      { return b.createdAt }
func (b *Base) UpdatedAt() time.Time      { return b.updatedAt }
func (b *Base) DeletedAt() *time.Time     { return b.deletedAt }
func (b *Base) IsDeleted() bool           { return b.deletedAt != nil }
func (b *Base) SetID(id string)           { b.id = id }
func (b *Base) SetSequence(seq int)       { b.sequence = seq }
func (b *Base) SetCreatedAt(t time.Time)  { b.createdAt = t }
func (b *Base) SetUpdatedAt(t time.Time)  { b.updatedAt = t }
func (b *Base) SetDeletedAt(t *time.Time) { b.deletedAt = t }
