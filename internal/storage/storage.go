// Package storage defines the persistence interface for saved birth profiles.
package storage

import (
	"context"

	"github.com/hyperjump/vedika/internal/models"
)

// Storage defines profile persistence operations.
type Storage interface {
	// Create inserts a profile, assigning an ID when it has none.
	Create(ctx context.Context, p *models.Profile) error
	Get(ctx context.Context, id string) (*models.Profile, error)
	Update(ctx context.Context, p *models.Profile) error
	Delete(ctx context.Context, id string) error
	// List returns profiles ordered by name.
	List(ctx context.Context, offset, limit int) ([]*models.Profile, error)
	// GetMany returns the stored profiles among ids, in the order given. Unknown IDs are skipped.
	GetMany(ctx context.Context, ids []string) ([]*models.Profile, error)

	Count(ctx context.Context) (int64, error)

	Close() error
}
