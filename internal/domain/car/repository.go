package car

import (
	"context"

	"github.com/google/uuid"
)

// CarRepository defines the persistence contract for car listings. All reads
// exclude soft-deleted rows through an explicit repository-level predicate.
type CarRepository interface {
	// FindByID retrieves a car by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Car, error)

	// FindByPlate retrieves a car by plate number (duplicate detection).
	FindByPlate(ctx context.Context, plateNumber string) (*Car, error)

	// FindByOwnerID retrieves an owner's listings with pagination.
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*Car, int64, error)

	// ListByStatus retrieves listings in a given status with pagination.
	// An empty status lists all non-deleted cars.
	ListByStatus(ctx context.Context, status Status, page, limit int) ([]*Car, int64, error)

	// Save persists a new listing.
	Save(ctx context.Context, c *Car) error

	// Update persists changes with optimistic locking.
	Update(ctx context.Context, c *Car) error
}
