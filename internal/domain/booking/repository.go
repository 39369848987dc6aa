package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByIntentID retrieves a booking by its stored payment intent ID.
	FindByIntentID(ctx context.Context, intentID string) (*Booking, error)

	// FindOverlapping returns the first non-terminal booking for the car
	// whose half-open date range overlaps [start, end), or nil if the car
	// is free. excludeID, when non-nil, skips that booking.
	FindOverlapping(ctx context.Context, carID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*Booking, error)

	// CreateIfAvailable atomically re-checks availability and inserts the
	// booking within one transaction, serializing concurrent creates for
	// the same car. On a date conflict it returns the conflicting booking.
	CreateIfAvailable(ctx context.Context, b *Booking) (*Booking, error)

	// FindByRenterID retrieves bookings made by a renter with pagination.
	FindByRenterID(ctx context.Context, renterID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// FindByOwnerID retrieves bookings on cars belonging to an owner with pagination.
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// ListAll retrieves all bookings with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Update persists changes to an existing booking, conditioned on the
	// version read (compare-and-swap via optimistic locking).
	Update(ctx context.Context, b *Booking) error

	// FindDueForActivation returns confirmed bookings whose start date has
	// passed and whose end date has not; those past the end date expire.
	FindDueForActivation(ctx context.Context, now time.Time) ([]*Booking, error)

	// FindDueForCompletion returns active bookings whose end date has passed.
	FindDueForCompletion(ctx context.Context, now time.Time) ([]*Booking, error)

	// FindStale returns pending/approved/confirmed bookings whose end date
	// has passed without activation.
	FindStale(ctx context.Context, now time.Time) ([]*Booking, error)

	// CountRatings returns the number of five-star ratings and the number
	// of all ratings recorded for a car, scanning both review slots of its
	// completed bookings.
	CountRatings(ctx context.Context, carID uuid.UUID) (fiveStar int64, total int64, err error)
}
