package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AvailabilityChecker answers whether a car is free for a requested range.
// For booking creation the check must run inside the same transaction as the
// insert (see BookingRepository.CreateIfAvailable); this standalone checker
// serves pre-flight queries and reschedules.
type AvailabilityChecker struct {
	repo BookingRepository
}

// NewAvailabilityChecker creates an AvailabilityChecker.
func NewAvailabilityChecker(repo BookingRepository) *AvailabilityChecker {
	return &AvailabilityChecker{repo: repo}
}

// HasConflict returns the first booking blocking the requested half-open
// range, or nil if the car is available. Only non-terminal bookings block;
// adjacent ranges (one ending the day the other starts) do not conflict.
func (c *AvailabilityChecker) HasConflict(ctx context.Context, carID uuid.UUID, start, end time.Time, excludeBookingID *uuid.UUID) (*Booking, error) {
	return c.repo.FindOverlapping(ctx, carID, start, end, excludeBookingID)
}
