package application_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DriveShare-Marketplace/service-rental/internal/application"
	bookingDomain "github.com/DriveShare-Marketplace/service-rental/internal/domain/booking"
	carDomain "github.com/DriveShare-Marketplace/service-rental/internal/domain/car"
	"github.com/DriveShare-Marketplace/service-rental/internal/domain/user"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/auth"
	"github.com/google/uuid"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func approvedUser(t *testing.T, role auth.Role) *user.User {
	t.Helper()
	u, err := user.NewUser(string(role)+"@example.com", "$2a$10$hash", "Test User", "+971500000000", role)
	require.NoError(t, err)
	u.Approve()
	return u
}

func activeCar(t *testing.T, ownerID uuid.UUID) *carDomain.Car {
	t.Helper()
	c, err := carDomain.NewCar(
		ownerID, "Toyota", "Corolla", 2022, "A-12345",
		30000, 100000, 0,
		"AED", "Dubai Marina", "Clean and reliable", nil,
	)
	require.NoError(t, err)
	require.NoError(t, c.SetStatus(carDomain.StatusActive))
	return c
}

func pendingBooking(t *testing.T, renterID uuid.UUID, c *carDomain.Car, start, end time.Time) *bookingDomain.Booking {
	t.Helper()
	bk, err := bookingDomain.NewBooking(
		renterID, c.ID(), c.OwnerID(),
		start, end,
		c.DailyRateCents(), c.SecurityDepositCents(), c.DeliveryFeeCents(),
		c.Currency(),
		bookingDomain.MethodCard,
		"Dubai Marina", "Dubai Marina", "",
	)
	require.NoError(t, err)
	return bk
}

func approvedBooking(t *testing.T, renterID uuid.UUID, c *carDomain.Car, start, end time.Time) *bookingDomain.Booking {
	t.Helper()
	bk := pendingBooking(t, renterID, c, start, end)
	require.NoError(t, bk.TransitionTo(bookingDomain.ActorOwner, bookingDomain.StatusApproved))
	return bk
}

func approvedBookingWithMethod(t *testing.T, renterID uuid.UUID, c *carDomain.Car, method bookingDomain.PaymentMethod) *bookingDomain.Booking {
	t.Helper()
	bk, err := bookingDomain.NewBooking(
		renterID, c.ID(), c.OwnerID(),
		date(2027, 3, 1), date(2027, 3, 4),
		c.DailyRateCents(), c.SecurityDepositCents(), c.DeliveryFeeCents(),
		c.Currency(),
		method,
		"Dubai Marina", "Dubai Marina", "",
	)
	require.NoError(t, err)
	require.NoError(t, bk.TransitionTo(bookingDomain.ActorOwner, bookingDomain.StatusApproved))
	return bk
}

func newBookingService(repo *bookingRepoMock, cars *carRepoMock, users *userRepoMock, locker *lockerMock, pub *publisherMock) *application.BookingService {
	return application.NewBookingService(
		repo, cars, users,
		bookingDomain.NewAvailabilityChecker(repo),
		bookingDomain.NewStandardCancellationPolicy(),
		locker, pub,
		zap.NewNop(),
	)
}
