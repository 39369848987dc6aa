//go:build integration

package main_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DriveShare-Marketplace/service-rental/internal/application"
	paymentDomain "github.com/DriveShare-Marketplace/service-rental/internal/domain/payment"
	rentalEvents "github.com/DriveShare-Marketplace/service-rental/internal/events"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/auth"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
	"github.com/DriveShare-Marketplace/service-rental/internal/repository"
)

// TestCreateBooking_RejectsOverlap verifies that two renters cannot hold the
// same car for overlapping dates, that adjacent date ranges are allowed, and
// that a successful creation lands on booking.events.
func TestCreateBooking_RejectsOverlap(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupRentalStack(t, infra, "http://unused", "whsec_test")
	defer stack.CleanupProducer()

	ctx := context.Background()
	owner := seedApprovedUser(t, stack.Users, auth.RoleOwner)
	renterA := seedApprovedUser(t, stack.Users, auth.RoleRenter)
	renterB := seedApprovedUser(t, stack.Users, auth.RoleRenter)
	car := seedActiveCar(t, stack.Cars, owner.ID())

	start := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)

	first, err := stack.Bookings.CreateBooking(ctx, renterA.ID(), application.CreateBookingRequest{
		CarID:         car.ID(),
		StartDate:     start,
		EndDate:       end,
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", first.Status)
	assert.Equal(t, int64(190000), first.TotalPayableCents)

	// Overlapping dates are rejected with the blocking booking attached.
	_, err = stack.Bookings.CreateBooking(ctx, renterB.ID(), application.CreateBookingRequest{
		CarID:         car.ID(),
		StartDate:     start.AddDate(0, 0, 1),
		EndDate:       end.AddDate(0, 0, 2),
		PaymentMethod: "card",
	})
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeBookingConflict, appErr.Code)

	// A back-to-back booking starting the day the first ends is fine.
	_, err = stack.Bookings.CreateBooking(ctx, renterB.ID(), application.CreateBookingRequest{
		CarID:         car.ID(),
		StartDate:     end,
		EndDate:       end.AddDate(0, 0, 2),
		PaymentMethod: "card",
	})
	require.NoError(t, err)

	ce := consumeOneEvent(t, infra.KafkaBrokers, rentalEvents.TopicBookingEvents,
		rentalEvents.BookingCreated, 15*time.Second)

	var created rentalEvents.BookingEvent
	require.NoError(t, ce.ParseData(&created))
	assert.Equal(t, first.ID, created.BookingID)
	assert.Equal(t, car.ID(), created.CarID)
	assert.Equal(t, "AED", created.Currency)
}

// TestLifecycleQueries_ConfirmedNoShow verifies how the sweep queries split
// confirmed bookings: one past its end date without pickup is picked up by
// the expiry query and never by activation, while one mid-rental activates.
func TestLifecycleQueries_ConfirmedNoShow(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	repo := repository.NewGormBookingRepository(infra.DB)
	ctx := context.Background()
	now := time.Now().UTC()

	noShow := seedBookingRow(t, infra.DB, "confirmed", "paid", now.AddDate(0, 0, -5), now.AddDate(0, 0, -2))
	midRental := seedBookingRow(t, infra.DB, "confirmed", "paid", now.AddDate(0, 0, -1), now.AddDate(0, 0, 2))
	neverApproved := seedBookingRow(t, infra.DB, "pending", "pending", now.AddDate(0, 0, -5), now.AddDate(0, 0, -2))

	stale, err := repo.FindStale(ctx, now)
	require.NoError(t, err)
	staleIDs := bookingIDs(stale)
	assert.Contains(t, staleIDs, noShow, "paid no-show must expire")
	assert.Contains(t, staleIDs, neverApproved)
	assert.NotContains(t, staleIDs, midRental)

	due, err := repo.FindDueForActivation(ctx, now)
	require.NoError(t, err)
	dueIDs := bookingIDs(due)
	assert.Contains(t, dueIDs, midRental)
	assert.NotContains(t, dueIDs, noShow, "past-end booking must not activate")
}

// TestCardPayment_WebhookConfirmsBooking walks a booking from creation
// through owner approval, card intent registration and a signed provider
// webhook, and asserts the booking confirms with events on both topics.
func TestCardPayment_WebhookConfirmsBooking(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	const webhookSecret = "whsec_integration"

	// Stubbed payment provider API.
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/payment_intents":
			json.NewEncoder(w).Encode(paymentDomain.Intent{
				ID:           "pi_integration",
				ClientSecret: "pi_integration_secret",
				Status:       paymentDomain.IntentStatusRequiresPayment,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer provider.Close()

	stack := setupRentalStack(t, infra, provider.URL, webhookSecret)
	defer stack.CleanupProducer()

	ctx := context.Background()
	owner := seedApprovedUser(t, stack.Users, auth.RoleOwner)
	renter := seedApprovedUser(t, stack.Users, auth.RoleRenter)
	car := seedActiveCar(t, stack.Cars, owner.ID())

	start := time.Date(2027, 4, 1, 0, 0, 0, 0, time.UTC)
	booking, err := stack.Bookings.CreateBooking(ctx, renter.ID(), application.CreateBookingRequest{
		CarID:         car.ID(),
		StartDate:     start,
		EndDate:       start.AddDate(0, 0, 3),
		PaymentMethod: "card",
	})
	require.NoError(t, err)

	_, err = stack.Bookings.UpdateStatus(ctx, booking.ID, owner.ID(), auth.RoleOwner,
		application.UpdateStatusRequest{Status: "approved"})
	require.NoError(t, err)

	result, err := stack.Payments.ProcessPayment(ctx, booking.ID, renter.ID(), application.ProcessPaymentRequest{})
	require.NoError(t, err)
	assert.Equal(t, "pi_integration", result.IntentID)

	// Provider reports success through the signed webhook.
	payload, err := json.Marshal(paymentDomain.Event{
		ID:            "evt_integration",
		Type:          paymentDomain.EventIntentSucceeded,
		IntentID:      "pi_integration",
		TransactionID: "txn_integration",
	})
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	require.NoError(t, stack.Payments.HandleWebhook(ctx, payload, signature))

	model := waitForBookingStatus(t, infra.DB, booking.ID, "confirmed", 15*time.Second)
	assert.Equal(t, "paid", model.PaymentStatus)
	require.NotNil(t, model.PaidAt)
	assert.Equal(t, "txn_integration", model.PaymentTransactionID)

	// Redelivering the same webhook must not disturb the booking.
	require.NoError(t, stack.Payments.HandleWebhook(ctx, payload, signature))
	var after int64
	require.NoError(t, infra.DB.Model(&repository.BookingModel{}).
		Where("id = ? AND status = ?", booking.ID, "confirmed").Count(&after).Error)
	assert.Equal(t, int64(1), after)

	paid := consumeOneEvent(t, infra.KafkaBrokers, rentalEvents.TopicPaymentEvents,
		rentalEvents.PaymentPaid, 15*time.Second)
	var paidEvt rentalEvents.PaymentEvent
	require.NoError(t, paid.ParseData(&paidEvt))
	assert.Equal(t, booking.ID, paidEvt.BookingID)
	assert.Equal(t, "card", paidEvt.Method)

	confirmed := consumeOneEvent(t, infra.KafkaBrokers, rentalEvents.TopicBookingEvents,
		rentalEvents.BookingConfirmed, 15*time.Second)
	var confirmedEvt rentalEvents.BookingEvent
	require.NoError(t, confirmed.ParseData(&confirmedEvt))
	assert.Equal(t, booking.ID, confirmedEvt.BookingID)
}
