package events

import (
	"time"

	"github.com/google/uuid"
)

// Kafka topics published by the service.
const (
	TopicBookingEvents = "booking.events"
	TopicPaymentEvents = "payment.events"
)

// Booking event types.
const (
	BookingCreated   = "booking.created"
	BookingApproved  = "booking.approved"
	BookingRejected  = "booking.rejected"
	BookingConfirmed = "booking.confirmed"
	BookingActivated = "booking.activated"
	BookingCompleted = "booking.completed"
	BookingCancelled = "booking.cancelled"
	BookingExpired   = "booking.expired"
)

// Payment event types.
const (
	PaymentInitiated = "payment.initiated"
	PaymentPaid      = "payment.paid"
	PaymentFailed    = "payment.failed"
)

// BookingEvent is the payload for all booking lifecycle events.
type BookingEvent struct {
	BookingID         uuid.UUID `json:"booking_id"`
	RenterID          uuid.UUID `json:"renter_id"`
	CarID             uuid.UUID `json:"car_id"`
	CarOwnerID        uuid.UUID `json:"car_owner_id"`
	Status            string    `json:"status"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	TotalPayableCents int64     `json:"total_payable_cents"`
	Currency          string    `json:"currency"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// PaymentEvent is the payload for payment lifecycle events.
type PaymentEvent struct {
	BookingID   uuid.UUID `json:"booking_id"`
	RenterID    uuid.UUID `json:"renter_id"`
	CarOwnerID  uuid.UUID `json:"car_owner_id"`
	Method      string    `json:"method"`
	Status      string    `json:"status"`
	Reference   string    `json:"reference,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	OccurredAt  time.Time `json:"occurred_at"`
}
