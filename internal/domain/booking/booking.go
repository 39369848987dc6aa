package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
)

// Booking is the aggregate root for the rental booking domain. The renter
// and car references are immutable after creation; the pricing snapshot is
// frozen from the car's rate at booking time so later price edits never
// retroactively change existing bookings.
type Booking struct {
	id         uuid.UUID
	renterID   uuid.UUID
	carID      uuid.UUID
	carOwnerID uuid.UUID

	startDate time.Time
	endDate   time.Time
	totalDays int

	dailyRateCents       int64
	totalAmountCents     int64
	securityDepositCents int64
	deliveryFeeCents     int64
	totalPayableCents    int64
	currency             string

	status  Status
	payment PaymentInfo

	pickupLocation  string
	dropoffLocation string
	notes           string

	cancelReason         string
	cancelledBy          Actor
	cancellationFeeCents int64

	renterReview *Review
	ownerReview  *Review

	approvedAt  *time.Time
	confirmedAt *time.Time
	activatedAt *time.Time
	completedAt *time.Time
	cancelledAt *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBooking creates a booking in pending status with a freshly computed
// pricing snapshot. The quote is always recomputed here, never taken from
// client input.
func NewBooking(
	renterID, carID, carOwnerID uuid.UUID,
	startDate, endDate time.Time,
	dailyRateCents, securityDepositCents, deliveryFeeCents int64,
	currency string,
	method PaymentMethod,
	pickupLocation, dropoffLocation, notes string,
) (*Booking, error) {
	if renterID == uuid.Nil {
		return nil, domain.NewValidationError("renter ID is required")
	}
	if carID == uuid.Nil {
		return nil, domain.NewValidationError("car ID is required")
	}
	if renterID == carOwnerID {
		return nil, domain.NewSelfBookingError()
	}
	if !method.IsValid() {
		return nil, domain.NewUnsupportedPaymentMethodError(string(method))
	}

	quote, err := ComputeQuote(dailyRateCents, startDate, endDate, deliveryFeeCents, securityDepositCents)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Booking{
		id:                   uuid.New(),
		renterID:             renterID,
		carID:                carID,
		carOwnerID:           carOwnerID,
		startDate:            startDate,
		endDate:              endDate,
		totalDays:            quote.TotalDays,
		dailyRateCents:       quote.DailyRateCents,
		totalAmountCents:     quote.TotalAmountCents,
		securityDepositCents: quote.SecurityDepositCents,
		deliveryFeeCents:     quote.DeliveryFeeCents,
		totalPayableCents:    quote.TotalPayableCents,
		currency:             currency,
		status:               StatusPending,
		payment: PaymentInfo{
			Method: method,
			Status: PaymentStatusPending,
		},
		pickupLocation:  pickupLocation,
		dropoffLocation: dropoffLocation,
		notes:           notes,
		version:         1,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// ReconstructParams carries persistence data for rebuilding a Booking.
type ReconstructParams struct {
	ID         uuid.UUID
	RenterID   uuid.UUID
	CarID      uuid.UUID
	CarOwnerID uuid.UUID

	StartDate time.Time
	EndDate   time.Time
	TotalDays int

	DailyRateCents       int64
	TotalAmountCents     int64
	SecurityDepositCents int64
	DeliveryFeeCents     int64
	TotalPayableCents    int64
	Currency             string

	Status  Status
	Payment PaymentInfo

	PickupLocation  string
	DropoffLocation string
	Notes           string

	CancelReason         string
	CancelledBy          Actor
	CancellationFeeCents int64

	RenterReview *Review
	OwnerReview  *Review

	ApprovedAt  *time.Time
	ConfirmedAt *time.Time
	ActivatedAt *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reconstruct rebuilds a Booking from persistence data (no validation).
func Reconstruct(p ReconstructParams) *Booking {
	return &Booking{
		id:                   p.ID,
		renterID:             p.RenterID,
		carID:                p.CarID,
		carOwnerID:           p.CarOwnerID,
		startDate:            p.StartDate,
		endDate:              p.EndDate,
		totalDays:            p.TotalDays,
		dailyRateCents:       p.DailyRateCents,
		totalAmountCents:     p.TotalAmountCents,
		securityDepositCents: p.SecurityDepositCents,
		deliveryFeeCents:     p.DeliveryFeeCents,
		totalPayableCents:    p.TotalPayableCents,
		currency:             p.Currency,
		status:               p.Status,
		payment:              p.Payment,
		pickupLocation:       p.PickupLocation,
		dropoffLocation:      p.DropoffLocation,
		notes:                p.Notes,
		cancelReason:         p.CancelReason,
		cancelledBy:          p.CancelledBy,
		cancellationFeeCents: p.CancellationFeeCents,
		renterReview:         p.RenterReview,
		ownerReview:          p.OwnerReview,
		approvedAt:           p.ApprovedAt,
		confirmedAt:          p.ConfirmedAt,
		activatedAt:          p.ActivatedAt,
		completedAt:          p.CompletedAt,
		cancelledAt:          p.CancelledAt,
		version:              p.Version,
		createdAt:            p.CreatedAt,
		updatedAt:            p.UpdatedAt,
	}
}

// --- Getters ---

func (b *Booking) ID() uuid.UUID         { return b.id }
func (b *Booking) RenterID() uuid.UUID   { return b.renterID }
func (b *Booking) CarID() uuid.UUID      { return b.carID }
func (b *Booking) CarOwnerID() uuid.UUID { return b.carOwnerID }

func (b *Booking) StartDate() time.Time { return b.startDate }
func (b *Booking) EndDate() time.Time   { return b.endDate }
func (b *Booking) TotalDays() int       { return b.totalDays }

func (b *Booking) DailyRateCents() int64       { return b.dailyRateCents }
func (b *Booking) TotalAmountCents() int64     { return b.totalAmountCents }
func (b *Booking) SecurityDepositCents() int64 { return b.securityDepositCents }
func (b *Booking) DeliveryFeeCents() int64     { return b.deliveryFeeCents }
func (b *Booking) TotalPayableCents() int64    { return b.totalPayableCents }
func (b *Booking) Currency() string            { return b.currency }

func (b *Booking) Status() Status       { return b.status }
func (b *Booking) Payment() PaymentInfo { return b.payment }

func (b *Booking) PickupLocation() string  { return b.pickupLocation }
func (b *Booking) DropoffLocation() string { return b.dropoffLocation }
func (b *Booking) Notes() string           { return b.notes }

func (b *Booking) CancelReason() string         { return b.cancelReason }
func (b *Booking) CancelledBy() Actor           { return b.cancelledBy }
func (b *Booking) CancellationFeeCents() int64  { return b.cancellationFeeCents }

func (b *Booking) RenterReview() *Review { return b.renterReview }
func (b *Booking) OwnerReview() *Review  { return b.ownerReview }

func (b *Booking) ApprovedAt() *time.Time  { return b.approvedAt }
func (b *Booking) ConfirmedAt() *time.Time { return b.confirmedAt }
func (b *Booking) ActivatedAt() *time.Time { return b.activatedAt }
func (b *Booking) CompletedAt() *time.Time { return b.completedAt }
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

func (b *Booking) Version() int64       { return b.version }
func (b *Booking) CreatedAt() time.Time { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// TransitionTo applies a role-gated status transition and stamps the
// corresponding timestamp. Cancellation goes through Cancel instead.
func (b *Booking) TransitionTo(actor Actor, target Status) error {
	if target == StatusCancelled {
		return domain.NewValidationError("use Cancel for cancellations")
	}
	if err := AuthorizeTransition(actor, b.status, target); err != nil {
		return err
	}

	now := time.Now().UTC()
	b.status = target
	switch target {
	case StatusApproved:
		b.approvedAt = &now
	case StatusConfirmed:
		b.confirmedAt = &now
	case StatusActive:
		b.activatedAt = &now
	case StatusCompleted:
		b.completedAt = &now
	}
	b.updatedAt = now
	return nil
}

// Cancel transitions the booking to cancelled, recording who cancelled, why,
// and the fee charged.
func (b *Booking) Cancel(actor Actor, reason string, feeCents int64) error {
	if err := AuthorizeTransition(actor, b.status, StatusCancelled); err != nil {
		return err
	}

	now := time.Now().UTC()
	b.status = StatusCancelled
	b.cancelReason = reason
	b.cancelledBy = actor
	b.cancellationFeeCents = feeCents
	b.cancelledAt = &now
	b.updatedAt = now
	return nil
}

// Expire marks a stale booking expired (system actor only).
func (b *Booking) Expire() error {
	if err := AuthorizeTransition(ActorSystem, b.status, StatusExpired); err != nil {
		return err
	}
	b.status = StatusExpired
	b.updatedAt = time.Now().UTC()
	return nil
}

// Reschedule changes the date range of a pending booking and recomputes the
// pricing snapshot so totals always stay consistent with the dates.
func (b *Booking) Reschedule(startDate, endDate time.Time) error {
	if b.status != StatusPending {
		return domain.NewInvalidStateError(string(b.status), string(StatusPending))
	}

	quote, err := ComputeQuote(b.dailyRateCents, startDate, endDate, b.deliveryFeeCents, b.securityDepositCents)
	if err != nil {
		return err
	}

	b.startDate = startDate
	b.endDate = endDate
	b.totalDays = quote.TotalDays
	b.totalAmountCents = quote.TotalAmountCents
	b.totalPayableCents = quote.TotalPayableCents
	b.updatedAt = time.Now().UTC()
	return nil
}

// SetPaymentInitiated records the outcome of a payment strategy: the
// method-specific details blob, the tracking reference, and the payment
// status the strategy leaves the booking in.
func (b *Booking) SetPaymentInitiated(status PaymentStatus, intentID, reference string, details []byte) error {
	if !status.IsValid() {
		return domain.NewValidationError("invalid payment status")
	}
	b.payment.Status = status
	b.payment.IntentID = intentID
	b.payment.ExternalTransactionID = reference
	b.payment.Details = details
	b.updatedAt = time.Now().UTC()
	return nil
}

// ApplyPaymentSuccess reconciles a verified provider success with the
// booking. It is idempotent: re-applying success to an already-paid booking
// reports no change. Payment success drives the approved→confirmed
// transition.
func (b *Booking) ApplyPaymentSuccess(transactionID string, at time.Time) (bool, error) {
	if b.payment.Status == PaymentStatusPaid {
		return false, nil
	}

	if b.status == StatusApproved {
		if err := b.TransitionTo(ActorPayment, StatusConfirmed); err != nil {
			return false, err
		}
	} else if b.status != StatusConfirmed && b.status != StatusActive && b.status != StatusCompleted {
		return false, domain.NewInvalidStateError(string(b.status), string(StatusConfirmed))
	}

	paidAt := at.UTC()
	b.payment.Status = PaymentStatusPaid
	b.payment.ExternalTransactionID = transactionID
	b.payment.PaidAt = &paidAt
	b.updatedAt = time.Now().UTC()
	return true, nil
}

// ApplyPaymentFailure records a provider failure. The booking status is left
// unchanged so the renter can retry with another method. Idempotent.
func (b *Booking) ApplyPaymentFailure(transactionID string) bool {
	if b.payment.Status == PaymentStatusFailed || b.payment.Status == PaymentStatusPaid {
		return false
	}
	b.payment.Status = PaymentStatusFailed
	if transactionID != "" {
		b.payment.ExternalTransactionID = transactionID
	}
	b.updatedAt = time.Now().UTC()
	return true
}

// AddReview writes the actor's review slot on a completed booking. A slot,
// once set, is immutable.
func (b *Booking) AddReview(actor Actor, rating int, comment string) error {
	if b.status != StatusCompleted {
		return domain.NewReviewNotAllowedError("reviews are only allowed on completed bookings")
	}

	review, err := NewReview(rating, comment, time.Now().UTC())
	if err != nil {
		return err
	}

	switch actor {
	case ActorRenter:
		if b.renterReview != nil {
			return domain.NewReviewNotAllowedError("renter review already submitted")
		}
		b.renterReview = review
	case ActorOwner:
		if b.ownerReview != nil {
			return domain.NewReviewNotAllowedError("owner review already submitted")
		}
		b.ownerReview = review
	default:
		return domain.NewReviewNotAllowedError("only the renter or the owner can review a booking")
	}

	b.updatedAt = time.Now().UTC()
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}
