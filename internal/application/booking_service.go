package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/DriveShare-Marketplace/service-rental/internal/domain/booking"
	carDomain "github.com/DriveShare-Marketplace/service-rental/internal/domain/car"
	"github.com/DriveShare-Marketplace/service-rental/internal/domain/user"
	"github.com/DriveShare-Marketplace/service-rental/internal/events"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/auth"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/kafka"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/lock"
)

// EventPublisher publishes CloudEvents to a topic. Satisfied by kafka.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// carLockTTL bounds how long a booking creation may hold the per-car lease.
const carLockTTL = 5 * time.Second

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	CarID           uuid.UUID `json:"car_id" binding:"required"`
	StartDate       time.Time `json:"start_date" binding:"required"`
	EndDate         time.Time `json:"end_date" binding:"required"`
	PaymentMethod   string    `json:"payment_method" binding:"required"`
	PickupLocation  string    `json:"pickup_location"`
	DropoffLocation string    `json:"dropoff_location"`
	Notes           string    `json:"notes"`
}

// UpdateStatusRequest carries a requested status change.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CancelBookingRequest carries the cancellation reason.
type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

// ReviewRequest carries a review submission.
type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// RescheduleRequest carries new dates for a pending booking.
type RescheduleRequest struct {
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
}

// ReviewDTO is the response representation of a review.
type ReviewDTO struct {
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID         uuid.UUID `json:"id"`
	RenterID   uuid.UUID `json:"renter_id"`
	CarID      uuid.UUID `json:"car_id"`
	CarOwnerID uuid.UUID `json:"car_owner_id"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	TotalDays int       `json:"total_days"`

	DailyRateCents       int64  `json:"daily_rate_cents"`
	TotalAmountCents     int64  `json:"total_amount_cents"`
	SecurityDepositCents int64  `json:"security_deposit_cents"`
	DeliveryFeeCents     int64  `json:"delivery_fee_cents"`
	TotalPayableCents    int64  `json:"total_payable_cents"`
	Currency             string `json:"currency"`

	Status string `json:"status"`

	PaymentMethod        string     `json:"payment_method"`
	PaymentStatus        string     `json:"payment_status"`
	PaymentTransactionID string     `json:"payment_transaction_id,omitempty"`
	PaidAt               *time.Time `json:"paid_at,omitempty"`

	PickupLocation  string `json:"pickup_location,omitempty"`
	DropoffLocation string `json:"dropoff_location,omitempty"`
	Notes           string `json:"notes,omitempty"`

	CancelReason         string `json:"cancel_reason,omitempty"`
	CancelledBy          string `json:"cancelled_by,omitempty"`
	CancellationFeeCents int64  `json:"cancellation_fee_cents,omitempty"`

	RenterReview *ReviewDTO `json:"renter_review,omitempty"`
	OwnerReview  *ReviewDTO `json:"owner_review,omitempty"`

	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	repo     bookingDomain.BookingRepository
	cars     carDomain.CarRepository
	users    user.UserRepository
	checker  *bookingDomain.AvailabilityChecker
	policy   bookingDomain.CancellationPolicy
	locker   lock.Locker
	producer EventPublisher
	logger   *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	cars carDomain.CarRepository,
	users user.UserRepository,
	checker *bookingDomain.AvailabilityChecker,
	policy bookingDomain.CancellationPolicy,
	locker lock.Locker,
	producer EventPublisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:     repo,
		cars:     cars,
		users:    users,
		checker:  checker,
		policy:   policy,
		locker:   locker,
		producer: producer,
		logger:   logger,
	}
}

// CreateBooking creates a new booking for the renter. The pricing snapshot is
// taken from the car's current rate; availability is re-checked atomically
// with the insert, serialized per car by a short redis lease.
func (s *BookingService) CreateBooking(ctx context.Context, renterID uuid.UUID, req CreateBookingRequest) (*BookingDTO, error) {
	renter, err := s.users.FindByID(ctx, renterID)
	if err != nil {
		return nil, err
	}
	if !renter.IsApproved() {
		return nil, domain.NewForbiddenError("account is not approved for booking")
	}

	car, err := s.cars.FindByID(ctx, req.CarID)
	if err != nil {
		return nil, err
	}
	if !car.IsBookable() {
		return nil, domain.NewValidationError("car is not available for booking")
	}

	method, err := bookingDomain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, domain.NewUnsupportedPaymentMethodError(req.PaymentMethod)
	}

	bk, err := bookingDomain.NewBooking(
		renterID,
		car.ID(),
		car.OwnerID(),
		req.StartDate,
		req.EndDate,
		car.DailyRateCents(),
		car.SecurityDepositCents(),
		car.DeliveryFeeCents(),
		car.Currency(),
		method,
		req.PickupLocation,
		req.DropoffLocation,
		req.Notes,
	)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, "booking:car:"+car.ID().String(), carLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize booking creation: %w", err)
	}
	defer release()

	conflict, err := s.repo.CreateIfAvailable(ctx, bk)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		conflictDTO := toBookingDTO(conflict)
		return nil, domain.NewBookingConflictError(conflictSummary(&conflictDTO))
	}

	s.publishBookingEvent(ctx, events.BookingCreated, bk)

	result := toBookingDTO(bk)
	return &result, nil
}

// UpdateStatus applies a role-gated lifecycle transition requested over the
// API. Cancellation has its own endpoint; confirmation belongs to payment.
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID, callerID uuid.UUID, callerRole auth.Role, req UpdateStatusRequest) (*BookingDTO, error) {
	target, err := bookingDomain.ParseStatus(req.Status)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if target == bookingDomain.StatusCancelled {
		return nil, domain.NewValidationError("use the cancellation endpoint to cancel a booking")
	}

	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	actor, err := resolveActor(bk, callerID, callerRole)
	if err != nil {
		return nil, err
	}

	if err := bk.TransitionTo(actor, target); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	s.publishBookingEvent(ctx, eventTypeForStatus(target), bk)

	result := toBookingDTO(bk)
	return &result, nil
}

// CancelBooking cancels a booking, computing the fee from the cancellation
// policy. Admin cancellations are always free.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, callerID uuid.UUID, callerRole auth.Role, req CancelBookingRequest) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	actor, err := resolveActor(bk, callerID, callerRole)
	if err != nil {
		return nil, err
	}

	var fee int64
	if actor != bookingDomain.ActorAdmin {
		fee = s.policy.Fee(bk, time.Now().UTC())
	}

	if err := bk.Cancel(actor, req.Reason, fee); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	s.publishBookingEvent(ctx, events.BookingCancelled, bk)

	result := toBookingDTO(bk)
	return &result, nil
}

// Reschedule moves a pending booking to new dates, recomputing the quote and
// re-checking availability against other bookings. The same per-car lease
// used by creation serializes the check against concurrent creates.
func (s *BookingService) Reschedule(ctx context.Context, bookingID, callerID uuid.UUID, req RescheduleRequest) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if bk.RenterID() != callerID {
		return nil, domain.NewNotFoundError("Booking", bookingID.String())
	}

	release, err := s.locker.Acquire(ctx, "booking:car:"+bk.CarID().String(), carLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize reschedule: %w", err)
	}
	defer release()

	excludeID := bk.ID()
	conflict, err := s.checker.HasConflict(ctx, bk.CarID(), req.StartDate, req.EndDate, &excludeID)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		conflictDTO := toBookingDTO(conflict)
		return nil, domain.NewBookingConflictError(conflictSummary(&conflictDTO))
	}

	if err := bk.Reschedule(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// AddReview records the caller's review on a completed booking.
func (s *BookingService) AddReview(ctx context.Context, bookingID, callerID uuid.UUID, req ReviewRequest) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var actor bookingDomain.Actor
	switch callerID {
	case bk.RenterID():
		actor = bookingDomain.ActorRenter
	case bk.CarOwnerID():
		actor = bookingDomain.ActorOwner
	default:
		return nil, domain.NewNotFoundError("Booking", bookingID.String())
	}

	if err := bk.AddReview(actor, req.Rating, req.Comment); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// GetBooking retrieves a booking visible to the caller. Bookings of other
// users read as not found, never as forbidden.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, callerID uuid.UUID, callerRole auth.Role) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if callerRole != auth.RoleAdmin && bk.RenterID() != callerID && bk.CarOwnerID() != callerID {
		return nil, domain.NewNotFoundError("Booking", bookingID.String())
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// GetRenterBookings retrieves paginated bookings made by the renter.
func (s *BookingService) GetRenterBookings(ctx context.Context, renterID uuid.UUID, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.FindByRenterID(ctx, renterID, page, limit)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit)
	return &result, nil
}

// GetOwnerBookings retrieves paginated bookings on the owner's cars.
func (s *BookingService) GetOwnerBookings(ctx context.Context, ownerID uuid.UUID, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.FindByOwnerID(ctx, ownerID, page, limit)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit)
	return &result, nil
}

// CheckAvailability answers a pre-flight availability query for a car.
func (s *BookingService) CheckAvailability(ctx context.Context, carID uuid.UUID, start, end time.Time) (bool, error) {
	if _, err := s.cars.FindByID(ctx, carID); err != nil {
		return false, err
	}
	conflict, err := s.checker.HasConflict(ctx, carID, start, end, nil)
	if err != nil {
		return false, err
	}
	return conflict == nil, nil
}

// --- Admin methods ---

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// ListAllBookings returns a paginated list of all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit)
	return &result, nil
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &BookingStatsDTO{
		TotalBookings: total,
		ByStatus:      counts,
	}, nil
}

// --- System methods (lifecycle worker) ---

// ActivateDueBookings moves confirmed bookings past their start date to active.
func (s *BookingService) ActivateDueBookings(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.FindDueForActivation(ctx, now)
	if err != nil {
		return 0, err
	}
	return s.transitionAll(ctx, due, bookingDomain.StatusActive, events.BookingActivated), nil
}

// CompleteDueBookings moves active bookings past their end date to completed.
func (s *BookingService) CompleteDueBookings(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.FindDueForCompletion(ctx, now)
	if err != nil {
		return 0, err
	}
	return s.transitionAll(ctx, due, bookingDomain.StatusCompleted, events.BookingCompleted), nil
}

// ExpireStaleBookings expires bookings that reached their end date without
// ever activating.
func (s *BookingService) ExpireStaleBookings(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.repo.FindStale(ctx, now)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, bk := range stale {
		if err := bk.Expire(); err != nil {
			s.logger.Warn("skipping expiry",
				zap.String("booking_id", bk.ID().String()),
				zap.Error(err),
			)
			continue
		}
		bk.IncrementVersion()
		if err := s.repo.Update(ctx, bk); err != nil {
			s.logger.Warn("failed to persist expiry",
				zap.String("booking_id", bk.ID().String()),
				zap.Error(err),
			)
			continue
		}
		s.publishBookingEvent(ctx, events.BookingExpired, bk)
		count++
	}
	return count, nil
}

func (s *BookingService) transitionAll(ctx context.Context, bookings []*bookingDomain.Booking, target bookingDomain.Status, eventType string) int {
	count := 0
	for _, bk := range bookings {
		if err := bk.TransitionTo(bookingDomain.ActorSystem, target); err != nil {
			s.logger.Warn("skipping system transition",
				zap.String("booking_id", bk.ID().String()),
				zap.String("target", string(target)),
				zap.Error(err),
			)
			continue
		}
		bk.IncrementVersion()
		if err := s.repo.Update(ctx, bk); err != nil {
			s.logger.Warn("failed to persist system transition",
				zap.String("booking_id", bk.ID().String()),
				zap.Error(err),
			)
			continue
		}
		s.publishBookingEvent(ctx, eventType, bk)
		count++
	}
	return count
}

// --- Helpers ---

// resolveActor maps the authenticated caller onto a transition actor.
// Non-admins unrelated to the booking see not found, never forbidden.
func resolveActor(bk *bookingDomain.Booking, callerID uuid.UUID, callerRole auth.Role) (bookingDomain.Actor, error) {
	if callerRole == auth.RoleAdmin {
		return bookingDomain.ActorAdmin, nil
	}
	switch callerID {
	case bk.RenterID():
		return bookingDomain.ActorRenter, nil
	case bk.CarOwnerID():
		return bookingDomain.ActorOwner, nil
	}
	return "", domain.NewNotFoundError("Booking", bk.ID().String())
}

func eventTypeForStatus(target bookingDomain.Status) string {
	switch target {
	case bookingDomain.StatusApproved:
		return events.BookingApproved
	case bookingDomain.StatusRejected:
		return events.BookingRejected
	case bookingDomain.StatusConfirmed:
		return events.BookingConfirmed
	case bookingDomain.StatusActive:
		return events.BookingActivated
	case bookingDomain.StatusCompleted:
		return events.BookingCompleted
	case bookingDomain.StatusExpired:
		return events.BookingExpired
	}
	return ""
}

func (s *BookingService) publishBookingEvent(ctx context.Context, eventType string, bk *bookingDomain.Booking) {
	if eventType == "" {
		return
	}
	evt := events.BookingEvent{
		BookingID:         bk.ID(),
		RenterID:          bk.RenterID(),
		CarID:             bk.CarID(),
		CarOwnerID:        bk.CarOwnerID(),
		Status:            string(bk.Status()),
		StartDate:         bk.StartDate(),
		EndDate:           bk.EndDate(),
		TotalPayableCents: bk.TotalPayableCents(),
		Currency:          bk.Currency(),
		OccurredAt:        time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicBookingEvents, eventType, evt)
}

func (s *BookingService) publishEvent(ctx context.Context, topic, eventType string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent("service-rental", eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.producer.PublishEvent(ctx, topic, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

// conflictSummary exposes only what the renter needs to pick new dates.
func conflictSummary(dto *BookingDTO) map[string]interface{} {
	return map[string]interface{}{
		"booking_id": dto.ID,
		"start_date": dto.StartDate,
		"end_date":   dto.EndDate,
		"status":     dto.Status,
	}
}

func toBookingDTOs(bookings []*bookingDomain.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos
}

func toReviewDTO(r *bookingDomain.Review) *ReviewDTO {
	if r == nil {
		return nil
	}
	return &ReviewDTO{
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	payment := bk.Payment()
	return BookingDTO{
		ID:                   bk.ID(),
		RenterID:             bk.RenterID(),
		CarID:                bk.CarID(),
		CarOwnerID:           bk.CarOwnerID(),
		StartDate:            bk.StartDate(),
		EndDate:              bk.EndDate(),
		TotalDays:            bk.TotalDays(),
		DailyRateCents:       bk.DailyRateCents(),
		TotalAmountCents:     bk.TotalAmountCents(),
		SecurityDepositCents: bk.SecurityDepositCents(),
		DeliveryFeeCents:     bk.DeliveryFeeCents(),
		TotalPayableCents:    bk.TotalPayableCents(),
		Currency:             bk.Currency(),
		Status:               string(bk.Status()),
		PaymentMethod:        string(payment.Method),
		PaymentStatus:        string(payment.Status),
		PaymentTransactionID: payment.ExternalTransactionID,
		PaidAt:               payment.PaidAt,
		PickupLocation:       bk.PickupLocation(),
		DropoffLocation:      bk.DropoffLocation(),
		Notes:                bk.Notes(),
		CancelReason:         bk.CancelReason(),
		CancelledBy:          string(bk.CancelledBy()),
		CancellationFeeCents: bk.CancellationFeeCents(),
		RenterReview:         toReviewDTO(bk.RenterReview()),
		OwnerReview:          toReviewDTO(bk.OwnerReview()),
		ApprovedAt:           bk.ApprovedAt(),
		ConfirmedAt:          bk.ConfirmedAt(),
		ActivatedAt:          bk.ActivatedAt(),
		CompletedAt:          bk.CompletedAt(),
		CancelledAt:          bk.CancelledAt(),
		Version:              bk.Version(),
		CreatedAt:            bk.CreatedAt(),
		UpdatedAt:            bk.UpdatedAt(),
	}
}
