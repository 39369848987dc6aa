package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	bookingDomain "github.com/DriveShare-Marketplace/service-rental/internal/domain/booking"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	RenterID   uuid.UUID `gorm:"type:uuid;index;not null"`
	CarID      uuid.UUID `gorm:"type:uuid;index;not null"`
	CarOwnerID uuid.UUID `gorm:"type:uuid;index;not null"`

	StartDate time.Time `gorm:"not null;index"`
	EndDate   time.Time `gorm:"not null"`
	TotalDays int       `gorm:"not null"`

	DailyRateCents       int64  `gorm:"not null"`
	TotalAmountCents     int64  `gorm:"not null"`
	SecurityDepositCents int64  `gorm:"not null;default:0"`
	DeliveryFeeCents     int64  `gorm:"not null;default:0"`
	TotalPayableCents    int64  `gorm:"not null"`
	Currency             string `gorm:"not null;size:3"`

	Status string `gorm:"not null;size:20;index"`

	PaymentMethod        string          `gorm:"not null;size:30"`
	PaymentStatus        string          `gorm:"not null;size:30"`
	PaymentIntentID      string          `gorm:"size:100;index"`
	PaymentTransactionID string          `gorm:"size:100"`
	PaymentDetails       json.RawMessage `gorm:"type:jsonb"`
	PaidAt               *time.Time

	PickupLocation  string `gorm:"size:255"`
	DropoffLocation string `gorm:"size:255"`
	Notes           string `gorm:"size:1000"`

	CancelReason         string `gorm:"size:500"`
	CancelledBy          string `gorm:"size:20"`
	CancellationFeeCents int64  `gorm:"not null;default:0"`

	RenterReview json.RawMessage `gorm:"type:jsonb"`
	OwnerReview  json.RawMessage `gorm:"type:jsonb"`

	ApprovedAt  *time.Time
	ConfirmedAt *time.Time
	ActivatedAt *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time

	Version   int64     `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// nonTerminalStatuses is the status set that blocks a car's availability.
func nonTerminalStatuses() []string {
	statuses := bookingDomain.NonTerminalStatuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByIntentID retrieves a booking by its stored payment intent ID.
func (r *GormBookingRepository) FindByIntentID(ctx context.Context, intentID string) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("payment_intent_id = ?", intentID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", intentID)
		}
		return nil, fmt.Errorf("failed to find booking by intent ID: %w", err)
	}
	return toDomainBooking(&model)
}

// overlapQuery selects non-terminal bookings for the car whose half-open
// range overlaps [start, end). Adjacent ranges do not match.
func overlapQuery(db *gorm.DB, carID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) *gorm.DB {
	q := db.
		Where("car_id = ?", carID).
		Where("status IN ?", nonTerminalStatuses()).
		Where("start_date < ? AND end_date > ?", end, start)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	return q
}

// FindOverlapping returns the first conflicting booking for the range, or nil.
func (r *GormBookingRepository) FindOverlapping(ctx context.Context, carID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	err := overlapQuery(r.db.WithContext(ctx), carID, start, end, excludeID).
		Order("start_date ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query overlapping bookings: %w", err)
	}
	return toDomainBooking(&model)
}

// CreateIfAvailable re-checks availability and inserts the booking in one
// transaction. The car row is locked FOR UPDATE so concurrent creates for
// the same car serialize on the conflict check; the partial exclusion
// constraint in the schema is the storage-level backstop.
func (r *GormBookingRepository) CreateIfAvailable(ctx context.Context, b *bookingDomain.Booking) (*bookingDomain.Booking, error) {
	var conflict *bookingDomain.Booking

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lockedID uuid.UUID
		if err := tx.Raw("SELECT id FROM cars WHERE id = ? FOR UPDATE", b.CarID()).Scan(&lockedID).Error; err != nil {
			return fmt.Errorf("failed to lock car row: %w", err)
		}
		if lockedID == uuid.Nil {
			return domain.NewNotFoundError("Car", b.CarID().String())
		}

		var existing BookingModel
		err := overlapQuery(tx, b.CarID(), b.StartDate(), b.EndDate(), nil).
			Order("start_date ASC").
			First(&existing).Error
		if err == nil {
			conflicting, convErr := toDomainBooking(&existing)
			if convErr != nil {
				return convErr
			}
			conflict = conflicting
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check availability: %w", err)
		}

		model, err := toBookingModel(b)
		if err != nil {
			return err
		}
		if err := tx.Create(model).Error; err != nil {
			return fmt.Errorf("failed to insert booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conflict, nil
}

// FindByRenterID retrieves bookings made by a renter with pagination.
func (r *GormBookingRepository) FindByRenterID(ctx context.Context, renterID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPaged(ctx, "renter_id = ?", renterID, page, limit)
}

// FindByOwnerID retrieves bookings on an owner's cars with pagination.
func (r *GormBookingRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPaged(ctx, "car_owner_id = ?", ownerID, page, limit)
}

func (r *GormBookingRepository) findPaged(ctx context.Context, cond string, arg interface{}, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Where(cond, arg).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where(cond, arg).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find bookings: %w", err)
	}

	return toDomainBookings(models, total)
}

// ListAll retrieves all bookings with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	return toDomainBookings(models, total)
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, b *bookingDomain.Booking) error {
	model, err := toBookingModel(b)
	if err != nil {
		return err
	}

	// Compare-and-swap: only write if the version matches what was read
	// (current version - 1, since IncrementVersion was called).
	expectedVersion := b.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"start_date":             model.StartDate,
			"end_date":               model.EndDate,
			"total_days":             model.TotalDays,
			"total_amount_cents":     model.TotalAmountCents,
			"total_payable_cents":    model.TotalPayableCents,
			"status":                 model.Status,
			"payment_method":         model.PaymentMethod,
			"payment_status":         model.PaymentStatus,
			"payment_intent_id":      model.PaymentIntentID,
			"payment_transaction_id": model.PaymentTransactionID,
			"payment_details":        model.PaymentDetails,
			"paid_at":                model.PaidAt,
			"cancel_reason":          model.CancelReason,
			"cancelled_by":           model.CancelledBy,
			"cancellation_fee_cents": model.CancellationFeeCents,
			"renter_review":          model.RenterReview,
			"owner_review":           model.OwnerReview,
			"approved_at":            model.ApprovedAt,
			"confirmed_at":           model.ConfirmedAt,
			"activated_at":           model.ActivatedAt,
			"completed_at":           model.CompletedAt,
			"cancelled_at":           model.CancelledAt,
			"version":                model.Version,
			"updated_at":             model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}
	return nil
}

// FindDueForActivation returns confirmed bookings whose start date has passed
// and whose end date has not. Confirmed bookings already past their end date
// belong to the expiry sweep, not activation.
func (r *GormBookingRepository) FindDueForActivation(ctx context.Context, now time.Time) ([]*bookingDomain.Booking, error) {
	return r.findByStatusAndTime(ctx, []string{string(bookingDomain.StatusConfirmed)}, "start_date <= ? AND end_date > ?", now, now)
}

// FindDueForCompletion returns active bookings whose end date has passed.
func (r *GormBookingRepository) FindDueForCompletion(ctx context.Context, now time.Time) ([]*bookingDomain.Booking, error) {
	return r.findByStatusAndTime(ctx, []string{string(bookingDomain.StatusActive)}, "end_date <= ?", now)
}

// FindStale returns pending/approved/confirmed bookings whose end date has
// passed without ever activating.
func (r *GormBookingRepository) FindStale(ctx context.Context, now time.Time) ([]*bookingDomain.Booking, error) {
	statuses := []string{
		string(bookingDomain.StatusPending),
		string(bookingDomain.StatusApproved),
		string(bookingDomain.StatusConfirmed),
	}
	return r.findByStatusAndTime(ctx, statuses, "end_date <= ?", now)
}

func (r *GormBookingRepository) findByStatusAndTime(ctx context.Context, statuses []string, timeCond string, args ...interface{}) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Where(timeCond, args...).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to query bookings for system transition: %w", err)
	}

	bookings, _, err := toDomainBookings(models, int64(len(models)))
	return bookings, err
}

// CountRatings counts five-star and total ratings for a car across both
// review slots with a plain grouped scan.
func (r *GormBookingRepository) CountRatings(ctx context.Context, carID uuid.UUID) (int64, int64, error) {
	var result struct {
		FiveStar int64
		Total    int64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) FILTER (WHERE (renter_review->>'rating')::int = 5)
			+ COUNT(*) FILTER (WHERE (owner_review->>'rating')::int = 5) AS five_star,
			COUNT(renter_review) + COUNT(owner_review) AS total
		FROM bookings
		WHERE car_id = ?`, carID).Scan(&result).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count ratings: %w", err)
	}
	return result.FiveStar, result.Total, nil
}

// --- Conversion Helpers ---

func toDomainBookings(models []BookingModel, total int64) ([]*bookingDomain.Booking, int64, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		bk, err := toDomainBooking(&m)
		if err != nil {
			return nil, 0, err
		}
		bookings[i] = bk
	}
	return bookings, total, nil
}

func toBookingModel(b *bookingDomain.Booking) (*BookingModel, error) {
	payment := b.Payment()

	var renterReview, ownerReview json.RawMessage
	if b.RenterReview() != nil {
		data, err := json.Marshal(b.RenterReview())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal renter review: %w", err)
		}
		renterReview = data
	}
	if b.OwnerReview() != nil {
		data, err := json.Marshal(b.OwnerReview())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal owner review: %w", err)
		}
		ownerReview = data
	}

	return &BookingModel{
		ID:                   b.ID(),
		RenterID:             b.RenterID(),
		CarID:                b.CarID(),
		CarOwnerID:           b.CarOwnerID(),
		StartDate:            b.StartDate(),
		EndDate:              b.EndDate(),
		TotalDays:            b.TotalDays(),
		DailyRateCents:       b.DailyRateCents(),
		TotalAmountCents:     b.TotalAmountCents(),
		SecurityDepositCents: b.SecurityDepositCents(),
		DeliveryFeeCents:     b.DeliveryFeeCents(),
		TotalPayableCents:    b.TotalPayableCents(),
		Currency:             b.Currency(),
		Status:               string(b.Status()),
		PaymentMethod:        string(payment.Method),
		PaymentStatus:        string(payment.Status),
		PaymentIntentID:      payment.IntentID,
		PaymentTransactionID: payment.ExternalTransactionID,
		PaymentDetails:       payment.Details,
		PaidAt:               payment.PaidAt,
		PickupLocation:       b.PickupLocation(),
		DropoffLocation:      b.DropoffLocation(),
		Notes:                b.Notes(),
		CancelReason:         b.CancelReason(),
		CancelledBy:          string(b.CancelledBy()),
		CancellationFeeCents: b.CancellationFeeCents(),
		RenterReview:         renterReview,
		OwnerReview:          ownerReview,
		ApprovedAt:           b.ApprovedAt(),
		ConfirmedAt:          b.ConfirmedAt(),
		ActivatedAt:          b.ActivatedAt(),
		CompletedAt:          b.CompletedAt(),
		CancelledAt:          b.CancelledAt(),
		Version:              b.Version(),
		CreatedAt:            b.CreatedAt(),
		UpdatedAt:            b.UpdatedAt(),
	}, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}

	var renterReview, ownerReview *bookingDomain.Review
	if len(m.RenterReview) > 0 {
		var rv bookingDomain.Review
		if err := json.Unmarshal(m.RenterReview, &rv); err != nil {
			return nil, fmt.Errorf("failed to unmarshal renter review: %w", err)
		}
		renterReview = &rv
	}
	if len(m.OwnerReview) > 0 {
		var rv bookingDomain.Review
		if err := json.Unmarshal(m.OwnerReview, &rv); err != nil {
			return nil, fmt.Errorf("failed to unmarshal owner review: %w", err)
		}
		ownerReview = &rv
	}

	return bookingDomain.Reconstruct(bookingDomain.ReconstructParams{
		ID:                   m.ID,
		RenterID:             m.RenterID,
		CarID:                m.CarID,
		CarOwnerID:           m.CarOwnerID,
		StartDate:            m.StartDate,
		EndDate:              m.EndDate,
		TotalDays:            m.TotalDays,
		DailyRateCents:       m.DailyRateCents,
		TotalAmountCents:     m.TotalAmountCents,
		SecurityDepositCents: m.SecurityDepositCents,
		DeliveryFeeCents:     m.DeliveryFeeCents,
		TotalPayableCents:    m.TotalPayableCents,
		Currency:             m.Currency,
		Status:               status,
		Payment: bookingDomain.PaymentInfo{
			Method:                bookingDomain.PaymentMethod(m.PaymentMethod),
			Status:                bookingDomain.PaymentStatus(m.PaymentStatus),
			IntentID:              m.PaymentIntentID,
			ExternalTransactionID: m.PaymentTransactionID,
			Details:               m.PaymentDetails,
			PaidAt:                m.PaidAt,
		},
		PickupLocation:       m.PickupLocation,
		DropoffLocation:      m.DropoffLocation,
		Notes:                m.Notes,
		CancelReason:         m.CancelReason,
		CancelledBy:          bookingDomain.Actor(m.CancelledBy),
		CancellationFeeCents: m.CancellationFeeCents,
		RenterReview:         renterReview,
		OwnerReview:          ownerReview,
		ApprovedAt:           m.ApprovedAt,
		ConfirmedAt:          m.ConfirmedAt,
		ActivatedAt:          m.ActivatedAt,
		CompletedAt:          m.CompletedAt,
		CancelledAt:          m.CancelledAt,
		Version:              m.Version,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}), nil
}
