package car

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
)

// Status is the listing state of a car, independent of its bookings.
type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusPending     Status = "pending"
	StatusMaintenance Status = "maintenance"
	StatusDeleted     Status = "deleted"
)

// IsValid returns true if the status is recognized.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending, StatusMaintenance, StatusDeleted:
		return true
	}
	return false
}

// ParseStatus converts a string to a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid car status: %s", s)
	}
	return status, nil
}

// Car is the aggregate root for a rental listing. Its daily rate is the
// source of truth at booking time; bookings snapshot it, so later edits do
// not change existing bookings.
type Car struct {
	id      uuid.UUID
	ownerID uuid.UUID

	make        string
	model       string
	year        int
	plateNumber string

	dailyRateCents       int64
	securityDepositCents int64
	deliveryFeeCents     int64
	currency             string

	location    string
	description string
	imageURLs   []string

	status    Status
	deletedAt *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewCar creates a new listing pending admin approval.
func NewCar(
	ownerID uuid.UUID,
	carMake, model string,
	year int,
	plateNumber string,
	dailyRateCents, securityDepositCents, deliveryFeeCents int64,
	currency, location, description string,
	imageURLs []string,
) (*Car, error) {
	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner ID is required")
	}
	if carMake == "" || model == "" {
		return nil, domain.NewValidationError("make and model are required")
	}
	if plateNumber == "" {
		return nil, domain.NewValidationError("plate number is required")
	}
	if year < 1980 || year > time.Now().Year()+1 {
		return nil, domain.NewValidationError("invalid year")
	}
	if dailyRateCents <= 0 {
		return nil, domain.NewValidationError("daily rate must be positive")
	}
	if securityDepositCents < 0 || deliveryFeeCents < 0 {
		return nil, domain.NewValidationError("fees cannot be negative")
	}

	now := time.Now().UTC()
	return &Car{
		id:                   uuid.New(),
		ownerID:              ownerID,
		make:                 carMake,
		model:                model,
		year:                 year,
		plateNumber:          plateNumber,
		dailyRateCents:       dailyRateCents,
		securityDepositCents: securityDepositCents,
		deliveryFeeCents:     deliveryFeeCents,
		currency:             currency,
		location:             location,
		description:          description,
		imageURLs:            imageURLs,
		status:               StatusPending,
		version:              1,
		createdAt:            now,
		updatedAt:            now,
	}, nil
}

// Reconstruct rebuilds a Car from persistence data (no validation).
func Reconstruct(
	id, ownerID uuid.UUID,
	carMake, model string,
	year int,
	plateNumber string,
	dailyRateCents, securityDepositCents, deliveryFeeCents int64,
	currency, location, description string,
	imageURLs []string,
	status Status,
	deletedAt *time.Time,
	version int64,
	createdAt, updatedAt time.Time,
) *Car {
	return &Car{
		id:                   id,
		ownerID:              ownerID,
		make:                 carMake,
		model:                model,
		year:                 year,
		plateNumber:          plateNumber,
		dailyRateCents:       dailyRateCents,
		securityDepositCents: securityDepositCents,
		deliveryFeeCents:     deliveryFeeCents,
		currency:             currency,
		location:             location,
		description:          description,
		imageURLs:            imageURLs,
		status:               status,
		deletedAt:            deletedAt,
		version:              version,
		createdAt:            createdAt,
		updatedAt:            updatedAt,
	}
}

// --- Getters ---

func (c *Car) ID() uuid.UUID               { return c.id }
func (c *Car) OwnerID() uuid.UUID          { return c.ownerID }
func (c *Car) Make() string                { return c.make }
func (c *Car) Model() string               { return c.model }
func (c *Car) Year() int                   { return c.year }
func (c *Car) PlateNumber() string         { return c.plateNumber }
func (c *Car) DailyRateCents() int64       { return c.dailyRateCents }
func (c *Car) SecurityDepositCents() int64 { return c.securityDepositCents }
func (c *Car) DeliveryFeeCents() int64     { return c.deliveryFeeCents }
func (c *Car) Currency() string            { return c.currency }
func (c *Car) Location() string            { return c.location }
func (c *Car) Description() string         { return c.description }
func (c *Car) ImageURLs() []string         { return c.imageURLs }
func (c *Car) Status() Status              { return c.status }
func (c *Car) DeletedAt() *time.Time       { return c.deletedAt }
func (c *Car) Version() int64              { return c.version }
func (c *Car) CreatedAt() time.Time        { return c.createdAt }
func (c *Car) UpdatedAt() time.Time        { return c.updatedAt }

// --- Behavior ---

// IsOwnedBy checks whether the listing belongs to the given owner.
func (c *Car) IsOwnedBy(ownerID uuid.UUID) bool {
	return c.ownerID == ownerID
}

// IsBookable returns true if the car can currently accept new bookings.
func (c *Car) IsBookable() bool {
	return c.status == StatusActive && c.deletedAt == nil
}

// Patch carries only the user-modifiable listing fields; nil means "leave
// unchanged". Unknown fields are rejected at the binding layer.
type Patch struct {
	Make                 *string `json:"make"`
	Model                *string `json:"model"`
	Year                 *int    `json:"year"`
	DailyRateCents       *int64  `json:"daily_rate_cents"`
	SecurityDepositCents *int64  `json:"security_deposit_cents"`
	DeliveryFeeCents     *int64  `json:"delivery_fee_cents"`
	Location             *string `json:"location"`
	Description          *string `json:"description"`
}

// Apply applies a partial update to the listing.
func (c *Car) Apply(p Patch) error {
	if p.Year != nil && (*p.Year < 1980 || *p.Year > time.Now().Year()+1) {
		return domain.NewValidationError("invalid year")
	}
	if p.DailyRateCents != nil && *p.DailyRateCents <= 0 {
		return domain.NewValidationError("daily rate must be positive")
	}
	if p.SecurityDepositCents != nil && *p.SecurityDepositCents < 0 {
		return domain.NewValidationError("security deposit cannot be negative")
	}
	if p.DeliveryFeeCents != nil && *p.DeliveryFeeCents < 0 {
		return domain.NewValidationError("delivery fee cannot be negative")
	}

	if p.Make != nil {
		c.make = *p.Make
	}
	if p.Model != nil {
		c.model = *p.Model
	}
	if p.Year != nil {
		c.year = *p.Year
	}
	if p.DailyRateCents != nil {
		c.dailyRateCents = *p.DailyRateCents
	}
	if p.SecurityDepositCents != nil {
		c.securityDepositCents = *p.SecurityDepositCents
	}
	if p.DeliveryFeeCents != nil {
		c.deliveryFeeCents = *p.DeliveryFeeCents
	}
	if p.Location != nil {
		c.location = *p.Location
	}
	if p.Description != nil {
		c.description = *p.Description
	}

	c.version++
	c.updatedAt = time.Now().UTC()
	return nil
}

// SetStatus moves the listing to a new status. Deleted is reached through
// SoftDelete only.
func (c *Car) SetStatus(status Status) error {
	if !status.IsValid() || status == StatusDeleted {
		return domain.NewValidationError(fmt.Sprintf("invalid target car status: %s", status))
	}
	c.status = status
	c.version++
	c.updatedAt = time.Now().UTC()
	return nil
}

// SetImageURLs replaces the listing's image URLs.
func (c *Car) SetImageURLs(urls []string) {
	c.imageURLs = urls
	c.version++
	c.updatedAt = time.Now().UTC()
}

// SoftDelete marks the listing deleted. Listings are never physically removed.
func (c *Car) SoftDelete() {
	now := time.Now().UTC()
	c.status = StatusDeleted
	c.deletedAt = &now
	c.version++
	c.updatedAt = now
}
