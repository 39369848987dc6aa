package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	carDomain "github.com/DriveShare-Marketplace/service-rental/internal/domain/car"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
)

// CarModel is the GORM model for the cars table.
type CarModel struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID uuid.UUID `gorm:"type:uuid;index;not null"`

	Make        string `gorm:"not null;size:50"`
	Model       string `gorm:"not null;size:50"`
	Year        int    `gorm:"not null"`
	PlateNumber string `gorm:"not null;size:20;uniqueIndex"`

	DailyRateCents       int64  `gorm:"not null"`
	SecurityDepositCents int64  `gorm:"not null;default:0"`
	DeliveryFeeCents     int64  `gorm:"not null;default:0"`
	Currency             string `gorm:"not null;size:3"`

	Location    string         `gorm:"size:255"`
	Description string         `gorm:"size:2000"`
	ImageURLs   pq.StringArray `gorm:"type:text[]"`

	Status    string `gorm:"not null;size:20;index"`
	DeletedAt *time.Time

	Version   int64     `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (CarModel) TableName() string {
	return "cars"
}

// GormCarRepository is the GORM-based implementation of CarRepository.
type GormCarRepository struct {
	db *gorm.DB
}

// NewGormCarRepository creates a new GormCarRepository.
func NewGormCarRepository(db *gorm.DB) *GormCarRepository {
	return &GormCarRepository{db: db}
}

// notDeleted scopes queries to rows that were not soft-deleted.
func notDeleted(db *gorm.DB) *gorm.DB {
	return db.Where("deleted_at IS NULL")
}

// FindByID retrieves a car by its unique identifier.
func (r *GormCarRepository) FindByID(ctx context.Context, id uuid.UUID) (*carDomain.Car, error) {
	var model CarModel
	if err := r.db.WithContext(ctx).Scopes(notDeleted).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Car", id.String())
		}
		return nil, fmt.Errorf("failed to find car by ID: %w", err)
	}
	return toDomainCar(&model), nil
}

// FindByPlate retrieves a car by plate number. Returns nil, nil when no
// listing uses the plate.
func (r *GormCarRepository) FindByPlate(ctx context.Context, plateNumber string) (*carDomain.Car, error) {
	var model CarModel
	err := r.db.WithContext(ctx).Scopes(notDeleted).Where("plate_number = ?", plateNumber).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find car by plate: %w", err)
	}
	return toDomainCar(&model), nil
}

// FindByOwnerID retrieves an owner's listings with pagination.
func (r *GormCarRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*carDomain.Car, int64, error) {
	base := r.db.WithContext(ctx).Model(&CarModel{}).Scopes(notDeleted).Where("owner_id = ?", ownerID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cars: %w", err)
	}

	var models []CarModel
	offset := (page - 1) * limit
	if err := base.Order("created_at DESC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find cars: %w", err)
	}

	return toDomainCars(models), total, nil
}

// ListByStatus retrieves listings in a given status with pagination. An
// empty status lists all non-deleted cars.
func (r *GormCarRepository) ListByStatus(ctx context.Context, status carDomain.Status, page, limit int) ([]*carDomain.Car, int64, error) {
	base := r.db.WithContext(ctx).Model(&CarModel{}).Scopes(notDeleted)
	if status != "" {
		base = base.Where("status = ?", string(status))
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cars: %w", err)
	}

	var models []CarModel
	offset := (page - 1) * limit
	if err := base.Order("created_at DESC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list cars: %w", err)
	}

	return toDomainCars(models), total, nil
}

// Save persists a new car listing.
func (r *GormCarRepository) Save(ctx context.Context, c *carDomain.Car) error {
	model := toCarModel(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create car: %w", err)
	}
	return nil
}

// Update persists changes to an existing listing with optimistic locking.
func (r *GormCarRepository) Update(ctx context.Context, c *carDomain.Car) error {
	model := toCarModel(c)
	expectedVersion := c.Version() - 1

	result := r.db.WithContext(ctx).
		Model(&CarModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"make":                   model.Make,
			"model":                  model.Model,
			"year":                   model.Year,
			"daily_rate_cents":       model.DailyRateCents,
			"security_deposit_cents": model.SecurityDepositCents,
			"delivery_fee_cents":     model.DeliveryFeeCents,
			"location":               model.Location,
			"description":            model.Description,
			"image_urls":             model.ImageURLs,
			"status":                 model.Status,
			"deleted_at":             model.DeletedAt,
			"version":                model.Version,
			"updated_at":             model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update car: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("car was modified by another transaction")
	}
	return nil
}

// --- Conversion Helpers ---

func toDomainCars(models []CarModel) []*carDomain.Car {
	cars := make([]*carDomain.Car, len(models))
	for i, m := range models {
		cars[i] = toDomainCar(&m)
	}
	return cars
}

func toCarModel(c *carDomain.Car) *CarModel {
	return &CarModel{
		ID:                   c.ID(),
		OwnerID:              c.OwnerID(),
		Make:                 c.Make(),
		Model:                c.Model(),
		Year:                 c.Year(),
		PlateNumber:          c.PlateNumber(),
		DailyRateCents:       c.DailyRateCents(),
		SecurityDepositCents: c.SecurityDepositCents(),
		DeliveryFeeCents:     c.DeliveryFeeCents(),
		Currency:             c.Currency(),
		Location:             c.Location(),
		Description:          c.Description(),
		ImageURLs:            pq.StringArray(c.ImageURLs()),
		Status:               string(c.Status()),
		DeletedAt:            c.DeletedAt(),
		Version:              c.Version(),
		CreatedAt:            c.CreatedAt(),
		UpdatedAt:            c.UpdatedAt(),
	}
}

func toDomainCar(m *CarModel) *carDomain.Car {
	return carDomain.Reconstruct(
		m.ID,
		m.OwnerID,
		m.Make,
		m.Model,
		m.Year,
		m.PlateNumber,
		m.DailyRateCents,
		m.SecurityDepositCents,
		m.DeliveryFeeCents,
		m.Currency,
		m.Location,
		m.Description,
		[]string(m.ImageURLs),
		carDomain.Status(m.Status),
		m.DeletedAt,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
