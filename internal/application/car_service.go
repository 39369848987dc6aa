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
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/auth"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
)

// ImageStore stores listing images. Satisfied by the storage gateway client.
type ImageStore interface {
	UploadFiles(ctx context.Context, files [][]byte) ([]string, error)
	DeleteFiles(ctx context.Context, urls []string) error
}

// CreateCarRequest holds the data needed to create a listing. Images arrive
// base64-encoded in JSON and are uploaded to object storage.
type CreateCarRequest struct {
	Make                 string   `json:"make" binding:"required"`
	Model                string   `json:"model" binding:"required"`
	Year                 int      `json:"year" binding:"required"`
	PlateNumber          string   `json:"plate_number" binding:"required"`
	DailyRateCents       int64    `json:"daily_rate_cents" binding:"required"`
	SecurityDepositCents int64    `json:"security_deposit_cents"`
	DeliveryFeeCents     int64    `json:"delivery_fee_cents"`
	Currency             string   `json:"currency"`
	Location             string   `json:"location"`
	Description          string   `json:"description"`
	Images               [][]byte `json:"images"`
}

// UpdateCarStatusRequest carries a listing status change.
type UpdateCarStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// RatingSummaryDTO aggregates the ratings recorded on a car's bookings.
type RatingSummaryDTO struct {
	FiveStarCount int64   `json:"five_star_count"`
	RatingCount   int64   `json:"rating_count"`
	FiveStarRatio float64 `json:"five_star_ratio"`
}

// CarDTO is the response representation of a listing.
type CarDTO struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`

	Make        string `json:"make"`
	Model       string `json:"model"`
	Year        int    `json:"year"`
	PlateNumber string `json:"plate_number"`

	DailyRateCents       int64  `json:"daily_rate_cents"`
	SecurityDepositCents int64  `json:"security_deposit_cents"`
	DeliveryFeeCents     int64  `json:"delivery_fee_cents"`
	Currency             string `json:"currency"`

	Location    string   `json:"location,omitempty"`
	Description string   `json:"description,omitempty"`
	ImageURLs   []string `json:"image_urls,omitempty"`

	Status  string            `json:"status"`
	Ratings *RatingSummaryDTO `json:"ratings,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CarService is the application service orchestrating listing use cases.
type CarService struct {
	repo     carDomain.CarRepository
	bookings bookingDomain.BookingRepository
	users    user.UserRepository
	images   ImageStore
	currency string
	logger   *zap.Logger
}

// NewCarService creates a new CarService.
func NewCarService(
	repo carDomain.CarRepository,
	bookings bookingDomain.BookingRepository,
	users user.UserRepository,
	images ImageStore,
	currency string,
	logger *zap.Logger,
) *CarService {
	return &CarService{
		repo:     repo,
		bookings: bookings,
		users:    users,
		images:   images,
		currency: currency,
		logger:   logger,
	}
}

// CreateCar creates a listing for an approved owner, uploading its images
// first. If persisting the listing fails the uploads are rolled back.
func (s *CarService) CreateCar(ctx context.Context, ownerID uuid.UUID, req CreateCarRequest) (*CarDTO, error) {
	owner, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !owner.IsApproved() {
		return nil, domain.NewForbiddenError("account is not approved for listing cars")
	}

	existing, err := s.repo.FindByPlate(ctx, req.PlateNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.NewConflictError(fmt.Sprintf("a car with plate %s is already listed", req.PlateNumber))
	}

	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}

	var imageURLs []string
	if len(req.Images) > 0 {
		imageURLs, err = s.images.UploadFiles(ctx, req.Images)
		if err != nil {
			return nil, err
		}
	}

	car, err := carDomain.NewCar(
		ownerID,
		req.Make,
		req.Model,
		req.Year,
		req.PlateNumber,
		req.DailyRateCents,
		req.SecurityDepositCents,
		req.DeliveryFeeCents,
		currency,
		req.Location,
		req.Description,
		imageURLs,
	)
	if err != nil {
		s.rollbackImages(ctx, imageURLs)
		return nil, err
	}

	if err := s.repo.Save(ctx, car); err != nil {
		s.rollbackImages(ctx, imageURLs)
		return nil, err
	}

	result := toCarDTO(car, nil)
	return &result, nil
}

// UpdateCar applies a partial update to a listing owned by the caller.
func (s *CarService) UpdateCar(ctx context.Context, carID, callerID uuid.UUID, callerRole auth.Role, patch carDomain.Patch) (*CarDTO, error) {
	car, err := s.findOwned(ctx, carID, callerID, callerRole)
	if err != nil {
		return nil, err
	}

	if err := car.Apply(patch); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, car); err != nil {
		return nil, err
	}

	result := toCarDTO(car, nil)
	return &result, nil
}

// ReplaceImages uploads a new image set for the listing and deletes the old
// one. The old set is only removed after the new set is persisted.
func (s *CarService) ReplaceImages(ctx context.Context, carID, callerID uuid.UUID, callerRole auth.Role, images [][]byte) (*CarDTO, error) {
	car, err := s.findOwned(ctx, carID, callerID, callerRole)
	if err != nil {
		return nil, err
	}

	newURLs, err := s.images.UploadFiles(ctx, images)
	if err != nil {
		return nil, err
	}

	oldURLs := car.ImageURLs()
	car.SetImageURLs(newURLs)
	if err := s.repo.Update(ctx, car); err != nil {
		s.rollbackImages(ctx, newURLs)
		return nil, err
	}
	s.rollbackImages(ctx, oldURLs)

	result := toCarDTO(car, nil)
	return &result, nil
}

// SetStatus moves a listing between active, inactive and maintenance. Owners
// manage their own listings; pending listings activate through admin approval.
func (s *CarService) SetStatus(ctx context.Context, carID, callerID uuid.UUID, callerRole auth.Role, req UpdateCarStatusRequest) (*CarDTO, error) {
	status, err := carDomain.ParseStatus(req.Status)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	car, err := s.findOwned(ctx, carID, callerID, callerRole)
	if err != nil {
		return nil, err
	}
	if callerRole != auth.RoleAdmin && car.Status() == carDomain.StatusPending {
		return nil, domain.NewForbiddenError("listing is awaiting admin approval")
	}

	if err := car.SetStatus(status); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, car); err != nil {
		return nil, err
	}

	result := toCarDTO(car, nil)
	return &result, nil
}

// ApproveCar activates a pending listing (admin).
func (s *CarService) ApproveCar(ctx context.Context, carID uuid.UUID) (*CarDTO, error) {
	car, err := s.repo.FindByID(ctx, carID)
	if err != nil {
		return nil, err
	}
	if car.Status() != carDomain.StatusPending {
		return nil, domain.NewValidationError("only pending listings can be approved")
	}

	if err := car.SetStatus(carDomain.StatusActive); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, car); err != nil {
		return nil, err
	}

	result := toCarDTO(car, nil)
	return &result, nil
}

// DeleteCar soft-deletes a listing. Listings with live bookings cannot be
// removed until those bookings finish.
func (s *CarService) DeleteCar(ctx context.Context, carID, callerID uuid.UUID, callerRole auth.Role) error {
	car, err := s.findOwned(ctx, carID, callerID, callerRole)
	if err != nil {
		return err
	}

	// A far-future probe finds any non-terminal booking from now on.
	now := time.Now().UTC()
	horizon := now.AddDate(10, 0, 0)
	live, err := s.bookings.FindOverlapping(ctx, car.ID(), now, horizon, nil)
	if err != nil {
		return err
	}
	if live != nil {
		return domain.NewConflictError("car has live bookings and cannot be deleted")
	}

	car.SoftDelete()
	return s.repo.Update(ctx, car)
}

// GetCar retrieves a listing with its rating summary.
func (s *CarService) GetCar(ctx context.Context, carID uuid.UUID) (*CarDTO, error) {
	car, err := s.repo.FindByID(ctx, carID)
	if err != nil {
		return nil, err
	}

	summary, err := s.ratingSummary(ctx, car.ID())
	if err != nil {
		s.logger.Warn("failed to load rating summary",
			zap.String("car_id", car.ID().String()),
			zap.Error(err),
		)
		summary = nil
	}

	result := toCarDTO(car, summary)
	return &result, nil
}

// ListCars retrieves active listings for browsing.
func (s *CarService) ListCars(ctx context.Context, page, limit int) (*domain.PaginatedResult[CarDTO], error) {
	return s.list(ctx, carDomain.StatusActive, page, limit)
}

// ListCarsByStatus retrieves listings in any status (admin). An empty status
// lists everything.
func (s *CarService) ListCarsByStatus(ctx context.Context, status carDomain.Status, page, limit int) (*domain.PaginatedResult[CarDTO], error) {
	return s.list(ctx, status, page, limit)
}

// GetOwnerCars retrieves the caller's listings.
func (s *CarService) GetOwnerCars(ctx context.Context, ownerID uuid.UUID, page, limit int) (*domain.PaginatedResult[CarDTO], error) {
	cars, total, err := s.repo.FindByOwnerID(ctx, ownerID, page, limit)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toCarDTOs(cars), total, page, limit)
	return &result, nil
}

// GetRatingSummary returns the rating aggregate for a car.
func (s *CarService) GetRatingSummary(ctx context.Context, carID uuid.UUID) (*RatingSummaryDTO, error) {
	if _, err := s.repo.FindByID(ctx, carID); err != nil {
		return nil, err
	}
	return s.ratingSummary(ctx, carID)
}

// --- Helpers ---

func (s *CarService) list(ctx context.Context, status carDomain.Status, page, limit int) (*domain.PaginatedResult[CarDTO], error) {
	cars, total, err := s.repo.ListByStatus(ctx, status, page, limit)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toCarDTOs(cars), total, page, limit)
	return &result, nil
}

// findOwned loads a car the caller may manage. Admins manage any listing;
// other callers see foreign listings as not found.
func (s *CarService) findOwned(ctx context.Context, carID, callerID uuid.UUID, callerRole auth.Role) (*carDomain.Car, error) {
	car, err := s.repo.FindByID(ctx, carID)
	if err != nil {
		return nil, err
	}
	if callerRole != auth.RoleAdmin && !car.IsOwnedBy(callerID) {
		return nil, domain.NewNotFoundError("Car", carID.String())
	}
	return car, nil
}

func (s *CarService) ratingSummary(ctx context.Context, carID uuid.UUID) (*RatingSummaryDTO, error) {
	fiveStar, total, err := s.bookings.CountRatings(ctx, carID)
	if err != nil {
		return nil, err
	}

	summary := &RatingSummaryDTO{FiveStarCount: fiveStar, RatingCount: total}
	if total > 0 {
		summary.FiveStarRatio = float64(fiveStar) / float64(total)
	}
	return summary, nil
}

func (s *CarService) rollbackImages(ctx context.Context, urls []string) {
	if len(urls) == 0 {
		return
	}
	if err := s.images.DeleteFiles(ctx, urls); err != nil {
		s.logger.Error("failed to roll back uploaded images",
			zap.Int("count", len(urls)),
			zap.Error(err),
		)
	}
}

func toCarDTOs(cars []*carDomain.Car) []CarDTO {
	dtos := make([]CarDTO, len(cars))
	for i, c := range cars {
		dtos[i] = toCarDTO(c, nil)
	}
	return dtos
}

func toCarDTO(c *carDomain.Car, ratings *RatingSummaryDTO) CarDTO {
	return CarDTO{
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
		ImageURLs:            c.ImageURLs(),
		Status:               string(c.Status()),
		Ratings:              ratings,
		Version:              c.Version(),
		CreatedAt:            c.CreatedAt(),
		UpdatedAt:            c.UpdatedAt(),
	}
}
