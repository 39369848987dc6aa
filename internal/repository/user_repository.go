package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/DriveShare-Marketplace/service-rental/internal/domain/user"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/auth"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"not null;size:255;uniqueIndex"`
	PasswordHash string    `gorm:"not null;size:100"`
	FullName     string    `gorm:"size:100"`
	Phone        string    `gorm:"size:20"`
	Role         string    `gorm:"not null;size:20"`
	IsApproved   bool      `gorm:"not null;default:false"`
	DeletedAt    *time.Time

	Version   int64     `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (UserModel) TableName() string {
	return "users"
}

// GormUserRepository is the GORM-based implementation of UserRepository.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByID retrieves a user by ID.
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	var model UserModel
	if err := r.db.WithContext(ctx).Scopes(notDeleted).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("User", id.String())
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return toDomainUser(&model), nil
}

// FindByEmail retrieves a user by email. Returns nil, nil when no account
// uses the address.
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).Scopes(notDeleted).Where("email = ?", email).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return toDomainUser(&model), nil
}

// ListPendingApproval retrieves unapproved users with pagination.
func (r *GormUserRepository) ListPendingApproval(ctx context.Context, page, limit int) ([]*user.User, int64, error) {
	base := r.db.WithContext(ctx).Model(&UserModel{}).Scopes(notDeleted).Where("is_approved = ?", false)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var models []UserModel
	offset := (page - 1) * limit
	if err := base.Order("created_at ASC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*user.User, len(models))
	for i, m := range models {
		users[i] = toDomainUser(&m)
	}
	return users, total, nil
}

// Save persists a new user.
func (r *GormUserRepository) Save(ctx context.Context, u *user.User) error {
	model := toUserModel(u)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Update persists changes to an existing user with optimistic locking.
func (r *GormUserRepository) Update(ctx context.Context, u *user.User) error {
	model := toUserModel(u)
	expectedVersion := u.Version() - 1

	result := r.db.WithContext(ctx).
		Model(&UserModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"full_name":   model.FullName,
			"phone":       model.Phone,
			"is_approved": model.IsApproved,
			"deleted_at":  model.DeletedAt,
			"version":     model.Version,
			"updated_at":  model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("user was modified by another transaction")
	}
	return nil
}

// --- Conversion Helpers ---

func toUserModel(u *user.User) *UserModel {
	return &UserModel{
		ID:           u.ID(),
		Email:        u.Email(),
		PasswordHash: u.PasswordHash(),
		FullName:     u.FullName(),
		Phone:        u.Phone(),
		Role:         string(u.Role()),
		IsApproved:   u.IsApproved(),
		DeletedAt:    u.DeletedAt(),
		Version:      u.Version(),
		CreatedAt:    u.CreatedAt(),
		UpdatedAt:    u.UpdatedAt(),
	}
}

func toDomainUser(m *UserModel) *user.User {
	return user.Reconstruct(
		m.ID,
		m.Email,
		m.PasswordHash,
		m.FullName,
		m.Phone,
		auth.Role(m.Role),
		m.IsApproved,
		m.DeletedAt,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
