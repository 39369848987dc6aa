package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/auth"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
)

// User is the aggregate root for a platform account. Approval gates both
// listing cars (owners) and creating bookings (renters). Accounts are
// soft-deleted, never removed.
type User struct {
	id           uuid.UUID
	email        string
	passwordHash string
	fullName     string
	phone        string
	role         auth.Role
	isApproved   bool
	deletedAt    *time.Time
	version      int64
	createdAt    time.Time
	updatedAt    time.Time
}

// NewUser creates an unapproved user account.
func NewUser(email, passwordHash, fullName, phone string, role auth.Role) (*User, error) {
	if email == "" {
		return nil, domain.NewValidationError("email is required")
	}
	if passwordHash == "" {
		return nil, domain.NewValidationError("password is required")
	}
	if !role.IsValid() || role == auth.RoleAdmin {
		return nil, domain.NewValidationError("role must be renter or owner")
	}

	now := time.Now().UTC()
	return &User{
		id:           uuid.New(),
		email:        email,
		passwordHash: passwordHash,
		fullName:     fullName,
		phone:        phone,
		role:         role,
		isApproved:   false,
		version:      1,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// Reconstruct rebuilds a User from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	email, passwordHash, fullName, phone string,
	role auth.Role,
	isApproved bool,
	deletedAt *time.Time,
	version int64,
	createdAt, updatedAt time.Time,
) *User {
	return &User{
		id:           id,
		email:        email,
		passwordHash: passwordHash,
		fullName:     fullName,
		phone:        phone,
		role:         role,
		isApproved:   isApproved,
		deletedAt:    deletedAt,
		version:      version,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

// --- Getters ---

func (u *User) ID() uuid.UUID         { return u.id }
func (u *User) Email() string         { return u.email }
func (u *User) PasswordHash() string  { return u.passwordHash }
func (u *User) FullName() string      { return u.fullName }
func (u *User) Phone() string         { return u.phone }
func (u *User) Role() auth.Role       { return u.role }
func (u *User) IsApproved() bool      { return u.isApproved }
func (u *User) DeletedAt() *time.Time { return u.deletedAt }
func (u *User) Version() int64        { return u.version }
func (u *User) CreatedAt() time.Time  { return u.createdAt }
func (u *User) UpdatedAt() time.Time  { return u.updatedAt }

// --- Behavior ---

// Approve marks the account approved for platform activity.
func (u *User) Approve() {
	u.isApproved = true
	u.version++
	u.updatedAt = time.Now().UTC()
}

// Revoke withdraws approval.
func (u *User) Revoke() {
	u.isApproved = false
	u.version++
	u.updatedAt = time.Now().UTC()
}

// SoftDelete marks the account deleted.
func (u *User) SoftDelete() {
	now := time.Now().UTC()
	u.deletedAt = &now
	u.version++
	u.updatedAt = now
}
