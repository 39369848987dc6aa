package user

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines the persistence contract for user accounts. All
// reads exclude soft-deleted rows through an explicit predicate.
type UserRepository interface {
	// FindByID retrieves a user by ID.
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByEmail retrieves a user by email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// ListPendingApproval retrieves unapproved users with pagination (admin).
	ListPendingApproval(ctx context.Context, page, limit int) ([]*User, int64, error)

	// Save persists a new user.
	Save(ctx context.Context, u *User) error

	// Update persists changes with optimistic locking.
	Update(ctx context.Context, u *User) error
}
