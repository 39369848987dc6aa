package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/DriveShare-Marketplace/service-rental/internal/application"
	"github.com/DriveShare-Marketplace/service-rental/internal/domain/user"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/auth"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
)

func newUserService(repo *userRepoMock) *application.UserService {
	tokens := auth.NewJWTManager("test-secret", 15*time.Minute, time.Hour)
	return application.NewUserService(repo, tokens, zap.NewNop())
}

func TestRegister_Success(t *testing.T) {
	var saved *user.User
	repo := &userRepoMock{
		findByEmailFn: func(ctx context.Context, email string) (*user.User, error) { return nil, nil },
		saveFn: func(ctx context.Context, u *user.User) error {
			saved = u
			return nil
		},
	}
	svc := newUserService(repo)

	dto, err := svc.Register(context.Background(), application.RegisterRequest{
		Email:    "  New.Renter@Example.COM ",
		Password: "correct-horse",
		FullName: "New Renter",
		Role:     "renter",
	})
	require.NoError(t, err)

	assert.Equal(t, "new.renter@example.com", dto.Email, "email is normalized")
	assert.False(t, dto.IsApproved, "accounts start unapproved")
	require.NotNil(t, saved)
	assert.NotEqual(t, "correct-horse", saved.PasswordHash(), "password is never stored in the clear")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(saved.PasswordHash()), []byte("correct-horse")))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	existing := approvedUser(t, auth.RoleRenter)
	repo := &userRepoMock{
		findByEmailFn: func(ctx context.Context, email string) (*user.User, error) { return existing, nil },
	}
	svc := newUserService(repo)

	_, err := svc.Register(context.Background(), application.RegisterRequest{
		Email:    "renter@example.com",
		Password: "correct-horse",
		FullName: "Renter",
		Role:     "renter",
	})
	require.Error(t, err)

	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeConflict, appErr.Code)
}

func TestRegister_AdminRoleRejected(t *testing.T) {
	repo := &userRepoMock{
		findByEmailFn: func(ctx context.Context, email string) (*user.User, error) { return nil, nil },
	}
	svc := newUserService(repo)

	_, err := svc.Register(context.Background(), application.RegisterRequest{
		Email:    "boss@example.com",
		Password: "correct-horse",
		FullName: "Boss",
		Role:     "admin",
	})
	require.Error(t, err)
}

func loginFixture(t *testing.T, password string) *user.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u, err := user.NewUser("renter@example.com", string(hash), "Renter", "", auth.RoleRenter)
	require.NoError(t, err)
	u.Approve()
	return u
}

func TestLogin_Success(t *testing.T) {
	u := loginFixture(t, "correct-horse")
	repo := &userRepoMock{
		findByEmailFn: func(ctx context.Context, email string) (*user.User, error) {
			assert.Equal(t, "renter@example.com", email)
			return u, nil
		},
	}
	svc := newUserService(repo)

	pair, err := svc.Login(context.Background(), application.LoginRequest{
		Email:    "Renter@Example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, u.ID(), pair.User.ID)
}

func TestLogin_UniformFailure(t *testing.T) {
	u := loginFixture(t, "correct-horse")
	known := &userRepoMock{
		findByEmailFn: func(ctx context.Context, email string) (*user.User, error) { return u, nil },
	}
	unknown := &userRepoMock{
		findByEmailFn: func(ctx context.Context, email string) (*user.User, error) { return nil, nil },
	}

	_, errBadPassword := newUserService(known).Login(context.Background(), application.LoginRequest{
		Email: "renter@example.com", Password: "wrong",
	})
	_, errBadEmail := newUserService(unknown).Login(context.Background(), application.LoginRequest{
		Email: "nobody@example.com", Password: "correct-horse",
	})

	require.Error(t, errBadPassword)
	require.Error(t, errBadEmail)
	assert.Equal(t, errBadPassword.Error(), errBadEmail.Error(), "bad email and bad password are indistinguishable")
}

func TestRefresh_RoundTrip(t *testing.T) {
	u := loginFixture(t, "correct-horse")
	repo := &userRepoMock{
		findByEmailFn: func(ctx context.Context, email string) (*user.User, error) { return u, nil },
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*user.User, error) {
			assert.Equal(t, u.ID(), id)
			return u, nil
		},
	}
	svc := newUserService(repo)

	pair, err := svc.Login(context.Background(), application.LoginRequest{
		Email: "renter@example.com", Password: "correct-horse",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, u.ID(), refreshed.User.ID)
}

func TestRefresh_InvalidToken(t *testing.T) {
	svc := newUserService(&userRepoMock{})

	_, err := svc.Refresh(context.Background(), "not-a-token")
	require.Error(t, err)

	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeUnauthorized, appErr.Code)
}

func TestApproveAndRevokeUser(t *testing.T) {
	u, err := user.NewUser("owner@example.com", "$2a$10$hash", "Owner", "", auth.RoleOwner)
	require.NoError(t, err)

	repo := &userRepoMock{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*user.User, error) { return u, nil },
		updateFn:   func(ctx context.Context, updated *user.User) error { return nil },
	}
	svc := newUserService(repo)

	dto, err := svc.ApproveUser(context.Background(), u.ID())
	require.NoError(t, err)
	assert.True(t, dto.IsApproved)

	dto, err = svc.RevokeUser(context.Background(), u.ID())
	require.NoError(t, err)
	assert.False(t, dto.IsApproved)
}
