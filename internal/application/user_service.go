package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/DriveShare-Marketplace/service-rental/internal/domain/user"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/auth"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
)

// RegisterRequest holds the data needed to create an account.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
	Role     string `json:"role" binding:"required"`
}

// LoginRequest holds login credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserDTO is the response representation of an account.
type UserDTO struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Phone      string    `json:"phone,omitempty"`
	Role       string    `json:"role"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
}

// TokenPairDTO is the response of a successful login or refresh.
type TokenPairDTO struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	User         UserDTO `json:"user"`
}

// UserService orchestrates registration, authentication and account approval.
type UserService struct {
	repo   user.UserRepository
	tokens *auth.JWTManager
	logger *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo user.UserRepository, tokens *auth.JWTManager, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, tokens: tokens, logger: logger}
}

// Register creates an unapproved account. Admin accounts are provisioned out
// of band, never through this endpoint.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.NewConflictError("an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.NewValidationError("password cannot be processed")
	}

	u, err := user.NewUser(email, string(hash), req.FullName, req.Phone, auth.Role(req.Role))
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.String("user_id", u.ID().String()),
		zap.String("role", string(u.Role())),
	)

	result := toUserDTO(u)
	return &result, nil
}

// Login verifies credentials and issues a token pair. Bad email and bad
// password produce the same error.
func (s *UserService) Login(ctx context.Context, req LoginRequest) (*TokenPairDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.NewUnauthorizedError("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash()), []byte(req.Password)); err != nil {
		return nil, domain.NewUnauthorizedError("invalid email or password")
	}

	return s.issueTokens(u)
}

// Refresh validates a refresh token and issues a fresh pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPairDTO, error) {
	claims, err := s.tokens.VerifyToken(refreshToken)
	if err != nil {
		return nil, domain.NewUnauthorizedError("invalid refresh token")
	}

	u, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, domain.NewUnauthorizedError("account no longer exists")
	}

	return s.issueTokens(u)
}

// GetProfile retrieves the caller's account.
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := toUserDTO(u)
	return &result, nil
}

// --- Admin methods ---

// ApproveUser marks an account approved for platform activity (admin).
func (s *UserService) ApproveUser(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	u.Approve()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}

	result := toUserDTO(u)
	return &result, nil
}

// RevokeUser withdraws an account's approval (admin).
func (s *UserService) RevokeUser(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	u.Revoke()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}

	result := toUserDTO(u)
	return &result, nil
}

// ListPendingUsers retrieves unapproved accounts (admin).
func (s *UserService) ListPendingUsers(ctx context.Context, page, limit int) (*domain.PaginatedResult[UserDTO], error) {
	users, total, err := s.repo.ListPendingApproval(ctx, page, limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// --- Helpers ---

func (s *UserService) issueTokens(u *user.User) (*TokenPairDTO, error) {
	access, err := s.tokens.GenerateAccessToken(u.ID(), u.Role())
	if err != nil {
		return nil, domain.NewUnauthorizedError("failed to issue token")
	}
	refresh, err := s.tokens.GenerateRefreshToken(u.ID(), u.Role())
	if err != nil {
		return nil, domain.NewUnauthorizedError("failed to issue token")
	}

	return &TokenPairDTO{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         toUserDTO(u),
	}, nil
}

func toUserDTO(u *user.User) UserDTO {
	return UserDTO{
		ID:         u.ID(),
		Email:      u.Email(),
		FullName:   u.FullName(),
		Phone:      u.Phone(),
		Role:       string(u.Role()),
		IsApproved: u.IsApproved(),
		CreatedAt:  u.CreatedAt(),
	}
}
