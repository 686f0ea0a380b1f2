package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// NewUserInput describes an account created from the admin CLI.
type NewUserInput struct {
	Username  string `json:"username" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,min=8"`
	Email     string `json:"email" validate:"omitempty,email"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	IsStaff   bool   `json:"is_staff"`
}

// AuthService coordinates login and account management.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Login checks credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, *domain.Token, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err != nil {
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, apperrors.NewUnauthorized("account disabled")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, err
	}

	subject := domain.SubjectFor(user)
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, subject)
	if err != nil {
		return nil, nil, err
	}
	return user, &domain.Token{AccessToken: token, SubjectID: user.ID, Subject: subject, ExpiresAt: exp}, nil
}

// CreateUser registers an account. Usernames are unique.
func (s *AuthService) CreateUser(ctx context.Context, in NewUserInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validationError(validate.Struct(in)); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByUsername(ctx, in.Username); err == nil {
		return nil, apperrors.NewValidationError("invalid payload", map[string]any{
			"username": "A user with that username already exists.",
		})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		IsStaff:      in.IsStaff,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns accounts staff can assign requests to.
func (s *AuthService) ListUsers(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
