package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cloudrep/voicedesk/internal/auth"
	"github.com/cloudrep/voicedesk/internal/domain"
	"github.com/cloudrep/voicedesk/internal/repository"
	apperrors "github.com/cloudrep/voicedesk/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// UserService handles registration and login for dashboard accounts.
type UserService struct {
	repo   repository.UserRepository
	tokens *auth.Manager
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(repo repository.UserRepository, tokens *auth.Manager, logger *slog.Logger) *UserService {
	return &UserService{repo: repo, tokens: tokens, logger: logger}
}

// RegisterInput holds the parameters for creating an account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// LoginInput holds the credentials for logging in.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

// Register creates a new account and returns a signed access token.
func (s *UserService) Register(ctx context.Context, input *RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.InvalidInput("password must be at least 8 characters")
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.AlreadyExists("user", "email", email)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         input.Name,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, user.Email, "user")
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &AuthResult{User: user, AccessToken: token}, nil
}

// Login verifies the credentials and returns a signed access token. Invalid
// email and invalid password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, input *LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	token, err := s.tokens.Issue(user.ID, user.Email, "user")
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &AuthResult{User: user, AccessToken: token}, nil
}

// GetUser fetches the authenticated user's profile.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetByID(ctx, userID)
}
