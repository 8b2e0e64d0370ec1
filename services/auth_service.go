package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/floppyflax/beer-pong-league-sub000/models"
	"github.com/floppyflax/beer-pong-league-sub000/repositories"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type RegisterInput struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AnonymousInput struct {
	DisplayName       string  `json:"display_name"`
	DeviceFingerprint *string `json:"device_fingerprint,omitempty"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*models.User, error)
	CreateAnonymous(ctx context.Context, input AnonymousInput) (*models.AnonymousUser, error)
	// Claim runs the identity reconciliation for an anonymous identity that
	// just authenticated as userID.
	Claim(ctx context.Context, anonymousUserID, userID string) error
}

type authService struct {
	userRepo     repositories.UserRepository
	anonRepo     repositories.AnonymousUserRepository
	mergeService MergeService
}

func NewAuthService(userRepo repositories.UserRepository, anonRepo repositories.AnonymousUserRepository, mergeService MergeService) AuthService {
	return &authService{
		userRepo:     userRepo,
		anonRepo:     anonRepo,
		mergeService: mergeService,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if input.DisplayName == "" {
		return nil, ErrDisplayNameRequired
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	email := input.Email
	user := &models.User{
		ID:           uuid.NewString(),
		DisplayName:  input.DisplayName,
		Email:        &email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrUserEmailConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) CreateAnonymous(ctx context.Context, input AnonymousInput) (*models.AnonymousUser, error) {
	if input.DisplayName == "" {
		return nil, ErrDisplayNameRequired
	}

	anon := &models.AnonymousUser{
		ID:                uuid.NewString(),
		DisplayName:       input.DisplayName,
		DeviceFingerprint: input.DeviceFingerprint,
	}
	if err := s.anonRepo.Create(ctx, anon); err != nil {
		return nil, fmt.Errorf("failed to create anonymous user: %w", err)
	}
	return anon, nil
}

func (s *authService) Claim(ctx context.Context, anonymousUserID, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	return s.mergeService.Merge(ctx, anonymousUserID, user.ID, user.DisplayName)
}
