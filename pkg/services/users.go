package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradeline-io/tradeline-engine/pkg/apperrors"
	"github.com/tradeline-io/tradeline-engine/pkg/models"
	"github.com/tradeline-io/tradeline-engine/pkg/repositories"
)

// UserService manages user accounts and credential checks. Token issuance
// lives at the boundary (pkg/auth); this service only owns identity.
type UserService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	// Authenticate matches email or display name, case-insensitively.
	Authenticate(ctx context.Context, emailOrName, password string) (*models.User, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, profileType models.ProfileType) (*models.User, error)
}

type userService struct {
	repo   repositories.UserRepository
	now    func() time.Time
	logger *zap.Logger
}

// NewUserService creates a new user service.
func NewUserService(repo repositories.UserRepository, logger *zap.Logger) UserService {
	return &userService{
		repo:   repo,
		now:    time.Now,
		logger: logger.Named("user-service"),
	}
}

var _ UserService = (*userService)(nil)

func (s *userService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email: %s", email)
	}
	if len(password) < 3 {
		return nil, fmt.Errorf("password too short")
	}

	salt, err := newSalt()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hashPassword(password, salt),
		Salt:         salt,
		CreatedAt:    s.now(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("email already registered: %w", err)
		}
		s.logger.Error("Failed to register user", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Registered user", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, emailOrName, password string) (*models.User, error) {
	user, err := s.repo.GetByEmailOrName(ctx, emailOrName)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Same failure for unknown user and wrong password.
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	expected := []byte(user.PasswordHash)
	actual := []byte(hashPassword(password, user.Salt))
	if subtle.ConstantTimeCompare(expected, actual) != 1 {
		return nil, apperrors.ErrInvalidCredentials
	}

	return user, nil
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.repo.Get(ctx, id)
}

func (s *userService) UpdateProfile(ctx context.Context, id uuid.UUID, profileType models.ProfileType) (*models.User, error) {
	if !models.IsValidProfileType(profileType) {
		return nil, fmt.Errorf("invalid profile type: %s", profileType)
	}

	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	user.ProfileType = profileType
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("Updated user profile",
		zap.String("user_id", id.String()),
		zap.String("profile_type", string(profileType)))
	return user, nil
}

func newSalt() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func hashPassword(password, salt string) string {
	sum := sha256.Sum256([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}
