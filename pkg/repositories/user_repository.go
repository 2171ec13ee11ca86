package repositories

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tradeline-io/tradeline-engine/pkg/apperrors"
	"github.com/tradeline-io/tradeline-engine/pkg/models"
)

// UserRepository defines the interface for user account data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	// GetByEmailOrName matches case-insensitively on either field.
	GetByEmailOrName(ctx context.Context, emailOrName string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// memoryUserRepository implements UserRepository with an in-process map.
type memoryUserRepository struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*models.User
	users []*models.User
}

// NewMemoryUserRepository creates an in-memory user repository.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		byID: make(map[uuid.UUID]*models.User),
	}
}

var _ UserRepository = (*memoryUserRepository)(nil)

func (r *memoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(user.Email)
	for _, u := range r.users {
		if strings.ToLower(u.Email) == email {
			return apperrors.ErrConflict
		}
	}

	stored := *user
	r.byID[user.ID] = &stored
	r.users = append(r.users, &stored)
	return nil
}

func (r *memoryUserRepository) Get(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}

	out := *user
	return &out, nil
}

func (r *memoryUserRepository) GetByEmailOrName(_ context.Context, emailOrName string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(emailOrName)
	for _, u := range r.users {
		if strings.ToLower(u.Email) == search || strings.ToLower(u.Name) == search {
			out := *u
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memoryUserRepository) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[user.ID]
	if !ok {
		return apperrors.ErrNotFound
	}

	*stored = *user
	return nil
}
