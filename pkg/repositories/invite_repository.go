package repositories

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tradeline-io/tradeline-engine/pkg/apperrors"
	"github.com/tradeline-io/tradeline-engine/pkg/models"
)

// InviteRepository defines the interface for user-invite data access.
type InviteRepository interface {
	Create(ctx context.Context, invite *models.Invite) error
	Get(ctx context.Context, id uuid.UUID) (*models.Invite, error)
	List(ctx context.Context) ([]*models.Invite, error)
	Update(ctx context.Context, invite *models.Invite) error
}

// memoryInviteRepository implements InviteRepository with an in-process map.
type memoryInviteRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*models.Invite
	invites []*models.Invite
}

// NewMemoryInviteRepository creates an in-memory invite repository.
func NewMemoryInviteRepository() InviteRepository {
	return &memoryInviteRepository{
		byID: make(map[uuid.UUID]*models.Invite),
	}
}

var _ InviteRepository = (*memoryInviteRepository)(nil)

func (r *memoryInviteRepository) Create(_ context.Context, invite *models.Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[invite.ID]; exists {
		return apperrors.ErrConflict
	}

	stored := *invite
	r.byID[invite.ID] = &stored
	r.invites = append(r.invites, &stored)
	return nil
}

func (r *memoryInviteRepository) Get(_ context.Context, id uuid.UUID) (*models.Invite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	invite, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}

	out := *invite
	return &out, nil
}

func (r *memoryInviteRepository) List(_ context.Context) ([]*models.Invite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Invite, len(r.invites))
	for i, invite := range r.invites {
		copied := *invite
		out[i] = &copied
	}
	return out, nil
}

func (r *memoryInviteRepository) Update(_ context.Context, invite *models.Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[invite.ID]
	if !ok {
		return apperrors.ErrNotFound
	}

	*stored = *invite
	return nil
}
