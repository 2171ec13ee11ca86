package repositories

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tradeline-io/tradeline-engine/pkg/apperrors"
	"github.com/tradeline-io/tradeline-engine/pkg/models"
)

// DealRepository defines the interface for deal aggregate data access.
//
// Update serializes all mutations to one deal: the mutate callback runs with
// exclusive ownership of the stored aggregate, which is what keeps the
// history-log and document-list invariants intact under concurrent callers.
// Mutations to different deals proceed independently. Get, List, and
// GetByInviteToken return deep copies; callers never see a live reference
// into the store.
type DealRepository interface {
	Create(ctx context.Context, deal *models.Deal) error
	Get(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	List(ctx context.Context) ([]*models.Deal, error)
	GetByInviteToken(ctx context.Context, token string) (*models.Deal, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(*models.Deal) error) (*models.Deal, error)
}

// memoryDealRepository implements DealRepository with in-process maps and a
// direct invite-token index.
type memoryDealRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*models.Deal
	byToken map[string]uuid.UUID
	deals   []*models.Deal // insertion order
}

// NewMemoryDealRepository creates an in-memory deal repository.
func NewMemoryDealRepository() DealRepository {
	return &memoryDealRepository{
		byID:    make(map[uuid.UUID]*models.Deal),
		byToken: make(map[string]uuid.UUID),
	}
}

var _ DealRepository = (*memoryDealRepository)(nil)

func (r *memoryDealRepository) Create(_ context.Context, deal *models.Deal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[deal.ID]; exists {
		return apperrors.ErrConflict
	}
	if _, exists := r.byToken[deal.InviteToken]; deal.InviteToken != "" && exists {
		return apperrors.ErrConflict
	}

	stored := deal.Clone()
	r.byID[deal.ID] = stored
	if deal.InviteToken != "" {
		r.byToken[deal.InviteToken] = deal.ID
	}
	r.deals = append(r.deals, stored)
	return nil
}

func (r *memoryDealRepository) Get(_ context.Context, id uuid.UUID) (*models.Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	deal, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return deal.Clone(), nil
}

func (r *memoryDealRepository) List(_ context.Context) ([]*models.Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Deal, len(r.deals))
	for i, deal := range r.deals {
		out[i] = deal.Clone()
	}
	return out, nil
}

func (r *memoryDealRepository) GetByInviteToken(_ context.Context, token string) (*models.Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byToken[token]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *memoryDealRepository) Update(_ context.Context, id uuid.UUID, mutate func(*models.Deal) error) (*models.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deal, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}

	// Mutate a clone so a failed mutation leaves the aggregate untouched.
	updated := deal.Clone()
	if err := mutate(updated); err != nil {
		return nil, err
	}

	*deal = *updated.Clone()
	return updated, nil
}
