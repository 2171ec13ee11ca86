// Package repositories defines data access interfaces and their in-memory
// and PostgreSQL implementations. The services depend only on the
// interfaces, so the backing store is swappable without touching business
// logic.
package repositories

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tradeline-io/tradeline-engine/pkg/apperrors"
	"github.com/tradeline-io/tradeline-engine/pkg/models"
)

// AgentRepository defines the interface for agent data access. Agents are
// append-only; there is no update or delete.
type AgentRepository interface {
	Create(ctx context.Context, agent *models.Agent) error
	Get(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	List(ctx context.Context) ([]*models.Agent, error)
}

// memoryAgentRepository implements AgentRepository with an in-process map.
type memoryAgentRepository struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*models.Agent
	agents []*models.Agent // insertion order
}

// NewMemoryAgentRepository creates an in-memory agent repository.
func NewMemoryAgentRepository() AgentRepository {
	return &memoryAgentRepository{
		byID: make(map[uuid.UUID]*models.Agent),
	}
}

var _ AgentRepository = (*memoryAgentRepository)(nil)

func (r *memoryAgentRepository) Create(_ context.Context, agent *models.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[agent.ID]; exists {
		return apperrors.ErrConflict
	}

	stored := *agent
	r.byID[agent.ID] = &stored
	r.agents = append(r.agents, &stored)
	return nil
}

func (r *memoryAgentRepository) Get(_ context.Context, id uuid.UUID) (*models.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}

	out := *agent
	return &out, nil
}

func (r *memoryAgentRepository) List(_ context.Context) ([]*models.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Agent, len(r.agents))
	for i, agent := range r.agents {
		copied := *agent
		out[i] = &copied
	}
	return out, nil
}
