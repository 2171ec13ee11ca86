// Package services implements the deal custody engine: agent registry, deal
// lifecycle, document custody, verification, users, and invites.
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradeline-io/tradeline-engine/pkg/models"
	"github.com/tradeline-io/tradeline-engine/pkg/repositories"
)

// AgentService provides the agent registry. Agents are append-only identity
// records; deal chains reference them by id.
type AgentService interface {
	// Register creates a new agent. The parent id is stored as given and is
	// not checked against the registry.
	Register(ctx context.Context, name, parentAgentID string) (*models.Agent, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	List(ctx context.Context) ([]*models.Agent, error)
}

type agentService struct {
	repo   repositories.AgentRepository
	logger *zap.Logger
}

// NewAgentService creates a new agent service.
func NewAgentService(repo repositories.AgentRepository, logger *zap.Logger) AgentService {
	return &agentService{
		repo:   repo,
		logger: logger.Named("agent-service"),
	}
}

var _ AgentService = (*agentService)(nil)

func (s *agentService) Register(ctx context.Context, name, parentAgentID string) (*models.Agent, error) {
	if name == "" {
		return nil, fmt.Errorf("agent name is required")
	}

	agent := &models.Agent{
		ID:            uuid.New(),
		Name:          name,
		ParentAgentID: parentAgentID,
	}

	if err := s.repo.Create(ctx, agent); err != nil {
		s.logger.Error("Failed to register agent",
			zap.String("name", name),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Registered agent",
		zap.String("agent_id", agent.ID.String()),
		zap.String("name", name))
	return agent, nil
}

func (s *agentService) Get(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	return s.repo.Get(ctx, id)
}

func (s *agentService) List(ctx context.Context) ([]*models.Agent, error) {
	return s.repo.List(ctx)
}
