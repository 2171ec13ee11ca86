package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tradeline-io/tradeline-engine/pkg/apperrors"
	"github.com/tradeline-io/tradeline-engine/pkg/database"
	"github.com/tradeline-io/tradeline-engine/pkg/models"
)

// postgresAgentRepository implements AgentRepository using PostgreSQL.
type postgresAgentRepository struct {
	db *database.DB
}

// NewPostgresAgentRepository creates a Postgres-backed agent repository.
func NewPostgresAgentRepository(db *database.DB) AgentRepository {
	return &postgresAgentRepository{db: db}
}

var _ AgentRepository = (*postgresAgentRepository)(nil)

func (r *postgresAgentRepository) Create(ctx context.Context, agent *models.Agent) error {
	query := `
		INSERT INTO agents (id, name, parent_agent_id)
		VALUES ($1, $2, $3)`

	_, err := r.db.Exec(ctx, query, agent.ID, agent.Name, agent.ParentAgentID)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

func (r *postgresAgentRepository) Get(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	query := `
		SELECT id, name, parent_agent_id
		FROM agents
		WHERE id = $1`

	var agent models.Agent
	err := r.db.QueryRow(ctx, query, id).Scan(&agent.ID, &agent.Name, &agent.ParentAgentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return &agent, nil
}

func (r *postgresAgentRepository) List(ctx context.Context) ([]*models.Agent, error) {
	query := `
		SELECT id, name, parent_agent_id
		FROM agents
		ORDER BY seq`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []*models.Agent
	for rows.Next() {
		var agent models.Agent
		if err := rows.Scan(&agent.ID, &agent.Name, &agent.ParentAgentID); err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, &agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agents: %w", err)
	}
	return agents, nil
}
