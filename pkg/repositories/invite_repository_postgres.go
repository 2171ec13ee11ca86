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

// postgresInviteRepository implements InviteRepository using PostgreSQL.
type postgresInviteRepository struct {
	db *database.DB
}

// NewPostgresInviteRepository creates a Postgres-backed invite repository.
func NewPostgresInviteRepository(db *database.DB) InviteRepository {
	return &postgresInviteRepository{db: db}
}

var _ InviteRepository = (*postgresInviteRepository)(nil)

const inviteColumns = `id, email, role, invited_by, invited_by_name, deal_id, created_at, used, exclusive_access`

func (r *postgresInviteRepository) Create(ctx context.Context, invite *models.Invite) error {
	query := `
		INSERT INTO invites (` + inviteColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		invite.ID, invite.Email, invite.Role, invite.InvitedBy, invite.InvitedByName,
		invite.DealID, invite.CreatedAt, invite.Used, invite.ExclusiveAccess)
	if err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

func (r *postgresInviteRepository) Get(ctx context.Context, id uuid.UUID) (*models.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE id = $1`

	var invite models.Invite
	err := r.db.QueryRow(ctx, query, id).Scan(
		&invite.ID, &invite.Email, &invite.Role, &invite.InvitedBy, &invite.InvitedByName,
		&invite.DealID, &invite.CreatedAt, &invite.Used, &invite.ExclusiveAccess)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return &invite, nil
}

func (r *postgresInviteRepository) List(ctx context.Context) ([]*models.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites ORDER BY seq`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer rows.Close()

	var invites []*models.Invite
	for rows.Next() {
		var invite models.Invite
		if err := rows.Scan(
			&invite.ID, &invite.Email, &invite.Role, &invite.InvitedBy, &invite.InvitedByName,
			&invite.DealID, &invite.CreatedAt, &invite.Used, &invite.ExclusiveAccess); err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, &invite)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invites: %w", err)
	}
	return invites, nil
}

func (r *postgresInviteRepository) Update(ctx context.Context, invite *models.Invite) error {
	query := `
		UPDATE invites
		SET used = $2
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, invite.ID, invite.Used)
	if err != nil {
		return fmt.Errorf("failed to update invite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
