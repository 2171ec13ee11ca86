package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tradeline-io/tradeline-engine/pkg/apperrors"
	"github.com/tradeline-io/tradeline-engine/pkg/database"
	"github.com/tradeline-io/tradeline-engine/pkg/models"
)

// postgresDealRepository implements DealRepository using PostgreSQL.
// Chain, history, and documents are stored as JSONB; envelope bytes are
// base64 inside the JSON encoding. Update serializes per-deal mutations
// with SELECT ... FOR UPDATE.
type postgresDealRepository struct {
	db *database.DB
}

// NewPostgresDealRepository creates a Postgres-backed deal repository.
func NewPostgresDealRepository(db *database.DB) DealRepository {
	return &postgresDealRepository{db: db}
}

var _ DealRepository = (*postgresDealRepository)(nil)

const dealColumns = `id, title, commodity, exclusivity, quantity_kg, price_per_kg, location,
	details_ciphertext, details_iv, chain, status, history, documents,
	invite_token, invite_link, created_at, created_by`

func (r *postgresDealRepository) Create(ctx context.Context, deal *models.Deal) error {
	chain, history, documents, err := marshalDealCollections(deal)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO deals (` + dealColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = r.db.Exec(ctx, query,
		deal.ID, deal.Title, deal.Commodity, deal.Exclusivity,
		deal.QuantityKg, deal.PricePerKg, deal.Location,
		deal.Details.Ciphertext, deal.Details.IV,
		chain, deal.Status, history, documents,
		deal.InviteToken, deal.InviteLink, deal.CreatedAt, deal.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}
	return nil
}

func (r *postgresDealRepository) Get(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE id = $1`
	return r.queryOne(ctx, r.db, query, id)
}

func (r *postgresDealRepository) GetByInviteToken(ctx context.Context, token string) (*models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE invite_token = $1`
	return r.queryOne(ctx, r.db, query, token)
}

func (r *postgresDealRepository) List(ctx context.Context) ([]*models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals ORDER BY seq`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	defer rows.Close()

	var deals []*models.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, deal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate deals: %w", err)
	}
	return deals, nil
}

func (r *postgresDealRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*models.Deal) error) (*models.Deal, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `SELECT ` + dealColumns + ` FROM deals WHERE id = $1 FOR UPDATE`
	deal, err := r.queryOne(ctx, tx, query, id)
	if err != nil {
		return nil, err
	}

	if err := mutate(deal); err != nil {
		return nil, err
	}

	chain, history, documents, err := marshalDealCollections(deal)
	if err != nil {
		return nil, err
	}

	update := `
		UPDATE deals
		SET status = $2, chain = $3, history = $4, documents = $5
		WHERE id = $1`

	if _, err := tx.Exec(ctx, update, deal.ID, deal.Status, chain, history, documents); err != nil {
		return nil, fmt.Errorf("failed to update deal: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit deal update: %w", err)
	}
	return deal, nil
}

// querier covers both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *postgresDealRepository) queryOne(ctx context.Context, q querier, query string, arg any) (*models.Deal, error) {
	deal, err := scanDeal(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return deal, nil
}

func scanDeal(row pgx.Row) (*models.Deal, error) {
	var (
		deal      models.Deal
		chain     []byte
		history   []byte
		documents []byte
	)

	err := row.Scan(
		&deal.ID, &deal.Title, &deal.Commodity, &deal.Exclusivity,
		&deal.QuantityKg, &deal.PricePerKg, &deal.Location,
		&deal.Details.Ciphertext, &deal.Details.IV,
		&chain, &deal.Status, &history, &documents,
		&deal.InviteToken, &deal.InviteLink, &deal.CreatedAt, &deal.CreatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan deal: %w", err)
	}

	if err := json.Unmarshal(chain, &deal.Chain); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chain: %w", err)
	}
	if err := json.Unmarshal(history, &deal.History); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	if err := json.Unmarshal(documents, &deal.Documents); err != nil {
		return nil, fmt.Errorf("failed to unmarshal documents: %w", err)
	}
	if deal.Chain == nil {
		deal.Chain = []string{}
	}
	if deal.Documents == nil {
		deal.Documents = []*models.Document{}
	}
	return &deal, nil
}

func marshalDealCollections(deal *models.Deal) (chain, history, documents []byte, err error) {
	if chain, err = json.Marshal(deal.Chain); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal chain: %w", err)
	}
	if history, err = json.Marshal(deal.History); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal history: %w", err)
	}
	if documents, err = json.Marshal(deal.Documents); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal documents: %w", err)
	}
	return chain, history, documents, nil
}
