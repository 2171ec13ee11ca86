package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradeline-io/tradeline-engine/pkg/crypto"
	"github.com/tradeline-io/tradeline-engine/pkg/logging"
	"github.com/tradeline-io/tradeline-engine/pkg/models"
	"github.com/tradeline-io/tradeline-engine/pkg/repositories"
)

// inviteTokenBytes sizes the deal invite token. The token is the sole access
// control for chain joining, so it carries 128 bits of randomness.
const inviteTokenBytes = 16

// CreateDealInput carries the caller-supplied fields for a new deal.
type CreateDealInput struct {
	Title        string
	Commodity    models.Commodity
	Exclusivity  models.Exclusivity
	QuantityKg   float64
	PricePerKg   float64
	Location     string
	Details      string
	Participants []string // agent ids in chain order
}

// TransitionTable is a policy describing which status transitions are
// allowed. A nil table permits every transition, which matches the default
// operator-override behavior; stricter deployments can layer a pipeline
// table on top without touching the engine.
type TransitionTable map[models.DealStatus][]models.DealStatus

// Allowed reports whether the from -> to edge is permitted.
func (t TransitionTable) Allowed(from, to models.DealStatus) bool {
	if t == nil {
		return true
	}
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PipelineTransitions is the strict forward-only policy: each stage advances
// to the next, and any non-terminal stage may be cancelled.
var PipelineTransitions = TransitionTable{
	models.StatusInitiated:  {models.StatusKYC, models.StatusCancelled},
	models.StatusKYC:        {models.StatusContracted, models.StatusCancelled},
	models.StatusContracted: {models.StatusInspection, models.StatusCancelled},
	models.StatusInspection: {models.StatusPayment, models.StatusCancelled},
	models.StatusPayment:    {models.StatusShipped, models.StatusCancelled},
	models.StatusShipped:    {models.StatusClosed, models.StatusCancelled},
}

// ErrTransitionNotAllowed is returned by SetStatus when a configured
// transition policy rejects the requested edge.
type ErrTransitionNotAllowed struct {
	From, To models.DealStatus
}

func (e *ErrTransitionNotAllowed) Error() string {
	return fmt.Sprintf("transition %s -> %s not allowed", e.From, e.To)
}

// DealService owns the deal aggregate lifecycle.
type DealService interface {
	Create(ctx context.Context, input CreateDealInput, createdBy string) (*models.Deal, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	List(ctx context.Context) ([]*models.Deal, error)
	// SetStatus appends to the history log and updates the status. Repeated
	// and backward transitions are accepted unless a transition policy says
	// otherwise.
	SetStatus(ctx context.Context, id uuid.UUID, status models.DealStatus) (*models.Deal, error)
	// JoinByInviteToken appends the agent to the chain of the deal whose
	// invite link embeds the token. Idempotent: an agent already in the
	// chain is left in place.
	JoinByInviteToken(ctx context.Context, token, agentID string) (*models.Deal, error)
	// ResolveByInviteToken is the read-only variant of the token lookup,
	// used to preview a deal before committing to join.
	ResolveByInviteToken(ctx context.Context, token string) (*models.Deal, error)
	// RevealDetails opens the deal's sealed details for an authorized reader.
	RevealDetails(ctx context.Context, id uuid.UUID) (string, error)
}

type dealService struct {
	repo        repositories.DealRepository
	encryptor   *crypto.Encryptor
	frontendURL string
	transitions TransitionTable
	now         func() time.Time
	logger      *zap.Logger
}

// DealServiceOption configures a DealService.
type DealServiceOption func(*dealService)

// WithTransitionPolicy restricts status transitions to the given table.
func WithTransitionPolicy(table TransitionTable) DealServiceOption {
	return func(s *dealService) {
		s.transitions = table
	}
}

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) DealServiceOption {
	return func(s *dealService) {
		s.now = now
	}
}

// NewDealService creates a new deal service. frontendURL is the base URL
// templated into invite links.
func NewDealService(
	repo repositories.DealRepository,
	encryptor *crypto.Encryptor,
	frontendURL string,
	logger *zap.Logger,
	opts ...DealServiceOption,
) DealService {
	s := &dealService{
		repo:        repo,
		encryptor:   encryptor,
		frontendURL: frontendURL,
		now:         time.Now,
		logger:      logger.Named("deal-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ DealService = (*dealService)(nil)

func (s *dealService) Create(ctx context.Context, input CreateDealInput, createdBy string) (*models.Deal, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("deal title is required")
	}
	if input.Location == "" {
		return nil, fmt.Errorf("deal location is required")
	}
	if !models.IsValidCommodity(input.Commodity) {
		return nil, fmt.Errorf("invalid commodity: %s", input.Commodity)
	}
	if !models.IsValidExclusivity(input.Exclusivity) {
		return nil, fmt.Errorf("invalid exclusivity: %s", input.Exclusivity)
	}
	if input.QuantityKg < 0 {
		return nil, fmt.Errorf("quantity must be non-negative")
	}
	if input.PricePerKg < 0 {
		return nil, fmt.Errorf("price must be non-negative")
	}

	details, err := s.encryptor.Seal([]byte(input.Details))
	if err != nil {
		return nil, fmt.Errorf("failed to seal details: %w", err)
	}

	token, err := newInviteToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	deal := &models.Deal{
		ID:          uuid.New(),
		Title:       input.Title,
		Commodity:   input.Commodity,
		Exclusivity: input.Exclusivity,
		QuantityKg:  input.QuantityKg,
		PricePerKg:  input.PricePerKg,
		Location:    input.Location,
		Details:     details,
		Chain:       append([]string(nil), input.Participants...),
		Status:      models.StatusInitiated,
		History:     []models.StatusChange{{Status: models.StatusInitiated, At: now}},
		Documents:   []*models.Document{},
		InviteToken: token,
		InviteLink:  s.frontendURL + "/join-deal/" + token,
		CreatedAt:   now,
		CreatedBy:   createdBy,
	}

	if err := s.repo.Create(ctx, deal); err != nil {
		s.logger.Error("Failed to create deal",
			zap.String("title", input.Title),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Created deal",
		zap.String("deal_id", deal.ID.String()),
		zap.String("commodity", string(deal.Commodity)),
		zap.String("invite_token", logging.MaskToken(token)))
	return deal, nil
}

func (s *dealService) Get(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	return s.repo.Get(ctx, id)
}

func (s *dealService) List(ctx context.Context) ([]*models.Deal, error) {
	return s.repo.List(ctx)
}

func (s *dealService) SetStatus(ctx context.Context, id uuid.UUID, status models.DealStatus) (*models.Deal, error) {
	if !models.IsValidStatus(status) {
		return nil, fmt.Errorf("invalid status: %s", status)
	}

	deal, err := s.repo.Update(ctx, id, func(d *models.Deal) error {
		if !s.transitions.Allowed(d.Status, status) {
			return &ErrTransitionNotAllowed{From: d.Status, To: status}
		}
		d.Status = status
		d.History = append(d.History, models.StatusChange{Status: status, At: s.now()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Deal status updated",
		zap.String("deal_id", id.String()),
		zap.String("status", string(status)))
	return deal, nil
}

func (s *dealService) JoinByInviteToken(ctx context.Context, token, agentID string) (*models.Deal, error) {
	deal, err := s.repo.GetByInviteToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return s.repo.Update(ctx, deal.ID, func(d *models.Deal) error {
		if !d.InChain(agentID) {
			d.Chain = append(d.Chain, agentID)
			s.logger.Info("Agent joined deal",
				zap.String("deal_id", d.ID.String()),
				zap.String("agent_id", agentID))
		}
		return nil
	})
}

func (s *dealService) ResolveByInviteToken(ctx context.Context, token string) (*models.Deal, error) {
	return s.repo.GetByInviteToken(ctx, token)
}

func (s *dealService) RevealDetails(ctx context.Context, id uuid.UUID) (string, error) {
	deal, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}

	plaintext, err := s.encryptor.Open(deal.Details)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func newInviteToken() (string, error) {
	buf := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invite token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
