package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradeline-io/tradeline-engine/pkg/apperrors"
	"github.com/tradeline-io/tradeline-engine/pkg/models"
	"github.com/tradeline-io/tradeline-engine/pkg/repositories"
)

// CreateInviteInput carries the fields for a new registration invite.
type CreateInviteInput struct {
	Email           string
	Role            models.ProfileType
	InvitedBy       string
	InvitedByName   string
	DealID          string
	ExclusiveAccess bool
}

// InviteService manages single-use registration invites. The invite's ID
// doubles as the redemption token handed to the invitee.
type InviteService interface {
	Create(ctx context.Context, input CreateInviteInput) (*models.Invite, error)
	// GetByToken returns the invite only while it is still redeemable.
	GetByToken(ctx context.Context, token uuid.UUID) (*models.Invite, error)
	List(ctx context.Context) ([]*models.Invite, error)
	// Redeem registers the invited user and consumes the invite. The email
	// must match the one the invite was issued for.
	Redeem(ctx context.Context, token uuid.UUID, name, email, password string) (*models.User, error)
}

type inviteService struct {
	repo   repositories.InviteRepository
	users  UserService
	now    func() time.Time
	logger *zap.Logger
}

// NewInviteService creates a new invite service.
func NewInviteService(repo repositories.InviteRepository, users UserService, logger *zap.Logger) InviteService {
	return &inviteService{
		repo:   repo,
		users:  users,
		now:    time.Now,
		logger: logger.Named("invite-service"),
	}
}

var _ InviteService = (*inviteService)(nil)

func (s *inviteService) Create(ctx context.Context, input CreateInviteInput) (*models.Invite, error) {
	if !strings.Contains(input.Email, "@") {
		return nil, fmt.Errorf("invalid email: %s", input.Email)
	}
	if !models.IsValidProfileType(input.Role) {
		return nil, fmt.Errorf("invalid role: %s", input.Role)
	}

	invite := &models.Invite{
		ID:              uuid.New(),
		Email:           input.Email,
		Role:            input.Role,
		InvitedBy:       input.InvitedBy,
		InvitedByName:   input.InvitedByName,
		DealID:          input.DealID,
		CreatedAt:       s.now(),
		ExclusiveAccess: input.ExclusiveAccess,
	}

	if err := s.repo.Create(ctx, invite); err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	s.logger.Info("Created invite",
		zap.String("invite_id", invite.ID.String()),
		zap.String("role", string(invite.Role)))
	return invite, nil
}

func (s *inviteService) GetByToken(ctx context.Context, token uuid.UUID) (*models.Invite, error) {
	invite, err := s.repo.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if invite.Used {
		return nil, apperrors.ErrInviteUsed
	}
	return invite, nil
}

func (s *inviteService) List(ctx context.Context) ([]*models.Invite, error) {
	return s.repo.List(ctx)
}

func (s *inviteService) Redeem(ctx context.Context, token uuid.UUID, name, email, password string) (*models.User, error) {
	invite, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(invite.Email, email) {
		return nil, apperrors.ErrInviteEmailMismatch
	}

	user, err := s.users.Register(ctx, name, email, password)
	if err != nil {
		return nil, err
	}

	user, err = s.users.UpdateProfile(ctx, user.ID, invite.Role)
	if err != nil {
		return nil, err
	}

	invite.Used = true
	if err := s.repo.Update(ctx, invite); err != nil {
		s.logger.Error("Failed to mark invite used",
			zap.String("invite_id", invite.ID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Redeemed invite",
		zap.String("invite_id", invite.ID.String()),
		zap.String("user_id", user.ID.String()))
	return user, nil
}
