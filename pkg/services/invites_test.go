package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tradeline-io/tradeline-engine/pkg/apperrors"
	"github.com/tradeline-io/tradeline-engine/pkg/models"
	"github.com/tradeline-io/tradeline-engine/pkg/repositories"
)

func newTestInviteService() (InviteService, UserService) {
	users := NewUserService(repositories.NewMemoryUserRepository(), zap.NewNop())
	invites := NewInviteService(repositories.NewMemoryInviteRepository(), users, zap.NewNop())
	return invites, users
}

func brokerInvite() CreateInviteInput {
	return CreateInviteInput{
		Email:         "bea@example.com",
		Role:          models.ProfileBroker,
		InvitedBy:     "user-1",
		InvitedByName: "Ana",
	}
}

func TestInviteServiceCreate(t *testing.T) {
	invites, _ := newTestInviteService()
	ctx := context.Background()

	invite, err := invites.Create(ctx, brokerInvite())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, invite.ID)
	assert.False(t, invite.Used)
	assert.Equal(t, models.ProfileBroker, invite.Role)

	listed, err := invites.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, invite.ID, listed[0].ID)
}

func TestInviteServiceCreateValidation(t *testing.T) {
	invites, _ := newTestInviteService()
	ctx := context.Background()

	input := brokerInvite()
	input.Email = "not-an-email"
	_, err := invites.Create(ctx, input)
	assert.Error(t, err)

	input = brokerInvite()
	input.Role = "warlord"
	_, err = invites.Create(ctx, input)
	assert.Error(t, err)
}

func TestInviteServiceGetByToken(t *testing.T) {
	invites, _ := newTestInviteService()
	ctx := context.Background()

	invite, err := invites.Create(ctx, brokerInvite())
	require.NoError(t, err)

	got, err := invites.GetByToken(ctx, invite.ID)
	require.NoError(t, err)
	assert.Equal(t, invite.Email, got.Email)

	_, err = invites.GetByToken(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestInviteServiceRedeem(t *testing.T) {
	invites, users := newTestInviteService()
	ctx := context.Background()

	invite, err := invites.Create(ctx, brokerInvite())
	require.NoError(t, err)

	user, err := invites.Redeem(ctx, invite.ID, "Bea", "bea@example.com", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, models.ProfileBroker, user.ProfileType)

	// The new account can log in right away.
	authed, err := users.Authenticate(ctx, "bea@example.com", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	// Redemption is single-use.
	_, err = invites.Redeem(ctx, invite.ID, "Bea", "bea@example.com", "secret-pass")
	assert.ErrorIs(t, err, apperrors.ErrInviteUsed)

	_, err = invites.GetByToken(ctx, invite.ID)
	assert.ErrorIs(t, err, apperrors.ErrInviteUsed)
}

func TestInviteServiceRedeemEmailBound(t *testing.T) {
	invites, _ := newTestInviteService()
	ctx := context.Background()

	invite, err := invites.Create(ctx, brokerInvite())
	require.NoError(t, err)

	_, err = invites.Redeem(ctx, invite.ID, "Mallory", "mallory@example.com", "secret-pass")
	assert.ErrorIs(t, err, apperrors.ErrInviteEmailMismatch)

	// Case differences in the bound email are accepted.
	user, err := invites.Redeem(ctx, invite.ID, "Bea", "BEA@example.com", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, models.ProfileBroker, user.ProfileType)
}

func TestInviteServiceRedeemFailedRegistrationKeepsInvite(t *testing.T) {
	invites, users := newTestInviteService()
	ctx := context.Background()

	// The invited address already has an account.
	_, err := users.Register(ctx, "Bea", "bea@example.com", "existing-pass")
	require.NoError(t, err)

	invite, err := invites.Create(ctx, brokerInvite())
	require.NoError(t, err)

	_, err = invites.Redeem(ctx, invite.ID, "Bea", "bea@example.com", "secret-pass")
	require.Error(t, err)

	// The invite survives a failed redemption attempt.
	got, err := invites.GetByToken(ctx, invite.ID)
	require.NoError(t, err)
	assert.False(t, got.Used)
}
