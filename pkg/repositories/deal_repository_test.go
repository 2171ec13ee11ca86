package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeline-io/tradeline-engine/pkg/apperrors"
	"github.com/tradeline-io/tradeline-engine/pkg/models"
)

func newTestDeal(token string) *models.Deal {
	return &models.Deal{
		ID:          uuid.New(),
		Title:       "Gold 1000kg",
		Commodity:   models.CommodityGold,
		Exclusivity: models.ExclusivityStandard,
		QuantityKg:  1000,
		PricePerKg:  65,
		Location:    "Dubai",
		Chain:       []string{"agent-1"},
		Status:      models.StatusInitiated,
		History:     []models.StatusChange{{Status: models.StatusInitiated, At: time.Now()}},
		InviteToken: token,
		InviteLink:  "http://localhost:3000/join-deal/" + token,
		CreatedAt:   time.Now(),
		CreatedBy:   "user-1",
	}
}

func TestMemoryDealRepositoryCreateGet(t *testing.T) {
	repo := NewMemoryDealRepository()
	ctx := context.Background()

	deal := newTestDeal("aaaa1111")
	require.NoError(t, repo.Create(ctx, deal))

	got, err := repo.Get(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, deal.ID, got.ID)
	assert.Equal(t, deal.Title, got.Title)

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMemoryDealRepositoryGetByInviteToken(t *testing.T) {
	repo := NewMemoryDealRepository()
	ctx := context.Background()

	deal := newTestDeal("bbbb2222")
	require.NoError(t, repo.Create(ctx, deal))

	got, err := repo.GetByInviteToken(ctx, "bbbb2222")
	require.NoError(t, err)
	assert.Equal(t, deal.ID, got.ID)

	_, err = repo.GetByInviteToken(ctx, "unknown")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMemoryDealRepositorySnapshotsAreIndependent(t *testing.T) {
	repo := NewMemoryDealRepository()
	ctx := context.Background()

	deal := newTestDeal("cccc3333")
	require.NoError(t, repo.Create(ctx, deal))

	got, err := repo.Get(ctx, deal.ID)
	require.NoError(t, err)
	got.Chain = append(got.Chain, "intruder")
	got.History[0].Status = models.StatusCancelled

	fresh, err := repo.Get(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"agent-1"}, fresh.Chain)
	assert.Equal(t, models.StatusInitiated, fresh.History[0].Status)
}

func TestMemoryDealRepositoryUpdate(t *testing.T) {
	repo := NewMemoryDealRepository()
	ctx := context.Background()

	deal := newTestDeal("dddd4444")
	require.NoError(t, repo.Create(ctx, deal))

	updated, err := repo.Update(ctx, deal.ID, func(d *models.Deal) error {
		d.Status = models.StatusContracted
		d.History = append(d.History, models.StatusChange{Status: models.StatusContracted, At: time.Now()})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusContracted, updated.Status)
	assert.Len(t, updated.History, 2)

	stored, err := repo.Get(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusContracted, stored.Status)
}

func TestMemoryDealRepositoryUpdateFailureLeavesDealUntouched(t *testing.T) {
	repo := NewMemoryDealRepository()
	ctx := context.Background()

	deal := newTestDeal("eeee5555")
	require.NoError(t, repo.Create(ctx, deal))

	boom := errors.New("boom")
	_, err := repo.Update(ctx, deal.ID, func(d *models.Deal) error {
		d.Status = models.StatusCancelled
		d.Chain = nil
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := repo.Get(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInitiated, stored.Status)
	assert.Equal(t, []string{"agent-1"}, stored.Chain)
}

func TestMemoryDealRepositoryUpdateUnknownDeal(t *testing.T) {
	repo := NewMemoryDealRepository()

	_, err := repo.Update(context.Background(), uuid.New(), func(d *models.Deal) error {
		return nil
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMemoryDealRepositoryConcurrentUpdatesSerialize(t *testing.T) {
	repo := NewMemoryDealRepository()
	ctx := context.Background()

	deal := newTestDeal("ffff6666")
	require.NoError(t, repo.Create(ctx, deal))

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := repo.Update(ctx, deal.ID, func(d *models.Deal) error {
				d.History = append(d.History, models.StatusChange{Status: models.StatusKYC, At: time.Now()})
				d.Status = models.StatusKYC
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := repo.Get(ctx, deal.ID)
	require.NoError(t, err)
	// one initial entry plus one per worker, none lost
	assert.Len(t, stored.History, workers+1)
}

func TestMemoryDealRepositoryListInsertionOrder(t *testing.T) {
	repo := NewMemoryDealRepository()
	ctx := context.Background()

	first := newTestDeal("token-a")
	second := newTestDeal("token-b")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	deals, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, deals, 2)
	assert.Equal(t, first.ID, deals[0].ID)
	assert.Equal(t, second.ID, deals[1].ID)
}
