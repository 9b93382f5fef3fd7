package repository

import (
	"context"
	"testing"
	"time"

	"advancer/models"
	"advancer/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictionRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	approvalRepo := NewApprovalRepository(testDB.DB)
	repo := NewPredictionRepository(testDB.DB)
	ctx := context.Background()

	approval := testutil.CreateTestApproval(1001)
	require.NoError(t, approvalRepo.Create(ctx, approval))

	t.Run("empty batch is a no-op", func(t *testing.T) {
		require.NoError(t, repo.CreateBatch(ctx, nil))
	})

	t.Run("batch insert assigns ids", func(t *testing.T) {
		base := time.Date(2020, 3, 16, 0, 0, 0, 0, time.UTC)
		batch := []*models.PaybackPrediction{
			testutil.CreateTestPrediction(approval.ID, base, 0.12),
			testutil.CreateTestPrediction(approval.ID, base.AddDate(0, 0, 1), 0.48),
			testutil.CreateTestPrediction(approval.ID, base.AddDate(0, 0, 2), 0.72),
		}
		batch[2].Success = true

		require.NoError(t, repo.CreateBatch(ctx, batch))
		for _, p := range batch {
			assert.NotZero(t, p.ID)
			assert.False(t, p.CreatedAt.IsZero())
		}

		stored, err := repo.GetByApproval(ctx, approval.ID)
		require.NoError(t, err)
		assert.Len(t, stored, 3)
	})

	t.Run("last successful returns the chosen row", func(t *testing.T) {
		p, err := repo.GetLastSuccessful(ctx, approval.ID)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.True(t, p.Success)
		assert.Equal(t, time.Date(2020, 3, 18, 0, 0, 0, 0, time.UTC), p.PredictedDate)
		assert.Equal(t, models.ModelTypeGlobalPayback, p.ModelType)
	})

	t.Run("last successful is nil when none chosen", func(t *testing.T) {
		other := testutil.CreateTestApproval(1002)
		require.NoError(t, approvalRepo.Create(ctx, other))

		unchosen := testutil.CreateTestPrediction(other.ID, time.Date(2020, 3, 16, 0, 0, 0, 0, time.UTC), 0.2)
		require.NoError(t, repo.CreateBatch(ctx, []*models.PaybackPrediction{unchosen}))

		p, err := repo.GetLastSuccessful(ctx, other.ID)
		require.NoError(t, err)
		assert.Nil(t, p)
	})
}
