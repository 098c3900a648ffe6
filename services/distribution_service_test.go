// services/distribution_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/ridelink_backend/models"
)

func TestComputeWaterfallConservation(t *testing.T) {
	plan := models.DefaultCompensationPlan()

	for _, gross := range []float64{0.01, 1, 20, 123.45, 1000000} {
		allocs := ComputeWaterfall(plan, gross)
		assert.InDelta(t, gross, LeafTotal(allocs), gross*models.PercentTolerance/100+1e-9,
			"leaf allocations must sum back to the gross for %v", gross)
	}
}

func TestComputeWaterfallTwoStageRatio(t *testing.T) {
	plan := models.DefaultCompensationPlan()
	allocs := ComputeWaterfall(plan, 100)

	byKey := make(map[string]models.PoolAllocation)
	for _, a := range allocs {
		byKey[a.Pool+"/"+a.SubPool] = a
	}

	// directDownline takes 24.6 of 100; level1 takes 14/24.6 of that.
	assert.InDelta(t, 24.6, byKey["directDownline/"].Amount, 1e-9)
	assert.False(t, byKey["directDownline/"].Leaf)
	assert.InDelta(t, 14, byKey["directDownline/level1"].Amount, 1e-9)
	assert.InDelta(t, 6, byKey["directDownline/level2"].Amount, 1e-9)
	assert.InDelta(t, 3.6, byKey["directDownline/level3"].Amount, 1e-9)
	assert.InDelta(t, 1, byKey["directDownline/level4"].Amount, 1e-9)

	// A pool without sub-pools is its own leaf.
	loyalty := byKey["loyalty/"]
	assert.True(t, loyalty.Leaf)
	assert.InDelta(t, 10, loyalty.Amount, 1e-9)
}

func TestComputeWaterfallZeroPercentPool(t *testing.T) {
	plan := &models.CompensationPlan{
		MainPools: []models.Pool{
			{Name: "main", Percent: 100, SubPools: []models.SubPool{{Name: "only", Percent: 100}}},
			{Name: "empty", Percent: 0, SubPools: []models.SubPool{
				{Name: "a", Percent: 0},
				{Name: "b", Percent: 0},
			}},
		},
		UplineLevelPercents: []float64{14, 6, 3.6, 1},
	}
	require.NoError(t, plan.Validate())

	allocs := ComputeWaterfall(plan, 50)
	for _, a := range allocs {
		if a.Pool == "empty" {
			assert.Zero(t, a.Amount, "zero-percent pool must not divide by zero")
		}
	}
	assert.InDelta(t, 50, LeafTotal(allocs), 1e-9)
}

func TestDistributeRejectsInvalidAmount(t *testing.T) {
	engine := NewDistributionEngine(newFakePlanStore(models.DefaultCompensationPlan()))

	_, err := engine.Distribute(context.Background(), primitive.NewObjectID(), 0, "ride-1", models.RideClassStandard)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	_, err = engine.Distribute(context.Background(), primitive.NewObjectID(), -5, "ride-1", models.RideClassStandard)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
}

func TestDistributeRejectsUnbalancedPlan(t *testing.T) {
	plan := models.DefaultCompensationPlan()
	plan.MainPools[0].Percent = 50 // breaks both the sub-pool sum and the 100 total
	engine := NewDistributionEngine(newFakePlanStore(plan))

	_, err := engine.Distribute(context.Background(), primitive.NewObjectID(), 20, "ride-1", models.RideClassStandard)
	assert.ErrorIs(t, err, models.ErrPlanInvariant)
}

func TestDistributeIdempotentPerRide(t *testing.T) {
	plans := newFakePlanStore(models.DefaultCompensationPlan())
	engine := NewDistributionEngine(plans)
	memberID := primitive.NewObjectID()

	first, err := engine.Distribute(context.Background(), memberID, 20, "ride-1", models.RideClassStandard)
	require.NoError(t, err)
	assert.InDelta(t, 20, first.LeafTotal, 1e-9)

	_, err = engine.Distribute(context.Background(), memberID, 20, "ride-1", models.RideClassStandard)
	assert.ErrorIs(t, err, models.ErrDuplicateRide)

	// Balances reflect exactly one distribution.
	assert.InDelta(t, 20, plans.total, 1e-9)
}

func TestDistributeAccumulatesPoolBalances(t *testing.T) {
	plans := newFakePlanStore(models.DefaultCompensationPlan())
	engine := NewDistributionEngine(plans)

	_, err := engine.Distribute(context.Background(), primitive.NewObjectID(), 100, "ride-1", models.RideClassStandard)
	require.NoError(t, err)
	_, err = engine.Distribute(context.Background(), primitive.NewObjectID(), 100, "ride-2", models.RideClassStandard)
	require.NoError(t, err)

	assert.InDelta(t, 28, plans.balances["directDownline/level1"], 1e-9)
	assert.InDelta(t, 20, plans.balances["loyalty/"], 1e-9)
	assert.InDelta(t, 200, plans.total, 1e-9)
}
