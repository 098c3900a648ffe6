// services/distribution_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/ridelink_backend/models"
)

// DistributionEngine computes the percentage waterfall of a ride's gross
// commission into pools and sub-pools, appends the immutable ledger record
// and bumps the running pool balances.
type DistributionEngine struct {
	plans PlanStore
}

func NewDistributionEngine(plans PlanStore) *DistributionEngine {
	return &DistributionEngine{plans: plans}
}

// ComputeWaterfall splits gross through the plan's two-stage ratio:
// a pool takes percent-of-gross, a sub-pool takes its percent as a fraction
// of the parent pool's percent, applied to the parent pool's amount.
// Computing sub-pools against the gross directly would apply the parent
// ratio twice and break conservation. A zero-percent pool short-circuits
// its sub-pool division: every child gets zero.
func ComputeWaterfall(plan *models.CompensationPlan, gross float64) []models.PoolAllocation {
	allocs := make([]models.PoolAllocation, 0, len(plan.MainPools))
	for _, pool := range plan.MainPools {
		poolAmount := gross * pool.Percent / 100

		if len(pool.SubPools) == 0 {
			allocs = append(allocs, models.PoolAllocation{
				Pool:    pool.Name,
				Percent: pool.Percent,
				Amount:  poolAmount,
				Leaf:    true,
			})
			continue
		}

		allocs = append(allocs, models.PoolAllocation{
			Pool:    pool.Name,
			Percent: pool.Percent,
			Amount:  poolAmount,
		})
		for _, sub := range pool.SubPools {
			var subAmount float64
			if pool.Percent > 0 {
				subAmount = poolAmount * sub.Percent / pool.Percent
			}
			allocs = append(allocs, models.PoolAllocation{
				Pool:    pool.Name,
				SubPool: sub.Name,
				Percent: sub.Percent,
				Amount:  subAmount,
				Leaf:    true,
			})
		}
	}
	return allocs
}

// LeafTotal sums the leaf allocations; for a valid plan it equals the gross
// within floating point tolerance.
func LeafTotal(allocs []models.PoolAllocation) float64 {
	var total float64
	for _, a := range allocs {
		if a.Leaf {
			total += a.Amount
		}
	}
	return total
}

// Distribute runs the waterfall for one ride. Preconditions: gross > 0 and
// a reconciled plan — a plan invariant violation is a configuration bug and
// fails the call outright rather than being retried. Appending the ledger
// record is the idempotency gate: a second call with the same rideId
// returns models.ErrDuplicateRide before any balance is touched.
func (e *DistributionEngine) Distribute(ctx context.Context, memberID primitive.ObjectID, gross float64, rideID, classification string) (*models.DistributionResult, error) {
	if gross <= 0 {
		return nil, fmt.Errorf("%w: got %.4f", models.ErrInvalidAmount, gross)
	}

	plan, err := e.plans.GetPlan(ctx)
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPlanInvariant, err)
	}

	allocs := ComputeWaterfall(plan, gross)
	txn := models.DistributionTransaction{
		MemberID:           memberID,
		RideID:             rideID,
		RideClassification: classification,
		GrossAmount:        gross,
		Allocations:        allocs,
		CreatedAt:          time.Now(),
	}
	if err := e.plans.AppendDistribution(ctx, txn); err != nil {
		return nil, err
	}

	leaves := make([]models.PoolAllocation, 0, len(allocs))
	for _, a := range allocs {
		if a.Leaf {
			leaves = append(leaves, a)
		}
	}
	if err := e.plans.IncrementPoolBalances(ctx, leaves, gross); err != nil {
		return nil, err
	}

	return &models.DistributionResult{
		RideID:      rideID,
		GrossAmount: gross,
		Allocations: allocs,
		LeafTotal:   LeafTotal(allocs),
	}, nil
}
