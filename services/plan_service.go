// services/plan_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/HSouheill/ridelink_backend/models"
)

// PlanService is the admin surface over the compensation plan singleton.
// Every write re-validates the reconciliation invariants first; the plan is
// never silently auto-corrected — Normalize is an explicit admin action.
type PlanService struct {
	plans PlanStore
}

func NewPlanService(plans PlanStore) *PlanService {
	return &PlanService{plans: plans}
}

// Get returns the active plan, seeding the default plan on first use.
func (s *PlanService) Get(ctx context.Context) (*models.CompensationPlan, error) {
	plan, err := s.plans.GetPlan(ctx)
	if err == nil {
		return plan, nil
	}
	if !errors.Is(err, models.ErrPlanNotFound) {
		return nil, err
	}

	plan = models.DefaultCompensationPlan()
	if err := s.plans.ReplacePlan(ctx, plan); err != nil {
		return nil, err
	}
	log.Println("Seeded default compensation plan")
	return plan, nil
}

// Replace swaps in a new plan after validating all invariants.
func (s *PlanService) Replace(ctx context.Context, plan *models.CompensationPlan) error {
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrPlanInvariant, err)
	}
	plan.UpdatedAt = time.Now()
	return s.plans.ReplacePlan(ctx, plan)
}

// Normalize proportionally rescales the stored plan back onto its
// invariants and persists the result. Returns the corrected plan.
func (s *PlanService) Normalize(ctx context.Context) (*models.CompensationPlan, error) {
	plan, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	plan.Normalize()
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w after normalization: %v", models.ErrPlanInvariant, err)
	}
	plan.UpdatedAt = time.Now()
	if err := s.plans.ReplacePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// PoolBalances returns the running balances of every leaf pool.
func (s *PlanService) PoolBalances(ctx context.Context) ([]models.PoolBalance, error) {
	return s.plans.PoolBalances(ctx)
}
