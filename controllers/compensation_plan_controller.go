// controllers/compensation_plan_controller.go
package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/ridelink_backend/models"
	"github.com/HSouheill/ridelink_backend/services"
)

// CompensationPlanController is the admin surface over the plan singleton:
// read, replace, normalize, pool balances, and the wallet dedupe repair job.
type CompensationPlanController struct {
	plans  *services.PlanService
	engine *services.RideEngine
}

func NewCompensationPlanController(plans *services.PlanService, engine *services.RideEngine) *CompensationPlanController {
	return &CompensationPlanController{plans: plans, engine: engine}
}

// GetPlan handles GET /api/admin/plan
func (pc *CompensationPlanController) GetPlan(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	plan, err := pc.plans.Get(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch compensation plan",
			Data:    err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Compensation plan fetched successfully",
		Data:    plan,
	})
}

// ReplacePlan handles PUT /api/admin/plan. The new plan must satisfy every
// reconciliation invariant or the request is rejected unchanged.
func (pc *CompensationPlanController) ReplacePlan(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var plan models.CompensationPlan
	if err := c.Bind(&plan); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
			Data:    err.Error(),
		})
	}

	if err := pc.plans.Replace(ctx, &plan); err != nil {
		if errors.Is(err, models.ErrPlanInvariant) {
			return c.JSON(http.StatusUnprocessableEntity, models.Response{
				Status:  http.StatusUnprocessableEntity,
				Message: "Plan violates reconciliation invariants",
				Data:    err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to replace compensation plan",
			Data:    err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Compensation plan replaced successfully",
		Data:    plan,
	})
}

// NormalizePlan handles POST /api/admin/plan/normalize. Proportionally
// rescales a drifted plan back onto its invariants.
func (pc *CompensationPlanController) NormalizePlan(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	plan, err := pc.plans.Normalize(ctx)
	if err != nil {
		if errors.Is(err, models.ErrPlanInvariant) {
			return c.JSON(http.StatusUnprocessableEntity, models.Response{
				Status:  http.StatusUnprocessableEntity,
				Message: "Plan could not be normalized",
				Data:    err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to normalize compensation plan",
			Data:    err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Compensation plan normalized successfully",
		Data:    plan,
	})
}

// GetPoolBalances handles GET /api/admin/plan/balances
func (pc *CompensationPlanController) GetPoolBalances(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	balances, err := pc.plans.PoolBalances(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch pool balances",
			Data:    err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Pool balances fetched successfully",
		Data:    balances,
	})
}

// CleanupWalletTransactions handles POST /api/admin/wallet/cleanup. Removes
// duplicate wallet credits left behind by historical replays and reverses
// their balance effect.
func (pc *CompensationPlanController) CleanupWalletTransactions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	removed, err := pc.engine.CleanupDuplicateWalletTransactions(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to clean up wallet transactions",
			Data:    err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Wallet transactions cleaned up successfully",
		Data: map[string]interface{}{
			"removed": removed,
		},
	})
}
