// controllers/ride_controller.go
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

// RideController receives ride completion events from the booking/payment
// subsystem and runs them through the compensation engine.
type RideController struct {
	engine *services.RideEngine
}

func NewRideController(engine *services.RideEngine) *RideController {
	return &RideController{engine: engine}
}

// CompleteRide handles POST /api/rides/complete. One call per completed,
// paid ride; replays with the same rideId are acknowledged as duplicates
// and change nothing.
func (rc *RideController) CompleteRide(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var req models.RideCompletion
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
			Data:    err.Error(),
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	// The booking subsystem may omit the classification; infer the
	// personal case from matching parties.
	if req.RideClassification == "" {
		if req.RiderID == req.DriverID {
			req.RideClassification = models.RideClassPersonal
		} else {
			req.RideClassification = models.RideClassStandard
		}
	}

	outcome, err := rc.engine.ProcessRideCompletion(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidAmount):
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid fare amount",
				Data:    err.Error(),
			})
		case errors.Is(err, models.ErrPlanInvariant):
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Compensation plan is invalid; distribution halted",
				Data:    err.Error(),
			})
		default:
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to process ride completion",
				Data:    err.Error(),
			})
		}
	}

	if outcome.Duplicate {
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Ride already processed",
			Data:    outcome,
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Ride processed successfully",
		Data:    outcome,
	})
}
