// routes/ride_routes.go
package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/ridelink_backend/controllers"
	"github.com/HSouheill/ridelink_backend/services"
)

// RegisterRideRoutes registers the ride completion trigger. The endpoint is
// called service-to-service by the booking/payment subsystem once per
// completed, paid ride.
func RegisterRideRoutes(e *echo.Echo, engine *services.RideEngine) {
	rideController := controllers.NewRideController(engine)

	rideGroup := e.Group("/api/rides")
	rideGroup.POST("/complete", rideController.CompleteRide)
}
