package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"

	"github.com/HSouheill/ridelink_backend/config"
	"github.com/HSouheill/ridelink_backend/middleware"
	"github.com/HSouheill/ridelink_backend/repositories"
	"github.com/HSouheill/ridelink_backend/routes"
	"github.com/HSouheill/ridelink_backend/services"
	"github.com/HSouheill/ridelink_backend/utils"
	"github.com/HSouheill/ridelink_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Initialize Firebase
	config.InitFirebase()

	// Connect to Redis (used for ride completion locks)
	redisClient := config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()

	// Create WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Initialize repositories
	memberRepo := repositories.NewMemberRepository(client)
	planRepo := repositories.NewPlanRepository(client)

	// Initialize the compensation engine
	notifier := utils.NewNotifier(client, wsHub)
	treeService := services.NewTreeService(memberRepo)
	planService := services.NewPlanService(planRepo)
	pointLedger := services.NewPointLedger(memberRepo)
	distributionEngine := services.NewDistributionEngine(planRepo)
	uplineCreditor := services.NewUplineCreditor(memberRepo, treeService, planRepo, notifier)
	rankEngine := services.NewRankEngine(memberRepo, planRepo, treeService, pointLedger, notifier)
	rideEngine := services.NewRideEngine(memberRepo, planRepo, distributionEngine, uplineCreditor, pointLedger, rankEngine, repositories.NewTxRunner(client), redisClient)

	// Seed the default compensation plan on first run
	if _, err := planService.Get(context.Background()); err != nil {
		log.Fatalf("Failed to load compensation plan: %v", err)
	}

	// Monthly sweep: reset every member's monthly point windows shortly
	// after the calendar month boundary. The engine also resets lazily on
	// first touch, so the sweep only keeps idle members' stats fresh.
	scheduler := cron.New()
	_, err = scheduler.AddFunc("10 0 1 * *", func() {
		ctx := context.Background()
		ids, err := memberRepo.AllMemberIDs(ctx)
		if err != nil {
			log.Printf("Monthly point sweep failed to list members: %v", err)
			return
		}
		for _, id := range ids {
			if err := pointLedger.CheckAndResetMonthly(ctx, id); err != nil {
				log.Printf("Monthly point sweep failed for %s: %v", id.Hex(), err)
			}
		}
		log.Printf("Monthly point sweep completed for %d members", len(ids))
	})
	if err != nil {
		log.Fatalf("Failed to schedule monthly point sweep: %v", err)
	}
	scheduler.Start()

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeaders())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("db", client)
			return next(c)
		}
	})

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "RideLink Compensation Engine is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	e.Use(httpsRedirect())

	// Register routes
	routes.RegisterAuthRoutes(e, client)
	routes.RegisterRideRoutes(e, rideEngine)
	routes.RegisterReferralRoutes(e, client, treeService, memberRepo)
	routes.RegisterMemberRoutes(e, client, memberRepo, pointLedger, rankEngine)
	routes.RegisterAdminRoutes(e, planService, rideEngine)

	// WebSocket endpoint for live credit/rank notifications
	e.GET("/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(c, wsHub, websocket.MemberIDFromQuery(c))
	})

	// Clean expired entries out of the token blacklist
	go middleware.CleanupBlacklist()

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}

func httpsRedirect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("X-Forwarded-Proto") == "http" {
				return c.Redirect(301, "https://"+c.Request().Host+c.Request().RequestURI)
			}
			return next(c)
		}
	}
}
