package api

import (
	"net/http"
	"time"

	"alcyxob/runplan/internal/metrics"
	"alcyxob/runplan/internal/service"

	"github.com/gin-gonic/gin"
)

// RouteConfig carries the secrets and collaborators SetupRoutes wires together.
type RouteConfig struct {
	JWTSecret    string
	IngestAPIKey string
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

func SetupRoutes(
	router *gin.Engine,
	cfg RouteConfig,
	planService service.PlanService,
	dayService service.TrainingDayService,
	reconcileService service.ReconcileService,
) {
	planHandler := NewPlanHandler(planService)
	dayHandler := NewTrainingDayHandler(dayService, cfg.Now)
	telemetryHandler := NewTelemetryHandler(reconcileService, cfg.Now)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

	apiV1 := router.Group("/api/v1")

	// Service-to-service ingest, authenticated by a shared key instead of a user token.
	internal := apiV1.Group("/internal")
	internal.Use(IngestKeyMiddleware(cfg.IngestAPIKey))
	{
		internal.POST("/telemetry", telemetryHandler.IngestActivity)
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(cfg.JWTSecret))
	{
		protected.GET("/me", func(c *gin.Context) {
			ownerID, err := getOwnerIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"userId": ownerID.Hex()})
		})

		// --- Plans ---
		protected.POST("/races/:raceId/plan", planHandler.GeneratePlan)
		protected.GET("/races/:raceId/plan", planHandler.GetPlanForRace)
		protected.POST("/plans/:planId/activate", planHandler.ActivatePlan)

		// --- Training days ---
		days := protected.Group("/days")
		{
			days.GET("/today", dayHandler.GetTodayWorkout)
			days.GET("/date/:date", dayHandler.GetDayByDate)
			days.POST("/:dayId/feedback", dayHandler.SubmitFeedback)
			days.GET("/:dayId/raw-activity", dayHandler.GetRawActivityURL)
		}

		weeks := protected.Group("/weeks")
		{
			weeks.GET("/:weekIndex/days", dayHandler.GetWeekDays)
			weeks.GET("/:weekIndex/summary", dayHandler.GetWeeklySummary)
		}

		protected.GET("/progress", dayHandler.GetTrainingProgress)
	}
}
