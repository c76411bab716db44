package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/monocle-dev/crewboard/internal/apperr"
	"github.com/monocle-dev/crewboard/internal/auth"
	"github.com/monocle-dev/crewboard/internal/handlers"
	"github.com/monocle-dev/crewboard/internal/metrics"
	"github.com/monocle-dev/crewboard/internal/middleware"
)

type Options struct {
	Handler        *handlers.Handler
	Tokens         *auth.JWT
	Limiter        middleware.RateLimiter
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
	AllowedOrigins []string
}

func NewRouter(opts Options) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(opts.Logger, opts.Metrics))
	r.Use(middleware.Recovery(opts.Logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	h := opts.Handler
	requireAuth := middleware.AuthMiddleware(opts.Tokens)

	limit := func(c *gin.Context) { c.Next() }
	if opts.Limiter != nil {
		limit = middleware.RateLimit(opts.Limiter, opts.Metrics, opts.Logger)
	}

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)

		accounts := api.Group("/auth", limit)
		{
			accounts.POST("/register", h.CreateUser)
			accounts.POST("/login", h.LoginUser)
			accounts.GET("/me", requireAuth, h.Me)
			accounts.PATCH("/me", requireAuth, h.UpdateUser)
		}

		protected := api.Group("", requireAuth, limit)
		{
			protected.GET("/ws", h.WebSocket)

			users := protected.Group("/users")
			{
				users.PATCH("/:user_id/approve", h.ApproveUser)
				users.PATCH("/:user_id/role", h.ChangeUserRole)
				users.DELETE("/:user_id", h.DeleteUser)
			}

			teams := protected.Group("/teams")
			{
				teams.POST("", h.CreateTeam)
				teams.GET("/:team_id", h.GetTeam)
				teams.DELETE("/:team_id", h.DeleteTeam)
				teams.POST("/:team_id/members", h.AddTeamMember)
				teams.DELETE("/:team_id/members/:user_id", h.RemoveTeamMember)
			}

			projects := protected.Group("/projects")
			{
				projects.POST("", h.CreateProject)
				projects.GET("/:project_id", h.GetProject)
				projects.PATCH("/:project_id", h.UpdateProject)
				projects.DELETE("/:project_id", h.DeleteProject)
				projects.POST("/:project_id/goals", h.CreateGoal)
			}

			goals := protected.Group("/goals")
			{
				goals.PATCH("/:goal_id", h.UpdateGoal)
				goals.POST("/:goal_id/tasks", h.CreateTask)
			}

			tasks := protected.Group("/tasks")
			{
				tasks.PATCH("/:task_id", h.UpdateTask)
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.ListNotifications)
				notifications.PATCH("/:notification_id/read", h.MarkNotificationRead)
			}
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found", "kind": apperr.KindNotFound})
	})

	return r
}
