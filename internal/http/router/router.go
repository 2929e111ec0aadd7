package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/taskmarket-backend/internal/config"
	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/http/handlers"
	"github.com/ignatzorin/taskmarket-backend/internal/http/middleware"
)

// Handlers набор HTTP обработчиков приложения.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Tasks         *handlers.TaskHandler
	Bids          *handlers.BidHandler
	Submissions   *handlers.SubmissionHandler
	Messages      *handlers.MessageHandler
	Disputes      *handlers.DisputeHandler
	Notifications *handlers.NotificationHandler
	Media         *handlers.MediaHandler
	WS            *handlers.WSHandler
	Health        *handlers.HealthHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.AccessParser) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	if cfg.StorageDriver == "local" {
		r.StaticFS(cfg.MediaPublicURL, http.Dir(cfg.MediaStoragePath))
	}

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", h.Auth.Logout)
	}

	// Публичные маршруты
	api.GET("/tasks", h.Tasks.List)
	api.GET("/tasks/:id", middleware.UUIDValidator("id"), h.Tasks.Get)
	api.GET("/ws", h.WS.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokens))
	writeLimit := middleware.UserRateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
	{
		protected.GET("/me", h.Auth.Me)
		protected.PUT("/me", h.Auth.UpdateMe)

		tasks := protected.Group("/tasks/:id", middleware.UUIDValidator("id"))
		{
			tasks.PUT("", writeLimit, h.Tasks.Update)
			tasks.DELETE("", h.Tasks.Delete)
			tasks.PATCH("/status", h.Tasks.UpdateStatus)
			tasks.GET("/payment", h.Tasks.GetPayment)

			tasks.GET("/bids", h.Bids.ListForTask)
			tasks.POST("/bids", writeLimit, middleware.RequireRole(valueobject.RoleDoer), h.Bids.Submit)

			tasks.GET("/submissions", h.Submissions.List)
			tasks.POST("/submissions", writeLimit, h.Submissions.Create)

			tasks.GET("/messages", h.Messages.List)
			tasks.POST("/messages", writeLimit, h.Messages.Send)
			tasks.GET("/messages/unread-count", h.Messages.TaskUnreadCount)
			tasks.GET("/activity", h.Messages.Activity)

			tasks.POST("/disputes", writeLimit, h.Disputes.Create)
			tasks.GET("/dispute", h.Disputes.GetForTask)
		}
		protected.POST("/tasks", writeLimit, middleware.RequireRole(valueobject.RolePoster, valueobject.RoleAdmin), h.Tasks.Create)

		protected.GET("/bids/mine", h.Bids.ListMine)
		bids := protected.Group("/bids/:id", middleware.UUIDValidator("id"))
		{
			bids.PUT("", writeLimit, h.Bids.Update)
			bids.DELETE("", h.Bids.Withdraw)
			bids.POST("/accept", h.Bids.Accept)
			bids.POST("/reject", h.Bids.Reject)
		}

		protected.PATCH("/submissions/:id/status", middleware.UUIDValidator("id"), h.Submissions.Review)

		protected.GET("/messages/unread-count", h.Messages.UnreadCount)

		protected.GET("/disputes", h.Disputes.List)
		disputes := protected.Group("/disputes/:id", middleware.UUIDValidator("id"))
		{
			disputes.GET("", h.Disputes.Get)
			disputes.POST("/response", writeLimit, h.Disputes.Respond)
			disputes.POST("/follow-ups", writeLimit, h.Disputes.FollowUp)
			disputes.POST("/resolve", middleware.RequireRole(valueobject.RoleAdmin), h.Disputes.Resolve)
		}

		protected.GET("/notifications", h.Notifications.List)
		protected.GET("/notifications/unread-count", h.Notifications.UnreadCount)
		protected.POST("/notifications/read-all", h.Notifications.MarkAllRead)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), h.Notifications.MarkRead)

		protected.POST("/uploads", writeLimit, h.Media.Upload)
		protected.GET("/realtime/history/:channel", h.WS.History)
	}

	return r
}
