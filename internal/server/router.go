package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/oultic/oultic-backend/internal/handlers"
	"github.com/oultic/oultic-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler           *handlers.AuthHandler
	AuthMiddleware        *middleware.AuthMiddleware
	OAuthHandler          *handlers.OAuthHandler
	TFAHandler            *handlers.TFAHandler
	UserHandler           *handlers.UserHandler
	VideoHandler          *handlers.VideoHandler
	CommentHandler        *handlers.CommentHandler
	RecommendationHandler *handlers.RecommendationHandler
	UploadHandler         *handlers.UploadHandler
	AllowedOrigins        []string
	UploadDir             string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)
	if cfg.UploadDir != "" {
		router.Static("/media", cfg.UploadDir)
	}

	api := router.Group("/api")

	// ===============
	// || Public    ||
	// ===============
	api.POST("/auth/register", cfg.AuthHandler.Register)
	api.POST("/auth/login", cfg.AuthHandler.Login)
	api.POST("/auth/refresh", cfg.AuthHandler.Refresh)
	api.POST("/auth/tfa/verify", cfg.TFAHandler.CompleteLogin)
	api.GET("/auth/oauth/:provider", cfg.OAuthHandler.Start)
	api.GET("/auth/oauth/:provider/callback", cfg.OAuthHandler.Callback)

	public := api.Group("/")
	public.Use(cfg.AuthMiddleware.OptionalAuth())
	public.GET("/videos/trending", cfg.VideoHandler.Trending)
	public.GET("/videos/search", cfg.VideoHandler.Search)
	public.GET("/videos/category/:category", cfg.VideoHandler.ListByCategory)
	public.GET("/videos/channel/:channel_id", cfg.VideoHandler.ListByChannel)
	public.GET("/videos/:video_id", cfg.VideoHandler.Get)
	public.GET("/videos/:video_id/comments", cfg.CommentHandler.ListByVideo)
	public.GET("/comments/:comment_id/replies", cfg.CommentHandler.ListReplies)
	public.GET("/users/search", cfg.UserHandler.Search)
	public.GET("/users/:username", cfg.UserHandler.GetByUsername)

	// ===============
	// || Protected ||
	// ===============
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/auth/logout", cfg.AuthHandler.Logout)
	protected.POST("/auth/tfa/setup", cfg.TFAHandler.BeginSetup)
	protected.POST("/auth/tfa/confirm", cfg.TFAHandler.ConfirmSetup)
	protected.POST("/auth/tfa/disable", cfg.TFAHandler.Disable)
	// User
	protected.GET("/user", cfg.UserHandler.GetMe)
	protected.PATCH("/user", cfg.UserHandler.UpdateProfile)
	protected.POST("/user/channel", cfg.UserHandler.CreateChannel)
	protected.POST("/users/:user_id/subscribe", cfg.UserHandler.Subscribe)
	protected.DELETE("/users/:user_id/subscribe", cfg.UserHandler.Unsubscribe)
	// Video
	protected.POST("/videos", cfg.VideoHandler.Create)
	protected.PUT("/videos/:video_id", cfg.VideoHandler.Update)
	protected.DELETE("/videos/:video_id", cfg.VideoHandler.Delete)
	protected.POST("/videos/:video_id/view", cfg.VideoHandler.RecordView)
	protected.POST("/videos/:video_id/like", cfg.VideoHandler.Like)
	protected.POST("/videos/:video_id/dislike", cfg.VideoHandler.Dislike)
	protected.POST("/videos/:video_id/share", cfg.VideoHandler.Share)
	// Comments
	protected.POST("/videos/:video_id/comments", cfg.CommentHandler.Create)
	protected.PUT("/comments/:comment_id", cfg.CommentHandler.Edit)
	protected.DELETE("/comments/:comment_id", cfg.CommentHandler.Delete)
	protected.POST("/comments/:comment_id/like", cfg.CommentHandler.Like)
	protected.POST("/comments/:comment_id/pin", cfg.CommentHandler.Pin)
	protected.POST("/comments/:comment_id/heart", cfg.CommentHandler.Heart)
	// Recommendations
	protected.GET("/recommendations/feed", cfg.RecommendationHandler.GetFeed)
	// Uploads
	protected.POST("/uploads/video", cfg.UploadHandler.UploadVideoFile)
	protected.POST("/uploads/thumbnail", cfg.UploadHandler.UploadThumbnail)

	return router
}
