package app

import (
	"github.com/gin-gonic/gin"

	"github.com/oultic/oultic-backend/internal/server"
)

func wireRouter(cfg Config, handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthHandler:           handlers.Auth,
		AuthMiddleware:        middleware.Auth,
		OAuthHandler:          handlers.OAuth,
		TFAHandler:            handlers.TFA,
		UserHandler:           handlers.User,
		VideoHandler:          handlers.Video,
		CommentHandler:        handlers.Comment,
		RecommendationHandler: handlers.Recommendation,
		UploadHandler:         handlers.Upload,
		AllowedOrigins:        cfg.AllowedOrigins,
		UploadDir:             cfg.UploadDir,
	})
}
