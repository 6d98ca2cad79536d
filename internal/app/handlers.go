package app

import (
	"github.com/oultic/oultic-backend/internal/handlers"
	"github.com/oultic/oultic-backend/internal/logger"
)

type Handlers struct {
	Auth           *handlers.AuthHandler
	OAuth          *handlers.OAuthHandler
	TFA            *handlers.TFAHandler
	User           *handlers.UserHandler
	Video          *handlers.VideoHandler
	Comment        *handlers.CommentHandler
	Recommendation *handlers.RecommendationHandler
	Upload         *handlers.UploadHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:           handlers.NewAuthHandler(services.Auth),
		OAuth:          handlers.NewOAuthHandler(services.OAuth),
		TFA:            handlers.NewTFAHandler(services.TFA),
		User:           handlers.NewUserHandler(services.User),
		Video:          handlers.NewVideoHandler(services.Video),
		Comment:        handlers.NewCommentHandler(services.Comment),
		Recommendation: handlers.NewRecommendationHandler(services.Recommendation),
		Upload:         handlers.NewUploadHandler(services.Upload),
	}
}
