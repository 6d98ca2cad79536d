package app

import (
	"github.com/oultic/oultic-backend/internal/logger"
	"github.com/oultic/oultic-backend/internal/services"
)

type Services struct {
	Auth           services.AuthService
	OAuth          services.OAuthService
	TFA            services.TFAService
	User           services.UserService
	Video          services.VideoService
	Comment        services.CommentService
	Trending       services.TrendingService
	Preference     services.PreferenceService
	Similarity     services.SimilarityService
	Recommendation services.RecommendationService
	Upload         services.UploadService
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet Repos) Services {
	log.Info("Wiring services...")

	auth := services.NewAuthService(log, reposet.User, clients.Cache,
		cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	var oauthProviders []services.OAuthProvider
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		oauthProviders = append(oauthProviders,
			services.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, nil))
	}
	oauth := services.NewOAuthService(log, clients.Cache, reposet.User, auth, oauthProviders...)
	tfa := services.NewTFAService(log, clients.Cache, reposet.User, auth, cfg.TFAIssuer)

	trending := services.NewTrendingService(log, reposet.Video)
	preference := services.NewPreferenceService(log, reposet.Video, reposet.Interaction)
	similarity := services.NewSimilarityService(log, reposet.Interaction)
	recommendation := services.NewRecommendationService(log, clients.Cache,
		reposet.User, reposet.Video, reposet.Interaction, preference, similarity)

	user := services.NewUserService(log, reposet.User)
	video := services.NewVideoService(log, clients.Cache,
		reposet.User, reposet.Video, reposet.Interaction, trending)
	comment := services.NewCommentService(log, reposet.User, reposet.Video, reposet.Comment, trending)

	blobStore := services.NewLocalBlobStore(cfg.UploadDir, cfg.UploadBaseURL)
	upload := services.NewUploadService(log, blobStore, cfg.MaxVideoBytes, cfg.MaxImageBytes)

	return Services{
		Auth:           auth,
		OAuth:          oauth,
		TFA:            tfa,
		User:           user,
		Video:          video,
		Comment:        comment,
		Trending:       trending,
		Preference:     preference,
		Similarity:     similarity,
		Recommendation: recommendation,
		Upload:         upload,
	}
}
