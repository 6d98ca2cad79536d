package app

import (
	"strings"
	"time"

	"github.com/oultic/oultic-backend/internal/logger"
	"github.com/oultic/oultic-backend/internal/utils"
)

type Config struct {
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// DatabaseBackend picks the primary store for users and videos:
	// "mongo" (default) or "postgres". Interactions and comments always
	// live in mongo.
	DatabaseBackend string

	AllowedOrigins []string

	UploadDir     string
	UploadBaseURL string
	MaxVideoBytes int64
	MaxImageBytes int64

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	TFAIssuer string
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTLSeconds := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 604800, log)
	backend := strings.ToLower(utils.GetEnv("DATABASE_BACKEND", "mongo", log))
	origins := utils.GetEnv("CORS_ALLOWED_ORIGINS", "", log)

	var allowedOrigins []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowedOrigins = append(allowedOrigins, o)
		}
	}

	return Config{
		JWTSecretKey:    jwtSecretKey,
		AccessTokenTTL:  time.Duration(accessTokenTTLSeconds) * time.Second,
		RefreshTokenTTL: time.Duration(refreshTokenTTLSeconds) * time.Second,

		DatabaseBackend: backend,
		AllowedOrigins:  allowedOrigins,

		UploadDir:     utils.GetEnv("UPLOAD_DIR", "./uploads", log),
		UploadBaseURL: utils.GetEnv("UPLOAD_BASE_URL", "/media", log),
		MaxVideoBytes: int64(utils.GetEnvAsInt("MAX_VIDEO_UPLOAD_MB", 2048, log)) << 20,
		MaxImageBytes: int64(utils.GetEnvAsInt("MAX_IMAGE_UPLOAD_MB", 10, log)) << 20,

		GoogleClientID:     utils.GetEnv("GOOGLE_OAUTH_CLIENT_ID", "", log),
		GoogleClientSecret: utils.GetEnv("GOOGLE_OAUTH_CLIENT_SECRET", "", log),
		GoogleRedirectURL:  utils.GetEnv("GOOGLE_OAUTH_REDIRECT_URL", "", log),

		TFAIssuer: utils.GetEnv("TFA_ISSUER", "oultic", log),
	}
}
