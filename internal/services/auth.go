package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	redisclient "github.com/oultic/oultic-backend/internal/clients/redis"
	"github.com/oultic/oultic-backend/internal/logger"
	"github.com/oultic/oultic-backend/internal/repos"
	"github.com/oultic/oultic-backend/internal/requestdata"
	"github.com/oultic/oultic-backend/internal/types"
	"github.com/oultic/oultic-backend/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

type JWTClaims struct {
	jwt.RegisteredClaims
	Role types.UserRole `json:"role"`
}

// LoginResult carries the issued token pair. When the account has two-factor
// enabled the tokens are empty and TFAPending is set; the caller must finish
// the login through the two-factor verify endpoint.
type LoginResult struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TFAPending   bool      `json:"tfa_pending"`
	TFATicket    string    `json:"tfa_ticket,omitempty"`
	UserID       uuid.UUID `json:"user_id"`
}

type AuthService interface {
	RegisterUser(ctx context.Context, user *types.User) error
	LoginUser(ctx context.Context, email, password string) (*LoginResult, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*LoginResult, error)
	LogoutUser(ctx context.Context, refreshToken string) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	IssueTokens(ctx context.Context, user *types.User) (*LoginResult, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	log          *logger.Logger
	userRepo     repos.UserRepo
	cache        redisclient.Cache
	jwtSecretKey string
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

func NewAuthService(
	log *logger.Logger,
	userRepo repos.UserRepo,
	cache redisclient.Cache,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		log:          log.With("service", "AuthService"),
		userRepo:     userRepo,
		cache:        cache,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
	}
}

func (as *authService) RegisterUser(ctx context.Context, user *types.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Username = strings.TrimSpace(user.Username)

	if !strings.Contains(user.Email, "@") {
		return fmt.Errorf("invalid email address")
	}
	if !usernamePattern.MatchString(user.Username) {
		return fmt.Errorf("username must be 3-30 characters of letters, digits or underscore")
	}
	if len(user.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	if taken, err := as.userRepo.EmailExists(ctx, user.Email); err != nil {
		return fmt.Errorf("check email: %w", err)
	} else if taken {
		return ErrEmailTaken
	}
	if taken, err := as.userRepo.UsernameExists(ctx, user.Username); err != nil {
		return fmt.Errorf("check username: %w", err)
	} else if taken {
		return ErrUsernameTaken
	}

	hashed, err := utils.HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.ID = uuid.New()
	user.Password = hashed
	user.Role = types.UserRoleViewer
	user.Status = types.UserStatusActive
	user.Preferences = types.DefaultUserPreferences()

	if err := as.userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	as.log.Info("user registered", "user_id", user.ID.String())
	return nil
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := as.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user by email: %w", err)
	}
	if !utils.CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	if user.Status != types.UserStatusActive {
		return nil, fmt.Errorf("account is %s", user.Status)
	}

	if user.TFAEnabled {
		ticket := uuid.New().String()
		key := "tfa_ticket:" + ticket
		if err := as.cache.Set(ctx, key, user.ID.String(), 5*time.Minute); err != nil {
			return nil, fmt.Errorf("store tfa ticket: %w", err)
		}
		return &LoginResult{TFAPending: true, TFATicket: ticket, UserID: user.ID}, nil
	}
	return as.IssueTokens(ctx, user)
}

// IssueTokens mints an access JWT and an opaque refresh token. The refresh
// token lives in redis keyed by its value, so logout and rotation are a
// single delete.
func (as *authService) IssueTokens(ctx context.Context, user *types.User) (*LoginResult, error) {
	accessToken, err := as.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refreshToken := uuid.New().String()
	if err := as.cache.Set(ctx, refreshKey(refreshToken), user.ID.String(), as.refreshTTL); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		UserID:       user.ID,
	}, nil
}

func (as *authService) RefreshTokens(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}
	var userIDStr string
	hit, err := as.cache.Get(ctx, refreshKey(refreshToken), &userIDStr)
	if err != nil {
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	if !hit {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := as.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user for refresh: %w", err)
	}
	if user.Status != types.UserStatusActive {
		return nil, fmt.Errorf("account is %s", user.Status)
	}

	// Rotate: the old token is gone the moment the new pair exists.
	if err := as.cache.Delete(ctx, refreshKey(refreshToken)); err != nil {
		as.log.Warn("failed to delete rotated refresh token", "error", err)
	}
	return as.IssueTokens(ctx, user)
}

func (as *authService) LogoutUser(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return as.cache.Delete(ctx, refreshKey(refreshToken))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, ErrInvalidToken
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid user id in token: %w", err)
	}
	rd := &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		Role:        claims.Role,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: user.Role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func refreshKey(token string) string {
	return "refresh_token:" + token
}
