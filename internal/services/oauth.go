package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/oultic/oultic-backend/internal/clients/redis"
	"github.com/oultic/oultic-backend/internal/logger"
	"github.com/oultic/oultic-backend/internal/repos"
	"github.com/oultic/oultic-backend/internal/types"
)

var ErrOAuthStateInvalid = errors.New("oauth state is invalid or expired")

// oauthStateTTL bounds the window between redirect and callback.
const oauthStateTTL = 10 * time.Minute

// ExternalIdentity is the provider-agnostic result of a completed OAuth
// exchange.
type ExternalIdentity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	AvatarURL     string
}

// OAuthProvider abstracts one upstream identity provider's authorization-code
// flow.
type OAuthProvider interface {
	Name() string
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*ExternalIdentity, error)
}

type OAuthService interface {
	// StartLogin mints a one-time state, parks it in redis, and returns
	// the provider redirect URL.
	StartLogin(ctx context.Context, providerName string) (string, error)

	// HandleCallback validates the state, exchanges the code, and logs in
	// or provisions the matching account.
	HandleCallback(ctx context.Context, providerName, state, code string) (*LoginResult, error)
}

type oauthService struct {
	log       *logger.Logger
	cache     redisclient.Cache
	userRepo  repos.UserRepo
	auth      AuthService
	providers map[string]OAuthProvider
}

func NewOAuthService(
	log *logger.Logger,
	cache redisclient.Cache,
	userRepo repos.UserRepo,
	auth AuthService,
	providers ...OAuthProvider,
) OAuthService {
	byName := make(map[string]OAuthProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &oauthService{
		log:       log.With("service", "OAuthService"),
		cache:     cache,
		userRepo:  userRepo,
		auth:      auth,
		providers: byName,
	}
}

func (os *oauthService) StartLogin(ctx context.Context, providerName string) (string, error) {
	provider, ok := os.providers[providerName]
	if !ok {
		return "", fmt.Errorf("unknown oauth provider: %s", providerName)
	}
	state := uuid.New().String()
	if err := os.cache.Set(ctx, oauthStateKey(state), providerName, oauthStateTTL); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return provider.AuthURL(state), nil
}

func (os *oauthService) HandleCallback(ctx context.Context, providerName, state, code string) (*LoginResult, error) {
	provider, ok := os.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("unknown oauth provider: %s", providerName)
	}

	var storedProvider string
	hit, err := os.cache.Get(ctx, oauthStateKey(state), &storedProvider)
	if err != nil {
		return nil, fmt.Errorf("lookup oauth state: %w", err)
	}
	if !hit || storedProvider != providerName {
		return nil, ErrOAuthStateInvalid
	}
	// One shot: the state dies whether the exchange succeeds or not.
	if err := os.cache.Delete(ctx, oauthStateKey(state)); err != nil {
		os.log.Warn("failed to delete oauth state", "error", err)
	}

	identity, err := provider.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth exchange: %w", err)
	}

	user, err := os.findOrCreateUser(ctx, identity)
	if err != nil {
		return nil, err
	}
	if user.Status != types.UserStatusActive {
		return nil, fmt.Errorf("account is %s", user.Status)
	}
	return os.auth.IssueTokens(ctx, user)
}

func (os *oauthService) findOrCreateUser(ctx context.Context, identity *ExternalIdentity) (*types.User, error) {
	user, err := os.userRepo.GetByOAuth(ctx, identity.Provider, identity.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repos.ErrNotFound) {
		return nil, fmt.Errorf("lookup oauth identity: %w", err)
	}

	// Link to an existing account by verified email before provisioning a
	// new one.
	if identity.Email != "" && identity.EmailVerified {
		existing, err := os.userRepo.GetByEmail(ctx, strings.ToLower(identity.Email))
		if err == nil {
			existing.OAuthProvider = identity.Provider
			existing.OAuthSubject = identity.Subject
			if !existing.IsEmailVerified {
				existing.IsEmailVerified = true
			}
			if uErr := os.userRepo.Update(ctx, existing); uErr != nil {
				return nil, fmt.Errorf("link oauth identity: %w", uErr)
			}
			return existing, nil
		}
		if !errors.Is(err, repos.ErrNotFound) {
			return nil, fmt.Errorf("lookup user by email: %w", err)
		}
	}

	user = &types.User{
		ID:              uuid.New(),
		Username:        os.deriveUsername(ctx, identity),
		Email:           strings.ToLower(identity.Email),
		FullName:        identity.Name,
		AvatarURL:       identity.AvatarURL,
		IsEmailVerified: identity.EmailVerified,
		Role:            types.UserRoleViewer,
		Status:          types.UserStatusActive,
		OAuthProvider:   identity.Provider,
		OAuthSubject:    identity.Subject,
		Preferences:     types.DefaultUserPreferences(),
	}
	if err := os.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("provision oauth user: %w", err)
	}
	os.log.Info("oauth user provisioned", "user_id", user.ID.String(), "provider", identity.Provider)
	return user, nil
}

func (os *oauthService) deriveUsername(ctx context.Context, identity *ExternalIdentity) string {
	base := strings.ToLower(strings.SplitN(identity.Email, "@", 2)[0])
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return -1
	}, base)
	if len(base) < 3 {
		base = identity.Provider + "_user"
	}
	candidate := base
	for i := 0; i < 5; i++ {
		taken, err := os.userRepo.UsernameExists(ctx, candidate)
		if err == nil && !taken {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%s", base, uuid.New().String()[:8])
	}
	return candidate
}

func oauthStateKey(state string) string {
	return "oauth_state:" + state
}

// googleProvider implements the standard authorization-code flow against
// Google's endpoints.
type googleProvider struct {
	clientID     string
	clientSecret string
	redirectURL  string
	httpClient   *http.Client
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string, httpClient *http.Client) OAuthProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &googleProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		httpClient:   httpClient,
	}
}

func (g *googleProvider) Name() string { return "google" }

func (g *googleProvider) AuthURL(state string) string {
	q := url.Values{}
	q.Set("client_id", g.clientID)
	q.Set("redirect_uri", g.redirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	return "https://accounts.google.com/o/oauth2/v2/auth?" + q.Encode()
}

func (g *googleProvider) Exchange(ctx context.Context, code string) (*ExternalIdentity, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", g.clientID)
	form.Set("client_secret", g.clientSecret)
	form.Set("redirect_uri", g.redirectURL)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://oauth2.googleapis.com/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}
	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	userReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://openidconnect.googleapis.com/v1/userinfo", nil)
	if err != nil {
		return nil, err
	}
	userReq.Header.Set("Authorization", "Bearer "+tokenResp.AccessToken)
	userResp, err := g.httpClient.Do(userReq)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer userResp.Body.Close()
	if userResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %d", userResp.StatusCode)
	}
	var info struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(userResp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("userinfo missing subject")
	}
	return &ExternalIdentity{
		Provider:      "google",
		Subject:       info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		Name:          info.Name,
		AvatarURL:     info.Picture,
	}, nil
}
