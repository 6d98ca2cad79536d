package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oultic/oultic-backend/internal/requestdata"
	"github.com/oultic/oultic-backend/internal/types"
)

func newAuthFixture(t *testing.T) (AuthService, *fakeUserRepo, *memoryCache) {
	log := testLogger(t)
	userRepo := newFakeUserRepo()
	cache := newMemoryCache()
	svc := NewAuthService(log, userRepo, cache, "test-secret", time.Hour, 24*time.Hour)
	return svc, userRepo, cache
}

func TestRegisterAndLoginRoundTrip(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	user := &types.User{
		Username: "newuser",
		Email:    "New@Example.com",
		Password: "longenough",
	}
	if err := svc.RegisterUser(ctx, user); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if user.Email != "new@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.Password == "longenough" {
		t.Fatalf("password stored in clear")
	}

	result, err := svc.LoginUser(ctx, "new@example.com", "longenough")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatalf("missing token pair: %+v", result)
	}

	authedCtx, err := svc.SetContextFromToken(ctx, result.AccessToken)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := requestdata.GetRequestData(authedCtx)
	if rd == nil || rd.UserID != user.ID {
		t.Fatalf("request data missing or wrong user: %+v", rd)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	user := &types.User{Username: "someone", Email: "a@b.com", Password: "rightpassword"}
	if err := svc.RegisterUser(ctx, user); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if _, err := svc.LoginUser(ctx, "a@b.com", "wrongpassword"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.LoginUser(ctx, "missing@b.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email should report the same error, got %v", err)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	first := &types.User{Username: "taken", Email: "taken@b.com", Password: "password1"}
	if err := svc.RegisterUser(ctx, first); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	dupEmail := &types.User{Username: "other", Email: "taken@b.com", Password: "password1"}
	if err := svc.RegisterUser(ctx, dupEmail); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	dupName := &types.User{Username: "taken", Email: "other@b.com", Password: "password1"}
	if err := svc.RegisterUser(ctx, dupName); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	user := &types.User{Username: "rotator", Email: "r@b.com", Password: "password1"}
	if err := svc.RegisterUser(ctx, user); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	login, err := svc.LoginUser(ctx, "r@b.com", "password1")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}

	refreshed, err := svc.RefreshTokens(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshTokens: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatalf("refresh token not rotated")
	}
	// The old token is dead after rotation.
	if _, err := svc.RefreshTokens(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("rotated token should be rejected, got %v", err)
	}
}

func TestLogoutInvalidatesRefreshToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	user := &types.User{Username: "leaver", Email: "l@b.com", Password: "password1"}
	if err := svc.RegisterUser(ctx, user); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	login, err := svc.LoginUser(ctx, "l@b.com", "password1")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}
	if err := svc.LogoutUser(ctx, login.RefreshToken); err != nil {
		t.Fatalf("LogoutUser: %v", err)
	}
	if _, err := svc.RefreshTokens(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh after logout should fail, got %v", err)
	}
}

func TestLoginWithTFAEnabledReturnsTicket(t *testing.T) {
	svc, userRepo, _ := newAuthFixture(t)
	ctx := context.Background()

	user := &types.User{Username: "twofa", Email: "t@b.com", Password: "password1"}
	if err := svc.RegisterUser(ctx, user); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	stored, _ := userRepo.GetByID(ctx, user.ID)
	stored.TFAEnabled = true

	result, err := svc.LoginUser(ctx, "t@b.com", "password1")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}
	if !result.TFAPending || result.TFATicket == "" {
		t.Fatalf("expected pending tfa result, got %+v", result)
	}
	if result.AccessToken != "" || result.RefreshToken != "" {
		t.Fatalf("tokens issued before second factor: %+v", result)
	}
}

func TestSetContextFromTokenRejectsGarbage(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	if _, err := svc.SetContextFromToken(context.Background(), "not.a.jwt"); err == nil {
		t.Fatalf("garbage token accepted")
	}
}
