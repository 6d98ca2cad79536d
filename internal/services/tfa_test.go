package services

import (
	"context"
	"encoding/base32"
	"testing"
	"time"

	"github.com/oultic/oultic-backend/internal/types"
)

// RFC 6238 appendix B vectors, truncated to six digits, SHA-1.
func TestVerifyTOTPReferenceVectors(t *testing.T) {
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).
		EncodeToString([]byte("12345678901234567890"))

	cases := []struct {
		unix int64
		code string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1234567890, "005924"},
	}
	for _, tc := range cases {
		if !verifyTOTP(secret, tc.code, time.Unix(tc.unix, 0)) {
			t.Fatalf("code %s rejected at t=%d", tc.code, tc.unix)
		}
	}
	if verifyTOTP(secret, "000000", time.Unix(59, 0)) {
		t.Fatalf("wrong code accepted")
	}
}

func TestVerifyTOTPAllowsOneStepDrift(t *testing.T) {
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).
		EncodeToString([]byte("12345678901234567890"))

	// 287082 is the code for step 1 (t=30..59); it must still verify one
	// step later but not two.
	if !verifyTOTP(secret, "287082", time.Unix(89, 0)) {
		t.Fatalf("one-step drift rejected")
	}
	if verifyTOTP(secret, "287082", time.Unix(150, 0)) {
		t.Fatalf("stale code accepted beyond drift window")
	}
}

func TestTFAFullFlow(t *testing.T) {
	log := testLogger(t)
	userRepo := newFakeUserRepo()
	cache := newMemoryCache()
	auth := NewAuthService(log, userRepo, cache, "test-secret", time.Hour, 24*time.Hour)
	svc := NewTFAService(log, cache, userRepo, auth, "testissuer")
	ctx := context.Background()

	user := &types.User{Username: "twofa", Email: "t@b.com", Password: "password1"}
	if err := auth.RegisterUser(ctx, user); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	setup, err := svc.BeginSetup(ctx, user.ID)
	if err != nil {
		t.Fatalf("BeginSetup: %v", err)
	}
	if setup.Secret == "" || setup.OTPAuthURL == "" {
		t.Fatalf("incomplete setup payload: %+v", setup)
	}

	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(setup.Secret)
	if err != nil {
		t.Fatalf("decode secret: %v", err)
	}
	code := hotp(key, uint64(time.Now().Unix()/30))

	backupCodes, err := svc.ConfirmSetup(ctx, user.ID, code)
	if err != nil {
		t.Fatalf("ConfirmSetup: %v", err)
	}
	if len(backupCodes) != backupCodeCount {
		t.Fatalf("got %d backup codes, want %d", len(backupCodes), backupCodeCount)
	}
	stored, _ := userRepo.GetByID(ctx, user.ID)
	if !stored.TFAEnabled || stored.TOTPSecret != setup.Secret {
		t.Fatalf("account not enabled: %+v", stored)
	}

	// Login now yields a pending ticket; complete it with a backup code.
	login, err := auth.LoginUser(ctx, "t@b.com", "password1")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}
	if !login.TFAPending {
		t.Fatalf("expected pending login")
	}
	result, err := svc.CompleteLogin(ctx, login.TFATicket, backupCodes[0])
	if err != nil {
		t.Fatalf("CompleteLogin: %v", err)
	}
	if result.AccessToken == "" {
		t.Fatalf("no access token after second factor")
	}

	// Backup codes are single use.
	again, err := auth.LoginUser(ctx, "t@b.com", "password1")
	if err != nil {
		t.Fatalf("second LoginUser: %v", err)
	}
	if _, err := svc.CompleteLogin(ctx, again.TFATicket, backupCodes[0]); err == nil {
		t.Fatalf("consumed backup code accepted twice")
	}
}
