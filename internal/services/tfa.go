package services

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/oultic/oultic-backend/internal/clients/redis"
	"github.com/oultic/oultic-backend/internal/logger"
	"github.com/oultic/oultic-backend/internal/repos"
)

var (
	ErrTFANotEnabled  = errors.New("two-factor authentication is not enabled")
	ErrTFACodeInvalid = errors.New("two-factor code is invalid")
	ErrTFATicketStale = errors.New("two-factor ticket is invalid or expired")
)

const (
	totpPeriod = 30 * time.Second
	totpDigits = 6

	// totpSkewSteps tolerates one step of clock drift either way.
	totpSkewSteps = 1

	tfaSetupTTL     = 15 * time.Minute
	backupCodeCount = 8
	backupCodesTTL  = 0 // no expiry; consumed on use
)

type TFASetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
}

type TFAService interface {
	// BeginSetup mints a fresh secret and parks it until the user confirms
	// with a valid code. The account is untouched until then.
	BeginSetup(ctx context.Context, userID uuid.UUID) (*TFASetup, error)

	// ConfirmSetup verifies the first code against the pending secret,
	// enables two-factor on the account, and returns one-time backup codes.
	ConfirmSetup(ctx context.Context, userID uuid.UUID, code string) ([]string, error)

	Disable(ctx context.Context, userID uuid.UUID, code string) error

	// CompleteLogin finishes a login that LoginUser left pending. Accepts
	// either a TOTP code or an unused backup code.
	CompleteLogin(ctx context.Context, ticket, code string) (*LoginResult, error)
}

type tfaService struct {
	log      *logger.Logger
	cache    redisclient.Cache
	userRepo repos.UserRepo
	auth     AuthService
	issuer   string
}

func NewTFAService(log *logger.Logger, cache redisclient.Cache, userRepo repos.UserRepo, auth AuthService, issuer string) TFAService {
	if issuer == "" {
		issuer = "oultic"
	}
	return &tfaService{
		log:      log.With("service", "TFAService"),
		cache:    cache,
		userRepo: userRepo,
		auth:     auth,
		issuer:   issuer,
	}
}

func (ts *tfaService) BeginSetup(ctx context.Context, userID uuid.UUID) (*TFASetup, error) {
	user, err := ts.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.TFAEnabled {
		return nil, fmt.Errorf("two-factor authentication is already enabled")
	}

	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw)
	if err := ts.cache.Set(ctx, tfaSetupKey(userID), secret, tfaSetupTTL); err != nil {
		return nil, fmt.Errorf("store pending secret: %w", err)
	}

	label := url.PathEscape(ts.issuer + ":" + user.Email)
	q := url.Values{}
	q.Set("secret", secret)
	q.Set("issuer", ts.issuer)
	q.Set("digits", fmt.Sprintf("%d", totpDigits))
	q.Set("period", fmt.Sprintf("%d", int(totpPeriod.Seconds())))
	return &TFASetup{
		Secret:     secret,
		OTPAuthURL: "otpauth://totp/" + label + "?" + q.Encode(),
	}, nil
}

func (ts *tfaService) ConfirmSetup(ctx context.Context, userID uuid.UUID, code string) ([]string, error) {
	var secret string
	hit, err := ts.cache.Get(ctx, tfaSetupKey(userID), &secret)
	if err != nil {
		return nil, fmt.Errorf("load pending secret: %w", err)
	}
	if !hit {
		return nil, fmt.Errorf("no two-factor setup in progress")
	}
	if !verifyTOTP(secret, code, time.Now()) {
		return nil, ErrTFACodeInvalid
	}

	user, err := ts.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	user.TFAEnabled = true
	user.TOTPSecret = secret
	if err := ts.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("enable two-factor: %w", err)
	}
	if err := ts.cache.Delete(ctx, tfaSetupKey(userID)); err != nil {
		ts.log.Warn("failed to delete pending secret", "error", err)
	}

	codes, err := ts.generateBackupCodes(ctx, userID)
	if err != nil {
		return nil, err
	}
	ts.log.Info("two-factor enabled", "user_id", userID.String())
	return codes, nil
}

func (ts *tfaService) Disable(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := ts.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if !user.TFAEnabled {
		return ErrTFANotEnabled
	}
	if !verifyTOTP(user.TOTPSecret, code, time.Now()) {
		consumed, cErr := ts.consumeBackupCode(ctx, userID, code)
		if cErr != nil {
			return cErr
		}
		if !consumed {
			return ErrTFACodeInvalid
		}
	}
	user.TFAEnabled = false
	user.TOTPSecret = ""
	if err := ts.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("disable two-factor: %w", err)
	}
	if err := ts.cache.Delete(ctx, backupCodesKey(userID)); err != nil {
		ts.log.Warn("failed to delete backup codes", "error", err)
	}
	return nil
}

func (ts *tfaService) CompleteLogin(ctx context.Context, ticket, code string) (*LoginResult, error) {
	var userIDStr string
	hit, err := ts.cache.Get(ctx, "tfa_ticket:"+ticket, &userIDStr)
	if err != nil {
		return nil, fmt.Errorf("load tfa ticket: %w", err)
	}
	if !hit {
		return nil, ErrTFATicketStale
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, ErrTFATicketStale
	}
	user, err := ts.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.TFAEnabled {
		return nil, ErrTFANotEnabled
	}

	if !verifyTOTP(user.TOTPSecret, code, time.Now()) {
		consumed, cErr := ts.consumeBackupCode(ctx, userID, code)
		if cErr != nil {
			return nil, cErr
		}
		if !consumed {
			return nil, ErrTFACodeInvalid
		}
	}

	if err := ts.cache.Delete(ctx, "tfa_ticket:"+ticket); err != nil {
		ts.log.Warn("failed to delete tfa ticket", "error", err)
	}
	return ts.auth.IssueTokens(ctx, user)
}

func (ts *tfaService) generateBackupCodes(ctx context.Context, userID uuid.UUID) ([]string, error) {
	codes := make([]string, backupCodeCount)
	for i := range codes {
		raw := make([]byte, 5)
		if _, err := rand.Read(raw); err != nil {
			return nil, fmt.Errorf("generate backup code: %w", err)
		}
		codes[i] = base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw)
	}
	if err := ts.cache.Set(ctx, backupCodesKey(userID), codes, backupCodesTTL); err != nil {
		return nil, fmt.Errorf("store backup codes: %w", err)
	}
	return codes, nil
}

func (ts *tfaService) consumeBackupCode(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	var codes []string
	hit, err := ts.cache.Get(ctx, backupCodesKey(userID), &codes)
	if err != nil {
		return false, fmt.Errorf("load backup codes: %w", err)
	}
	if !hit {
		return false, nil
	}
	remaining := codes[:0]
	found := false
	for _, c := range codes {
		if !found && subtle.ConstantTimeCompare([]byte(c), []byte(code)) == 1 {
			found = true
			continue
		}
		remaining = append(remaining, c)
	}
	if !found {
		return false, nil
	}
	if err := ts.cache.Set(ctx, backupCodesKey(userID), remaining, backupCodesTTL); err != nil {
		return false, fmt.Errorf("update backup codes: %w", err)
	}
	return true, nil
}

func tfaSetupKey(userID uuid.UUID) string {
	return "tfa_setup:" + userID.String()
}

func backupCodesKey(userID uuid.UUID) string {
	return "tfa_backup:" + userID.String()
}

// verifyTOTP implements RFC 6238 over HMAC-SHA1 with a one-step drift window.
func verifyTOTP(secret, code string, at time.Time) bool {
	if len(code) != totpDigits {
		return false
	}
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	if err != nil {
		return false
	}
	step := at.Unix() / int64(totpPeriod.Seconds())
	for offset := int64(-totpSkewSteps); offset <= totpSkewSteps; offset++ {
		if hotp(key, uint64(step+offset)) == code {
			return true
		}
	}
	return false
}

func hotp(key []byte, counter uint64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)
	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)
	offset := sum[len(sum)-1] & 0x0f
	truncated := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	mod := uint32(1)
	for i := 0; i < totpDigits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", totpDigits, truncated%mod)
}
