package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/opencustody/strongroom/internal/vault/domain"
	"github.com/opencustody/strongroom/internal/vault/store"
	"github.com/opencustody/strongroom/pkg/cryptox"
	"github.com/opencustody/strongroom/pkg/idx"
	"github.com/opencustody/strongroom/pkg/slogx"
	"github.com/opencustody/strongroom/pkg/tokenx"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const minPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidCode        = errors.New("invalid TOTP code")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters with upper, lower, digit and symbol")
	ErrEmailTaken         = errors.New("email already registered")
)

// LoginStatus tells the client which second step a successful password check
// leads to.
type LoginStatus string

const (
	// LoginStatusVerify means the user has a confirmed authenticator and
	// must present a current code.
	LoginStatusVerify LoginStatus = "verification_required"

	// LoginStatusSetup means the user never confirmed a code; a fresh
	// secret has been issued and must be enrolled before verifying.
	LoginStatusSetup LoginStatus = "setup_required"
)

type SignupResult struct {
	UserID            string
	Role              domain.Role
	Enrollment        domain.Enrollment
	VerificationToken string
}

type LoginResult struct {
	UserID            string
	Status            LoginStatus
	VerificationToken string

	// Enrollment is set only when Status is LoginStatusSetup.
	Enrollment *domain.Enrollment
}

// SessionService runs the signup / login / TOTP verification state machine.
// Every path that succeeds ends in CompleteVerification; access and refresh
// tokens are never issued before a valid code has been seen.
type SessionService struct {
	Store  store.Store
	Codec  *tokenx.Codec
	Issuer string // TOTP issuer label (e.g. "strongroom")

	// Zero values fall back to the tokenx defaults.
	VerificationTTL time.Duration
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
}

// Signup registers a new user. The TOTP secret is generated eagerly so the
// client can render the QR code right away; the account stays unverified
// until CompleteVerification sees a valid code. The very first user becomes
// an admin, everyone after that starts as a guest.
func (s *SessionService) Signup(ctx context.Context, email, password string) (SignupResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return SignupResult{}, ErrInvalidEmail
	}
	if !passwordStrong(password) {
		return SignupResult{}, ErrWeakPassword
	}

	passHash, err := cryptox.HashPassword(password)
	if err != nil {
		return SignupResult{}, fmt.Errorf("failed to hash password: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return SignupResult{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	secret := key.Secret()

	userID := idx.New().String()
	var role domain.Role

	// Count and insert must be one atomic step, or two racing first
	// signups could both become admin.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		count, err := tx.Users().Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}

		role = domain.RoleGuest
		if count == 0 {
			role = domain.RoleAdmin
		}

		now := time.Now().UTC()
		return tx.Users().CreateUser(ctx, domain.User{
			ID:           userID,
			Email:        email,
			PasswordHash: passHash,
			Role:         role,
			TOTPSecret:   &secret,
			TOTPEnabled:  false,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return SignupResult{}, ErrEmailTaken
	}
	if err != nil {
		return SignupResult{}, err
	}

	verification, err := s.Codec.Issue(userID, tokenx.KindVerification, s.verificationTTL())
	if err != nil {
		return SignupResult{}, fmt.Errorf("failed to issue verification token: %w", err)
	}

	slogx.FromContext(ctx).Info("user signed up",
		"user_id", userID, "role", string(role))

	return SignupResult{
		UserID: userID,
		Role:   role,
		Enrollment: domain.Enrollment{
			Secret:          secret,
			ProvisioningURI: key.URL(),
		},
		VerificationToken: verification,
	}, nil
}

// Login checks the password and hands back a verification token for the
// second factor. Unknown email and wrong password produce the identical
// error, and the unknown-email path still runs an argon2 compare so the two
// cannot be told apart by timing.
func (s *SessionService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		_ = cryptox.VerifyPassword(password, dummyPasswordHash())
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("failed to verify password: %w", err)
	}

	verification, err := s.Codec.Issue(user.ID, tokenx.KindVerification, s.verificationTTL())
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to issue verification token: %w", err)
	}

	if user.TOTPEnabled {
		return LoginResult{
			UserID:            user.ID,
			Status:            LoginStatusVerify,
			VerificationToken: verification,
		}, nil
	}

	// Never confirmed a code. The old secret may be lost on the client,
	// so issue a fresh one; this is only allowed while unverified.
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	if err := s.Store.Users().UpdateTOTPSecret(ctx, user.ID, key.Secret()); err != nil {
		return LoginResult{}, fmt.Errorf("failed to store TOTP secret: %w", err)
	}

	return LoginResult{
		UserID:            user.ID,
		Status:            LoginStatusSetup,
		VerificationToken: verification,
		Enrollment: &domain.Enrollment{
			Secret:          key.Secret(),
			ProvisioningURI: key.URL(),
		},
	}, nil
}

// CompleteVerification trades a verification token plus a valid TOTP code
// for the access/refresh pair. The token must be verification-kind; access
// and refresh tokens are rejected here just as verification tokens are
// rejected everywhere else.
func (s *SessionService) CompleteVerification(ctx context.Context, verificationToken, code string) (domain.SessionTokens, error) {
	userID, err := s.Codec.Verify(verificationToken, tokenx.KindVerification)
	if err != nil {
		return domain.SessionTokens{}, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.SessionTokens{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.TOTPSecret == nil || *user.TOTPSecret == "" {
		return domain.SessionTokens{}, ErrInvalidCode
	}
	if !totp.Validate(code, *user.TOTPSecret) {
		return domain.SessionTokens{}, ErrInvalidCode
	}

	if !user.TOTPEnabled {
		if err := s.Store.Users().EnableTOTP(ctx, user.ID); err != nil {
			return domain.SessionTokens{}, fmt.Errorf("failed to enable TOTP: %w", err)
		}
	}

	return s.issuePair(user.ID)
}

// Refresh trades a refresh token for a fresh access token. Refresh tokens
// are stateless and are not rotated; the caller keeps using the same one
// until it expires.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (domain.SessionTokens, error) {
	userID, err := s.Codec.Verify(refreshToken, tokenx.KindRefresh)
	if err != nil {
		return domain.SessionTokens{}, err
	}

	// A deleted user's still-valid refresh token must stop working.
	if _, err := s.Store.Users().GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SessionTokens{}, ErrInvalidCredentials
		}
		return domain.SessionTokens{}, fmt.Errorf("failed to look up user: %w", err)
	}

	access, err := s.Codec.Issue(userID, tokenx.KindAccess, s.accessTTL())
	if err != nil {
		return domain.SessionTokens{}, fmt.Errorf("failed to issue access token: %w", err)
	}

	return domain.SessionTokens{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.accessTTL(),
	}, nil
}

func (s *SessionService) issuePair(userID string) (domain.SessionTokens, error) {
	access, err := s.Codec.Issue(userID, tokenx.KindAccess, s.accessTTL())
	if err != nil {
		return domain.SessionTokens{}, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := s.Codec.Issue(userID, tokenx.KindRefresh, s.refreshTTL())
	if err != nil {
		return domain.SessionTokens{}, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	return domain.SessionTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.accessTTL(),
	}, nil
}

func (s *SessionService) verificationTTL() time.Duration {
	if s.VerificationTTL > 0 {
		return s.VerificationTTL
	}
	return tokenx.DefaultVerificationTTL
}

func (s *SessionService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return tokenx.DefaultAccessTTL
}

func (s *SessionService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return tokenx.DefaultRefreshTTL
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func passwordStrong(password string) bool {
	if len(password) < minPasswordLength {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// dummyPasswordHash is compared against on the unknown-email login path so
// that path costs the same argon2 work as a real mismatch.
func dummyPasswordHash() string {
	dummyHashOnce.Do(func() {
		dummyHash, _ = cryptox.HashPassword("strongroom-timing-pad")
	})
	return dummyHash
}
