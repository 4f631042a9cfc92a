// Package tokenx implements the bearer token scheme used across the service:
// compact signed tokens carrying a subject and an explicit token kind, with a
// fixed lifetime per kind. Every verification site must state which kind it
// expects; a verification token can never satisfy an access check.
package tokenx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind is the closed set of token kinds the codec will mint or accept.
type Kind string

const (
	// KindVerification is issued after a successful password check and is
	// only good for completing the TOTP step. It is not a session token.
	KindVerification Kind = "verification"

	// KindAccess is the short-lived session token presented on API calls.
	KindAccess Kind = "access"

	// KindRefresh is the long-lived token used to mint new access tokens.
	KindRefresh Kind = "refresh"
)

// Default lifetimes per kind. Services may override via configuration but
// these are the contract defaults.
const (
	DefaultVerificationTTL = 5 * time.Minute
	DefaultAccessTTL       = 60 * time.Minute
	DefaultRefreshTTL      = 7 * 24 * time.Hour
)

var (
	ErrMalformed    = errors.New("tokenx: malformed token")
	ErrBadSignature = errors.New("tokenx: invalid signature")
	ErrExpired      = errors.New("tokenx: token expired")
	ErrWrongKind    = errors.New("tokenx: wrong token kind")
)

// Claims are the signed payload: registered subject/iat/exp plus the kind.
type Claims struct {
	jwt.RegisteredClaims

	Kind Kind `json:"token_kind"`
}

// Codec issues and verifies tokens under a single process-wide HMAC secret.
// It is constructed once at startup and is safe for concurrent use; nothing
// mutates it after construction.
type Codec struct {
	secret []byte
	issuer string
}

// New builds a Codec from the signing secret. The secret is injected by the
// caller; the codec never reads it from ambient process state.
func New(secret []byte, issuer string) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("tokenx: empty signing secret")
	}
	return &Codec{secret: secret, issuer: issuer}, nil
}

// Issue signs a token of the given kind for subject, valid for ttl from now.
func (c *Codec) Issue(subject string, kind Kind, ttl time.Duration) (string, error) {
	return c.IssueAt(subject, kind, ttl, time.Now())
}

// IssueAt is Issue with an explicit clock, used by tests to mint tokens in
// the past.
func (c *Codec) IssueAt(subject string, kind Kind, ttl time.Duration, now time.Time) (string, error) {
	if ttl <= 0 {
		return "", errors.New("tokenx: non-positive ttl")
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks signature and expiry, then enforces the expected kind. It
// returns the token's subject on success.
//
// The kind check happens after the cryptographic checks so a forged token
// never learns which kind a given endpoint wanted.
func (c *Codec) Verify(raw string, expect Kind) (string, error) {
	claims, err := c.decode(raw)
	if err != nil {
		return "", err
	}
	if claims.Kind != expect {
		return "", ErrWrongKind
	}
	return claims.Subject, nil
}

func (c *Codec) decode(raw string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		default:
			return nil, ErrMalformed
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return nil, ErrMalformed
	}
	return claims, nil
}
