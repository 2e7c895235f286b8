// Package auth authorizes administrative operations.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the only role allowed to manage the roster and appointment queue.
const RoleAdmin = "admin"

var (
	// ErrUnauthenticated means no valid credential was presented.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	// ErrForbidden means the credential is valid but lacks the admin role.
	ErrForbidden = errors.New("auth: forbidden")
	// ErrNotConfigured means admin authentication has no signing secret.
	ErrNotConfigured = errors.New("auth: admin authentication not configured")
)

// Principal is an authenticated caller.
type Principal struct {
	Subject string
	Role    string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Authenticator resolves a bearer credential to a Principal.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (Principal, error)
}

// Claims are the JWT claims issued to administrators.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuthenticator verifies HMAC-signed admin tokens.
type JWTAuthenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJWTAuthenticator(secret, issuer string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, bearer string) (Principal, error) {
	if len(a.secret) == 0 {
		return Principal{}, ErrNotConfigured
	}
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return Principal{}, ErrUnauthenticated
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(bearer, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	p := Principal{Subject: claims.Subject, Role: claims.Role}
	if !p.IsAdmin() {
		return p, ErrForbidden
	}
	return p, nil
}

// Issue signs an admin token for subject valid for ttl.
func (a *JWTAuthenticator) Issue(subject string, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", ErrNotConfigured
	}
	now := a.now()
	claims := Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

type contextKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFrom returns the principal stored by WithPrincipal.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}
