// Package auth issues and validates bearer tokens, hashes passwords and
// implements the role and ownership checks used by the HTTP gate.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eringen/blogapi/internal/apperr"
)

// Roles understood by the gate.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Claims is the token payload: standard registered claims plus the role.
// The account name travels in Subject.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and validates access tokens. It is built once at startup and
// never mutated afterwards.
type Issuer struct {
	key    []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer for an HMAC algorithm (HS256, HS384, HS512).
func NewIssuer(secret, algorithm string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("auth: secret key is required")
	}
	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", algorithm)
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token lifetime must be positive")
	}
	return &Issuer{key: []byte(secret), method: method, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for subject with role. A zero ttl uses the configured
// default lifetime.
func (i *Issuer) Issue(subject, role string, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = i.ttl
	}
	now := i.now()
	token := jwt.NewWithClaims(i.method, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(i.key)
}

// Parse verifies signature and expiry and returns the claims. Every failure
// is reported as apperr.InvalidCredentials.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidCredentials, err, "Invalid credentials")
	}
	if !token.Valid || claims.Subject == "" {
		return nil, apperr.E(apperr.InvalidCredentials, "Invalid credentials")
	}
	return claims, nil
}

// TTL is the default token lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }
