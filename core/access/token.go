package access

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TokenIssuer issues and validates access tokens signed with a shared secret
type TokenIssuer struct {
	secret []byte
	method jwt.SigningMethod
	expiry time.Duration
}

// NewTokenIssuer returns an issuer for HMAC algorithm (HS256, HS384 or HS512).
// Tokens expire after expiry.
func NewTokenIssuer(secret, algorithm string, expiry time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token secret is missing")
	}
	if expiry <= 0 {
		return nil, fmt.Errorf("token expiry must be positive, got %s", expiry)
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported token algorithm %q", algorithm)
	}
	return &TokenIssuer{secret: []byte(secret), method: method, expiry: expiry}, nil
}

// Expiry returns the lifetime of issued tokens
func (i *TokenIssuer) Expiry() time.Duration {
	return i.expiry
}

// Issue returns a signed token for username and password hash
func (i *TokenIssuer) Issue(username, passwordHash string) (string, error) {
	claims := Claims{
		Username: username,
		Password: passwordHash,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(i.expiry)),
		},
	}
	return jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
}

// Parse validates token and returns its claims. Any failure is ErrUnauthorized.
func (i *TokenIssuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != i.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{i.method.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Username == "" {
		return nil, fmt.Errorf("%w: token has no username", ErrUnauthorized)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: token does not expire", ErrUnauthorized)
	}
	return claims, nil
}
