/*Package access provides password hashing, token issuance and the bearer
token middleware
*/
package access

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v4"
)

// ErrUnauthorized is returned for wrong credentials and for missing, invalid or expired tokens
var ErrUnauthorized = errors.New("unauthorized")

// contextKey is the type for context keys. Go linter does not like plain strings
type contextKey string

const contextKeyClaims contextKey = "_claims_"

// Claims is the payload of an access token. Password carries the password hash
// of the user at the time the token was issued.
type Claims struct {
	Username string `json:"username"`
	Password string `json:"password"`
	jwt.RegisteredClaims
}

// ContextWithClaims returns a new context carrying claims
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, contextKeyClaims, claims)
}

// ClaimsFromContext returns the claims of an authenticated request, or nil
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(contextKeyClaims).(*Claims)
	return claims
}
