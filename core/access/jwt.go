package access

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/sqlbase/core/logger"
)

// NewJwtMiddelware returns a middleware handler to validate
// JWT bearer token.
//
// Tokens are accepted as "Authorization: Bearer" header. This is a final
// handler: a missing or invalid token yields http.StatusUnauthorized with
// a "WWW-Authenticate: Bearer" header. For valid tokens the claims are added
// to the request context, and the username to the request logger.
func NewJwtMiddelware(issuer *TokenIssuer) mux.MiddlewareFunc {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rlog := logger.FromContext(r.Context())

			tokenString := ""
			bearer := r.Header.Get("Authorization")
			if len(bearer) >= 8 && strings.ToLower(bearer[:7]) == "bearer " {
				tokenString = strings.TrimSpace(bearer[7:])
			}
			if tokenString == "" {
				Unauthorized(w)
				return
			}

			claims, err := issuer.Parse(tokenString)
			if err != nil {
				rlog.WithError(err).Infoln("rejected bearer token")
				Unauthorized(w)
				return
			}

			ctx, _ := logger.ContextWithLoggerIdentity(r.Context(), claims.Username)
			ctx = ContextWithClaims(ctx, claims)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Unauthorized writes the response for a request without valid credentials
func Unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "Could not validate credentials", http.StatusUnauthorized)
}
