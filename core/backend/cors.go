package backend

import (
	"net/http"

	"github.com/gorilla/handlers"
)

// handleCORS accepts cross origin requests from any origin, with credentials
func (b *Backend) handleCORS() {
	b.router.Use(handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodPut, http.MethodGet, http.MethodPost, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "Accept-Encoding", "X-Requested-With"}),
		handlers.ExposedHeaders([]string{"Content-Length", "Content-Encoding"}),
		handlers.AllowCredentials(),
		handlers.MaxAge(86400), // 24 hours
	))
}
