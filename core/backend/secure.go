package backend

import (
	"net/http"

	"github.com/unrolled/secure"
)

var secureOptions = secure.Options{
	STSSeconds:              63072000,
	STSIncludeSubdomains:    true,
	ForceSTSHeader:          true,
	CustomFrameOptionsValue: "SAMEORIGIN",
	ContentTypeNosniff:      true,
	ReferrerPolicy:          "no-referrer, strict-origin-when-cross-origin",
	CrossOriginOpenerPolicy: "same-origin",
}

// handleSecureHeaders adds the security headers to every response. Responses are
// never cached.
func (b *Backend) handleSecureHeaders() {
	b.router.Use(secure.New(secureOptions).Handler)
	b.router.Use(func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			h.ServeHTTP(w, r)
		})
	})
}
