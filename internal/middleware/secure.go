package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
	"github.com/vendora/vendora-backend/internal/config"
)

// SecureHeaders sets the usual hardening headers for a JSON API. HSTS and
// HTTPS redirects are only enforced in production.
func SecureHeaders(cfg *config.ServerConfig) func(http.Handler) http.Handler {
	s := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           cfg.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
		IsDevelopment:         !cfg.IsProduction(),
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := s.Process(w, r); err != nil {
				GetLoggerFromContext(r.Context()).Warn("secure headers blocked request", "error", err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
