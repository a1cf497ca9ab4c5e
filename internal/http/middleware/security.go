package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/straye-as/crm-api/internal/config"
)

// SecurityHeaders sets the browser hardening headers from config plus the caching rules
// of the CRM API: per-user responses are never stored, live streams are never buffered,
// and URLs carrying an access_token never leak through the Referer header.
func SecurityHeaders(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	static := staticSecurityHeaders(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for name, value := range static {
				h.Set(name, value)
			}

			switch {
			case isLiveStream(r):
				h.Set("Cache-Control", "no-cache")
				h.Set("X-Accel-Buffering", "no")
			case strings.HasPrefix(r.URL.Path, "/api/"):
				h.Set("Cache-Control", "no-store")
			}

			if r.URL.Query().Has("access_token") {
				h.Set("Referrer-Policy", "no-referrer")
			}

			h.Del("X-Powered-By")
			h.Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}

func staticSecurityHeaders(cfg *config.SecurityConfig) map[string]string {
	headers := map[string]string{}
	set := func(name, value string) {
		if value != "" {
			headers[name] = value
		}
	}

	if cfg.ContentTypeNosniff {
		set("X-Content-Type-Options", "nosniff")
	}
	set("X-Frame-Options", cfg.FrameOptions)
	set("X-XSS-Protection", cfg.XSSProtection)
	set("Content-Security-Policy", cfg.ContentSecurityPolicy)
	set("Referrer-Policy", cfg.ReferrerPolicy)
	set("Permissions-Policy", cfg.PermissionsPolicy)

	if cfg.EnableHSTS {
		hsts := fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		if cfg.HSTSPreload {
			hsts += "; preload"
		}
		set("Strict-Transport-Security", hsts)
	}
	return headers
}

// isLiveStream reports whether r opens a server-sent event stream
func isLiveStream(r *http.Request) bool {
	return strings.Contains(r.URL.Path, "/live/") ||
		strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}
