package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
	"github.com/straye-as/crm-api/internal/config"
	"go.uber.org/zap"
)

// Headers the API reads from browsers regardless of configuration. X-Client-ID names
// the live view; EventSource cannot set headers, so it falls back to the client query.
var requiredRequestHeaders = []string{"Authorization", "Content-Type", "X-Client-ID"}

// Headers browsers must be able to read: the created resource, request correlation and
// rate-limit back-off.
var requiredExposedHeaders = []string{"Location", "X-Request-ID", "Retry-After"}

// CORS returns the cross-origin policy for the API. Configured header and method lists
// are extended with what the CRM endpoints need.
func CORS(cfg *config.CORSConfig, environment string, logger *zap.Logger) func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedMethods:   mergeValues(cfg.AllowedMethods, []string{http.MethodGet}),
		AllowedHeaders:   mergeValues(cfg.AllowedHeaders, requiredRequestHeaders),
		ExposedHeaders:   mergeValues(cfg.ExposedHeaders, requiredExposedHeaders),
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}

	allowOrigin, explicit := originPolicy(cfg.AllowedOrigins, environment, logger)
	if explicit != nil {
		options.AllowedOrigins = explicit
	} else {
		options.AllowOriginFunc = allowOrigin
	}

	return cors.Handler(options)
}

// originPolicy returns either an explicit origin list or a predicate. go-chi/cors treats an
// empty origin list as "*", so a deny-all policy has to be a predicate.
func originPolicy(origins []string, environment string, logger *zap.Logger) (func(*http.Request, string) bool, []string) {
	anyOrigin := func(_ *http.Request, origin string) bool { return origin != "" }
	development := environment == "" || environment == "development" || environment == "local"

	for _, origin := range origins {
		if origin == "*" {
			if !development {
				logger.Warn("CORS allows every origin outside development",
					zap.String("environment", environment))
			}
			return anyOrigin, nil
		}
	}

	switch {
	case len(origins) > 0:
		logger.Info("CORS configured with explicit origins", zap.Strings("origins", origins))
		return nil, origins
	case development:
		logger.Info("CORS allows every origin in development")
		return anyOrigin, nil
	default:
		logger.Warn("CORS has no allowed origins, cross-origin requests are denied",
			zap.String("environment", environment))
		return func(*http.Request, string) bool { return false }, nil
	}
}

// mergeValues appends the required values missing from configured, compared case-insensitively
func mergeValues(configured, required []string) []string {
	out := append([]string(nil), configured...)
	for _, r := range required {
		found := false
		for _, c := range configured {
			if strings.EqualFold(c, r) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, r)
		}
	}
	return out
}
