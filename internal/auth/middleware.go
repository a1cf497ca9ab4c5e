package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/straye-as/crm-api/internal/access"
	"github.com/straye-as/crm-api/internal/domain"
	applog "github.com/straye-as/crm-api/internal/logger"
	"go.uber.org/zap"
)

// RoleLookup returns the role stored on the caller's own user record, or "" when
// the record does not exist yet
type RoleLookup interface {
	OwnRole(ctx context.Context, uid string) (domain.Role, error)
}

// SummaryReader reports whether any Admin user record exists
type SummaryReader interface {
	HasAnyAdmin(ctx context.Context) (bool, error)
}

// Middleware resolves the acting identity for HTTP requests
type Middleware struct {
	verifier  Verifier
	roles     RoleLookup
	summary   SummaryReader
	bootstrap *access.BootstrapPolicy
	logger    *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(verifier Verifier, roles RoleLookup, summary SummaryReader, bootstrap *access.BootstrapPolicy, logger *zap.Logger) *Middleware {
	return &Middleware{
		verifier:  verifier,
		roles:     roles,
		summary:   summary,
		bootstrap: bootstrap,
		logger:    logger,
	}
}

// Identify verifies the bearer token when one is present and stores the resolved actor
// in the request context. Requests without a token continue unauthenticated; requests
// with a bad token are rejected.
func (m *Middleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		token, present, ok := bearerToken(r)
		if !present {
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "Unauthorized", "invalid authorization header format")
			return
		}

		identity, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "Unauthorized", "invalid or expired token")
			return
		}

		actor, err := m.resolveActor(r.Context(), identity)
		if err != nil {
			m.logger.Error("failed to resolve actor",
				zap.String("path", r.URL.Path),
				zap.String("user_id", identity.Subject),
				zap.Error(err),
			)
			writeError(w, http.StatusServiceUnavailable, domain.ErrorTypeUnavailable, "Service Unavailable", "could not load user record, try again")
			return
		}

		applog.WithActor(m.logger, actor.ID, string(actor.EffectiveRole()), actor.SessionAdmin).Debug("request authenticated",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("auth_provider", identity.Provider),
			zap.Duration("auth_duration", time.Since(start)),
		)

		ctx := WithIdentity(r.Context(), identity)
		ctx = WithActor(ctx, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireActor rejects unauthenticated requests
func (m *Middleware) RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ActorFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "Unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) resolveActor(ctx context.Context, identity *Identity) (*access.Actor, error) {
	role, err := m.roles.OwnRole(ctx, identity.Subject)
	if err != nil {
		return nil, err
	}

	actor := &access.Actor{
		ID:          identity.Subject,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		Role:        role,
	}

	var summary access.SummaryRead
	if m.bootstrap.NeedsSummary(identity.Email, identity.Subject, role) {
		summary.HasAnyAdmin, summary.Err = m.summary.HasAnyAdmin(ctx)
		if summary.Err != nil {
			m.logger.Warn("admin summary unavailable for bootstrap identity",
				zap.String("user_id", identity.Subject),
				zap.Error(summary.Err),
			)
		}
	}
	grant := m.bootstrap.Evaluate(identity.Email, identity.Subject, role, summary)
	grant.Apply(actor)
	if grant.SessionAdmin {
		m.logger.Info("bootstrap session admin granted", zap.String("user_id", actor.ID))
	}
	return actor, nil
}

// bearerToken returns the token from the Authorization header, or from the
// access_token query parameter (EventSource clients cannot set headers).
func bearerToken(r *http.Request) (token string, present bool, ok bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if q := r.URL.Query().Get("access_token"); q != "" {
			return q, true, true
		}
		return "", false, false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", true, false
	}
	return strings.TrimSpace(parts[1]), true, true
}

func writeError(w http.ResponseWriter, status int, errType, title, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   errType,
		Title:  title,
		Status: status,
		Detail: detail,
	})
}
