package access

import (
	"strings"

	"github.com/straye-as/crm-api/internal/domain"
)

// BootstrapIdentity is the fixed identity allowed to act as Admin while no Admin exists
type BootstrapIdentity struct {
	Email   string
	Subject string
}

// Enabled reports whether both parts of the identity are configured
func (b BootstrapIdentity) Enabled() bool {
	return strings.TrimSpace(b.Email) != "" && strings.TrimSpace(b.Subject) != ""
}

// Matches compares the email case-insensitively and the subject exactly
func (b BootstrapIdentity) Matches(email, subject string) bool {
	if !b.Enabled() {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(email), strings.TrimSpace(b.Email)) &&
		subject == b.Subject
}

// SummaryRead is the outcome of reading the admin summary
type SummaryRead struct {
	HasAnyAdmin bool
	Err         error
}

// Grant is the result of evaluating the bootstrap policy for one request
type Grant struct {
	SessionAdmin       bool
	SummaryUnavailable bool
	// Bootstrap is true when the identity is the configured bootstrap identity
	Bootstrap bool
}

// BootstrapPolicy grants the non-persisted session Admin role to the bootstrap identity
// while the admin summary reports no Admin.
type BootstrapPolicy struct {
	identity BootstrapIdentity
}

// NewBootstrapPolicy creates a policy for the given identity
func NewBootstrapPolicy(identity BootstrapIdentity) *BootstrapPolicy {
	return &BootstrapPolicy{identity: identity}
}

// IsBootstrap reports whether (email, subject) is the bootstrap identity
func (p *BootstrapPolicy) IsBootstrap(email, subject string) bool {
	return p.identity.Matches(email, subject)
}

// NeedsSummary reports whether Evaluate will look at the summary for this actor.
// Callers use it to avoid reading the summary for everyone else.
func (p *BootstrapPolicy) NeedsSummary(email, subject string, ownRole domain.Role) bool {
	return ownRole != domain.RoleAdmin && p.IsBootstrap(email, subject)
}

// Evaluate decides the grant. The summary is consulted only for the bootstrap identity
// whose own record is not Admin.
func (p *BootstrapPolicy) Evaluate(email, subject string, ownRole domain.Role, summary SummaryRead) Grant {
	g := Grant{Bootstrap: p.IsBootstrap(email, subject)}
	if ownRole == domain.RoleAdmin || !g.Bootstrap {
		return g
	}
	if summary.Err != nil {
		g.SummaryUnavailable = true
		return g
	}
	if !summary.HasAnyAdmin {
		g.SessionAdmin = true
	}
	return g
}

// Apply copies the grant onto the actor
func (g Grant) Apply(a *Actor) {
	if a == nil {
		return
	}
	a.SessionAdmin = g.SessionAdmin
	a.SummaryUnavailable = g.SummaryUnavailable
}
