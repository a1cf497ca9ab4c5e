package access_test

import (
	"errors"
	"testing"

	"github.com/straye-as/crm-api/internal/access"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func newBootstrapPolicy() *access.BootstrapPolicy {
	return access.NewBootstrapPolicy(access.BootstrapIdentity{Email: "Founder@Example.com", Subject: "uid-founder"})
}

func TestBootstrapIdentity_Matches(t *testing.T) {
	id := access.BootstrapIdentity{Email: "founder@example.com", Subject: "uid-founder"}

	assert.True(t, id.Matches("FOUNDER@example.com", "uid-founder"))
	assert.True(t, id.Matches(" founder@example.com ", "uid-founder"))
	assert.False(t, id.Matches("founder@example.com", "uid-other"))
	assert.False(t, id.Matches("other@example.com", "uid-founder"))

	disabled := access.BootstrapIdentity{Email: "founder@example.com"}
	assert.False(t, disabled.Enabled())
	assert.False(t, disabled.Matches("founder@example.com", ""))
}

func TestBootstrapPolicy_Evaluate(t *testing.T) {
	policy := newBootstrapPolicy()
	unavailable := errors.New("summary read timeout")

	tests := []struct {
		name     string
		email    string
		subject  string
		ownRole  domain.Role
		summary  access.SummaryRead
		expected access.Grant
	}{
		{
			name:     "grant while no admin exists",
			email:    "founder@example.com",
			subject:  "uid-founder",
			summary:  access.SummaryRead{HasAnyAdmin: false},
			expected: access.Grant{SessionAdmin: true, Bootstrap: true},
		},
		{
			name:     "revoked once an admin exists",
			email:    "founder@example.com",
			subject:  "uid-founder",
			ownRole:  domain.RoleStandard,
			summary:  access.SummaryRead{HasAnyAdmin: true},
			expected: access.Grant{Bootstrap: true},
		},
		{
			name:     "own admin record needs no grant",
			email:    "founder@example.com",
			subject:  "uid-founder",
			ownRole:  domain.RoleAdmin,
			summary:  access.SummaryRead{Err: unavailable},
			expected: access.Grant{Bootstrap: true},
		},
		{
			name:     "summary failure fails closed",
			email:    "founder@example.com",
			subject:  "uid-founder",
			summary:  access.SummaryRead{Err: unavailable},
			expected: access.Grant{SummaryUnavailable: true, Bootstrap: true},
		},
		{
			name:     "other identity never granted",
			email:    "someone@example.com",
			subject:  "uid-someone",
			summary:  access.SummaryRead{HasAnyAdmin: false},
			expected: access.Grant{},
		},
		{
			name:     "other identity ignores summary failure",
			email:    "someone@example.com",
			subject:  "uid-someone",
			summary:  access.SummaryRead{Err: unavailable},
			expected: access.Grant{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Evaluate(tt.email, tt.subject, tt.ownRole, tt.summary)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestBootstrapPolicy_NeedsSummary(t *testing.T) {
	policy := newBootstrapPolicy()

	assert.True(t, policy.NeedsSummary("founder@example.com", "uid-founder", ""))
	assert.True(t, policy.NeedsSummary("founder@example.com", "uid-founder", domain.RoleStandard))
	assert.False(t, policy.NeedsSummary("founder@example.com", "uid-founder", domain.RoleAdmin))
	assert.False(t, policy.NeedsSummary("someone@example.com", "uid-someone", ""))
}

func TestGrant_ApplyFeedsRouter(t *testing.T) {
	policy := newBootstrapPolicy()
	router := access.NewRouter(access.DefaultConfig())
	actor := &access.Actor{ID: "uid-founder", Email: "founder@example.com"}

	policy.Evaluate(actor.Email, actor.ID, actor.Role, access.SummaryRead{}).Apply(actor)
	d := router.Resolve(access.Request{Actor: actor, Kind: access.KindUserRecord, Op: access.OpUpdate, OwnerID: "alice"})
	assert.True(t, d.Allowed)

	policy.Evaluate(actor.Email, actor.ID, actor.Role, access.SummaryRead{HasAnyAdmin: true}).Apply(actor)
	d = router.Resolve(access.Request{Actor: actor, Kind: access.KindUserRecord, Op: access.OpUpdate, OwnerID: "alice"})
	assert.False(t, d.Allowed)
	assert.Equal(t, domain.KindAccessDenied, d.Reason)
}
