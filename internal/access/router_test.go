package access_test

import (
	"testing"

	"github.com/straye-as/crm-api/internal/access"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	allKinds = []access.ResourceKind{
		access.KindCustomer,
		access.KindOpportunity,
		access.KindPriceBookItem,
		access.KindUserRecord,
		access.KindMetadata,
	}
	allOps = []access.Operation{access.OpRead, access.OpCreate, access.OpUpdate, access.OpDelete}
)

func standard(id string) *access.Actor {
	return &access.Actor{ID: id, Email: id + "@example.com", Role: domain.RoleStandard}
}

func admin(id string) *access.Actor {
	return &access.Actor{ID: id, Email: id + "@example.com", Role: domain.RoleAdmin}
}

func TestResolve_NoActorRequiresAuthExceptPublicReads(t *testing.T) {
	router := access.NewRouter(access.DefaultConfig())

	for _, kind := range allKinds {
		for _, op := range allOps {
			d := router.Resolve(access.Request{Kind: kind, Op: op, Name: access.MetadataCountries, Collection: true})
			if op == access.OpRead && kind == access.KindMetadata {
				assert.True(t, d.Allowed, "%s %s", kind, op)
				assert.Equal(t, "metadata/countries", d.Path)
				continue
			}
			assert.False(t, d.Allowed, "%s %s", kind, op)
			assert.Equal(t, domain.KindAuthRequired, d.Reason, "%s %s", kind, op)
			assert.Empty(t, d.Path)
		}
	}
}

func TestResolve_PublicReadableIsConfigurable(t *testing.T) {
	router := access.NewRouter(access.Config{PublicReadable: []access.ResourceKind{access.KindPriceBookItem}})

	d := router.Resolve(access.Request{Kind: access.KindPriceBookItem, Op: access.OpRead, Collection: true})
	require.True(t, d.Allowed)
	assert.Equal(t, access.PriceBookCollection, d.Path)

	d = router.Resolve(access.Request{Kind: access.KindMetadata, Op: access.OpRead, Name: access.MetadataCountries})
	assert.Equal(t, domain.KindAuthRequired, d.Reason)

	d = router.Resolve(access.Request{Kind: access.KindPriceBookItem, Op: access.OpCreate})
	assert.Equal(t, domain.KindAuthRequired, d.Reason)
}

func TestResolve_UserRecordsNeverPublic(t *testing.T) {
	router := access.NewRouter(access.Config{PublicReadable: []access.ResourceKind{access.KindUserRecord}})

	d := router.Resolve(access.Request{Kind: access.KindUserRecord, Op: access.OpRead, Collection: true})
	assert.False(t, d.Allowed)
	assert.Equal(t, domain.KindAuthRequired, d.Reason)
}

func TestResolve_StandardOwnership(t *testing.T) {
	router := access.NewRouter(access.DefaultConfig())
	alice := standard("alice")

	tests := []struct {
		name    string
		req     access.Request
		allowed bool
		reason  domain.ErrorKind
	}{
		{"update own customer", access.Request{Actor: alice, Kind: access.KindCustomer, Op: access.OpUpdate, OwnerID: "alice"}, true, ""},
		{"update other's customer", access.Request{Actor: alice, Kind: access.KindCustomer, Op: access.OpUpdate, OwnerID: "bob"}, false, domain.KindAccessDenied},
		{"delete other's opportunity", access.Request{Actor: alice, Kind: access.KindOpportunity, Op: access.OpDelete, OwnerID: "bob"}, false, domain.KindAccessDenied},
		{"update with unknown owner", access.Request{Actor: alice, Kind: access.KindCustomer, Op: access.OpUpdate}, false, domain.KindAccessDenied},
		{"read other's customer", access.Request{Actor: alice, Kind: access.KindCustomer, Op: access.OpRead, OwnerID: "bob"}, false, domain.KindAccessDenied},
		{"read own customer", access.Request{Actor: alice, Kind: access.KindCustomer, Op: access.OpRead, OwnerID: "alice"}, true, ""},
		{"create price book item", access.Request{Actor: alice, Kind: access.KindPriceBookItem, Op: access.OpCreate}, false, domain.KindAccessDenied},
		{"read price book", access.Request{Actor: alice, Kind: access.KindPriceBookItem, Op: access.OpRead, Collection: true}, false, domain.KindAccessDenied},
		{"read own user record", access.Request{Actor: alice, Kind: access.KindUserRecord, Op: access.OpRead, OwnerID: "alice"}, true, ""},
		{"read other user record", access.Request{Actor: alice, Kind: access.KindUserRecord, Op: access.OpRead, OwnerID: "bob"}, false, domain.KindAccessDenied},
		{"list users", access.Request{Actor: alice, Kind: access.KindUserRecord, Op: access.OpRead, Collection: true}, false, domain.KindAccessDenied},
		{"create own user record", access.Request{Actor: alice, Kind: access.KindUserRecord, Op: access.OpCreate, OwnerID: "alice"}, true, ""},
		{"edit own role", access.Request{Actor: alice, Kind: access.KindUserRecord, Op: access.OpUpdate, OwnerID: "alice"}, false, domain.KindAccessDenied},
		{"delete other user", access.Request{Actor: alice, Kind: access.KindUserRecord, Op: access.OpDelete, OwnerID: "bob"}, false, domain.KindAccessDenied},
		{"read metadata", access.Request{Actor: alice, Kind: access.KindMetadata, Op: access.OpRead, Name: access.MetadataCurrencies}, true, ""},
		{"write metadata", access.Request{Actor: alice, Kind: access.KindMetadata, Op: access.OpUpdate, Name: access.MetadataCurrencies}, false, domain.KindAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := router.Resolve(tt.req)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
			if tt.allowed {
				assert.NotEmpty(t, d.Path)
			} else {
				assert.Empty(t, d.Path)
			}
		})
	}
}

func TestResolve_StandardListIsOwnerFiltered(t *testing.T) {
	router := access.NewRouter(access.DefaultConfig())

	d := router.Resolve(access.Request{Actor: standard("alice"), Kind: access.KindCustomer, Op: access.OpRead, Collection: true})
	require.True(t, d.Allowed)
	assert.Equal(t, "alice", d.OwnerFilter)
	assert.Equal(t, access.CustomersCollection, d.Path)
	assert.Equal(t, access.ScopePublic, d.Scope)

	d = router.Resolve(access.Request{Actor: admin("root"), Kind: access.KindCustomer, Op: access.OpRead, Collection: true})
	require.True(t, d.Allowed)
	assert.Empty(t, d.OwnerFilter)
}

func TestResolve_CreateAssignsOwner(t *testing.T) {
	router := access.NewRouter(access.DefaultConfig())

	for _, actor := range []*access.Actor{standard("alice"), admin("root")} {
		d := router.Resolve(access.Request{Actor: actor, Kind: access.KindOpportunity, Op: access.OpCreate})
		require.True(t, d.Allowed)
		assert.Equal(t, actor.ID, d.AssignOwner)
		assert.Equal(t, access.OpportunitiesCollection, d.Path)
	}
}

func TestResolve_AdminAllowedExceptSelfRoleEditAndDelete(t *testing.T) {
	router := access.NewRouter(access.DefaultConfig())
	root := admin("root")

	for _, kind := range allKinds {
		for _, op := range allOps {
			for _, owner := range []string{"someone", "root"} {
				req := access.Request{Actor: root, Kind: kind, Op: op, OwnerID: owner, Name: access.MetadataCountries}
				d := router.Resolve(req)

				selfEdit := kind == access.KindUserRecord && owner == "root" &&
					(op == access.OpUpdate || op == access.OpDelete)
				if selfEdit {
					assert.False(t, d.Allowed, "%s %s %s", kind, op, owner)
					assert.Equal(t, domain.KindAccessDenied, d.Reason)
					continue
				}
				assert.True(t, d.Allowed, "%s %s %s", kind, op, owner)
				assert.NotEmpty(t, d.Path, "%s %s %s", kind, op, owner)
			}
		}
	}
}

func TestResolve_UnknownRoleIsStandard(t *testing.T) {
	router := access.NewRouter(access.DefaultConfig())
	actor := &access.Actor{ID: "x", Role: domain.Role("Owner")}

	d := router.Resolve(access.Request{Actor: actor, Kind: access.KindPriceBookItem, Op: access.OpCreate})
	assert.False(t, d.Allowed)
	assert.Equal(t, domain.KindAccessDenied, d.Reason)
	assert.Equal(t, domain.RoleStandard, actor.EffectiveRole())
}

func TestResolve_SessionAdminActsAsAdmin(t *testing.T) {
	router := access.NewRouter(access.DefaultConfig())
	actor := &access.Actor{ID: "boot", SessionAdmin: true}

	d := router.Resolve(access.Request{Actor: actor, Kind: access.KindUserRecord, Op: access.OpUpdate, OwnerID: "alice"})
	assert.True(t, d.Allowed)
	assert.Equal(t, "users/alice", d.Path)
	assert.Equal(t, access.ScopePrivate, d.Scope)
}

func TestResolve_SummaryUnavailableIsTransient(t *testing.T) {
	router := access.NewRouter(access.DefaultConfig())
	actor := &access.Actor{ID: "boot", SummaryUnavailable: true}

	d := router.Resolve(access.Request{Actor: actor, Kind: access.KindPriceBookItem, Op: access.OpCreate})
	assert.False(t, d.Allowed)
	assert.Equal(t, domain.KindTransient, d.Reason)

	err := d.Err("create price book item")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, "create price book item", domain.ActionOf(err))

	// owner-scoped operations do not depend on the summary
	d = router.Resolve(access.Request{Actor: actor, Kind: access.KindCustomer, Op: access.OpCreate})
	assert.True(t, d.Allowed)
}

func TestResolve_InvalidInput(t *testing.T) {
	router := access.NewRouter(access.DefaultConfig())

	d := router.Resolve(access.Request{Actor: admin("root"), Kind: "invoice", Op: access.OpRead})
	assert.Equal(t, domain.KindInvalid, d.Reason)

	d = router.Resolve(access.Request{Actor: admin("root"), Kind: access.KindCustomer, Op: "archive"})
	assert.Equal(t, domain.KindInvalid, d.Reason)

	d = router.Resolve(access.Request{Actor: admin("root"), Kind: access.KindMetadata, Op: access.OpRead})
	assert.Equal(t, domain.KindInvalid, d.Reason)
}

func TestResolve_Idempotent(t *testing.T) {
	router := access.NewRouter(access.DefaultConfig())
	actors := []*access.Actor{nil, standard("alice"), admin("root"), {ID: "boot", SummaryUnavailable: true}}

	for _, actor := range actors {
		for _, kind := range allKinds {
			for _, op := range allOps {
				req := access.Request{Actor: actor, Kind: kind, Op: op, OwnerID: "alice", Name: access.MetadataCurrencies}
				first := router.Resolve(req)
				second := router.Resolve(req)
				assert.Equal(t, first, second)
			}
		}
	}
}

func TestDecision_ErrNilWhenAllowed(t *testing.T) {
	d := access.Decision{Allowed: true}
	assert.NoError(t, d.Err("read customer"))
}
