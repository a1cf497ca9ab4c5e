// Package access is the single authority for "may this actor perform this operation on
// this resource, and where does the resource live". Resolve is a pure function of its
// input and the router's static configuration; callers must honour a denial before
// touching the document store.
package access

import (
	"github.com/straye-as/crm-api/internal/domain"
)

// ResourceKind identifies the family of documents an operation targets
type ResourceKind string

const (
	KindCustomer      ResourceKind = "customer"
	KindOpportunity   ResourceKind = "opportunity"
	KindPriceBookItem ResourceKind = "priceBookItem"
	KindUserRecord    ResourceKind = "userRecord"
	KindMetadata      ResourceKind = "metadata"
)

// IsValid reports whether k is a known resource kind
func (k ResourceKind) IsValid() bool {
	switch k {
	case KindCustomer, KindOpportunity, KindPriceBookItem, KindUserRecord, KindMetadata:
		return true
	}
	return false
}

// Operation is the CRUD verb being attempted. For userRecord, OpUpdate is the role edit.
type Operation string

const (
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Scope is the logical storage area a decision routes to
type Scope string

const (
	ScopePublic   Scope = "public"
	ScopePrivate  Scope = "private"
	ScopeMetadata Scope = "metadata"
)

// Actor is the authenticated identity attempting an operation. A nil *Actor means the
// request is unauthenticated.
type Actor struct {
	ID          string
	Email       string
	DisplayName string
	// Role is the role read from the actor's own user record; empty if none exists yet
	Role domain.Role
	// SessionAdmin is the non-persisted bootstrap grant
	SessionAdmin bool
	// SummaryUnavailable is set when the actor is the bootstrap identity and the admin
	// summary could not be read. Admin-only operations then fail with Transient.
	SummaryUnavailable bool
}

// EffectiveRole is the role the policy applies. Unknown roles fall back to Standard.
func (a *Actor) EffectiveRole() domain.Role {
	if a == nil {
		return ""
	}
	if a.SessionAdmin || a.Role == domain.RoleAdmin {
		return domain.RoleAdmin
	}
	return domain.RoleStandard
}

// IsAdmin reports whether the policy treats the actor as Admin
func (a *Actor) IsAdmin() bool {
	return a.EffectiveRole() == domain.RoleAdmin
}

// Request is the input of Resolve
type Request struct {
	Actor *Actor
	Kind  ResourceKind
	Op    Operation
	// OwnerID is the creator of an existing customer/opportunity, or the target uid of a
	// userRecord operation. Empty means unknown.
	OwnerID string
	// Collection marks a list read or subscription rather than a single document
	Collection bool
	// Name selects the metadata document (countries, currencies)
	Name string
}

// Decision is the result of Resolve. When Allowed is false, Reason is set and Path is empty.
type Decision struct {
	Allowed bool
	Scope   Scope
	// Path is the collection path for collection operations, or the document path when
	// the request addresses a single user record or metadata document.
	Path string
	// OwnerFilter restricts a collection read to documents whose creatorId equals it
	OwnerFilter string
	// AssignOwner is the creatorId a create must stamp on the new document
	AssignOwner string
	Reason      domain.ErrorKind
}

// Err converts a denial into a classified error for action. It returns nil when allowed.
func (d Decision) Err(action string) error {
	if d.Allowed {
		return nil
	}
	return domain.NewError(d.Reason, action, nil)
}

// Router resolves requests against the policy table
type Router struct {
	publicReadable map[ResourceKind]bool
}

// Config holds the static part of the policy
type Config struct {
	// PublicReadable lists kinds that unauthenticated callers may read
	PublicReadable []ResourceKind
}

// DefaultConfig makes reference metadata public-readable and nothing else
func DefaultConfig() Config {
	return Config{PublicReadable: []ResourceKind{KindMetadata}}
}

// NewRouter creates a router with the given static configuration
func NewRouter(cfg Config) *Router {
	r := &Router{publicReadable: make(map[ResourceKind]bool)}
	for _, k := range cfg.PublicReadable {
		r.publicReadable[k] = true
	}
	return r
}

// IsPublicReadable reports whether unauthenticated reads of kind are permitted
func (r *Router) IsPublicReadable(kind ResourceKind) bool {
	return r.publicReadable[kind]
}

// Resolve decides whether req is allowed and where it routes
func (r *Router) Resolve(req Request) Decision {
	if !req.Kind.IsValid() {
		return deny(domain.KindInvalid)
	}
	switch req.Op {
	case OpRead, OpCreate, OpUpdate, OpDelete:
	default:
		return deny(domain.KindInvalid)
	}

	if req.Actor == nil {
		return r.resolveAnonymous(req)
	}

	switch req.Kind {
	case KindCustomer, KindOpportunity:
		return resolveOwned(req)
	case KindPriceBookItem:
		if d, ok := adminOnly(req.Actor); !ok {
			return d
		}
		return allow(ScopePublic, CollectionPath(req.Kind))
	case KindUserRecord:
		return resolveUserRecord(req)
	case KindMetadata:
		return resolveMetadata(req)
	}
	return deny(domain.KindInvalid)
}

func (r *Router) resolveAnonymous(req Request) Decision {
	if req.Op != OpRead || !r.publicReadable[req.Kind] {
		return deny(domain.KindAuthRequired)
	}
	switch req.Kind {
	case KindMetadata:
		if req.Name == "" {
			return deny(domain.KindInvalid)
		}
		return allow(ScopeMetadata, MetadataPath(req.Name))
	case KindUserRecord:
		// user records are never public
		return deny(domain.KindAuthRequired)
	default:
		return allow(ScopePublic, CollectionPath(req.Kind))
	}
}

func resolveOwned(req Request) Decision {
	a := req.Actor
	path := CollectionPath(req.Kind)
	admin := a.IsAdmin()

	switch req.Op {
	case OpCreate:
		d := allow(ScopePublic, path)
		d.AssignOwner = a.ID
		return d
	case OpRead:
		if admin {
			return allow(ScopePublic, path)
		}
		if req.Collection {
			d := allow(ScopePublic, path)
			d.OwnerFilter = a.ID
			return d
		}
		if req.OwnerID == "" || req.OwnerID != a.ID {
			return deny(domain.KindAccessDenied)
		}
		return allow(ScopePublic, path)
	default: // update, delete
		if admin {
			return allow(ScopePublic, path)
		}
		if req.OwnerID == "" || req.OwnerID != a.ID {
			return deny(domain.KindAccessDenied)
		}
		return allow(ScopePublic, path)
	}
}

func resolveUserRecord(req Request) Decision {
	a := req.Actor
	self := req.OwnerID != "" && req.OwnerID == a.ID

	switch req.Op {
	case OpRead:
		if self {
			return allow(ScopePrivate, UserPath(a.ID))
		}
		if d, ok := adminOnly(a); !ok {
			return d
		}
		if req.Collection {
			return allow(ScopePrivate, UsersCollection)
		}
		if req.OwnerID == "" {
			return deny(domain.KindInvalid)
		}
		return allow(ScopePrivate, UserPath(req.OwnerID))
	case OpCreate:
		if self {
			return allow(ScopePrivate, UserPath(a.ID))
		}
		if d, ok := adminOnly(a); !ok {
			return d
		}
		if req.OwnerID == "" {
			return deny(domain.KindInvalid)
		}
		return allow(ScopePrivate, UserPath(req.OwnerID))
	default: // role update, delete
		if self {
			// self role edits and self deletion are forbidden for every role
			return deny(domain.KindAccessDenied)
		}
		if d, ok := adminOnly(a); !ok {
			return d
		}
		if req.OwnerID == "" {
			return deny(domain.KindInvalid)
		}
		return allow(ScopePrivate, UserPath(req.OwnerID))
	}
}

func resolveMetadata(req Request) Decision {
	if req.Name == "" {
		return deny(domain.KindInvalid)
	}
	if req.Op != OpRead {
		if d, ok := adminOnly(req.Actor); !ok {
			return d
		}
	}
	return allow(ScopeMetadata, MetadataPath(req.Name))
}

// adminOnly returns ok=true for admins. Otherwise it returns the denial: Transient when
// the bootstrap state could not be determined, AccessDenied otherwise.
func adminOnly(a *Actor) (Decision, bool) {
	if a.IsAdmin() {
		return Decision{}, true
	}
	if a.SummaryUnavailable {
		return deny(domain.KindTransient), false
	}
	return deny(domain.KindAccessDenied), false
}

func allow(scope Scope, path string) Decision {
	return Decision{Allowed: true, Scope: scope, Path: path}
}

func deny(reason domain.ErrorKind) Decision {
	return Decision{Allowed: false, Reason: reason}
}
