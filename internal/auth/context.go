package auth

import (
	"context"

	"github.com/straye-as/crm-api/internal/access"
)

type contextKey string

const actorContextKey contextKey = "actor"
const identityContextKey contextKey = "identity"
const actorSlotContextKey contextKey = "actor_slot"

type actorSlot struct {
	actor *access.Actor
}

// WithActor adds the resolved actor to the context. A slot installed by TrackActor
// further up the chain is filled as well.
func WithActor(ctx context.Context, actor *access.Actor) context.Context {
	if slot, ok := ctx.Value(actorSlotContextKey).(*actorSlot); ok {
		slot.actor = actor
	}
	return context.WithValue(ctx, actorContextKey, actor)
}

// TrackActor lets middleware that runs before authentication see the actor resolved
// later in the chain. The returned func reports it once the handler has returned.
func TrackActor(ctx context.Context) (context.Context, func() *access.Actor) {
	slot := &actorSlot{}
	return context.WithValue(ctx, actorSlotContextKey, slot), func() *access.Actor {
		if actor := ActorFromContext(ctx); actor != nil {
			return actor
		}
		return slot.actor
	}
}

// ActorFromContext returns the actor, or nil for unauthenticated requests
func ActorFromContext(ctx context.Context) *access.Actor {
	actor, _ := ctx.Value(actorContextKey).(*access.Actor)
	return actor
}

// WithIdentity adds the verified token identity to the context
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext returns the verified identity, if any
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	return identity, ok && identity != nil
}
