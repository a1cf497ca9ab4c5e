// Package live tracks the live subscriptions held open for client views. Each client of
// an actor holds at most one; opening a new one stops the previous one first.
package live

import (
	"context"
	"errors"
	"sync"

	"github.com/straye-as/crm-api/internal/docstore"
	"go.uber.org/zap"
)

// ErrMissingClient is returned when a subscription is requested without a client id
var ErrMissingClient = errors.New("missing client id")

// ErrClosed is returned by Acquire once the registry has been closed
var ErrClosed = errors.New("live registry closed")

// OpenFunc opens the subscription for a view
type OpenFunc func(ctx context.Context) (*docstore.Subscription, error)

// Registry owns the active subscription of every client. Clients are scoped to the
// actor that opened them, so two actors may reuse the same client id.
type Registry struct {
	mu     sync.Mutex
	active map[viewerKey]*Handle
	closed bool
	logger *zap.Logger
}

type viewerKey struct {
	actorID  string
	clientID string
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		active: make(map[viewerKey]*Handle),
		logger: logger,
	}
}

// Handle is one registered subscription. Release it on every exit path.
type Handle struct {
	registry *Registry
	key      viewerKey
	view     string
	sub      *docstore.Subscription
	once     sync.Once
}

// Acquire stops the client's current subscription, if any, and then opens and
// registers a new one for view. The registry lock is not held while the previous
// subscription drains or while open runs.
func (r *Registry) Acquire(ctx context.Context, actorID, clientID, view string, open OpenFunc) (*Handle, error) {
	if clientID == "" {
		return nil, ErrMissingClient
	}
	key := viewerKey{actorID: actorID, clientID: clientID}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	prev := r.active[key]
	delete(r.active, key)
	r.mu.Unlock()

	if prev != nil {
		prev.sub.Stop()
		r.logger.Debug("live subscription replaced",
			zap.String("actor_id", actorID),
			zap.String("client_id", clientID),
			zap.String("previous_view", prev.view),
			zap.String("view", view),
		)
	}

	sub, err := open(ctx)
	if err != nil {
		return nil, err
	}

	h := &Handle{registry: r, key: key, view: view, sub: sub}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		sub.Stop()
		return nil, ErrClosed
	}
	// a concurrent Acquire for the same client may have registered first; the newest wins
	displaced := r.active[key]
	r.active[key] = h
	r.mu.Unlock()

	if displaced != nil {
		displaced.sub.Stop()
	}
	return h, nil
}

// Active returns the view the actor's client is subscribed to, if any
func (r *Registry) Active(actorID, clientID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.active[viewerKey{actorID: actorID, clientID: clientID}]
	if !ok {
		return "", false
	}
	return h.view, true
}

// Len returns the number of active subscriptions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Close stops every subscription
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	handles := make([]*Handle, 0, len(r.active))
	for id, h := range r.active {
		handles = append(handles, h)
		delete(r.active, id)
	}
	r.mu.Unlock()

	for _, h := range handles {
		h.sub.Stop()
	}
}

// Snapshots delivers the subscription's snapshots. The channel closes when the
// subscription is stopped, including when a newer one replaces it.
func (h *Handle) Snapshots() <-chan docstore.Snapshot {
	return h.sub.Snapshots()
}

// View returns the view this handle was acquired for
func (h *Handle) View() string {
	return h.view
}

// Release stops the subscription and unregisters it if it is still the client's
// current one. It is safe to call more than once.
func (h *Handle) Release() {
	h.once.Do(func() {
		r := h.registry
		r.mu.Lock()
		if cur, ok := r.active[h.key]; ok && cur == h {
			delete(r.active, h.key)
		}
		r.mu.Unlock()
		h.sub.Stop()
	})
}
