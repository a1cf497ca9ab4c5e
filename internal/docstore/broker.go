package docstore

import (
	"context"
	"sync"
)

// Broker fans change notifications out to subscriptions. Notifications only name the
// collection; subscribers re-read.
type Broker interface {
	Publish(ctx context.Context, collection string) error
	// Listen returns a channel that receives a signal after changes to collection, and a
	// function that releases the listener
	Listen(ctx context.Context, collection string) (<-chan struct{}, func(), error)
}

// LocalBroker is an in-process Broker
type LocalBroker struct {
	mu        sync.Mutex
	next      uint64
	listeners map[string]map[uint64]chan struct{}
}

// NewLocalBroker creates an empty in-process broker
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{listeners: make(map[string]map[uint64]chan struct{})}
}

// Publish signals every listener of collection. Signals coalesce while a listener is busy.
func (b *LocalBroker) Publish(_ context.Context, collection string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.listeners[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Listen registers a listener for collection
func (b *LocalBroker) Listen(_ context.Context, collection string) (<-chan struct{}, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan struct{}, 1)
	if b.listeners[collection] == nil {
		b.listeners[collection] = make(map[uint64]chan struct{})
	}
	b.listeners[collection][id] = ch

	var once sync.Once
	release := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners[collection], id)
			if len(b.listeners[collection]) == 0 {
				delete(b.listeners, collection)
			}
		})
	}
	return ch, release, nil
}

// ListenerCount returns the number of active listeners of collection
func (b *LocalBroker) ListenerCount(collection string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[collection])
}
