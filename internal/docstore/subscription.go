package docstore

import (
	"context"
	"sync"
)

// Subscription is a live query. Snapshots are delivered on Snapshots() until Stop is
// called or the parent context ends; the channel is closed afterwards.
type Subscription struct {
	snapshots chan Snapshot
	cancel    context.CancelFunc
	done      chan struct{}
	once      sync.Once
}

// startSubscription runs producer on its own goroutine. producer must return once ctx is done.
func startSubscription(parent context.Context, producer func(ctx context.Context, emit func(Snapshot) bool)) *Subscription {
	ctx, cancel := context.WithCancel(parent)
	s := &Subscription{
		snapshots: make(chan Snapshot, 1),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	emit := func(snap Snapshot) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		select {
		case s.snapshots <- snap:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(s.done)
		defer close(s.snapshots)
		producer(ctx, emit)
	}()
	return s
}

// Snapshots returns the delivery channel
func (s *Subscription) Snapshots() <-chan Snapshot {
	return s.snapshots
}

// Done is closed once the subscription has fully stopped
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Stop cancels the subscription and waits until no further snapshot can be delivered.
// It is safe to call more than once.
func (s *Subscription) Stop() {
	s.once.Do(s.cancel)
	<-s.done
}
