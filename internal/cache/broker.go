package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v9"
	"go.uber.org/zap"
)

// RedisBroker fans document change notifications out through Redis pub/sub so every API
// instance sharing the SQL store sees every write.
type RedisBroker struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisBroker creates a broker publishing on channels named prefix+collection
func NewRedisBroker(client *redis.Client, prefix string, logger *zap.Logger) *RedisBroker {
	return &RedisBroker{client: client, prefix: prefix, logger: logger}
}

func (b *RedisBroker) channel(collection string) string {
	return b.prefix + collection
}

// Publish notifies listeners that collection changed
func (b *RedisBroker) Publish(ctx context.Context, collection string) error {
	if err := b.client.Publish(ctx, b.channel(collection), collection).Err(); err != nil {
		return fmt.Errorf("failed to publish change for %s: %w", collection, err)
	}
	return nil
}

// Listen subscribes to changes of collection. Signals coalesce while the consumer is busy.
func (b *RedisBroker) Listen(ctx context.Context, collection string) (<-chan struct{}, func(), error) {
	ps := b.client.Subscribe(ctx, b.channel(collection))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", collection, err)
	}

	out := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-done:
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(done)
			if err := ps.Close(); err != nil {
				b.logger.Debug("failed to close redis subscription",
					zap.String("collection", collection),
					zap.Error(err))
			}
		})
	}
	return out, release, nil
}
