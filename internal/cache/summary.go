package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	adminSummaryKey        = "crm:metadata:adminSummary"
	defaultAdminSummaryTTL = time.Minute
	pingTimeout            = 2 * time.Second
)

// SummaryCache caches the admin summary. Only summaries reporting an Admin are ever
// stored, so a hit always means "an Admin exists".
type SummaryCache interface {
	// Get returns nil, nil on a miss
	Get(ctx context.Context) (*domain.AdminSummary, error)
	Set(ctx context.Context, summary *domain.AdminSummary) error
	Evict(ctx context.Context) error
}

type cachedSummary struct {
	HasAnyAdmin bool      `msgpack:"h"`
	AdminCount  int       `msgpack:"c"`
	UpdatedAt   time.Time `msgpack:"u"`
}

type redisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSummaryCache creates a Redis-backed SummaryCache
func NewRedisSummaryCache(client *redis.Client, ttl time.Duration) SummaryCache {
	if ttl <= 0 {
		ttl = defaultAdminSummaryTTL
	}
	return &redisSummaryCache{client: client, ttl: ttl}
}

func (r *redisSummaryCache) Get(ctx context.Context) (*domain.AdminSummary, error) {
	res, err := r.client.Get(ctx, adminSummaryKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var c cachedSummary
	if err := msgpack.Unmarshal([]byte(res), &c); err != nil {
		return nil, err
	}
	if !c.HasAnyAdmin {
		return nil, nil
	}
	return &domain.AdminSummary{HasAnyAdmin: c.HasAnyAdmin, AdminCount: c.AdminCount, UpdatedAt: c.UpdatedAt}, nil
}

// Set stores a positive summary and evicts on a negative one
func (r *redisSummaryCache) Set(ctx context.Context, summary *domain.AdminSummary) error {
	if summary == nil || !summary.HasAnyAdmin {
		return r.Evict(ctx)
	}
	encoded, err := msgpack.Marshal(cachedSummary{
		HasAnyAdmin: summary.HasAnyAdmin,
		AdminCount:  summary.AdminCount,
		UpdatedAt:   summary.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, adminSummaryKey, encoded, r.ttl).Err()
}

func (r *redisSummaryCache) Evict(ctx context.Context) error {
	return r.client.Del(ctx, adminSummaryKey).Err()
}

// NewClient creates a Redis client and verifies the connection
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
