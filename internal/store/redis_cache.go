package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/link-tracker/internal/tracking"
)

// incrOrFence bumps the cached hit count when the link is cached. Otherwise
// it leaves a short-lived fence so a read that loaded the link before this
// increment cannot cache the stale count.
var incrOrFence = redis.NewScript(`
if redis.call("HEXISTS", KEYS[1], "id") == 1 then
	return redis.call("HINCRBY", KEYS[1], "hit_count", 1)
end
redis.call("HSET", KEYS[1], "fence", 1)
redis.call("PEXPIRE", KEYS[1], ARGV[1])
return nil
`)

// cacheIfAbsent populates the cache on a read miss unless the key holds a
// cached link or a fence.
var cacheIfAbsent = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV, 2))
if tonumber(ARGV[1]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return 1
`)

// fenceTTL outlasts a store read racing an increment.
const fenceTTL = 5 * time.Second

// RedisCacheRepository wraps a Repository with Redis caching for link reads.
// Location records always go to the underlying store.
type RedisCacheRepository struct {
	store  tracking.Repository
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCacheRepository creates a new Redis-cached repository decorator.
func NewRedisCacheRepository(
	store tracking.Repository, client redis.UniversalClient, ttl time.Duration,
) *RedisCacheRepository {
	return &RedisCacheRepository{
		store:  store,
		client: client,
		prefix: "link:",
		ttl:    ttl,
	}
}

// CreateLink stores a link in the underlying store and updates the cache.
func (r *RedisCacheRepository) CreateLink(ctx context.Context, link *tracking.Link) error {
	if err := r.store.CreateLink(ctx, link); err != nil {
		return err
	}

	// Write-through: update cache after successful save
	r.cacheLink(ctx, link)

	return nil
}

// GetLink retrieves a link by id, checking cache first.
func (r *RedisCacheRepository) GetLink(ctx context.Context, id tracking.LinkID) (*tracking.Link, error) {
	if link, ok := r.getFromCache(ctx, id); ok {
		return link, nil
	}

	link, err := r.store.GetLink(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheLinkIfAbsent(ctx, link)

	return link, nil
}

// IncrementHits increments in the underlying store, then mirrors the
// increment into the cached copy or fences the key if there is none.
func (r *RedisCacheRepository) IncrementHits(ctx context.Context, id tracking.LinkID) error {
	if err := r.store.IncrementHits(ctx, id); err != nil {
		return err
	}

	if err := incrOrFence.Run(ctx, r.client, []string{r.key(id)}, fenceTTL.Milliseconds()).Err(); err != nil && !errors.Is(err, redis.Nil) {
		r.invalidate(ctx, id)
	}

	return nil
}

func (r *RedisCacheRepository) SaveLocation(ctx context.Context, id tracking.LinkID, record *tracking.LocationRecord) error {
	return r.store.SaveLocation(ctx, id, record)
}

// ListLinks always reads from the store; hit counts in the list must be fresh.
func (r *RedisCacheRepository) ListLinks(ctx context.Context) ([]*tracking.Link, error) {
	return r.store.ListLinks(ctx)
}

// DeleteLink deletes from the store and drops the cached copy.
func (r *RedisCacheRepository) DeleteLink(ctx context.Context, id tracking.LinkID) error {
	if err := r.store.DeleteLink(ctx, id); err != nil {
		return err
	}

	r.invalidate(ctx, id)

	return nil
}

func (r *RedisCacheRepository) ListLocations(ctx context.Context, id tracking.LinkID) ([]*tracking.LocationRecord, error) {
	return r.store.ListLocations(ctx, id)
}

func (r *RedisCacheRepository) key(id tracking.LinkID) string {
	return r.prefix + string(id)
}

func (r *RedisCacheRepository) getFromCache(ctx context.Context, id tracking.LinkID) (*tracking.Link, bool) {
	result, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil || result["id"] == "" {
		return nil, false
	}

	link := &tracking.Link{
		ID:             tracking.LinkID(result["id"]),
		Name:           result["name"],
		DestinationURL: result["destination_url"],
	}

	if hits, err := strconv.ParseInt(result["hit_count"], 10, 64); err == nil {
		link.HitCount = hits
	}

	if ts, ok := result["created_at"]; ok {
		if nanos, err := strconv.ParseInt(ts, 10, 64); err == nil {
			link.CreatedAt = time.Unix(0, nanos).UTC()
		}
	}

	return link, true
}

func (r *RedisCacheRepository) cacheLink(ctx context.Context, link *tracking.Link) {
	pipe := r.client.TxPipeline()
	key := r.key(link.ID)

	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, linkFields(link)...)

	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	_, _ = pipe.Exec(ctx)
}

func (r *RedisCacheRepository) cacheLinkIfAbsent(ctx context.Context, link *tracking.Link) {
	args := append([]any{r.ttl.Milliseconds()}, linkFields(link)...)

	_ = cacheIfAbsent.Run(ctx, r.client, []string{r.key(link.ID)}, args...).Err()
}

func linkFields(link *tracking.Link) []any {
	return []any{
		"id", string(link.ID),
		"name", link.Name,
		"destination_url", link.DestinationURL,
		"hit_count", link.HitCount,
		"created_at", link.CreatedAt.UnixNano(),
	}
}

func (r *RedisCacheRepository) invalidate(ctx context.Context, id tracking.LinkID) {
	_ = r.client.Del(ctx, r.key(id)).Err()
}

// Shutdown is a no-op for RedisCacheRepository (client managed externally).
func (r *RedisCacheRepository) Shutdown() error {
	return nil
}

// Compile-time check.
var _ tracking.Repository = (*RedisCacheRepository)(nil)
