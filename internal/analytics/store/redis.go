package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/link-tracker/internal/analytics"
)

const (
	fieldVisits     = "visits"
	fieldRedirected = "redirected"
	fieldLate       = "late"
	prefixTrigger   = "trigger:"
	prefixSource    = "source:"
	prefixCountry   = "country:"
)

// RedisStats aggregates analytics events into one Redis hash per link.
type RedisStats struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStats creates a Redis-backed analytics store.
func NewRedisStats(client redis.UniversalClient) *RedisStats {
	return &RedisStats{
		client: client,
		prefix: "stats:",
	}
}

func (s *RedisStats) key(linkID string) string {
	return s.prefix + linkID
}

func (s *RedisStats) SaveVisitDispatched(ctx context.Context, event *analytics.VisitDispatchedEvent) error {
	key := s.key(event.LinkID)

	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, key, fieldVisits, 1)
	pipe.HIncrBy(ctx, key, prefixTrigger+event.Trigger, 1)

	if event.Status == "redirect" {
		pipe.HIncrBy(ctx, key, fieldRedirected, 1)
	}

	_, err := pipe.Exec(ctx)

	return err
}

func (s *RedisStats) SaveLocationRecorded(ctx context.Context, event *analytics.LocationRecordedEvent) error {
	key := s.key(event.LinkID)

	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, key, prefixSource+event.Source, 1)

	if event.Late {
		pipe.HIncrBy(ctx, key, fieldLate, 1)
	}

	if event.Country != "" {
		pipe.HIncrBy(ctx, key, prefixCountry+event.Country, 1)
	}

	_, err := pipe.Exec(ctx)

	return err
}

// LinkStats returns the aggregated counters for a link. Unknown links yield zero stats.
func (s *RedisStats) LinkStats(ctx context.Context, linkID string) (*analytics.LinkStats, error) {
	fields, err := s.client.HGetAll(ctx, s.key(linkID)).Result()
	if err != nil {
		return nil, err
	}

	return parseStats(fields), nil
}

// DeleteLinkStats drops the counters of a deleted link.
func (s *RedisStats) DeleteLinkStats(ctx context.Context, linkID string) error {
	return s.client.Del(ctx, s.key(linkID)).Err()
}

func parseStats(fields map[string]string) *analytics.LinkStats {
	stats := &analytics.LinkStats{
		Triggers:  map[string]int64{},
		Sources:   map[string]int64{},
		Countries: map[string]int64{},
	}

	for field, raw := range fields {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}

		switch {
		case field == fieldVisits:
			stats.Visits = n
		case field == fieldRedirected:
			stats.Redirected = n
		case field == fieldLate:
			stats.LateRecords = n
		case strings.HasPrefix(field, prefixTrigger):
			stats.Triggers[strings.TrimPrefix(field, prefixTrigger)] = n
		case strings.HasPrefix(field, prefixSource):
			stats.Sources[strings.TrimPrefix(field, prefixSource)] = n
		case strings.HasPrefix(field, prefixCountry):
			stats.Countries[strings.TrimPrefix(field, prefixCountry)] = n
		}
	}

	return stats
}

var (
	_ analytics.Store       = (*RedisStats)(nil)
	_ analytics.StatsReader = (*RedisStats)(nil)
)
