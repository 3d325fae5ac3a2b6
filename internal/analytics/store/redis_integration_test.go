//go:build integration

package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/link-tracker/internal/analytics"
	"github.com/serroba/link-tracker/internal/analytics/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}

	return "localhost:6379"
}

func TestRedisStatsIntegration(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: getRedisAddr()})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	s := store.NewRedisStats(client)
	linkID := "statsintegration1"

	t.Cleanup(func() { _ = s.DeleteLinkStats(ctx, linkID) })

	require.NoError(t, s.SaveVisitDispatched(ctx, &analytics.VisitDispatchedEvent{
		LinkID: linkID, Trigger: "deadline", Status: "redirect",
	}))
	require.NoError(t, s.SaveVisitDispatched(ctx, &analytics.VisitDispatchedEvent{
		LinkID: linkID, Trigger: "device_success", Status: "done",
	}))
	require.NoError(t, s.SaveLocationRecorded(ctx, &analytics.LocationRecordedEvent{
		LinkID: linkID, Source: "gps", Late: true, Country: "Chile",
	}))

	stats, err := s.LinkStats(ctx, linkID)

	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Visits)
	assert.Equal(t, int64(1), stats.Redirected)
	assert.Equal(t, int64(1), stats.Triggers["deadline"])
	assert.Equal(t, int64(1), stats.Sources["gps"])
	assert.Equal(t, int64(1), stats.LateRecords)
	assert.Equal(t, int64(1), stats.Countries["Chile"])

	require.NoError(t, s.DeleteLinkStats(ctx, linkID))

	stats, err = s.LinkStats(ctx, linkID)

	require.NoError(t, err)
	assert.Zero(t, stats.Visits)
}
