package geoip_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/serroba/link-tracker/internal/geoip"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32, *atomic.Value) {
	t.Helper()

	var (
		calls atomic.Int32
		path  atomic.Value
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		path.Store(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv, &calls, &path
}

func TestClient_Lookup(t *testing.T) {
	t.Run("maps the service payload", func(t *testing.T) {
		srv, _, path := newServer(t, http.StatusOK, `{
			"ip": "203.0.113.7",
			"city": "Lisbon",
			"region": "Lisbon",
			"country_name": "Portugal",
			"org": "Example ISP",
			"timezone": "Europe/Lisbon",
			"latitude": 38.72,
			"longitude": -9.14
		}`)
		client := geoip.NewClient(srv.URL, zap.NewNop())

		info, err := client.Lookup(context.Background(), "203.0.113.7")

		require.NoError(t, err)
		assert.Equal(t, "/203.0.113.7/json/", path.Load())
		assert.Equal(t, "203.0.113.7", info.IP)
		assert.Equal(t, "Lisbon", info.City)
		assert.Equal(t, "Portugal", info.Country)
		assert.Equal(t, "Example ISP", info.Org)
		assert.Equal(t, "Europe/Lisbon", info.Timezone)
		require.True(t, info.HasCoordinates())
		assert.InDelta(t, 38.72, *info.Latitude, 1e-9)
		assert.InDelta(t, -9.14, *info.Longitude, 1e-9)
	})

	t.Run("missing fields stay empty", func(t *testing.T) {
		srv, _, _ := newServer(t, http.StatusOK, `{"ip": "203.0.113.7"}`)
		client := geoip.NewClient(srv.URL, zap.NewNop())

		info, err := client.Lookup(context.Background(), "203.0.113.7")

		require.NoError(t, err)
		assert.Empty(t, info.City)
		assert.False(t, info.HasCoordinates())
	})

	t.Run("zero coordinates count as absent", func(t *testing.T) {
		srv, _, _ := newServer(t, http.StatusOK, `{"ip": "203.0.113.7", "latitude": 0, "longitude": 0}`)
		client := geoip.NewClient(srv.URL, zap.NewNop())

		info, err := client.Lookup(context.Background(), "203.0.113.7")

		require.NoError(t, err)
		assert.Nil(t, info.Latitude)
		assert.Nil(t, info.Longitude)
	})

	t.Run("error payload is a failure", func(t *testing.T) {
		srv, _, _ := newServer(t, http.StatusOK, `{"error": true, "reason": "RateLimited"}`)
		client := geoip.NewClient(srv.URL, zap.NewNop())

		_, err := client.Lookup(context.Background(), "203.0.113.7")

		require.ErrorIs(t, err, geoip.ErrLookupFailed)
		assert.Contains(t, err.Error(), "RateLimited")
	})

	t.Run("non 200 status is a failure", func(t *testing.T) {
		srv, _, _ := newServer(t, http.StatusTooManyRequests, `{}`)
		client := geoip.NewClient(srv.URL, zap.NewNop())

		_, err := client.Lookup(context.Background(), "203.0.113.7")

		assert.ErrorIs(t, err, geoip.ErrLookupFailed)
	})

	t.Run("malformed body is a failure", func(t *testing.T) {
		srv, _, _ := newServer(t, http.StatusOK, `not json`)
		client := geoip.NewClient(srv.URL, zap.NewNop())

		_, err := client.Lookup(context.Background(), "203.0.113.7")

		assert.ErrorIs(t, err, geoip.ErrLookupFailed)
	})

	t.Run("private addresses are not looked up", func(t *testing.T) {
		srv, calls, _ := newServer(t, http.StatusOK, `{}`)
		client := geoip.NewClient(srv.URL, zap.NewNop())

		for _, ip := range []string{"127.0.0.1", "10.0.0.4", "192.168.1.10", "::1", "", "garbage"} {
			_, err := client.Lookup(context.Background(), ip)
			assert.ErrorIs(t, err, geoip.ErrNonPublicIP, ip)
		}

		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("respects the caller deadline", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		t.Cleanup(srv.Close)

		client := geoip.NewClient(srv.URL, zap.NewNop())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := client.Lookup(ctx, "203.0.113.7")

		assert.ErrorIs(t, err, geoip.ErrLookupFailed)
	})

	t.Run("opens the breaker after repeated failures", func(t *testing.T) {
		srv, calls, _ := newServer(t, http.StatusInternalServerError, `{}`)
		client := geoip.NewClient(srv.URL, zap.NewNop())

		for range 10 {
			_, _ = client.Lookup(context.Background(), "203.0.113.7")
		}

		_, err := client.Lookup(context.Background(), "203.0.113.7")

		assert.ErrorIs(t, err, gobreaker.ErrOpenState)
		assert.Equal(t, int32(10), calls.Load())
	})
}
