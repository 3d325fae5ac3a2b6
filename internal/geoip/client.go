package geoip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/serroba/link-tracker/internal/metrics"
	"github.com/serroba/link-tracker/internal/tracking"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public ipapi.co endpoint.
const DefaultBaseURL = "https://ipapi.co"

const maxBodySize = 64 << 10

var (
	ErrNonPublicIP  = errors.New("ip address is not publicly routable")
	ErrLookupFailed = errors.New("ip lookup failed")
)

// response is the subset of the ipapi.co payload we keep.
type response struct {
	IP        string   `json:"ip"`
	City      string   `json:"city"`
	Region    string   `json:"region"`
	Country   string   `json:"country_name"`
	Org       string   `json:"org"`
	Timezone  string   `json:"timezone"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// Client looks up IP context from an ipapi.co compatible service. Calls go
// through a circuit breaker so a failing service is skipped quickly.
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[*tracking.IPInfo]
	logger  *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.http = c
	}
}

// NewClient creates a lookup client against baseURL.
func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	metrics.IPLookupBreakerState.Set(0)

	c.cb = gobreaker.NewCircuitBreaker[*tracking.IPInfo](gobreaker.Settings{
		Name:        "ip-lookup",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNonPublicIP)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.IPLookupBreakerState.Set(stateToFloat(to))
		},
	})

	return c
}

// Lookup returns the context of ip. The caller bounds it with ctx.
func (c *Client) Lookup(ctx context.Context, ip string) (*tracking.IPInfo, error) {
	info, err := c.cb.Execute(func() (*tracking.IPInfo, error) {
		return c.fetch(ctx, ip)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.IPLookups.WithLabelValues("rejected").Inc()

		return nil, err
	case err != nil:
		metrics.IPLookups.WithLabelValues("failure").Inc()

		return nil, err
	}

	metrics.IPLookups.WithLabelValues("success").Inc()

	return info, nil
}

func (c *Client) fetch(ctx context.Context, ip string) (*tracking.IPInfo, error) {
	if !isPublic(ip) {
		return nil, fmt.Errorf("%w: %q", ErrNonPublicIP, ip)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+ip+"/json/", nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrLookupFailed, err)
	}

	if body.Error {
		return nil, fmt.Errorf("%w: %s", ErrLookupFailed, body.Reason)
	}

	return &tracking.IPInfo{
		IP:        body.IP,
		City:      body.City,
		Region:    body.Region,
		Country:   body.Country,
		Org:       body.Org,
		Timezone:  body.Timezone,
		Latitude:  nonZero(body.Latitude),
		Longitude: nonZero(body.Longitude),
	}, nil
}

// nonZero drops a zero coordinate; the service reports 0 when it has no fix.
func nonZero(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}

	return v
}

func isPublic(ip string) bool {
	addr := net.ParseIP(ip)
	if addr == nil {
		return false
	}

	return !addr.IsLoopback() && !addr.IsPrivate() && !addr.IsUnspecified() &&
		!addr.IsLinkLocalUnicast() && !addr.IsMulticast()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
