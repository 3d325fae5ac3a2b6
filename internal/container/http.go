package container

import (
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do"
	"github.com/serroba/link-tracker/internal/analytics"
	"github.com/serroba/link-tracker/internal/capture"
	"github.com/serroba/link-tracker/internal/handlers"
	"github.com/serroba/link-tracker/internal/health"
	"github.com/serroba/link-tracker/internal/middleware"
	"github.com/serroba/link-tracker/internal/tracking"
	"go.uber.org/zap"
)

// HTTPPackage provides the router and the huma API with every route mounted.
// Invoking huma.API triggers route registration.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		router := chi.NewMux()
		router.Handle("/metrics", promhttp.Handler())

		return router, nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)
		repo := do.MustInvoke[tracking.Repository](i)
		stats := do.MustInvoke[analytics.StatsReader](i)
		coordinator := do.MustInvoke[*capture.Coordinator](i)
		registry := do.MustInvoke[*capture.Registry](i)
		redisClient := do.MustInvoke[*RedisClient](i)
		pool := do.MustInvoke[*PostgresPool](i)

		generateID, err := nanoid.Standard(opts.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("invalid code length %d: %w", opts.CodeLength, err)
		}

		api := humachi.New(router, huma.DefaultConfig("Link Tracker", "1.0.0"))
		api.UseMiddleware(middleware.RequestMeta(api))

		linkHandler := handlers.NewLinkHandler(repo, stats, opts.PublicBaseURL(), generateID, logger)
		trackHandler := handlers.NewTrackHandler(coordinator, registry, uuid.NewString, logger)
		healthHandler := health.NewHandler(map[string]health.Checker{
			"redis":    health.NewRedisChecker(redisClient.Client),
			"postgres": health.NewPostgresChecker(pool.Pool),
		})

		handlers.RegisterRoutes(api, trackHandler)
		handlers.RegisterLinkRoutes(api, linkHandler)
		health.RegisterRoutes(api, healthHandler)

		return api, nil
	})
}
