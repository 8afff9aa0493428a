package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kshitizz36/Urumi-AI/pkg/domain"
	"github.com/kshitizz36/Urumi-AI/pkg/gateway"
	"github.com/kshitizz36/Urumi-AI/pkg/ratelimit"
)

// Orchestrator is the subset of pkg/orchestrator.Orchestrator this
// package depends on.
type Orchestrator interface {
	Create(ctx context.Context, sourceIP string, req domain.CreateRequest) (*domain.Store, error)
	Delete(ctx context.Context, id string) (*domain.Store, error)
	Get(ctx context.Context, id string) (*domain.Store, error)
	List(ctx context.Context) ([]*domain.Store, error)
}

// Audit is the subset of pkg/audit/postgres.Log this package depends on.
type Audit interface {
	Append(ctx context.Context, e domain.AuditEntry) error
	Query(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, error)
	HealthPing(ctx context.Context) bool
}

// Repository is the subset of pkg/store/postgres.Repository this
// package depends on for the readiness probe.
type Repository interface {
	HealthPing(ctx context.Context) bool
}

// Deps bundles every collaborator and rate-limit store the routes need.
type Deps struct {
	Orchestrator Orchestrator
	Audit        Audit
	Gateway      gateway.Gateway
	Repository   Repository

	CreateLimit *ratelimit.Store
	DeleteLimit *ratelimit.Store
	GlobalLimit *ratelimit.Store
}

// Register mounts the §4.10/§6 routes on e.
func Register(e *echo.Echo, d Deps) {
	e.HTTPErrorHandler = HTTPErrorHandler

	api := e.Group("/api")
	api.Use(globalWriteRateLimiter(d.GlobalLimit))

	api.POST("/stores", CreateStoreHandler(d.Orchestrator, d.Audit), rateLimiter(d.CreateLimit))
	api.GET("/stores", ListStoresHandler(d.Orchestrator))
	api.GET("/stores/:id", GetStoreHandler(d.Orchestrator))
	api.DELETE("/stores/:id", DeleteStoreHandler(d.Orchestrator, d.Audit), rateLimiter(d.DeleteLimit))

	api.GET("/audit", ListAuditHandler(d.Audit))

	e.GET("/health/live", LivenessHandler())
	e.GET("/health/ready", ReadinessHandler(d.Gateway, d.Repository))
}

// rateLimiter wraps store into echo/middleware's own rate-limiter
// middleware, so the fixed-window §6 numbers are enforced identically
// to how the teacher's stack would wire a stock echo limiter.
func rateLimiter(store *ratelimit.Store) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apiErr(http.StatusInternalServerError, "internal-error", "rate limiter failure")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return apiErr(http.StatusTooManyRequests, "rate-limited", "too many requests")
		},
	})
}

// globalWriteRateLimiter is the 100-per-15-min backstop; GET requests
// are exempt per §6.
func globalWriteRateLimiter(store *ratelimit.Store) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Method == http.MethodGet
		},
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apiErr(http.StatusInternalServerError, "internal-error", "rate limiter failure")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return apiErr(http.StatusTooManyRequests, "rate-limited", "too many requests")
		},
	})
}
