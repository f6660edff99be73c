package api

import (
	"net/http"

	"github.com/Togather-Foundation/conflicts/internal/api/handlers"
	"github.com/Togather-Foundation/conflicts/internal/api/middleware"
	"github.com/Togather-Foundation/conflicts/internal/api/problem"
	"github.com/Togather-Foundation/conflicts/internal/audit"
	"github.com/Togather-Foundation/conflicts/internal/auth"
	"github.com/Togather-Foundation/conflicts/internal/config"
	"github.com/Togather-Foundation/conflicts/internal/domain/events"
	"github.com/Togather-Foundation/conflicts/internal/domain/users"
	"github.com/Togather-Foundation/conflicts/internal/metrics"
	"github.com/Togather-Foundation/conflicts/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Dependencies are the long-lived collaborators the HTTP surface is built on.
type Dependencies struct {
	Config config.Config
	Logger zerolog.Logger
	DB     storage.Adapter
	Hasher *auth.PasswordHasher
	Tokens *auth.JWTManager
	Build  BuildInfo
}

// Router is the fully wrapped HTTP handler. Close releases the rate limiter.
type Router struct {
	http.Handler
	limiter *middleware.RateLimiter
}

func (r *Router) Close() {
	r.limiter.Stop()
}

func NewRouter(deps Dependencies) *Router {
	cfg := deps.Config
	env := cfg.Environment
	logger := deps.Logger

	auditLogger := audit.NewLogger(logger)
	usersService := users.NewService(users.NewRepository(deps.DB), deps.Hasher, deps.Tokens, logger)
	eventsService := events.NewService(events.NewRepository(deps.DB), logger)

	authHandler := handlers.NewAuthHandler(usersService, auditLogger, env)
	eventsHandler := handlers.NewEventsHandler(eventsService, auditLogger, env)
	health := handlers.NewHealthChecker(deps.DB, deps.Build.WithDefaults().Version, deps.Build.WithDefaults().GitCommit)

	limiter := middleware.NewRateLimiter(cfg.RateLimit, env)
	loginLimit := limiter.Limit(middleware.TierLogin)
	publicLimit := limiter.Limit(middleware.TierPublic)
	authenticate := middleware.Authenticate(deps.Tokens, env)
	requireAdmin := middleware.RequireRole(auth.RoleAdmin, env)

	// authenticated wraps handlers that need any valid access token.
	authenticated := func(h http.HandlerFunc) http.Handler {
		return chain(h, publicLimit, authenticate)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", health.Healthz())
	mux.Handle("GET /readyz", health.Readyz())
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("GET /version", VersionHandler(deps.Build, string(deps.DB.Backend())))
	mux.Handle("GET /api/openapi.json", OpenAPIHandler())

	mux.Handle("POST /api/auth/login", chain(http.HandlerFunc(authHandler.Login), loginLimit))
	mux.Handle("POST /api/auth/refresh", chain(http.HandlerFunc(authHandler.Refresh), publicLimit))
	mux.Handle("GET /api/auth/me", authenticated(authHandler.Me))

	mux.Handle("GET /api/events", authenticated(eventsHandler.List))
	mux.Handle("POST /api/events", chain(http.HandlerFunc(eventsHandler.Create), publicLimit, authenticate, requireAdmin))
	mux.Handle("GET /api/events/stats", authenticated(eventsHandler.Stats))
	mux.Handle("GET /api/events/{id}", authenticated(eventsHandler.Get))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", problem.ErrNotFound, env,
			problem.WithDetail("No route matches "+r.URL.Path))
	})

	// The last two read r.Pattern and must sit directly in front of the mux.
	handler := chain(mux,
		middleware.Tracing,
		middleware.CorrelationID(logger),
		middleware.RequestLogging(logger),
		middleware.SecurityHeaders(cfg.IsProduction()),
		middleware.CORS(cfg.CORS, logger),
		middleware.RequestSize(cfg.Server.MaxBodyBytes),
		metrics.HTTPMiddleware,
		middleware.CaptureRoute,
	)
	return &Router{Handler: handler, limiter: limiter}
}

// chain applies middlewares so the first one listed is outermost.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
