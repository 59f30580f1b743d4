package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"nodal/application/commands/bus"
	"nodal/application/ports"
	querybus "nodal/application/queries/bus"
	"nodal/application/services"
	"nodal/interfaces/http/rest/handlers"
	"nodal/interfaces/http/rest/middleware"
	"nodal/pkg/auth"
	pkgerrors "nodal/pkg/errors"
	"nodal/pkg/observability"
)

// Options tunes the HTTP surface
type Options struct {
	EnableCORS     bool
	AllowedOrigins []string

	// AIRateLimit caps chat, summary and Smart View requests per workspace
	// per AIRateWindow. Zero disables the limit.
	AIRateLimit  int
	AIRateWindow time.Duration
}

// Dependencies are the application services the routes dispatch to. The
// optional ones may be nil.
type Dependencies struct {
	CommandBus  *bus.CommandBus
	QueryBus    *querybus.QueryBus
	Workspaces  *services.WorkspaceService
	Gestures    *services.GestureService
	Connections *services.ConnectionService
	SmartView   *services.SmartViewService
	Chat        *services.ChatService

	Events       ports.EventReader
	Lister       ports.WorkspaceLister
	HealthChecks map[string]ports.HealthChecker
	Validator    *auth.JWTValidator
	Limiter      auth.RateLimiter
	Metrics      *observability.Collector
}

// Router creates and configures the HTTP router
type Router struct {
	deps   Dependencies
	opts   Options
	errors *pkgerrors.ErrorHandler
	logger *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(deps Dependencies, opts Options, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *Router {
	if opts.AIRateWindow <= 0 {
		opts.AIRateWindow = time.Minute
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:*"}
	}
	return &Router{deps: deps, opts: opts, errors: errs, logger: logger}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger, rt.deps.Metrics))

	if rt.opts.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	health := handlers.NewHealthHandler(rt.deps.Workspaces, rt.deps.HealthChecks, rt.logger)
	router.Get("/health", health.Health)
	router.Get("/ready", health.Ready)
	if rt.deps.Metrics != nil {
		router.Handle("/metrics", rt.deps.Metrics.Handler())
	}

	canvas := handlers.NewCanvasHandler(rt.deps.CommandBus, rt.deps.QueryBus, rt.deps.Events, rt.errors, rt.logger)
	notes := handlers.NewNoteHandler(rt.deps.CommandBus, rt.deps.QueryBus, rt.deps.Gestures, rt.deps.Chat, rt.deps.Connections, rt.errors, rt.logger)
	zones := handlers.NewZoneHandler(rt.deps.CommandBus, rt.errors, rt.logger)
	connections := handlers.NewConnectionHandler(rt.deps.CommandBus, rt.deps.QueryBus, rt.deps.Connections, rt.errors, rt.logger)
	gestures := handlers.NewGestureHandler(rt.deps.Gestures, rt.errors, rt.logger)
	smartView := handlers.NewSmartViewHandler(rt.deps.SmartView, rt.errors, rt.logger)
	workspaces := handlers.NewWorkspaceHandler(rt.deps.Workspaces, rt.deps.Lister, rt.errors, rt.logger)

	aiLimit := rt.aiRateLimit()

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.deps.Validator, rt.errors, rt.logger))

		r.Get("/workspaces", workspaces.ListWorkspaces)

		r.Route("/workspaces/{workspaceID}", func(r chi.Router) {
			r.Use(middleware.RequireWorkspaceAccess(rt.errors))

			r.Get("/canvas", canvas.GetCanvas)
			r.Get("/canvas/version", canvas.GetVersion)
			r.Patch("/viewport", canvas.UpdateViewport)
			r.Patch("/background/transform", canvas.UpdateBackgroundTransform)
			r.Put("/background", canvas.SetBackground)
			r.Get("/events", canvas.ListEvents)

			r.Route("/notes", func(r chi.Router) {
				r.Post("/", notes.CreateNote)
				r.Post("/at-screen", notes.CreateNoteAtScreen)
				r.Patch("/{noteID}", notes.UpdateNote)
				r.Delete("/{noteID}", notes.DeleteNote)
				r.Post("/{noteID}/fork", notes.ForkNote)
				r.Get("/{noteID}/hover-zone", notes.HoverZone)
				r.Get("/{noteID}/suggestions", notes.Suggestions)
				r.With(aiLimit).Post("/{noteID}/messages", notes.SendMessage)
				r.With(aiLimit).Post("/{noteID}/summarize", notes.Summarize)
			})

			r.Route("/zones", func(r chi.Router) {
				r.Post("/", zones.CreateZone)
				r.Get("/tree", canvas.GetZoneTree)
				r.Patch("/{zoneID}", zones.UpdateZone)
				r.Delete("/{zoneID}", zones.DeleteZone)
				r.Post("/{zoneID}/move", zones.MoveZone)
				r.Post("/{zoneID}/resize", zones.ResizeZone)
			})

			r.Route("/connections", func(r chi.Router) {
				r.Post("/", connections.CreateConnection)
				r.Get("/segments", connections.Segments)
				r.Delete("/{connectionID}", connections.DeleteConnection)
			})

			r.Route("/gestures", func(r chi.Router) {
				r.Post("/drag", gestures.Drag)
				r.Post("/wheel", gestures.Wheel)
				r.Post("/pinch", gestures.Pinch)
				r.Post("/tap", gestures.Tap)
			})

			r.With(aiLimit).Post("/smart-view", smartView.Generate)
		})
	})

	return router
}

// aiRateLimit limits provider-backed routes per workspace
func (rt *Router) aiRateLimit() func(http.Handler) http.Handler {
	if rt.opts.AIRateLimit <= 0 || rt.deps.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(
		rt.deps.Limiter,
		rt.opts.AIRateLimit,
		rt.opts.AIRateWindow,
		func(r *http.Request) string { return "workspace:" + chi.URLParam(r, "workspaceID") },
		rt.errors,
		rt.logger,
	)
}
