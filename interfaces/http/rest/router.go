// Package rest exposes the canvas engine over HTTP.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/application/persistence"
	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/application/queries"
	"github.com/Steiynbrodt/Osint-Mindmap/application/services"
	"github.com/Steiynbrodt/Osint-Mindmap/interfaces/http/rest/handlers"
	"github.com/Steiynbrodt/Osint-Mindmap/interfaces/http/rest/middleware"
	"github.com/Steiynbrodt/Osint-Mindmap/pkg/common"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// MetricsExporter serves and records HTTP metrics
type MetricsExporter interface {
	middleware.HTTPObserver
	Handler() http.Handler
}

// Dependencies are the application pieces the router dispatches to
type Dependencies struct {
	Commands  handlers.Dispatcher
	Store     ports.GraphStore
	Documents *persistence.Service
	Search    *queries.SearchHandler
	Notifier  *services.Notifier
	View      handlers.ViewReader
	Minimap   handlers.MinimapReader
	Screen    handlers.ScreenMapper

	// Metrics is optional; without it /metrics is not served
	Metrics     MetricsExporter
	MetricsPath string
	// Enrichment is pinged by /ready when set
	Enrichment Pinger
}

// Options tune the HTTP surface
type Options struct {
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// Router creates and configures the HTTP router
type Router struct {
	deps    Dependencies
	options Options
	logger  *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(deps Dependencies, options Options, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.MetricsPath == "" {
		deps.MetricsPath = "/metrics"
	}
	return &Router{deps: deps, options: options, logger: logger}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.deps.Metrics != nil {
		router.Use(middleware.Metrics(rt.deps.Metrics))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.options.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.deps.Metrics != nil {
		router.Handle(rt.deps.MetricsPath, rt.deps.Metrics.Handler())
	}

	maxBody := rt.options.MaxBodyBytes
	d := rt.deps

	router.Route("/api/v1", func(r chi.Router) {
		documentHandler := handlers.NewDocumentHandler(d.Commands, d.Documents, maxBody, rt.logger)
		r.Get("/document", documentHandler.Export)
		r.Put("/document", documentHandler.Import)

		r.Route("/nodes", func(r chi.Router) {
			nodeHandler := handlers.NewNodeHandler(d.Commands, d.Store, d.Screen, maxBody, rt.logger)
			r.Get("/", nodeHandler.ListNodes)
			r.Post("/", nodeHandler.CreateNode)
			r.Get("/{nodeID}", nodeHandler.GetNode)
			r.Patch("/{nodeID}", nodeHandler.UpdateNode)
			r.Delete("/{nodeID}", nodeHandler.DeleteNode)
			r.Post("/{nodeID}/attachments", nodeHandler.AddAttachment)
			r.Delete("/{nodeID}/attachments/{index}", nodeHandler.RemoveAttachment)
			r.Post("/{nodeID}/resolve", nodeHandler.ResolveNode)
			r.Post("/{nodeID}/enrich", nodeHandler.EnrichNode)
		})

		r.Route("/edges", func(r chi.Router) {
			edgeHandler := handlers.NewEdgeHandler(d.Commands, d.Store, maxBody, rt.logger)
			r.Post("/", edgeHandler.CreateEdge)
			r.Get("/{edgeID}", edgeHandler.GetEdge)
			r.Patch("/{edgeID}", edgeHandler.UpdateEdge)
			r.Delete("/{edgeID}", edgeHandler.DeleteEdge)
		})

		canvasHandler := handlers.NewCanvasHandler(d.Commands, d.View, d.Minimap, d.Store, maxBody, rt.logger)
		r.Route("/viewport", func(r chi.Router) {
			r.Get("/", canvasHandler.GetViewport)
			r.Post("/pan", canvasHandler.Pan)
			r.Post("/zoom", canvasHandler.Zoom)
			r.Post("/fit", canvasHandler.Fit)
			r.Post("/center", canvasHandler.Center)
			r.Post("/resize", canvasHandler.Resize)
		})
		r.Get("/minimap", canvasHandler.GetMinimap)
		r.Post("/minimap/drag", canvasHandler.DragMinimap)
		r.Get("/selection", canvasHandler.GetSelection)
		r.Put("/selection", canvasHandler.Select)

		workspaceHandler := handlers.NewWorkspaceHandler(d.Commands, d.Search, d.Notifier, d.Screen, maxBody, rt.logger)
		r.Post("/drop", workspaceHandler.Drop)
		r.Get("/search", workspaceHandler.Search)
		r.Get("/notifications", workspaceHandler.Notifications)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"nodes":  rt.deps.Store.NodeCount(),
		"edges":  rt.deps.Store.EdgeCount(),
	})
}

// readinessCheck reports an unreachable enrichment backend as degraded
// and still answers 200
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	checks := map[string]string{}
	if rt.deps.Enrichment != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := rt.deps.Enrichment.Ping(ctx); err != nil {
			checks["enrichment"] = "unavailable"
		} else {
			checks["enrichment"] = "ok"
		}
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": checks,
	})
}
