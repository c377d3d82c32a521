// Package di wires the canvas engine together.
package di

import (
	"context"

	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/application/commands/bus"
	"github.com/Steiynbrodt/Osint-Mindmap/application/commands/handlers"
	"github.com/Steiynbrodt/Osint-Mindmap/application/persistence"
	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/application/queries"
	"github.com/Steiynbrodt/Osint-Mindmap/application/services"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/aggregates"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/events"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/viewport"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/config"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/enrichment"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/messaging/eventbridge"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/observability"
	"github.com/Steiynbrodt/Osint-Mindmap/interfaces/http/rest"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

// Container holds all application dependencies. Autosaver and Forwarder are
// nil when their feature is switched off.
type Container struct {
	Config           *config.Config
	Logger           *zap.Logger
	LogLevel         zap.AtomicLevel
	EventBus         *events.Bus
	Graph            *aggregates.Graph
	Canvas           *viewport.Canvas
	Slot             ports.SnapshotSlot
	Persistence      *persistence.Service
	Autosaver        *persistence.Autosaver
	ViewportSaver    *persistence.ViewportSaver
	Notifier         *services.Notifier
	Resolver         *services.Resolver
	EnrichmentClient *enrichment.Client
	Enrichment       *services.EnrichmentService
	Ingestion        *services.IngestionService
	Search           *queries.SearchHandler
	ViewportHandlers *handlers.ViewportHandlers
	CommandBus       *bus.CommandBus
	Metrics          *observability.Collector
	Tracing          *observability.TracerProvider
	Forwarder        *eventbridge.Forwarder
}

// Startup restores the saved graph and the cached viewport
func (c *Container) Startup(ctx context.Context) error {
	if err := c.Persistence.LoadInitial(ctx); err != nil {
		return err
	}
	c.Logger.Info("Graph loaded",
		zap.Int("nodes", c.Graph.NodeCount()),
		zap.Int("edges", c.Graph.EdgeCount()))

	state, err := c.Persistence.LoadViewport(ctx)
	switch {
	case err == nil:
		if err := c.Canvas.Restore(state); err != nil {
			c.Logger.Warn("Ignoring cached viewport", zap.Error(err))
		}
	case pkgerrors.IsNotFound(err):
	default:
		c.Logger.Warn("Failed to read cached viewport", zap.Error(err))
	}
	c.ViewportHandlers.Minimap()
	return nil
}

// ApplyRuntime applies a hot-reloaded configuration subset
func (c *Container) ApplyRuntime(rt config.Runtime) {
	if lvl, err := zap.ParseAtomicLevel(rt.LogLevel); err == nil {
		c.LogLevel.SetLevel(lvl.Level())
	} else {
		c.Logger.Warn("Ignoring invalid log level", zap.String("level", rt.LogLevel))
	}
	c.Enrichment.SetEnabled(rt.EnrichmentEnabled)
	c.EnrichmentClient.SetTimeout(rt.EnrichmentTimeout)
	c.Resolver.SetExtraRules(rt.ExtraIconRules)
	if c.Autosaver != nil {
		c.Autosaver.SetDebounce(rt.AutosaveDebounce)
	}
	c.Logger.Info("Runtime configuration applied",
		zap.String("logLevel", rt.LogLevel),
		zap.Bool("enrichmentEnabled", rt.EnrichmentEnabled),
		zap.Duration("enrichmentTimeout", rt.EnrichmentTimeout),
		zap.Int("extraIconRules", len(rt.ExtraIconRules)),
		zap.Duration("autosaveDebounce", rt.AutosaveDebounce))
}

// Router builds the HTTP router over the container
func (c *Container) Router() *rest.Router {
	deps := rest.Dependencies{
		Commands:  c.CommandBus,
		Store:     c.Graph,
		Documents: c.Persistence,
		Search:    c.Search,
		Notifier:  c.Notifier,
		View:      c.Canvas,
		Minimap:   c.ViewportHandlers,
		Screen:    c.Canvas,
	}
	if c.Config.Metrics.Enabled {
		deps.Metrics = c.Metrics
		deps.MetricsPath = c.Config.Metrics.Path
	}
	if c.Config.Enrichment.Enabled {
		deps.Enrichment = c.EnrichmentClient
	}
	return rest.NewRouter(deps, rest.Options{
		AllowedOrigins: c.Config.Server.AllowedOrigins,
		MaxBodyBytes:   c.Config.Server.MaxBodyBytes,
	}, c.Logger)
}
