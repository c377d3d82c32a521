//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogLevel,
	ProvideLogger,
	ProvideEventBus,
	ProvideGraph,
	ProvideCanvas,
	ProvideMetrics,
	ProvideTracing,
	ProvideAWSConfig,
	ProvideSnapshotSlot,
	ProvidePersistence,
	ProvideAutosaver,
	ProvideViewportSaver,
	ProvideNotifier,
	ProvideIconProber,
	ProvideResolver,
	ProvideEnrichmentClient,
	ProvideEnrichmentService,
	ProvideIngestion,
	ProvideSearch,
	ProvideViewportHandlers,
	ProvideCommandBus,
	ProvideForwarder,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned cleanup
// flushes autosave and releases every backend.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
