package handlers

import (
	"context"

	"github.com/Steiynbrodt/Osint-Mindmap/application/commands"
	"github.com/Steiynbrodt/Osint-Mindmap/application/commands/bus"
	"github.com/Steiynbrodt/Osint-Mindmap/application/persistence"
	"github.com/Steiynbrodt/Osint-Mindmap/application/services"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

type binding struct {
	cmd bus.Command
	fn  bus.CommandHandlerFunc
}

func register(b *bus.CommandBus, bindings []binding) error {
	for _, bd := range bindings {
		if err := b.Register(bd.cmd, bd.fn); err != nil {
			return err
		}
	}
	return nil
}

// Accepted is returned by commands that only schedule background work
type Accepted struct {
	NodeID string `json:"node_id"`
	Task   string `json:"task"`
}

// ImportResult summarises an import
type ImportResult struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// ServiceHandlers executes resolution, enrichment, drop and import commands
type ServiceHandlers struct {
	resolver    *services.Resolver
	enrichment  *services.EnrichmentService
	ingestion   *services.IngestionService
	persistence *persistence.Service
}

// NewServiceHandlers creates the service command handlers
func NewServiceHandlers(
	resolver *services.Resolver,
	enrichment *services.EnrichmentService,
	ingestion *services.IngestionService,
	persist *persistence.Service,
) *ServiceHandlers {
	return &ServiceHandlers{
		resolver:    resolver,
		enrichment:  enrichment,
		ingestion:   ingestion,
		persistence: persist,
	}
}

// Register binds the service commands to the bus
func (h *ServiceHandlers) Register(b *bus.CommandBus) error {
	return register(b, []binding{
		{commands.ResolveNodeCommand{}, h.resolve},
		{commands.EnrichNodeCommand{}, h.enrich},
		{commands.DropCommand{}, h.drop},
		{commands.ImportDocumentCommand{}, h.importDocument},
	})
}

func (h *ServiceHandlers) resolve(ctx context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.ResolveNodeCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}
	if h.resolver == nil {
		return nil, pkgerrors.NewInternalError("attachment resolver is not configured")
	}
	if cmd.Async {
		h.resolver.ResolveAsync(cmd.NodeID)
		return Accepted{NodeID: cmd.NodeID.String(), Task: "resolve"}, nil
	}
	return h.resolver.Resolve(ctx, cmd.NodeID)
}

func (h *ServiceHandlers) enrich(ctx context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.EnrichNodeCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}
	if h.enrichment == nil {
		return nil, pkgerrors.NewEnrichmentUnavailableError("enrichment is not configured", nil)
	}
	if cmd.Async {
		h.enrichment.EnrichAsync(cmd.NodeID)
		return Accepted{NodeID: cmd.NodeID.String(), Task: "enrich"}, nil
	}
	return h.enrichment.Enrich(ctx, cmd.NodeID)
}

func (h *ServiceHandlers) drop(_ context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.DropCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}
	return h.ingestion.Drop(cmd.DropRequest)
}

func (h *ServiceHandlers) importDocument(ctx context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.ImportDocumentCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}
	if err := h.persistence.ImportJSON(ctx, cmd.Data); err != nil {
		return nil, err
	}
	doc := h.persistence.Export()
	return ImportResult{Nodes: len(doc.Nodes), Edges: len(doc.Edges)}, nil
}
