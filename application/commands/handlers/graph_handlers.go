package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/application/commands"
	"github.com/Steiynbrodt/Osint-Mindmap/application/commands/bus"
	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/application/services"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/aggregates"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/entities"
)

// GraphHandlers executes the inspector's node, edge, attachment and
// selection commands against the store
type GraphHandlers struct {
	store    ports.GraphStore
	resolver *services.Resolver
	logger   *zap.Logger
}

// NewGraphHandlers creates the graph command handlers. resolver may be nil.
func NewGraphHandlers(store ports.GraphStore, resolver *services.Resolver, logger *zap.Logger) *GraphHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphHandlers{store: store, resolver: resolver, logger: logger}
}

// Register binds every graph command to the bus
func (h *GraphHandlers) Register(b *bus.CommandBus) error {
	return register(b, []binding{
		{commands.CreateNodeCommand{}, h.createNode},
		{commands.UpdateNodeCommand{}, h.updateNode},
		{commands.DeleteNodeCommand{}, h.deleteNode},
		{commands.CreateEdgeCommand{}, h.createEdge},
		{commands.UpdateEdgeCommand{}, h.updateEdge},
		{commands.DeleteEdgeCommand{}, h.deleteEdge},
		{commands.AddAttachmentCommand{}, h.addAttachment},
		{commands.RemoveAttachmentCommand{}, h.removeAttachment},
		{commands.SelectCommand{}, h.selectItem},
	})
}

func (h *GraphHandlers) createNode(_ context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.CreateNodeCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}

	atts := make([]entities.Attachment, 0, len(cmd.Attachments))
	for _, in := range cmd.Attachments {
		atts = append(atts, in.Attachment())
	}
	id, err := h.store.CreateNodeWith(cmd.Type, cmd.Position, cmd.Patch(), atts...)
	if err != nil {
		return nil, err
	}
	h.logger.Debug("Node created", zap.String("nodeID", id.String()), zap.String("type", string(cmd.Type)))

	if len(atts) > 0 && h.resolver != nil {
		h.resolver.ResolveAsync(id)
	}
	return h.store.Node(id)
}

func (h *GraphHandlers) updateNode(_ context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.UpdateNodeCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}
	if err := h.store.UpdateNode(cmd.NodeID, cmd.Patch); err != nil {
		return nil, err
	}
	return h.store.Node(cmd.NodeID)
}

func (h *GraphHandlers) deleteNode(_ context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.DeleteNodeCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}
	h.store.DeleteNode(cmd.NodeID)
	return nil, nil
}

func (h *GraphHandlers) createEdge(_ context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.CreateEdgeCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}
	id, err := h.store.CreateEdge(cmd.Source, cmd.Target, cmd.Style)
	if err != nil {
		return nil, err
	}
	if cmd.Label != "" {
		label := cmd.Label
		if err := h.store.UpdateEdge(id, entities.EdgePatch{Label: &label}); err != nil {
			return nil, err
		}
	}
	return h.store.Edge(id)
}

func (h *GraphHandlers) updateEdge(_ context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.UpdateEdgeCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}
	if err := h.store.UpdateEdge(cmd.EdgeID, cmd.Patch); err != nil {
		return nil, err
	}
	return h.store.Edge(cmd.EdgeID)
}

func (h *GraphHandlers) deleteEdge(_ context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.DeleteEdgeCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}
	return nil, h.store.DeleteEdge(cmd.EdgeID)
}

func (h *GraphHandlers) addAttachment(_ context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.AddAttachmentCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}
	if err := h.store.AddAttachment(cmd.NodeID, cmd.Attachment.Attachment()); err != nil {
		return nil, err
	}
	if cmd.Resolve && h.resolver != nil {
		h.resolver.ResolveAsync(cmd.NodeID)
	}
	return h.store.Node(cmd.NodeID)
}

func (h *GraphHandlers) removeAttachment(_ context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.RemoveAttachmentCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}
	if err := h.store.RemoveAttachment(cmd.NodeID, cmd.Index); err != nil {
		return nil, err
	}
	return h.store.Node(cmd.NodeID)
}

func (h *GraphHandlers) selectItem(_ context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.SelectCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}
	if err := h.store.Select(aggregates.Selection{Kind: cmd.Kind, ID: cmd.ID}); err != nil {
		return nil, err
	}
	return h.store.Selection(), nil
}
