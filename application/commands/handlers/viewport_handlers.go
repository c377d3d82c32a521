package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/application/commands"
	"github.com/Steiynbrodt/Osint-Mindmap/application/commands/bus"
	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/viewport"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

// ViewportHandlers executes pan, zoom, fit, centre and minimap commands.
// Each returns the resulting viewport snapshot.
type ViewportHandlers struct {
	canvas *viewport.Canvas
	store  ports.GraphStore
	cache  ViewportCache
	logger *zap.Logger
}

// ViewportCache keeps the latest viewport for the next session. Put must not
// block on storage.
type ViewportCache interface {
	Put(state viewport.State)
}

// NewViewportHandlers creates the viewport command handlers. cache may be
// nil, in which case the viewport is not cached between sessions.
func NewViewportHandlers(canvas *viewport.Canvas, store ports.GraphStore, cache ViewportCache, logger *zap.Logger) *ViewportHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewportHandlers{canvas: canvas, store: store, cache: cache, logger: logger}
}

// Register binds the viewport commands to the bus
func (h *ViewportHandlers) Register(b *bus.CommandBus) error {
	return register(b, []binding{
		{commands.PanViewportCommand{}, h.pan},
		{commands.ZoomViewportCommand{}, h.zoom},
		{commands.FitViewportCommand{}, h.fit},
		{commands.CenterViewportCommand{}, h.center},
		{commands.ResizeViewportCommand{}, h.resize},
		{commands.DragMinimapCommand{}, h.dragMinimap},
	})
}

// Positions returns every node position, for minimap and fit framing
func Positions(store ports.GraphStore) []valueobjects.Position {
	nodes := store.Nodes()
	out := make([]valueobjects.Position, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Position)
	}
	return out
}

// Minimap reframes the minimap around the current graph and returns the view
func (h *ViewportHandlers) Minimap() viewport.Snapshot {
	return h.canvas.RefreshMinimap(Positions(h.store))
}

func (h *ViewportHandlers) remember(snap viewport.Snapshot) {
	if h.cache == nil {
		return
	}
	h.cache.Put(snap.Viewport)
}

func (h *ViewportHandlers) pan(_ context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.PanViewportCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}
	snap := h.canvas.Pan(cmd.DX, cmd.DY)
	h.remember(snap)
	return snap, nil
}

func (h *ViewportHandlers) zoom(_ context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.ZoomViewportCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}

	var snap viewport.Snapshot
	switch {
	case cmd.Steps != 0:
		in := cmd.Steps > 0
		n := cmd.Steps
		if n < 0 {
			n = -n
		}
		for i := 0; i < n; i++ {
			snap = h.canvas.ZoomStep(in, cmd.AnchorX, cmd.AnchorY)
		}
	default:
		var accepted bool
		snap, accepted = h.canvas.Zoom(cmd.Factor, cmd.AnchorX, cmd.AnchorY)
		if !accepted {
			return nil, pkgerrors.NewValidationError("zoom factor must be a positive number")
		}
	}
	h.remember(snap)
	return snap, nil
}

func (h *ViewportHandlers) fit(_ context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.FitViewportCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}
	padding := viewport.DefaultFitPadding
	if cmd.Padding != nil {
		padding = *cmd.Padding
	}
	positions := Positions(h.store)
	h.canvas.RefreshMinimap(positions)
	snap := h.canvas.FitNodes(positions, padding)
	h.remember(snap)
	return snap, nil
}

func (h *ViewportHandlers) center(_ context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.CenterViewportCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}
	x, y := cmd.X, cmd.Y
	if cmd.NodeID != "" {
		node, err := h.store.Node(valueobjects.NodeID(cmd.NodeID))
		if err != nil {
			return nil, err
		}
		x = node.Position.X + viewport.NodeWidth/2
		y = node.Position.Y + viewport.NodeHeight/2
	}
	snap := h.canvas.CenterOn(x, y)
	h.remember(snap)
	return snap, nil
}

func (h *ViewportHandlers) resize(_ context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.ResizeViewportCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}
	snap := h.canvas.Resize(cmd.Width, cmd.Height)
	h.remember(snap)
	return snap, nil
}

func (h *ViewportHandlers) dragMinimap(_ context.Context, c bus.Command) (interface{}, error) {
	cmd, ok := c.(commands.DragMinimapCommand)
	if !ok {
		return nil, bus.ErrInvalidCommand
	}
	h.canvas.RefreshMinimap(Positions(h.store))
	snap := h.canvas.DragMinimap(cmd.X, cmd.Y)
	h.remember(snap)
	return snap, nil
}
