package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/application/commands"
	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/viewport"
	"github.com/Steiynbrodt/Osint-Mindmap/pkg/common"
)

// ViewReader reads the current view state
type ViewReader interface {
	Snapshot() viewport.Snapshot
}

// MinimapReader reframes the minimap around the graph and returns the view
type MinimapReader interface {
	Minimap() viewport.Snapshot
}

// CanvasHandler handles viewport, minimap and selection requests
type CanvasHandler struct {
	commands     Dispatcher
	view         ViewReader
	minimap      MinimapReader
	store        ports.GraphStore
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewCanvasHandler creates a new canvas handler
func NewCanvasHandler(d Dispatcher, view ViewReader, minimap MinimapReader, store ports.GraphStore, maxBodyBytes int64, logger *zap.Logger) *CanvasHandler {
	return &CanvasHandler{
		commands:     d,
		view:         view,
		minimap:      minimap,
		store:        store,
		maxBodyBytes: bodyLimit(maxBodyBytes),
		logger:       logger,
	}
}

// GetViewport handles GET /viewport
func (h *CanvasHandler) GetViewport(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, h.view.Snapshot())
}

// Pan handles POST /viewport/pan
func (h *CanvasHandler) Pan(w http.ResponseWriter, r *http.Request) {
	decodeAndDispatch[commands.PanViewportCommand](w, r, h.commands, h.maxBodyBytes)
}

// Zoom handles POST /viewport/zoom
func (h *CanvasHandler) Zoom(w http.ResponseWriter, r *http.Request) {
	decodeAndDispatch[commands.ZoomViewportCommand](w, r, h.commands, h.maxBodyBytes)
}

// Fit handles POST /viewport/fit. An empty body uses the default padding.
func (h *CanvasHandler) Fit(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength == 0 {
		dispatch(w, r, h.commands, commands.FitViewportCommand{}, http.StatusOK)
		return
	}
	decodeAndDispatch[commands.FitViewportCommand](w, r, h.commands, h.maxBodyBytes)
}

// Center handles POST /viewport/center
func (h *CanvasHandler) Center(w http.ResponseWriter, r *http.Request) {
	decodeAndDispatch[commands.CenterViewportCommand](w, r, h.commands, h.maxBodyBytes)
}

// Resize handles POST /viewport/resize
func (h *CanvasHandler) Resize(w http.ResponseWriter, r *http.Request) {
	decodeAndDispatch[commands.ResizeViewportCommand](w, r, h.commands, h.maxBodyBytes)
}

// GetMinimap handles GET /minimap
func (h *CanvasHandler) GetMinimap(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, h.minimap.Minimap())
}

// DragMinimap handles POST /minimap/drag
func (h *CanvasHandler) DragMinimap(w http.ResponseWriter, r *http.Request) {
	decodeAndDispatch[commands.DragMinimapCommand](w, r, h.commands, h.maxBodyBytes)
}

// GetSelection handles GET /selection
func (h *CanvasHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, h.store.Selection())
}

// Select handles PUT /selection. An empty kind clears the selection.
func (h *CanvasHandler) Select(w http.ResponseWriter, r *http.Request) {
	decodeAndDispatch[commands.SelectCommand](w, r, h.commands, h.maxBodyBytes)
}
