package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/application/commands"
	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/entities"
	"github.com/Steiynbrodt/Osint-Mindmap/pkg/common"
)

// EdgeHandler handles edge-related HTTP requests
type EdgeHandler struct {
	commands     Dispatcher
	store        ports.GraphStore
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewEdgeHandler creates a new edge handler
func NewEdgeHandler(d Dispatcher, store ports.GraphStore, maxBodyBytes int64, logger *zap.Logger) *EdgeHandler {
	return &EdgeHandler{commands: d, store: store, maxBodyBytes: bodyLimit(maxBodyBytes), logger: logger}
}

// CreateEdge handles POST /edges
func (h *EdgeHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var cmd commands.CreateEdgeCommand
	if err := common.ParseJSONBody(r, &cmd, h.maxBodyBytes); err != nil {
		common.RespondAppError(w, err)
		return
	}
	dispatch(w, r, h.commands, cmd, http.StatusCreated)
}

// GetEdge handles GET /edges/{edgeID}
func (h *EdgeHandler) GetEdge(w http.ResponseWriter, r *http.Request) {
	edge, err := h.store.Edge(edgeIDParam(r))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, edge)
}

// UpdateEdge handles PATCH /edges/{edgeID}
func (h *EdgeHandler) UpdateEdge(w http.ResponseWriter, r *http.Request) {
	var patch entities.EdgePatch
	if err := common.ParseJSONBody(r, &patch, h.maxBodyBytes); err != nil {
		common.RespondAppError(w, err)
		return
	}
	dispatch(w, r, h.commands, commands.UpdateEdgeCommand{EdgeID: edgeIDParam(r), Patch: patch}, http.StatusOK)
}

// DeleteEdge handles DELETE /edges/{edgeID}
func (h *EdgeHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	dispatch(w, r, h.commands, commands.DeleteEdgeCommand{EdgeID: edgeIDParam(r)}, http.StatusNoContent)
}
