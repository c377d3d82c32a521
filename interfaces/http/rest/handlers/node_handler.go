package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/application/commands"
	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/entities"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	"github.com/Steiynbrodt/Osint-Mindmap/pkg/common"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

// NodeHandler handles node-related HTTP requests
type NodeHandler struct {
	commands     Dispatcher
	store        ports.GraphStore
	screen       ScreenMapper
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewNodeHandler creates a new node handler. screen may be nil, in which
// case screen-positioned creation is rejected.
func NewNodeHandler(d Dispatcher, store ports.GraphStore, screen ScreenMapper, maxBodyBytes int64, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{
		commands:     d,
		store:        store,
		screen:       screen,
		maxBodyBytes: bodyLimit(maxBodyBytes),
		logger:       logger,
	}
}

// CreateNodeRequest represents the request body for creating a node.
// Screen, when set, places the node under that screen point instead of at
// Position.
type CreateNodeRequest struct {
	commands.CreateNodeCommand
	Screen *valueobjects.Position `json:"screen,omitempty"`
}

// AddAttachmentRequest represents the request body for adding evidence
type AddAttachmentRequest struct {
	commands.AttachmentInput
	Resolve *bool `json:"resolve,omitempty"`
}

// CreateNode handles POST /nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if err := common.ParseJSONBody(r, &req, h.maxBodyBytes); err != nil {
		common.RespondAppError(w, err)
		return
	}

	cmd := req.CreateNodeCommand
	if req.Screen != nil {
		if h.screen == nil {
			common.RespondAppError(w, pkgerrors.NewValidationError("screen positions are not supported"))
			return
		}
		x, y := h.screen.ScreenToGraph(req.Screen.X, req.Screen.Y)
		cmd.Position = valueobjects.Position{X: x, Y: y}
	}

	dispatch(w, r, h.commands, cmd, http.StatusCreated)
}

// GetNode handles GET /nodes/{nodeID}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.store.Node(nodeIDParam(r))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, node)
}

// ListNodes handles GET /nodes
func (h *NodeHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	nodes := h.store.Nodes()
	if nodes == nil {
		nodes = []*entities.Node{}
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"nodes": nodes,
		"total": len(nodes),
	})
}

// UpdateNode handles PATCH /nodes/{nodeID}
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var patch entities.NodePatch
	if err := common.ParseJSONBody(r, &patch, h.maxBodyBytes); err != nil {
		common.RespondAppError(w, err)
		return
	}
	dispatch(w, r, h.commands, commands.UpdateNodeCommand{NodeID: nodeIDParam(r), Patch: patch}, http.StatusOK)
}

// DeleteNode handles DELETE /nodes/{nodeID}. Deleting an unknown node is a
// no-op.
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	dispatch(w, r, h.commands, commands.DeleteNodeCommand{NodeID: nodeIDParam(r)}, http.StatusNoContent)
}

// AddAttachment handles POST /nodes/{nodeID}/attachments. Resolution runs
// in the background unless the body sets resolve to false.
func (h *NodeHandler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	var req AddAttachmentRequest
	if err := common.ParseJSONBody(r, &req, h.maxBodyBytes); err != nil {
		common.RespondAppError(w, err)
		return
	}
	resolve := req.Resolve == nil || *req.Resolve
	dispatch(w, r, h.commands, commands.AddAttachmentCommand{
		NodeID:     nodeIDParam(r),
		Attachment: req.AttachmentInput,
		Resolve:    resolve,
	}, http.StatusCreated)
}

// RemoveAttachment handles DELETE /nodes/{nodeID}/attachments/{index}
func (h *NodeHandler) RemoveAttachment(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		common.RespondAppError(w, pkgerrors.NewValidationError("attachment index must be an integer"))
		return
	}
	dispatch(w, r, h.commands, commands.RemoveAttachmentCommand{NodeID: nodeIDParam(r), Index: index}, http.StatusOK)
}

// ResolveNode handles POST /nodes/{nodeID}/resolve. With ?async=true the
// work is scheduled and 202 returned at once.
func (h *NodeHandler) ResolveNode(w http.ResponseWriter, r *http.Request) {
	async, err := boolQuery(r, "async")
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	status := http.StatusOK
	if async {
		status = http.StatusAccepted
	}
	dispatch(w, r, h.commands, commands.ResolveNodeCommand{NodeID: nodeIDParam(r), Async: async}, status)
}

// EnrichNode handles POST /nodes/{nodeID}/enrich. With ?async=true the work
// is scheduled and 202 returned at once.
func (h *NodeHandler) EnrichNode(w http.ResponseWriter, r *http.Request) {
	async, err := boolQuery(r, "async")
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	status := http.StatusOK
	if async {
		status = http.StatusAccepted
	}
	dispatch(w, r, h.commands, commands.EnrichNodeCommand{NodeID: nodeIDParam(r), Async: async}, status)
}
