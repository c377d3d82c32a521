package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/application/commands"
	"github.com/Steiynbrodt/Osint-Mindmap/application/queries"
	"github.com/Steiynbrodt/Osint-Mindmap/application/services"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	"github.com/Steiynbrodt/Osint-Mindmap/pkg/common"
)

const defaultNotificationLimit = 50

// WorkspaceHandler handles drag-and-drop, search and notification requests
type WorkspaceHandler struct {
	commands     Dispatcher
	search       *queries.SearchHandler
	notifier     *services.Notifier
	screen       ScreenMapper
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(
	d Dispatcher,
	search *queries.SearchHandler,
	notifier *services.Notifier,
	screen ScreenMapper,
	maxBodyBytes int64,
	logger *zap.Logger,
) *WorkspaceHandler {
	return &WorkspaceHandler{
		commands:     d,
		search:       search,
		notifier:     notifier,
		screen:       screen,
		maxBodyBytes: bodyLimit(maxBodyBytes),
		logger:       logger,
	}
}

// DropRequest represents a drag-and-drop gesture. Screen, when set, is
// mapped through the viewport to the drop position.
type DropRequest struct {
	services.DropRequest
	Screen *valueobjects.Position `json:"screen,omitempty"`
}

// Drop handles POST /drop
func (h *WorkspaceHandler) Drop(w http.ResponseWriter, r *http.Request) {
	var req DropRequest
	if err := common.ParseJSONBody(r, &req, h.maxBodyBytes); err != nil {
		common.RespondAppError(w, err)
		return
	}
	if req.Screen != nil && h.screen != nil {
		x, y := h.screen.ScreenToGraph(req.Screen.X, req.Screen.Y)
		req.Position = valueobjects.Position{X: x, Y: y}
	}
	dispatch(w, r, h.commands, commands.DropCommand{DropRequest: req.DropRequest}, http.StatusCreated)
}

// Search handles GET /search?q=&type=&limit=
func (h *WorkspaceHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	var types []valueobjects.NodeType
	for _, raw := range r.URL.Query()["type"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, valueobjects.NodeType(strings.ToLower(t)))
			}
		}
	}

	result, err := h.search.Handle(queries.SearchNodesQuery{
		Text:  r.URL.Query().Get("q"),
		Types: types,
		Limit: limit,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Notifications handles GET /notifications?limit=, newest first. limit=0
// returns every retained notice.
func (h *WorkspaceHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", defaultNotificationLimit)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": h.notifier.Recent(limit),
	})
}
