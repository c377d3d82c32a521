package handlers

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/application/commands"
	"github.com/Steiynbrodt/Osint-Mindmap/application/persistence"
	"github.com/Steiynbrodt/Osint-Mindmap/pkg/common"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

// DocumentHandler exports and imports the whole graph as a JSON document
type DocumentHandler struct {
	commands     Dispatcher
	documents    *persistence.Service
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(d Dispatcher, documents *persistence.Service, maxBodyBytes int64, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{commands: d, documents: documents, maxBodyBytes: bodyLimit(maxBodyBytes), logger: logger}
}

// Export handles GET /document. The body is the bare document, not the API
// envelope, so it can be saved and re-imported as is.
func (h *DocumentHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.documents.ExportJSON(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="mindmap.json"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Import handles PUT /document. An invalid document leaves the graph
// untouched and answers 400 FORMAT_ERROR; an overlapping import answers 409.
func (h *DocumentHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.RespondAppError(w, pkgerrors.NewFormatError("document is too large"))
			return
		}
		common.RespondAppError(w, pkgerrors.NewFormatError("failed to read document").WithCause(err))
		return
	}

	dispatch(w, r, h.commands, commands.ImportDocumentCommand{Data: data}, http.StatusOK)
}
