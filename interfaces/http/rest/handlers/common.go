// Package handlers translates HTTP requests into canvas commands and queries.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Steiynbrodt/Osint-Mindmap/application/commands/bus"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/viewport"
	"github.com/Steiynbrodt/Osint-Mindmap/pkg/common"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured
const DefaultMaxBodyBytes int64 = 4 << 20

// Dispatcher sends commands to their handlers. *bus.CommandBus implements it.
type Dispatcher interface {
	Send(ctx context.Context, cmd bus.Command) (interface{}, error)
}

var _ Dispatcher = (*bus.CommandBus)(nil)

// ScreenMapper converts screen coordinates to graph coordinates
type ScreenMapper interface {
	ScreenToGraph(px, py float64) (float64, float64)
}

var _ ScreenMapper = (*viewport.Canvas)(nil)

func bodyLimit(n int64) int64 {
	if n <= 0 {
		return DefaultMaxBodyBytes
	}
	return n
}

// dispatch sends cmd and writes the result with status, or the mapped error
func dispatch(w http.ResponseWriter, r *http.Request, d Dispatcher, cmd bus.Command, status int) {
	result, err := d.Send(r.Context(), cmd)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	common.RespondJSON(w, status, result)
}

// decodeAndDispatch decodes the body into a C and dispatches it
func decodeAndDispatch[C bus.Command](w http.ResponseWriter, r *http.Request, d Dispatcher, maxBodyBytes int64) {
	var cmd C
	if err := common.ParseJSONBody(r, &cmd, maxBodyBytes); err != nil {
		common.RespondAppError(w, err)
		return
	}
	dispatch(w, r, d, cmd, http.StatusOK)
}

func nodeIDParam(r *http.Request) valueobjects.NodeID {
	return valueobjects.NodeID(chi.URLParam(r, "nodeID"))
}

func edgeIDParam(r *http.Request) valueobjects.EdgeID {
	return valueobjects.EdgeID(chi.URLParam(r, "edgeID"))
}

// boolQuery reads a boolean query parameter; absent means false
func boolQuery(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, pkgerrors.NewValidationError(name + " must be a boolean")
	}
	return v, nil
}

// intQuery reads a non-negative integer query parameter
func intQuery(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, pkgerrors.NewValidationError(name + " must be a non-negative integer")
	}
	return v, nil
}
