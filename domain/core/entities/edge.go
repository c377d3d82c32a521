package entities

import (
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

// Edge is a directed relationship between two nodes
type Edge struct {
	ID     valueobjects.EdgeID    `json:"id"`
	Source valueobjects.NodeID    `json:"source"`
	Target valueobjects.NodeID    `json:"target"`
	Style  valueobjects.EdgeStyle `json:"style"`
	Label  string                 `json:"label,omitempty"`
}

// NewEdge creates an edge. Endpoint existence is checked by the graph store.
func NewEdge(id valueobjects.EdgeID, source, target valueobjects.NodeID, style valueobjects.EdgeStyle) (*Edge, error) {
	if style == "" {
		style = valueobjects.EdgeStyleSolid
	}
	e := &Edge{ID: id, Source: source, Target: target, Style: style}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks the edge's own fields
func (e *Edge) Validate() error {
	if e.ID.IsZero() {
		return pkgerrors.NewValidationError("edge id cannot be empty")
	}
	if e.Source.IsZero() || e.Target.IsZero() {
		return pkgerrors.NewValidationError("edge endpoints cannot be empty")
	}
	if !e.Style.IsValid() {
		return pkgerrors.NewValidationError("unknown edge style: " + string(e.Style))
	}
	return nil
}

// Touches reports whether the edge is incident to id
func (e *Edge) Touches(id valueobjects.NodeID) bool {
	return e.Source == id || e.Target == id
}

// Clone returns a copy of the edge
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}
	out := *e
	return &out
}

// EdgePatch carries optional edge updates
type EdgePatch struct {
	Label *string                 `json:"label,omitempty"`
	Style *valueobjects.EdgeStyle `json:"style,omitempty"`
}

// Apply validates and applies the patch
func (p EdgePatch) Apply(e *Edge) error {
	if p.Style != nil && !p.Style.IsValid() {
		return pkgerrors.NewValidationError("unknown edge style: " + string(*p.Style))
	}
	if p.Label != nil {
		e.Label = *p.Label
	}
	if p.Style != nil {
		e.Style = *p.Style
	}
	return nil
}
