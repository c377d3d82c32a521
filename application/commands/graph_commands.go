package commands

import (
	"github.com/Steiynbrodt/Osint-Mindmap/application/services"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/aggregates"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/entities"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
	"github.com/Steiynbrodt/Osint-Mindmap/pkg/utils"
)

// CreateEdgeCommand connects two nodes. An empty style means solid.
type CreateEdgeCommand struct {
	Source valueobjects.NodeID    `json:"source" validate:"required"`
	Target valueobjects.NodeID    `json:"target" validate:"required"`
	Style  valueobjects.EdgeStyle `json:"style,omitempty" validate:"omitempty,oneof=solid dashed dotted"`
	Label  string                 `json:"label,omitempty"`
}

// Validate validates the command
func (c CreateEdgeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// UpdateEdgeCommand changes an edge's label or style
type UpdateEdgeCommand struct {
	EdgeID valueobjects.EdgeID `json:"edge_id" validate:"required"`
	Patch  entities.EdgePatch  `json:"patch"`
}

// Validate validates the command
func (c UpdateEdgeCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	if c.Patch.Label == nil && c.Patch.Style == nil {
		return pkgerrors.NewValidationError("update changes nothing")
	}
	return nil
}

// DeleteEdgeCommand removes an edge
type DeleteEdgeCommand struct {
	EdgeID valueobjects.EdgeID `json:"edge_id" validate:"required"`
}

// Validate validates the command
func (c DeleteEdgeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// SelectCommand selects a node or an edge. An empty kind clears the selection.
type SelectCommand struct {
	Kind aggregates.SelectionKind `json:"kind" validate:"omitempty,oneof=node edge"`
	ID   string                   `json:"id" validate:"required_with=Kind"`
}

// Validate validates the command
func (c SelectCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// DropCommand ingests a drag-and-drop gesture
type DropCommand struct {
	services.DropRequest
}

// Validate validates the command
func (c DropCommand) Validate() error {
	return utils.ValidateStruct(c.DropRequest)
}

// ImportDocumentCommand replaces the graph with a JSON document
type ImportDocumentCommand struct {
	Data []byte `json:"-"`
}

// Validate validates the command
func (c ImportDocumentCommand) Validate() error {
	if len(c.Data) == 0 {
		return pkgerrors.NewFormatError("document is empty")
	}
	return nil
}
