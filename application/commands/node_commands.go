package commands

import (
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/entities"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
	"github.com/Steiynbrodt/Osint-Mindmap/pkg/utils"
)

// CreateNodeCommand places a new node on the canvas. Optional fields are
// applied in the same step as the creation.
type CreateNodeCommand struct {
	Type        valueobjects.NodeType `json:"type" validate:"required"`
	Position    valueobjects.Position `json:"position"`
	Label       *string               `json:"label,omitempty"`
	Status      *string               `json:"status,omitempty"`
	Confidence  *int                  `json:"confidence,omitempty"`
	Tags        []string              `json:"tags,omitempty"`
	Notes       *string               `json:"notes,omitempty"`
	Attachments []AttachmentInput     `json:"attachments,omitempty" validate:"dive"`
}

// Validate validates the command
func (c CreateNodeCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	if !c.Type.IsValid() {
		return pkgerrors.NewValidationError("unknown node type: " + string(c.Type))
	}
	if !c.Position.IsFinite() {
		return pkgerrors.NewValidationError("position must be finite")
	}
	return nil
}

// Patch returns the optional fields as a node patch
func (c CreateNodeCommand) Patch() entities.NodePatch {
	return entities.NodePatch{
		Label:      c.Label,
		Status:     c.Status,
		Confidence: c.Confidence,
		Tags:       c.Tags,
		Notes:      c.Notes,
	}
}

// UpdateNodeCommand applies an inspector edit to a node
type UpdateNodeCommand struct {
	NodeID valueobjects.NodeID `json:"node_id" validate:"required"`
	Patch  entities.NodePatch  `json:"patch"`
}

// Validate validates the command
func (c UpdateNodeCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	if c.Patch.IsEmpty() {
		return pkgerrors.NewValidationError("update changes nothing")
	}
	return nil
}

// DeleteNodeCommand removes a node and every edge touching it
type DeleteNodeCommand struct {
	NodeID valueobjects.NodeID `json:"node_id" validate:"required"`
}

// Validate validates the command
func (c DeleteNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// AttachmentInput is an attachment supplied by a caller
type AttachmentInput struct {
	Kind  valueobjects.AttachmentKind `json:"kind" validate:"required,oneof=link file email"`
	Value string                      `json:"value" validate:"required"`
	Label string                      `json:"label,omitempty"`
}

// Attachment converts the input to a domain attachment
func (a AttachmentInput) Attachment() entities.Attachment {
	return entities.Attachment{Kind: a.Kind, Value: a.Value, Label: a.Label}
}

// AddAttachmentCommand appends evidence to a node
type AddAttachmentCommand struct {
	NodeID     valueobjects.NodeID `json:"node_id" validate:"required"`
	Attachment AttachmentInput     `json:"attachment"`
	// Resolve schedules icon and email resolution afterwards
	Resolve bool `json:"resolve"`
}

// Validate validates the command
func (c AddAttachmentCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// RemoveAttachmentCommand drops the attachment at Index
type RemoveAttachmentCommand struct {
	NodeID valueobjects.NodeID `json:"node_id" validate:"required"`
	Index  int                 `json:"index" validate:"min=0"`
}

// Validate validates the command
func (c RemoveAttachmentCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ResolveNodeCommand runs attachment resolution on a node
type ResolveNodeCommand struct {
	NodeID valueobjects.NodeID `json:"node_id" validate:"required"`
	Async  bool                `json:"async"`
}

// Validate validates the command
func (c ResolveNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// EnrichNodeCommand asks the enrichment backend about a node
type EnrichNodeCommand struct {
	NodeID valueobjects.NodeID `json:"node_id" validate:"required"`
	Async  bool                `json:"async"`
}

// Validate validates the command
func (c EnrichNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}
