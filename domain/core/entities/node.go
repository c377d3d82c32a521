package entities

import (
	"strings"

	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

// Node is a typed entity placed on the canvas.
// Instances held by the graph store are never handed out; readers get clones.
type Node struct {
	ID          valueobjects.NodeID   `json:"id"`
	Type        valueobjects.NodeType `json:"type"`
	Label       string                `json:"label"`
	Position    valueobjects.Position `json:"position"`
	Status      string                `json:"status"`
	Confidence  int                   `json:"confidence"`
	Tags        []string              `json:"tags"`
	Attachments []Attachment          `json:"attachments"`
	Notes       string                `json:"notes,omitempty"`
}

// NewNode creates a node with default label, status and confidence
func NewNode(id valueobjects.NodeID, nodeType valueobjects.NodeType, pos valueobjects.Position) (*Node, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("node id cannot be empty")
	}
	if !nodeType.IsValid() {
		return nil, pkgerrors.NewValidationError("unknown node type: " + string(nodeType))
	}
	if !pos.IsFinite() {
		return nil, pkgerrors.NewValidationError("node position must be finite")
	}
	return &Node{
		ID:          id,
		Type:        nodeType,
		Label:       nodeType.DisplayName(),
		Position:    pos,
		Status:      valueobjects.StatusUnknown,
		Confidence:  valueobjects.DefaultConfidence,
		Tags:        []string{},
		Attachments: []Attachment{},
	}, nil
}

// Clone returns a deep copy of the node
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Tags = append([]string{}, n.Tags...)
	out.Attachments = CloneAttachments(n.Attachments)
	if out.Attachments == nil {
		out.Attachments = []Attachment{}
	}
	return &out
}

// HasAttachmentValue reports whether an attachment of the given kind carries value
func (n *Node) HasAttachmentValue(kind valueobjects.AttachmentKind, value string) bool {
	return n.attachmentIndex(kind, value) >= 0
}

// HasAnyAttachmentValue reports whether any attachment carries value regardless of kind
func (n *Node) HasAnyAttachmentValue(value string) bool {
	for _, a := range n.Attachments {
		if a.Value == value {
			return true
		}
	}
	return false
}

func (n *Node) attachmentIndex(kind valueobjects.AttachmentKind, value string) int {
	for i, a := range n.Attachments {
		if a.Kind != kind {
			continue
		}
		if kind == valueobjects.AttachmentEmail {
			if strings.EqualFold(a.Value, value) {
				return i
			}
			continue
		}
		if a.Value == value {
			return i
		}
	}
	return -1
}

// EmailAttachments returns the email values held by the node
func (n *Node) EmailAttachments() []string {
	var out []string
	for _, a := range n.Attachments {
		if a.Kind == valueobjects.AttachmentEmail {
			out = append(out, a.Value)
		}
	}
	return out
}

// Validate checks the invariants a node must satisfy on import
func (n *Node) Validate() error {
	if n.ID.IsZero() {
		return pkgerrors.NewValidationError("node id cannot be empty")
	}
	if !n.Type.IsValid() {
		return pkgerrors.NewValidationError("unknown node type: " + string(n.Type))
	}
	if !n.Position.IsFinite() {
		return pkgerrors.NewValidationError("node position must be finite")
	}
	if n.Confidence < valueobjects.MinConfidence || n.Confidence > valueobjects.MaxConfidence {
		return pkgerrors.NewValidationError("confidence must be within 0..100")
	}
	for _, a := range n.Attachments {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NodePatch carries optional field updates from the inspector.
// Nil fields are left untouched.
type NodePatch struct {
	Label      *string                `json:"label,omitempty"`
	Type       *valueobjects.NodeType `json:"type,omitempty"`
	Position   *valueobjects.Position `json:"position,omitempty"`
	Status     *string                `json:"status,omitempty"`
	Confidence *int                   `json:"confidence,omitempty"`
	Tags       []string               `json:"tags,omitempty"`
	Notes      *string                `json:"notes,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p NodePatch) IsEmpty() bool {
	return p.Label == nil && p.Type == nil && p.Position == nil && p.Status == nil &&
		p.Confidence == nil && p.Tags == nil && p.Notes == nil
}

// Apply validates and applies the patch. The node is left unchanged on error.
func (p NodePatch) Apply(n *Node) error {
	if p.Type != nil && !p.Type.IsValid() {
		return pkgerrors.NewValidationError("unknown node type: " + string(*p.Type))
	}
	if p.Position != nil && !p.Position.IsFinite() {
		return pkgerrors.NewValidationError("node position must be finite")
	}

	if p.Label != nil {
		n.Label = *p.Label
	}
	if p.Type != nil {
		n.Type = *p.Type
	}
	if p.Position != nil {
		n.Position = *p.Position
	}
	if p.Status != nil {
		n.Status = strings.TrimSpace(*p.Status)
	}
	if p.Confidence != nil {
		n.Confidence = valueobjects.ClampConfidence(*p.Confidence)
	}
	if p.Tags != nil {
		n.Tags = valueobjects.NormalizeTags(p.Tags)
	}
	if p.Notes != nil {
		n.Notes = *p.Notes
	}
	return nil
}

// ChangedFields lists the field names a patch touches, for event payloads
func (p NodePatch) ChangedFields() []string {
	var fields []string
	if p.Label != nil {
		fields = append(fields, "label")
	}
	if p.Type != nil {
		fields = append(fields, "type")
	}
	if p.Position != nil {
		fields = append(fields, "position")
	}
	if p.Status != nil {
		fields = append(fields, "status")
	}
	if p.Confidence != nil {
		fields = append(fields, "confidence")
	}
	if p.Tags != nil {
		fields = append(fields, "tags")
	}
	if p.Notes != nil {
		fields = append(fields, "notes")
	}
	return fields
}
