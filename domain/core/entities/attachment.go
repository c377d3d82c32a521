package entities

import (
	"strings"

	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

// AttachmentMetadata is advisory data filled in by the resolver
type AttachmentMetadata struct {
	Icon   string   `json:"icon,omitempty"`
	Emails []string `json:"emails,omitempty"`
}

// IsEmpty reports whether no metadata has been resolved yet
func (m *AttachmentMetadata) IsEmpty() bool {
	return m == nil || (m.Icon == "" && len(m.Emails) == 0)
}

// Attachment is a piece of evidence owned by exactly one node
type Attachment struct {
	Kind     valueobjects.AttachmentKind `json:"kind"`
	Value    string                      `json:"value"`
	Label    string                      `json:"label,omitempty"`
	Metadata *AttachmentMetadata         `json:"metadata,omitempty"`
}

// NewAttachment creates a validated attachment
func NewAttachment(kind valueobjects.AttachmentKind, value, label string) (Attachment, error) {
	a := Attachment{Kind: kind, Value: strings.TrimSpace(value), Label: strings.TrimSpace(label)}
	if err := a.Validate(); err != nil {
		return Attachment{}, err
	}
	return a, nil
}

// Validate checks kind and value
func (a Attachment) Validate() error {
	if !a.Kind.IsValid() {
		return pkgerrors.NewValidationError("unknown attachment kind: " + string(a.Kind))
	}
	if strings.TrimSpace(a.Value) == "" {
		return pkgerrors.NewValidationError("attachment value cannot be empty")
	}
	return nil
}

// DisplayLabel falls back to the raw value when no label was given
func (a Attachment) DisplayLabel() string {
	if a.Label != "" {
		return a.Label
	}
	return a.Value
}

// Clone returns a deep copy
func (a Attachment) Clone() Attachment {
	out := a
	if a.Metadata != nil {
		md := *a.Metadata
		if a.Metadata.Emails != nil {
			md.Emails = append([]string(nil), a.Metadata.Emails...)
		}
		out.Metadata = &md
	}
	return out
}

// CloneAttachments deep copies a slice of attachments
func CloneAttachments(in []Attachment) []Attachment {
	if in == nil {
		return nil
	}
	out := make([]Attachment, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}
