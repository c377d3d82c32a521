package persistence

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/aggregates"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/entities"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
	"github.com/Steiynbrodt/Osint-Mindmap/pkg/utils"
)

// DocumentVersion is written on every export
const DocumentVersion = "1"

// Document is the exported graph
type Document struct {
	Version string       `json:"version" validate:"required"`
	Nodes   []NodeRecord `json:"nodes" validate:"dive"`
	Edges   []EdgeRecord `json:"edges" validate:"dive"`
}

// NodeRecord is one node in a document. Optional fields fall back to the
// defaults of a freshly created node.
type NodeRecord struct {
	ID          string                 `json:"id" validate:"required"`
	Type        string                 `json:"type" validate:"required"`
	Label       *string                `json:"label,omitempty"`
	Position    *valueobjects.Position `json:"position" validate:"required"`
	Status      string                 `json:"status,omitempty"`
	Confidence  *int                   `json:"confidence,omitempty"`
	Tags        []string               `json:"tags"`
	Attachments []AttachmentRecord     `json:"attachments" validate:"dive"`
	Notes       string                 `json:"notes,omitempty"`
}

// AttachmentRecord is one attachment in a document
type AttachmentRecord struct {
	Kind     string                       `json:"kind" validate:"required"`
	Value    string                       `json:"value" validate:"required"`
	Label    string                       `json:"label,omitempty"`
	Metadata *entities.AttachmentMetadata `json:"metadata,omitempty"`
}

// EdgeRecord is one edge in a document
type EdgeRecord struct {
	ID     string `json:"id" validate:"required"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
	Style  string `json:"style" validate:"required"`
	Label  string `json:"label,omitempty"`
}

// SupportedVersion reports whether a document version can be imported
func SupportedVersion(v string) bool {
	v = strings.TrimSpace(v)
	return v == "1" || strings.HasPrefix(v, "1.")
}

// EncodeState renders a graph state as a document with nodes and edges
// sorted by id
func EncodeState(state aggregates.GraphState) Document {
	doc := Document{
		Version: DocumentVersion,
		Nodes:   make([]NodeRecord, 0, len(state.Nodes)),
		Edges:   make([]EdgeRecord, 0, len(state.Edges)),
	}
	for _, n := range state.Nodes {
		label := n.Label
		pos := n.Position
		confidence := n.Confidence
		rec := NodeRecord{
			ID:          n.ID.String(),
			Type:        string(n.Type),
			Label:       &label,
			Position:    &pos,
			Status:      n.Status,
			Confidence:  &confidence,
			Tags:        append([]string{}, n.Tags...),
			Attachments: make([]AttachmentRecord, 0, len(n.Attachments)),
			Notes:       n.Notes,
		}
		for _, a := range n.Attachments {
			a = a.Clone()
			rec.Attachments = append(rec.Attachments, AttachmentRecord{
				Kind:     string(a.Kind),
				Value:    a.Value,
				Label:    a.Label,
				Metadata: a.Metadata,
			})
		}
		doc.Nodes = append(doc.Nodes, rec)
	}
	for _, e := range state.Edges {
		doc.Edges = append(doc.Edges, EdgeRecord{
			ID:     e.ID.String(),
			Source: e.Source.String(),
			Target: e.Target.String(),
			Style:  string(e.Style),
			Label:  e.Label,
		})
	}
	sort.Slice(doc.Nodes, func(i, j int) bool { return lessID(doc.Nodes[i].ID, doc.Nodes[j].ID) })
	sort.Slice(doc.Edges, func(i, j int) bool { return lessID(doc.Edges[i].ID, doc.Edges[j].ID) })
	return doc
}

// lessID orders generated ids numerically (n2 before n10) and anything
// else lexically after them
func lessID(a, b string) bool {
	sa, okA := valueobjects.SequenceOf(a)
	sb, okB := valueobjects.SequenceOf(b)
	switch {
	case okA && okB:
		if sa != sb {
			return sa < sb
		}
		return a < b
	case okA:
		return true
	case okB:
		return false
	}
	return a < b
}

// DecodeDocument parses and validates a JSON document. Any problem is
// reported as a FORMAT_ERROR.
func DecodeDocument(data []byte) (aggregates.GraphState, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return aggregates.GraphState{}, pkgerrors.NewFormatError("document is not valid JSON").WithCause(err)
	}
	return doc.State()
}

// State validates the document and converts it to a graph state
func (d Document) State() (aggregates.GraphState, error) {
	var state aggregates.GraphState
	if err := utils.ValidateStruct(d); err != nil {
		return state, asFormatError(err)
	}
	if !SupportedVersion(d.Version) {
		return state, pkgerrors.NewFormatError(fmt.Sprintf("unsupported document version %q", d.Version))
	}

	nodeIDs := make(map[string]struct{}, len(d.Nodes))
	state.Nodes = make([]*entities.Node, 0, len(d.Nodes))
	for i, rec := range d.Nodes {
		if _, dup := nodeIDs[rec.ID]; dup {
			return state, pkgerrors.NewFormatErrorf("duplicate node id %q", rec.ID)
		}
		nodeIDs[rec.ID] = struct{}{}

		node, err := rec.node()
		if err != nil {
			return state, pkgerrors.NewFormatError(fmt.Sprintf("nodes[%d]: %s", i, err.Error())).WithCause(err)
		}
		state.Nodes = append(state.Nodes, node)
	}

	edgeIDs := make(map[string]struct{}, len(d.Edges))
	state.Edges = make([]*entities.Edge, 0, len(d.Edges))
	for i, rec := range d.Edges {
		if _, dup := edgeIDs[rec.ID]; dup {
			return state, pkgerrors.NewFormatErrorf("duplicate edge id %q", rec.ID)
		}
		if _, clash := nodeIDs[rec.ID]; clash {
			return state, pkgerrors.NewFormatErrorf("edge id %q is already used by a node", rec.ID)
		}
		edgeIDs[rec.ID] = struct{}{}

		style, err := valueobjects.ParseEdgeStyle(rec.Style)
		if err != nil {
			return state, pkgerrors.NewFormatErrorf("edges[%d]: %s", i, err.Error())
		}
		for _, end := range []string{rec.Source, rec.Target} {
			if _, ok := nodeIDs[end]; !ok {
				return state, pkgerrors.NewFormatErrorf("edges[%d]: endpoint %q does not exist", i, end)
			}
		}
		state.Edges = append(state.Edges, &entities.Edge{
			ID:     valueobjects.EdgeID(rec.ID),
			Source: valueobjects.NodeID(rec.Source),
			Target: valueobjects.NodeID(rec.Target),
			Style:  style,
			Label:  rec.Label,
		})
	}
	return state, nil
}

func (r NodeRecord) node() (*entities.Node, error) {
	nodeType, err := valueobjects.ParseNodeType(r.Type)
	if err != nil {
		return nil, err
	}
	if !r.Position.IsFinite() {
		return nil, fmt.Errorf("position must be finite")
	}

	node, err := entities.NewNode(valueobjects.NodeID(r.ID), nodeType, *r.Position)
	if err != nil {
		return nil, err
	}
	if r.Label != nil {
		node.Label = *r.Label
	}
	if r.Status != "" {
		node.Status = r.Status
	}
	if r.Confidence != nil {
		c := *r.Confidence
		if c < valueobjects.MinConfidence || c > valueobjects.MaxConfidence {
			return nil, fmt.Errorf("confidence %d is outside %d..%d", c, valueobjects.MinConfidence, valueobjects.MaxConfidence)
		}
		node.Confidence = c
	}
	node.Tags = valueobjects.NormalizeTags(r.Tags)
	node.Notes = r.Notes

	for j, a := range r.Attachments {
		kind := valueobjects.AttachmentKind(a.Kind)
		if !kind.IsValid() {
			return nil, fmt.Errorf("attachments[%d]: unknown kind %q", j, a.Kind)
		}
		att := entities.Attachment{Kind: kind, Value: a.Value, Label: a.Label}
		if a.Metadata != nil && !a.Metadata.IsEmpty() {
			md := *a.Metadata
			md.Emails = append([]string(nil), md.Emails...)
			att.Metadata = &md
		}
		node.Attachments = append(node.Attachments, att)
	}
	if err := node.Validate(); err != nil {
		return nil, err
	}
	return node, nil
}

// asFormatError turns a struct validation failure into a FORMAT_ERROR
// carrying the same field details
func asFormatError(err error) error {
	appErr := pkgerrors.GetAppError(err)
	if appErr == nil {
		return pkgerrors.NewFormatError(err.Error()).WithCause(err)
	}
	out := pkgerrors.NewFormatError(appErr.Message).WithCause(err)
	if appErr.Details != nil {
		out = out.WithDetails(appErr.Details)
	}
	return out
}
