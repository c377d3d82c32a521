package ports

import (
	"context"

	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/aggregates"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/entities"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/events"
)

// GraphStore is the graph surface the application layer works against.
// *aggregates.Graph implements it.
type GraphStore interface {
	CreateNode(nodeType valueobjects.NodeType, pos valueobjects.Position) (valueobjects.NodeID, error)
	CreateNodeWith(nodeType valueobjects.NodeType, pos valueobjects.Position, patch entities.NodePatch, attachments ...entities.Attachment) (valueobjects.NodeID, error)
	UpdateNode(id valueobjects.NodeID, patch entities.NodePatch) error
	DeleteNode(id valueobjects.NodeID)
	CreateEdge(source, target valueobjects.NodeID, style valueobjects.EdgeStyle) (valueobjects.EdgeID, error)
	UpdateEdge(id valueobjects.EdgeID, patch entities.EdgePatch) error
	DeleteEdge(id valueobjects.EdgeID) error

	AddAttachment(id valueobjects.NodeID, attachment entities.Attachment) error
	AddAttachmentIfAbsent(id valueobjects.NodeID, attachment entities.Attachment) (bool, error)
	RemoveAttachment(id valueobjects.NodeID, index int) error
	SetAttachmentMetadata(id valueobjects.NodeID, kind valueobjects.AttachmentKind, value string, md entities.AttachmentMetadata) (int, error)
	MergeEnrichment(id valueobjects.NodeID, patch aggregates.EnrichmentPatch) (aggregates.MergeOutcome, error)

	Node(id valueobjects.NodeID) (*entities.Node, error)
	Snapshot(id valueobjects.NodeID) (entities.Node, error)
	HasNode(id valueobjects.NodeID) bool
	Edge(id valueobjects.EdgeID) (*entities.Edge, error)
	Nodes() []*entities.Node
	Edges() []*entities.Edge
	IncidentEdges(id valueobjects.NodeID) []*entities.Edge
	State() aggregates.GraphState
	NodeCount() int
	EdgeCount() int

	Select(sel aggregates.Selection) error
	Selection() aggregates.Selection
	Replace(state aggregates.GraphState) error
}

var _ GraphStore = (*aggregates.Graph)(nil)

// Snapshot slot keys
const (
	SlotKeyGraph    = "graph"
	SlotKeyViewport = "viewport"
)

// SnapshotSlot is a small key/value store holding the autosaved document and
// the cached viewport. Load of a missing key returns a NOT_FOUND AppError.
type SnapshotSlot interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// IconProber confirms that a favicon URL serves an image
type IconProber interface {
	Probe(ctx context.Context, iconURL string) (bool, error)
}

// EnrichmentRequest is the node snapshot sent to the enrichment backend
type EnrichmentRequest struct {
	Type        string                `json:"type"`
	Label       string                `json:"label"`
	Tags        []string              `json:"tags"`
	Attachments []entities.Attachment `json:"attachments"`
}

// EnrichmentResponse is the backend's answer. Absent fields mean no change.
type EnrichmentResponse struct {
	Tags        []string              `json:"tags"`
	Status      *string               `json:"status,omitempty"`
	Confidence  *int                  `json:"confidence,omitempty"`
	Attachments []entities.Attachment `json:"attachments,omitempty"`
}

// EnrichmentBackend sends a node snapshot for enrichment.
// Any failure is reported as an ENRICHMENT_UNAVAILABLE AppError.
type EnrichmentBackend interface {
	Enrich(ctx context.Context, req EnrichmentRequest) (*EnrichmentResponse, error)
}

// EventSink forwards committed domain events outside the process
type EventSink interface {
	PublishBatch(ctx context.Context, evts []events.DomainEvent) error
}
