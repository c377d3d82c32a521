package events

import (
	"time"

	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
)

// Event type names
const (
	TypeNodeCreated        = "node.created"
	TypeNodeUpdated        = "node.updated"
	TypeNodeDeleted        = "node.deleted"
	TypeEdgeCreated        = "edge.created"
	TypeEdgeUpdated        = "edge.updated"
	TypeEdgeDeleted        = "edge.deleted"
	TypeAttachmentAdded    = "attachment.added"
	TypeAttachmentRemoved  = "attachment.removed"
	TypeAttachmentResolved = "attachment.resolved"
	TypeNodeEnriched       = "node.enriched"
	TypeGraphReplaced      = "graph.replaced"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

func newBase(aggregateID, eventType string, at time.Time) BaseEvent {
	return BaseEvent{AggregateID: aggregateID, EventType: eventType, Timestamp: at}
}

// Node Events

// NodeCreated is raised when a node is placed on the canvas
type NodeCreated struct {
	BaseEvent
	NodeID   valueobjects.NodeID   `json:"node_id"`
	NodeType valueobjects.NodeType `json:"node_type"`
}

// NewNodeCreated creates a NodeCreated event
func NewNodeCreated(id valueobjects.NodeID, nodeType valueobjects.NodeType, at time.Time) NodeCreated {
	return NodeCreated{BaseEvent: newBase(id.String(), TypeNodeCreated, at), NodeID: id, NodeType: nodeType}
}

// NodeUpdated is raised when inspector fields or the position change
type NodeUpdated struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
	Fields []string            `json:"fields"`
}

// NewNodeUpdated creates a NodeUpdated event
func NewNodeUpdated(id valueobjects.NodeID, fields []string, at time.Time) NodeUpdated {
	return NodeUpdated{BaseEvent: newBase(id.String(), TypeNodeUpdated, at), NodeID: id, Fields: fields}
}

// NodeDeleted is raised when a node and its incident edges are removed
type NodeDeleted struct {
	BaseEvent
	NodeID       valueobjects.NodeID   `json:"node_id"`
	RemovedEdges []valueobjects.EdgeID `json:"removed_edges"`
}

// NewNodeDeleted creates a NodeDeleted event
func NewNodeDeleted(id valueobjects.NodeID, removed []valueobjects.EdgeID, at time.Time) NodeDeleted {
	return NodeDeleted{BaseEvent: newBase(id.String(), TypeNodeDeleted, at), NodeID: id, RemovedEdges: removed}
}

// Edge Events

// EdgeCreated is raised when two nodes are connected
type EdgeCreated struct {
	BaseEvent
	EdgeID valueobjects.EdgeID `json:"edge_id"`
	Source valueobjects.NodeID `json:"source"`
	Target valueobjects.NodeID `json:"target"`
}

// NewEdgeCreated creates an EdgeCreated event
func NewEdgeCreated(id valueobjects.EdgeID, source, target valueobjects.NodeID, at time.Time) EdgeCreated {
	return EdgeCreated{BaseEvent: newBase(id.String(), TypeEdgeCreated, at), EdgeID: id, Source: source, Target: target}
}

// EdgeUpdated is raised when an edge's label or style changes
type EdgeUpdated struct {
	BaseEvent
	EdgeID valueobjects.EdgeID `json:"edge_id"`
}

// NewEdgeUpdated creates an EdgeUpdated event
func NewEdgeUpdated(id valueobjects.EdgeID, at time.Time) EdgeUpdated {
	return EdgeUpdated{BaseEvent: newBase(id.String(), TypeEdgeUpdated, at), EdgeID: id}
}

// EdgeDeleted is raised when an edge is removed explicitly
type EdgeDeleted struct {
	BaseEvent
	EdgeID valueobjects.EdgeID `json:"edge_id"`
}

// NewEdgeDeleted creates an EdgeDeleted event
func NewEdgeDeleted(id valueobjects.EdgeID, at time.Time) EdgeDeleted {
	return EdgeDeleted{BaseEvent: newBase(id.String(), TypeEdgeDeleted, at), EdgeID: id}
}

// Attachment Events

// AttachmentAdded is raised when evidence is attached to a node
type AttachmentAdded struct {
	BaseEvent
	NodeID valueobjects.NodeID         `json:"node_id"`
	Kind   valueobjects.AttachmentKind `json:"kind"`
	Value  string                      `json:"value"`
}

// NewAttachmentAdded creates an AttachmentAdded event
func NewAttachmentAdded(id valueobjects.NodeID, kind valueobjects.AttachmentKind, value string, at time.Time) AttachmentAdded {
	return AttachmentAdded{BaseEvent: newBase(id.String(), TypeAttachmentAdded, at), NodeID: id, Kind: kind, Value: value}
}

// AttachmentRemoved is raised when evidence is detached from a node
type AttachmentRemoved struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
	Index  int                 `json:"index"`
	Value  string              `json:"value"`
}

// NewAttachmentRemoved creates an AttachmentRemoved event
func NewAttachmentRemoved(id valueobjects.NodeID, index int, value string, at time.Time) AttachmentRemoved {
	return AttachmentRemoved{BaseEvent: newBase(id.String(), TypeAttachmentRemoved, at), NodeID: id, Index: index, Value: value}
}

// AttachmentResolved is raised when the resolver writes metadata back
type AttachmentResolved struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
	Value  string              `json:"value"`
	Icon   string              `json:"icon,omitempty"`
}

// NewAttachmentResolved creates an AttachmentResolved event
func NewAttachmentResolved(id valueobjects.NodeID, value, icon string, at time.Time) AttachmentResolved {
	return AttachmentResolved{BaseEvent: newBase(id.String(), TypeAttachmentResolved, at), NodeID: id, Value: value, Icon: icon}
}

// NodeEnriched is raised when an enrichment result is merged into a node
type NodeEnriched struct {
	BaseEvent
	NodeID           valueobjects.NodeID `json:"node_id"`
	AddedTags        int                 `json:"added_tags"`
	AddedAttachments int                 `json:"added_attachments"`
}

// NewNodeEnriched creates a NodeEnriched event
func NewNodeEnriched(id valueobjects.NodeID, addedTags, addedAttachments int, at time.Time) NodeEnriched {
	return NodeEnriched{
		BaseEvent:        newBase(id.String(), TypeNodeEnriched, at),
		NodeID:           id,
		AddedTags:        addedTags,
		AddedAttachments: addedAttachments,
	}
}

// Graph Events

// GraphReplaced is raised when an import swaps the whole graph
type GraphReplaced struct {
	BaseEvent
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
}

// NewGraphReplaced creates a GraphReplaced event
func NewGraphReplaced(nodes, edges int, at time.Time) GraphReplaced {
	return GraphReplaced{BaseEvent: newBase("graph", TypeGraphReplaced, at), NodeCount: nodes, EdgeCount: edges}
}
