package aggregates

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/entities"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/events"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

// SelectionKind tells what the current selection points at
type SelectionKind string

const (
	SelectionNone SelectionKind = ""
	SelectionNode SelectionKind = "node"
	SelectionEdge SelectionKind = "edge"
)

// Selection is the single selected node or edge
type Selection struct {
	Kind SelectionKind `json:"kind"`
	ID   string        `json:"id,omitempty"`
}

// IsEmpty reports whether nothing is selected
func (s Selection) IsEmpty() bool {
	return s.Kind == SelectionNone || s.ID == ""
}

// GraphState is a complete node and edge set, used for whole-graph replacement
type GraphState struct {
	Nodes []*entities.Node
	Edges []*entities.Edge
}

// EnrichmentPatch is an enrichment result ready to be merged into a node
type EnrichmentPatch struct {
	Tags        []string
	Status      string
	Confidence  *int
	Attachments []entities.Attachment
	// EmailEvidence promotes an unknown node to suspected once it holds emails
	EmailEvidence bool
}

// MergeOutcome describes what a merge changed
type MergeOutcome struct {
	AddedTags        int
	AddedAttachments []entities.Attachment
	StatusChanged    bool
	ConfidenceChange bool
}

// Changed reports whether the merge touched the node
func (o MergeOutcome) Changed() bool {
	return o.AddedTags > 0 || len(o.AddedAttachments) > 0 || o.StatusChanged || o.ConfidenceChange
}

const (
	emailEvidenceStatus     = valueobjects.StatusSuspected
	emailEvidenceConfidence = 60
)

// EmailTagPrefix marks the tag added for every email address found on a node
// during enrichment, e.g. "email:jane@corp.example"
const EmailTagPrefix = "email:"

// Graph is the in-memory store for nodes and edges.
// Every mutation runs under one lock and leaves the graph consistent:
// no dangling edges, no duplicate ids. Events are published after unlock.
type Graph struct {
	mu        sync.RWMutex
	nodes     map[valueobjects.NodeID]*entities.Node
	edges     map[valueobjects.EdgeID]*entities.Edge
	incidence map[valueobjects.NodeID]map[valueobjects.EdgeID]struct{}
	counter   uint64
	selection Selection

	publisher events.Publisher
	now       func() time.Time
}

// NewGraph creates an empty graph store
func NewGraph(publisher events.Publisher) *Graph {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Graph{
		nodes:     make(map[valueobjects.NodeID]*entities.Node),
		edges:     make(map[valueobjects.EdgeID]*entities.Edge),
		incidence: make(map[valueobjects.NodeID]map[valueobjects.EdgeID]struct{}),
		publisher: publisher,
		now:       time.Now,
	}
}

func (g *Graph) publish(evts ...events.DomainEvent) {
	g.publisher.Publish(context.Background(), evts...)
}

// nextNodeID must be called with the write lock held
func (g *Graph) nextNodeID() valueobjects.NodeID {
	for {
		g.counter++
		id := valueobjects.NodeIDFromSequence(g.counter)
		if _, taken := g.nodes[id]; !taken {
			return id
		}
	}
}

// nextEdgeID must be called with the write lock held
func (g *Graph) nextEdgeID() valueobjects.EdgeID {
	for {
		g.counter++
		id := valueobjects.EdgeIDFromSequence(g.counter)
		if _, taken := g.edges[id]; !taken {
			return id
		}
	}
}

// CreateNode places a new node of the given type at pos
func (g *Graph) CreateNode(nodeType valueobjects.NodeType, pos valueobjects.Position) (valueobjects.NodeID, error) {
	if !nodeType.IsValid() {
		return "", pkgerrors.NewValidationError("unknown node type: " + string(nodeType))
	}

	g.mu.Lock()
	id := g.nextNodeID()
	node, err := entities.NewNode(id, nodeType, pos)
	if err != nil {
		g.mu.Unlock()
		return "", err
	}
	g.nodes[id] = node
	g.mu.Unlock()

	g.publish(events.NewNodeCreated(id, nodeType, g.now()))
	return id, nil
}

// CreateNodeWith creates a node and applies patch and attachments in one step.
// Drop ingestion uses it so a half-built node is never observable.
func (g *Graph) CreateNodeWith(nodeType valueobjects.NodeType, pos valueobjects.Position, patch entities.NodePatch, attachments ...entities.Attachment) (valueobjects.NodeID, error) {
	if !nodeType.IsValid() {
		return "", pkgerrors.NewValidationError("unknown node type: " + string(nodeType))
	}
	for _, a := range attachments {
		if err := a.Validate(); err != nil {
			return "", err
		}
	}

	g.mu.Lock()
	id := g.nextNodeID()
	node, err := entities.NewNode(id, nodeType, pos)
	if err == nil {
		err = patch.Apply(node)
	}
	if err != nil {
		g.mu.Unlock()
		return "", err
	}
	for _, a := range attachments {
		node.Attachments = append(node.Attachments, a.Clone())
	}
	g.nodes[id] = node
	g.mu.Unlock()

	evts := []events.DomainEvent{events.NewNodeCreated(id, nodeType, g.now())}
	for _, a := range attachments {
		evts = append(evts, events.NewAttachmentAdded(id, a.Kind, a.Value, g.now()))
	}
	g.publish(evts...)
	return id, nil
}

// UpdateNode applies an inspector patch to a node
func (g *Graph) UpdateNode(id valueobjects.NodeID, patch entities.NodePatch) error {
	g.mu.Lock()
	node, ok := g.nodes[id]
	if !ok {
		g.mu.Unlock()
		return pkgerrors.NewNotFoundError("node", id.String())
	}
	if err := patch.Apply(node); err != nil {
		g.mu.Unlock()
		return err
	}
	g.mu.Unlock()

	if !patch.IsEmpty() {
		g.publish(events.NewNodeUpdated(id, patch.ChangedFields(), g.now()))
	}
	return nil
}

// MoveNode sets a node's position
func (g *Graph) MoveNode(id valueobjects.NodeID, pos valueobjects.Position) error {
	return g.UpdateNode(id, entities.NodePatch{Position: &pos})
}

// DeleteNode removes a node and every incident edge.
// Deleting an absent node is a no-op.
func (g *Graph) DeleteNode(id valueobjects.NodeID) {
	g.mu.Lock()
	if _, ok := g.nodes[id]; !ok {
		g.mu.Unlock()
		return
	}

	removed := make([]valueobjects.EdgeID, 0, len(g.incidence[id]))
	for edgeID := range g.incidence[id] {
		removed = append(removed, edgeID)
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	for _, edgeID := range removed {
		g.removeEdgeLocked(edgeID)
	}
	delete(g.nodes, id)
	delete(g.incidence, id)
	g.clearSelectionLocked(string(id))
	for _, edgeID := range removed {
		g.clearSelectionLocked(string(edgeID))
	}
	g.mu.Unlock()

	g.publish(events.NewNodeDeleted(id, removed, g.now()))
}

// CreateEdge connects source to target. Self-loops are allowed.
func (g *Graph) CreateEdge(source, target valueobjects.NodeID, style valueobjects.EdgeStyle) (valueobjects.EdgeID, error) {
	if style == "" {
		style = valueobjects.EdgeStyleSolid
	}
	if !style.IsValid() {
		return "", pkgerrors.NewValidationError("unknown edge style: " + string(style))
	}

	g.mu.Lock()
	if _, ok := g.nodes[source]; !ok {
		g.mu.Unlock()
		return "", pkgerrors.NewInvalidReferenceError(fmt.Sprintf("source node %q does not exist", source))
	}
	if _, ok := g.nodes[target]; !ok {
		g.mu.Unlock()
		return "", pkgerrors.NewInvalidReferenceError(fmt.Sprintf("target node %q does not exist", target))
	}
	id := g.nextEdgeID()
	edge, err := entities.NewEdge(id, source, target, style)
	if err != nil {
		g.mu.Unlock()
		return "", err
	}
	g.insertEdgeLocked(edge)
	g.mu.Unlock()

	g.publish(events.NewEdgeCreated(id, source, target, g.now()))
	return id, nil
}

// UpdateEdge changes an edge's label or style
func (g *Graph) UpdateEdge(id valueobjects.EdgeID, patch entities.EdgePatch) error {
	g.mu.Lock()
	edge, ok := g.edges[id]
	if !ok {
		g.mu.Unlock()
		return pkgerrors.NewNotFoundError("edge", id.String())
	}
	if err := patch.Apply(edge); err != nil {
		g.mu.Unlock()
		return err
	}
	g.mu.Unlock()

	g.publish(events.NewEdgeUpdated(id, g.now()))
	return nil
}

// DeleteEdge removes an edge; an absent edge is NotFound
func (g *Graph) DeleteEdge(id valueobjects.EdgeID) error {
	g.mu.Lock()
	if _, ok := g.edges[id]; !ok {
		g.mu.Unlock()
		return pkgerrors.NewNotFoundError("edge", id.String())
	}
	g.removeEdgeLocked(id)
	g.clearSelectionLocked(string(id))
	g.mu.Unlock()

	g.publish(events.NewEdgeDeleted(id, g.now()))
	return nil
}

func (g *Graph) insertEdgeLocked(edge *entities.Edge) {
	g.edges[edge.ID] = edge
	for _, nodeID := range []valueobjects.NodeID{edge.Source, edge.Target} {
		set, ok := g.incidence[nodeID]
		if !ok {
			set = make(map[valueobjects.EdgeID]struct{})
			g.incidence[nodeID] = set
		}
		set[edge.ID] = struct{}{}
	}
}

func (g *Graph) removeEdgeLocked(id valueobjects.EdgeID) {
	edge, ok := g.edges[id]
	if !ok {
		return
	}
	delete(g.edges, id)
	for _, nodeID := range []valueobjects.NodeID{edge.Source, edge.Target} {
		if set, ok := g.incidence[nodeID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(g.incidence, nodeID)
			}
		}
	}
}

// AddAttachment appends evidence to a node
func (g *Graph) AddAttachment(id valueobjects.NodeID, attachment entities.Attachment) error {
	if err := attachment.Validate(); err != nil {
		return err
	}

	g.mu.Lock()
	node, ok := g.nodes[id]
	if !ok {
		g.mu.Unlock()
		return pkgerrors.NewNotFoundError("node", id.String())
	}
	node.Attachments = append(node.Attachments, attachment.Clone())
	g.mu.Unlock()

	g.publish(events.NewAttachmentAdded(id, attachment.Kind, attachment.Value, g.now()))
	return nil
}

// AddAttachmentIfAbsent appends evidence unless the node already holds the
// same kind and value. Emails compare case-insensitively.
func (g *Graph) AddAttachmentIfAbsent(id valueobjects.NodeID, attachment entities.Attachment) (bool, error) {
	if err := attachment.Validate(); err != nil {
		return false, err
	}

	g.mu.Lock()
	node, ok := g.nodes[id]
	if !ok {
		g.mu.Unlock()
		return false, pkgerrors.NewNotFoundError("node", id.String())
	}
	if node.HasAttachmentValue(attachment.Kind, attachment.Value) {
		g.mu.Unlock()
		return false, nil
	}
	node.Attachments = append(node.Attachments, attachment.Clone())
	g.mu.Unlock()

	g.publish(events.NewAttachmentAdded(id, attachment.Kind, attachment.Value, g.now()))
	return true, nil
}

// RemoveAttachment drops the attachment at index
func (g *Graph) RemoveAttachment(id valueobjects.NodeID, index int) error {
	g.mu.Lock()
	node, ok := g.nodes[id]
	if !ok {
		g.mu.Unlock()
		return pkgerrors.NewNotFoundError("node", id.String())
	}
	if index < 0 || index >= len(node.Attachments) {
		g.mu.Unlock()
		return pkgerrors.NewNotFoundError("attachment", fmt.Sprintf("%s[%d]", id, index))
	}
	value := node.Attachments[index].Value
	node.Attachments = append(node.Attachments[:index], node.Attachments[index+1:]...)
	g.mu.Unlock()

	g.publish(events.NewAttachmentRemoved(id, index, value, g.now()))
	return nil
}

// SetAttachmentMetadata writes resolver output onto every attachment of kind
// whose raw value equals value. Matching by value tolerates reorders and
// removals made while the resolver was running. A blank icon or nil emails
// leaves that field untouched.
func (g *Graph) SetAttachmentMetadata(id valueobjects.NodeID, kind valueobjects.AttachmentKind, value string, md entities.AttachmentMetadata) (int, error) {
	g.mu.Lock()
	node, ok := g.nodes[id]
	if !ok {
		g.mu.Unlock()
		return 0, pkgerrors.NewNotFoundError("node", id.String())
	}
	updated := 0
	for i := range node.Attachments {
		a := &node.Attachments[i]
		if a.Kind != kind || a.Value != value {
			continue
		}
		if a.Metadata == nil {
			a.Metadata = &entities.AttachmentMetadata{}
		}
		if md.Icon != "" {
			a.Metadata.Icon = md.Icon
		}
		if md.Emails != nil {
			a.Metadata.Emails = append([]string{}, md.Emails...)
		}
		updated++
	}
	g.mu.Unlock()

	if updated > 0 {
		g.publish(events.NewAttachmentResolved(id, value, md.Icon, g.now()))
	}
	return updated, nil
}

// MergeEnrichment folds an enrichment result into a node in one atomic step.
// Tags are unioned, a non-empty status overwrites, confidence is clamped and
// overwrites, attachments are appended unless their raw value is present.
// With EmailEvidence set, every email attachment also becomes an email: tag.
func (g *Graph) MergeEnrichment(id valueobjects.NodeID, patch EnrichmentPatch) (MergeOutcome, error) {
	var outcome MergeOutcome

	g.mu.Lock()
	node, ok := g.nodes[id]
	if !ok {
		g.mu.Unlock()
		return outcome, pkgerrors.NewNotFoundError("node", id.String())
	}

	if len(patch.Tags) > 0 {
		before := len(node.Tags)
		node.Tags = valueobjects.UnionTags(node.Tags, patch.Tags)
		outcome.AddedTags = len(node.Tags) - before
	}
	if status := strings.TrimSpace(patch.Status); status != "" && status != node.Status {
		node.Status = status
		outcome.StatusChanged = true
	}
	if patch.Confidence != nil {
		c := valueobjects.ClampConfidence(*patch.Confidence)
		if c != node.Confidence {
			node.Confidence = c
			outcome.ConfidenceChange = true
		}
	}
	for _, a := range patch.Attachments {
		if a.Validate() != nil || node.HasAnyAttachmentValue(a.Value) {
			continue
		}
		node.Attachments = append(node.Attachments, a.Clone())
		outcome.AddedAttachments = append(outcome.AddedAttachments, a.Clone())
	}
	if emails := node.EmailAttachments(); patch.EmailEvidence && len(emails) > 0 {
		emailTags := make([]string, 0, len(emails))
		for _, addr := range emails {
			emailTags = append(emailTags, EmailTagPrefix+addr)
		}
		before := len(node.Tags)
		node.Tags = valueobjects.UnionTags(node.Tags, emailTags)
		outcome.AddedTags += len(node.Tags) - before
		if node.Status == valueobjects.StatusUnknown || node.Status == "" {
			node.Status = emailEvidenceStatus
			outcome.StatusChanged = true
		}
		if node.Confidence < emailEvidenceConfidence {
			node.Confidence = emailEvidenceConfidence
			outcome.ConfidenceChange = true
		}
	}
	g.mu.Unlock()

	if outcome.Changed() {
		g.publish(events.NewNodeEnriched(id, outcome.AddedTags, len(outcome.AddedAttachments), g.now()))
	}
	return outcome, nil
}

// Node returns a deep copy of the node
func (g *Graph) Node(id valueobjects.NodeID) (*entities.Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	node, ok := g.nodes[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("node", id.String())
	}
	return node.Clone(), nil
}

// Snapshot returns an immutable copy of a node for async tasks
func (g *Graph) Snapshot(id valueobjects.NodeID) (entities.Node, error) {
	node, err := g.Node(id)
	if err != nil {
		return entities.Node{}, err
	}
	return *node, nil
}

// HasNode reports whether the node exists
func (g *Graph) HasNode(id valueobjects.NodeID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Edge returns a copy of the edge
func (g *Graph) Edge(id valueobjects.EdgeID) (*entities.Edge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	edge, ok := g.edges[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("edge", id.String())
	}
	return edge.Clone(), nil
}

// Nodes returns copies of every node sorted by id
func (g *Graph) Nodes() []*entities.Node {
	g.mu.RLock()
	out := make([]*entities.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n.Clone())
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns copies of every edge sorted by id
func (g *Graph) Edges() []*entities.Edge {
	g.mu.RLock()
	out := make([]*entities.Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e.Clone())
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IncidentEdges returns copies of the edges touching a node
func (g *Graph) IncidentEdges(id valueobjects.NodeID) []*entities.Edge {
	g.mu.RLock()
	out := make([]*entities.Edge, 0, len(g.incidence[id]))
	for edgeID := range g.incidence[id] {
		out = append(out, g.edges[edgeID].Clone())
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// State returns a consistent copy of the whole graph
func (g *Graph) State() GraphState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	state := GraphState{
		Nodes: make([]*entities.Node, 0, len(g.nodes)),
		Edges: make([]*entities.Edge, 0, len(g.edges)),
	}
	for _, n := range g.nodes {
		state.Nodes = append(state.Nodes, n.Clone())
	}
	for _, e := range g.edges {
		state.Edges = append(state.Edges, e.Clone())
	}
	sort.Slice(state.Nodes, func(i, j int) bool { return state.Nodes[i].ID < state.Nodes[j].ID })
	sort.Slice(state.Edges, func(i, j int) bool { return state.Edges[i].ID < state.Edges[j].ID })
	return state
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Select sets the current selection. Selecting a missing target is NotFound.
func (g *Graph) Select(sel Selection) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch sel.Kind {
	case SelectionNone:
		g.selection = Selection{}
	case SelectionNode:
		if _, ok := g.nodes[valueobjects.NodeID(sel.ID)]; !ok {
			return pkgerrors.NewNotFoundError("node", sel.ID)
		}
		g.selection = sel
	case SelectionEdge:
		if _, ok := g.edges[valueobjects.EdgeID(sel.ID)]; !ok {
			return pkgerrors.NewNotFoundError("edge", sel.ID)
		}
		g.selection = sel
	default:
		return pkgerrors.NewValidationError("unknown selection kind: " + string(sel.Kind))
	}
	return nil
}

// Selection returns the current selection
func (g *Graph) Selection() Selection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.selection
}

func (g *Graph) clearSelectionLocked(id string) {
	if g.selection.ID == id {
		g.selection = Selection{}
	}
}

// Replace swaps in a whole new graph in one step. The state is checked for
// duplicate ids and dangling edges first; on error nothing changes.
func (g *Graph) Replace(state GraphState) error {
	nodes := make(map[valueobjects.NodeID]*entities.Node, len(state.Nodes))
	var maxSeq uint64
	for _, n := range state.Nodes {
		if n == nil {
			return pkgerrors.NewValidationError("nil node in graph state")
		}
		if err := n.Validate(); err != nil {
			return err
		}
		if _, dup := nodes[n.ID]; dup {
			return pkgerrors.NewValidationError(fmt.Sprintf("duplicate node id %q", n.ID))
		}
		clone := n.Clone()
		clone.Tags = valueobjects.NormalizeTags(clone.Tags)
		nodes[n.ID] = clone
		if k, ok := valueobjects.SequenceOf(string(n.ID)); ok && k > maxSeq {
			maxSeq = k
		}
	}

	edges := make(map[valueobjects.EdgeID]*entities.Edge, len(state.Edges))
	for _, e := range state.Edges {
		if e == nil {
			return pkgerrors.NewValidationError("nil edge in graph state")
		}
		if err := e.Validate(); err != nil {
			return err
		}
		if _, dup := edges[e.ID]; dup {
			return pkgerrors.NewValidationError(fmt.Sprintf("duplicate edge id %q", e.ID))
		}
		if _, dup := nodes[valueobjects.NodeID(e.ID)]; dup {
			return pkgerrors.NewValidationError(fmt.Sprintf("id %q used by both a node and an edge", e.ID))
		}
		if _, ok := nodes[e.Source]; !ok {
			return pkgerrors.NewInvalidReferenceError(fmt.Sprintf("edge %q references missing node %q", e.ID, e.Source))
		}
		if _, ok := nodes[e.Target]; !ok {
			return pkgerrors.NewInvalidReferenceError(fmt.Sprintf("edge %q references missing node %q", e.ID, e.Target))
		}
		edges[e.ID] = e.Clone()
		if k, ok := valueobjects.SequenceOf(string(e.ID)); ok && k > maxSeq {
			maxSeq = k
		}
	}

	g.mu.Lock()
	g.nodes = nodes
	g.edges = make(map[valueobjects.EdgeID]*entities.Edge, len(edges))
	g.incidence = make(map[valueobjects.NodeID]map[valueobjects.EdgeID]struct{}, len(nodes))
	for _, e := range edges {
		g.insertEdgeLocked(e)
	}
	if maxSeq > g.counter {
		g.counter = maxSeq
	}
	g.selection = Selection{}
	nodeCount, edgeCount := len(g.nodes), len(g.edges)
	g.mu.Unlock()

	g.publish(events.NewGraphReplaced(nodeCount, edgeCount, g.now()))
	return nil
}

// Validate checks the store invariants. It is used by tests and by the
// export path as a last guard.
func (g *Graph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for id, e := range g.edges {
		if id != e.ID {
			return fmt.Errorf("edge keyed %q carries id %q", id, e.ID)
		}
		if _, ok := g.nodes[e.Source]; !ok {
			return fmt.Errorf("edge %q has dangling source %q", id, e.Source)
		}
		if _, ok := g.nodes[e.Target]; !ok {
			return fmt.Errorf("edge %q has dangling target %q", id, e.Target)
		}
	}
	for nodeID, set := range g.incidence {
		if _, ok := g.nodes[nodeID]; !ok {
			return fmt.Errorf("incidence entry for missing node %q", nodeID)
		}
		for edgeID := range set {
			e, ok := g.edges[edgeID]
			if !ok || !e.Touches(nodeID) {
				return fmt.Errorf("incidence entry %q -> %q is stale", nodeID, edgeID)
			}
		}
	}
	for id, n := range g.nodes {
		if id != n.ID {
			return fmt.Errorf("node keyed %q carries id %q", id, n.ID)
		}
		if _, ok := g.edges[valueobjects.EdgeID(id)]; ok {
			return fmt.Errorf("id %q used by both a node and an edge", id)
		}
	}
	return nil
}
