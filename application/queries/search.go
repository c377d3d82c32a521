package queries

import (
	"strings"

	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/entities"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

// SearchNodesQuery filters nodes by free text and optionally by type
type SearchNodesQuery struct {
	Text  string
	Types []valueobjects.NodeType
	Limit int
}

// Validate validates the SearchNodesQuery
func (q SearchNodesQuery) Validate() error {
	if q.Limit < 0 {
		return pkgerrors.NewValidationError("limit cannot be negative")
	}
	for _, t := range q.Types {
		if !t.IsValid() {
			return pkgerrors.NewValidationError("unknown node type: " + string(t))
		}
	}
	return nil
}

// SearchNodesResult lists the matching nodes in id order. MatchCount counts
// every match before the limit; TotalCount is the size of the graph searched.
type SearchNodesResult struct {
	Nodes      []*entities.Node `json:"nodes"`
	MatchCount int              `json:"matchCount"`
	TotalCount int              `json:"totalCount"`
	Query      string           `json:"query"`
}

// SearchHandler answers search queries against the graph
type SearchHandler struct {
	store ports.GraphStore
}

// NewSearchHandler creates a search handler
func NewSearchHandler(store ports.GraphStore) *SearchHandler {
	return &SearchHandler{store: store}
}

// Handle runs the query. Matching is case-insensitive over label, tags,
// attachment labels and values, and notes. An empty text matches every node.
func (h *SearchHandler) Handle(q SearchNodesQuery) (*SearchNodesResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(q.Text))
	nodes := h.store.Nodes()
	result := &SearchNodesResult{Nodes: []*entities.Node{}, TotalCount: len(nodes), Query: q.Text}
	for _, n := range nodes {
		if !typeAllowed(n.Type, q.Types) || !Matches(n, needle) {
			continue
		}
		result.MatchCount++
		if q.Limit == 0 || len(result.Nodes) < q.Limit {
			result.Nodes = append(result.Nodes, n)
		}
	}
	return result, nil
}

func typeAllowed(t valueobjects.NodeType, allowed []valueobjects.NodeType) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}

// Matches reports whether a node contains the lower-cased needle
func Matches(n *entities.Node, needle string) bool {
	if needle == "" {
		return true
	}
	contains := func(s string) bool { return strings.Contains(strings.ToLower(s), needle) }

	if contains(n.Label) || contains(n.Notes) {
		return true
	}
	for _, tag := range n.Tags {
		if contains(tag) {
			return true
		}
	}
	for _, a := range n.Attachments {
		if contains(a.Label) || contains(a.Value) {
			return true
		}
	}
	return false
}
