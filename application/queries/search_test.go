package queries_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Steiynbrodt/Osint-Mindmap/application/queries"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/aggregates"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/entities"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

func searchGraph(t *testing.T) *aggregates.Graph {
	t.Helper()
	g := aggregates.NewGraph(nil)
	create := func(nodeType valueobjects.NodeType, label, notes string, tags []string, atts ...entities.Attachment) {
		_, err := g.CreateNodeWith(nodeType, valueobjects.NewPosition(0, 0),
			entities.NodePatch{Label: &label, Notes: &notes, Tags: tags}, atts...)
		require.NoError(t, err)
	}
	create(valueobjects.NodeTypePerson, "Jane Doe", "", []string{"HR"},
		entities.Attachment{Kind: valueobjects.AttachmentEmail, Value: "jane@corp.example"})
	create(valueobjects.NodeTypeOrg, "Corp Ltd", "parent of Initech", nil)
	create(valueobjects.NodeTypeDomain, "initech.example", "", []string{"infra"},
		entities.Attachment{Kind: valueobjects.AttachmentLink, Value: "https://initech.example", Label: "Homepage"})
	return g
}

func ids(nodes []*entities.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID.String())
	}
	return out
}

func TestSearchHandler(t *testing.T) {
	h := queries.NewSearchHandler(searchGraph(t))

	tests := []struct {
		name  string
		query queries.SearchNodesQuery
		want  []string
	}{
		{"empty matches all", queries.SearchNodesQuery{}, []string{"n1", "n2", "n3"}},
		{"label", queries.SearchNodesQuery{Text: "jane"}, []string{"n1"}},
		{"tag case-insensitive", queries.SearchNodesQuery{Text: "hr"}, []string{"n1"}},
		{"attachment value", queries.SearchNodesQuery{Text: "CORP.EXAMPLE"}, []string{"n1"}},
		{"attachment label", queries.SearchNodesQuery{Text: "homepage"}, []string{"n3"}},
		{"notes and label", queries.SearchNodesQuery{Text: "initech"}, []string{"n2", "n3"}},
		{"type filter", queries.SearchNodesQuery{Text: "initech", Types: []valueobjects.NodeType{valueobjects.NodeTypeDomain}}, []string{"n3"}},
		{"no match", queries.SearchNodesQuery{Text: "nothing"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.Handle(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(res.Nodes))
			assert.Equal(t, len(tt.want), res.MatchCount)
			assert.Equal(t, 3, res.TotalCount)
		})
	}
}

func TestSearchHandler_LimitKeepsTotal(t *testing.T) {
	res, err := queries.NewSearchHandler(searchGraph(t)).Handle(queries.SearchNodesQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Nodes, 2)
	assert.Equal(t, 3, res.MatchCount)
	assert.Equal(t, 3, res.TotalCount)

	res, err = queries.NewSearchHandler(searchGraph(t)).Handle(queries.SearchNodesQuery{Text: "initech", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"n2"}, ids(res.Nodes))
	assert.Equal(t, 2, res.MatchCount)
	assert.Equal(t, 3, res.TotalCount)
}

func TestSearchHandler_Validation(t *testing.T) {
	h := queries.NewSearchHandler(aggregates.NewGraph(nil))
	_, err := h.Handle(queries.SearchNodesQuery{Limit: -1})
	assert.True(t, pkgerrors.IsValidation(err))
	_, err = h.Handle(queries.SearchNodesQuery{Types: []valueobjects.NodeType{"planet"}})
	assert.True(t, pkgerrors.IsValidation(err))
}
