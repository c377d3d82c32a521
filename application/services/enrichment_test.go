package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/application/services"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/aggregates"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/entities"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Enrich(ctx context.Context, req ports.EnrichmentRequest) (*ports.EnrichmentResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*ports.EnrichmentResponse)
	return resp, args.Error(1)
}

type enrichmentFixture struct {
	graph    *aggregates.Graph
	backend  *mockBackend
	notifier *services.Notifier
	service  *services.EnrichmentService
}

func newEnrichmentFixture(cfg services.EnrichmentConfig, prober ports.IconProber) *enrichmentFixture {
	f := &enrichmentFixture{
		graph:    aggregates.NewGraph(nil),
		backend:  &mockBackend{},
		notifier: services.NewNotifier(10, zap.NewNop()),
	}
	f.service = services.NewEnrichmentService(
		f.graph, f.backend, services.NewPivotEnricher(prober), nil,
		f.notifier, nil, zap.NewNop(), cfg,
	)
	return f
}

func (f *enrichmentFixture) node(t *testing.T, nodeType valueobjects.NodeType, label string, atts ...entities.Attachment) valueobjects.NodeID {
	t.Helper()
	id, err := f.graph.CreateNodeWith(nodeType, valueobjects.NewPosition(0, 0), entities.NodePatch{Label: &label}, atts...)
	require.NoError(t, err)
	return id
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestEnrich_MergesBackendAnswer(t *testing.T) {
	f := newEnrichmentFixture(services.EnrichmentConfig{Enabled: true}, nil)
	id := f.node(t, valueobjects.NodeTypeOrg, "Acme Corp")
	require.NoError(t, f.graph.UpdateNode(id, entities.NodePatch{Tags: []string{"target"}}))

	f.backend.On("Enrich", mock.Anything, mock.MatchedBy(func(req ports.EnrichmentRequest) bool {
		return req.Type == "org" && req.Label == "Acme Corp"
	})).Return(&ports.EnrichmentResponse{
		Tags:       []string{"target", "breach", "breach"},
		Status:     strPtr(valueobjects.StatusConfirmed),
		Confidence: intPtr(150),
		Attachments: []entities.Attachment{
			{Kind: valueobjects.AttachmentLink, Value: "https://leaks.example/acme", Label: "leak"},
		},
	}, nil).Once()

	result, err := f.service.Enrich(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, services.EnrichmentMerged, result.Outcome)
	assert.Equal(t, 1, result.AddedTags)
	assert.Equal(t, 1, result.AddedAttachments)
	assert.Equal(t, valueobjects.StatusConfirmed, result.Status)
	assert.Equal(t, valueobjects.MaxConfidence, result.Confidence)

	node, err := f.graph.Node(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"target", "breach"}, node.Tags)
	require.Len(t, node.Attachments, 1)
	assert.Equal(t, "https://leaks.example/acme", node.Attachments[0].Value)
	f.backend.AssertExpectations(t)
}

func TestEnrich_BackendFailureLeavesNodeUntouched(t *testing.T) {
	f := newEnrichmentFixture(services.EnrichmentConfig{Enabled: true, Pivots: true}, nil)
	id := f.node(t, valueobjects.NodeTypePerson, "Jane Doe",
		entities.Attachment{Kind: valueobjects.AttachmentEmail, Value: "jane@corp.example"})
	before, err := f.graph.Snapshot(id)
	require.NoError(t, err)

	f.backend.On("Enrich", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	result, err := f.service.Enrich(context.Background(), id)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsEnrichmentUnavailable(err))
	assert.Equal(t, services.EnrichmentFailed, result.Outcome)

	after, err := f.graph.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	notes := f.notifier.Recent(0)
	require.Len(t, notes, 1)
	assert.Equal(t, services.LevelWarning, notes[0].Level)
	assert.Equal(t, "enrichment", notes[0].Source)
	assert.Equal(t, id.String(), notes[0].NodeID)
}

func TestEnrich_EmailEvidenceRaisesSuspicion(t *testing.T) {
	f := newEnrichmentFixture(services.EnrichmentConfig{Enabled: true}, nil)
	id := f.node(t, valueobjects.NodeTypePerson, "Jane Doe",
		entities.Attachment{Kind: valueobjects.AttachmentEmail, Value: "jane@corp.example"})

	f.backend.On("Enrich", mock.Anything, mock.Anything).Return(&ports.EnrichmentResponse{}, nil)

	result, err := f.service.Enrich(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, valueobjects.StatusSuspected, result.Status)
	assert.Equal(t, 60, result.Confidence)
}

func TestEnrich_EmailEvidenceKeepsConfirmedStatus(t *testing.T) {
	f := newEnrichmentFixture(services.EnrichmentConfig{Enabled: true}, nil)
	id := f.node(t, valueobjects.NodeTypePerson, "Jane Doe",
		entities.Attachment{Kind: valueobjects.AttachmentEmail, Value: "jane@corp.example"})
	require.NoError(t, f.graph.UpdateNode(id, entities.NodePatch{
		Status:     strPtr(valueobjects.StatusConfirmed),
		Confidence: intPtr(90),
	}))

	f.backend.On("Enrich", mock.Anything, mock.Anything).Return(&ports.EnrichmentResponse{}, nil)

	result, err := f.service.Enrich(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, valueobjects.StatusConfirmed, result.Status)
	assert.Equal(t, 90, result.Confidence)
}

func TestEnrich_PivotsOnlyWhenBackendDisabled(t *testing.T) {
	f := newEnrichmentFixture(services.EnrichmentConfig{Enabled: false, Pivots: true}, nil)
	id := f.node(t, valueobjects.NodeTypePerson, "Jane Doe")

	result, err := f.service.Enrich(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, services.EnrichmentPivotsOnly, result.Outcome)
	assert.Equal(t, 3, result.AddedAttachments)

	node, _ := f.graph.Node(id)
	values := make([]string, 0, len(node.Attachments))
	for _, a := range node.Attachments {
		values = append(values, a.Value)
	}
	assert.Equal(t, []string{
		"https://www.google.com/search?q=Jane+Doe",
		"https://www.linkedin.com/search/results/all/?keywords=Jane+Doe",
		"https://haveibeenpwned.com/",
	}, values)

	// pivots are not duplicated on a second pass
	result, err = f.service.Enrich(context.Background(), id)
	require.NoError(t, err)
	assert.Zero(t, result.AddedAttachments)
	f.backend.AssertNotCalled(t, "Enrich", mock.Anything, mock.Anything)
}

func TestEnrich_DisabledWithoutPivots(t *testing.T) {
	f := newEnrichmentFixture(services.EnrichmentConfig{}, nil)
	id := f.node(t, valueobjects.NodeTypeIP, "10.0.0.1")

	result, err := f.service.Enrich(context.Background(), id)
	assert.True(t, pkgerrors.IsEnrichmentUnavailable(err))
	assert.Equal(t, services.EnrichmentDisabled, result.Outcome)

	f.service.SetEnabled(true)
	assert.True(t, f.service.Enabled())
}

func TestEnrich_NodeDeletedDuringCall(t *testing.T) {
	f := newEnrichmentFixture(services.EnrichmentConfig{Enabled: true}, nil)
	id := f.node(t, valueobjects.NodeTypeOrg, "Acme Corp")

	f.backend.On("Enrich", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { f.graph.DeleteNode(id) }).
		Return(&ports.EnrichmentResponse{Tags: []string{"late"}}, nil)

	result, err := f.service.Enrich(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, services.EnrichmentStale, result.Outcome)
	assert.False(t, f.graph.HasNode(id))
	assert.NoError(t, f.graph.Validate())
}

func TestEnrich_MissingNode(t *testing.T) {
	f := newEnrichmentFixture(services.EnrichmentConfig{Enabled: true}, nil)
	_, err := f.service.Enrich(context.Background(), "n9")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestEnrichAsync(t *testing.T) {
	f := newEnrichmentFixture(services.EnrichmentConfig{Enabled: true}, nil)
	id := f.node(t, valueobjects.NodeTypeOrg, "Acme Corp")
	f.backend.On("Enrich", mock.Anything, mock.Anything).Return(&ports.EnrichmentResponse{Tags: []string{"apt"}}, nil)

	f.service.EnrichAsync(id)
	f.service.Wait()

	node, _ := f.graph.Node(id)
	assert.Equal(t, []string{"apt"}, node.Tags)
	f.service.Close()
}

func TestPivotLinks(t *testing.T) {
	prober := &mockProber{}
	prober.On("Probe", mock.Anything, "https://example.org/favicon.ico").Return(true, nil)
	prober.On("Probe", mock.Anything, "https://gone.example/favicon.ico").Return(false, nil)
	pivots := services.NewPivotEnricher(prober)

	tests := []struct {
		name   string
		node   entities.Node
		values []string
	}{
		{
			name:   "ip",
			node:   entities.Node{Type: valueobjects.NodeTypeIP, Label: "203.0.113.7"},
			values: []string{"https://www.shodan.io/host/203.0.113.7", "https://www.abuseipdb.com/check/203.0.113.7"},
		},
		{
			name:   "domain with favicon",
			node:   entities.Node{Type: valueobjects.NodeTypeDomain, Label: "www.example.org"},
			values: []string{"https://example.org/favicon.ico"},
		},
		{
			name: "domain without favicon",
			node: entities.Node{Type: valueobjects.NodeTypeDomain, Label: "gone.example"},
		},
		{
			name: "default label",
			node: entities.Node{Type: valueobjects.NodeTypePerson, Label: "Person"},
		},
		{
			name: "no pivots for notes",
			node: entities.Node{Type: valueobjects.NodeTypeNote, Label: "remember this"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := pivots.Links(context.Background(), tt.node)
			var values []string
			for _, l := range links {
				assert.Equal(t, valueobjects.AttachmentLink, l.Kind)
				values = append(values, l.Value)
			}
			assert.Equal(t, tt.values, values)
		})
	}
}

func TestEnrich_InvalidBackendAttachmentsAreLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	g := aggregates.NewGraph(nil)
	backend := &mockBackend{}
	svc := services.NewEnrichmentService(g, backend, nil, nil, nil, nil, zap.New(core),
		services.EnrichmentConfig{Enabled: true})
	label := "Acme Corp"
	id, err := g.CreateNodeWith(valueobjects.NodeTypeOrg, valueobjects.NewPosition(0, 0), entities.NodePatch{Label: &label})
	require.NoError(t, err)

	backend.On("Enrich", mock.Anything, mock.Anything).Return(&ports.EnrichmentResponse{
		Attachments: []entities.Attachment{
			{Value: "https://nokind.example"},
			{Kind: "fax", Value: "+1 555 0100"},
			{Kind: valueobjects.AttachmentLink, Value: "  "},
			{Kind: valueobjects.AttachmentLink, Value: "https://ok.example"},
		},
	}, nil)

	result, err := svc.Enrich(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AddedAttachments)
	assert.Equal(t, 3, result.SkippedInvalid)

	skipped := logs.FilterMessage("Skipping invalid attachment from enrichment backend")
	assert.Equal(t, 3, skipped.Len())
	assert.Equal(t, 1, skipped.FilterField(zap.String("kind", "fax")).Len())
	assert.Equal(t, 1, skipped.FilterField(zap.String("value", "https://nokind.example")).Len())

	node, _ := g.Node(id)
	require.Len(t, node.Attachments, 1)
	assert.Equal(t, "https://ok.example", node.Attachments[0].Value)
}

func TestResolveThenEnrich_EmailsInLabel(t *testing.T) {
	f := newEnrichmentFixture(services.EnrichmentConfig{Enabled: true}, nil)
	id := f.node(t, valueobjects.NodeTypeNote, "contact me at a@b.com or x@y.org")
	resolver := newResolver(f.graph, nil)

	report, err := resolver.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@b.com", "x@y.org"}, report.EmailsAdded)

	// resolving again adds nothing
	report, err = resolver.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, report.EmailsAdded)

	node, _ := f.graph.Node(id)
	assert.Equal(t, []string{"a@b.com", "x@y.org"}, node.EmailAttachments())
	assert.Len(t, node.Attachments, 2)
	assert.Equal(t, valueobjects.StatusUnknown, node.Status)

	f.backend.On("Enrich", mock.Anything, mock.Anything).Return(&ports.EnrichmentResponse{}, nil)
	result, err := f.service.Enrich(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, valueobjects.StatusSuspected, result.Status)
	assert.GreaterOrEqual(t, result.Confidence, 60)
	assert.Equal(t, 2, result.AddedTags)

	node, _ = f.graph.Node(id)
	assert.Equal(t, []string{"email:a@b.com", "email:x@y.org"}, node.Tags)
	assert.Len(t, node.EmailAttachments(), 2)
}
