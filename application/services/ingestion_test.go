package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/application/services"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/aggregates"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/entities"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

func TestClassifyDrop(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		kind  services.DropKind
		label string
		value string
	}{
		{"file uri", "file:///home/me/cases/leak.csv", services.DropFile, "leak.csv", "file:///home/me/cases/leak.csv"},
		{"unix path", "/tmp/dump.txt", services.DropFile, "dump.txt", "/tmp/dump.txt"},
		{"windows path", `C:\cases\photo.png`, services.DropFile, "photo.png", `C:\cases\photo.png`},
		{"email", "Alice@Example.com", services.DropEmail, "Alice@Example.com", "alice@example.com"},
		{"ipv4", "10.0.0.1", services.DropIP, "10.0.0.1", ""},
		{"ipv6", "2001:db8::1", services.DropIP, "2001:db8::1", ""},
		{"bare domain url", "https://Example.com/", services.DropDomain, "example.com", "https://Example.com/"},
		{"domain without slash", "http://example.org", services.DropDomain, "example.org", "http://example.org"},
		{"url with path", "https://example.com/about", services.DropURL, "https://example.com/about", "https://example.com/about"},
		{"url with query", "https://example.com/?q=1", services.DropURL, "https://example.com/?q=1", "https://example.com/?q=1"},
		{"plain text", "  meet at noon  ", services.DropText, "meet at noon", ""},
		{"multi-line text", "first line\nsecond line", services.DropText, "first line", ""},
		{"ftp is text", "ftp://files.example.com/x", services.DropText, "ftp://files.example.com/x", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := services.ClassifyDrop(tt.raw)
			assert.Equal(t, tt.kind, item.Kind)
			assert.Equal(t, tt.label, item.Label)
			assert.Equal(t, tt.value, item.Value)
		})
	}
}

func TestDrop_CreatesNodesOnCanvas(t *testing.T) {
	g := aggregates.NewGraph(nil)
	svc := services.NewIngestionService(g, nil, zap.NewNop())

	result, err := svc.Drop(services.DropRequest{
		Items: []string{
			"https://example.com",
			"alice@example.com",
			"first line\nsecond line",
			"   ",
		},
		Position: valueobjects.NewPosition(100, 100),
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 3)
	assert.Equal(t, 2, result.Attachments)
	assert.Equal(t, []string{"   "}, result.Skipped)

	domain, _ := g.Node(result.Created[0])
	assert.Equal(t, valueobjects.NodeTypeDomain, domain.Type)
	assert.Equal(t, "example.com", domain.Label)
	assert.Equal(t, valueobjects.NewPosition(100, 100), domain.Position)
	require.Len(t, domain.Attachments, 1)
	assert.Equal(t, valueobjects.AttachmentLink, domain.Attachments[0].Kind)

	person, _ := g.Node(result.Created[1])
	assert.Equal(t, valueobjects.NodeTypePerson, person.Type)
	assert.Equal(t, valueobjects.NewPosition(124, 124), person.Position)
	require.Len(t, person.EmailAttachments(), 1)

	note, _ := g.Node(result.Created[2])
	assert.Equal(t, valueobjects.NodeTypeNote, note.Type)
	assert.Equal(t, "first line", note.Label)
	assert.Equal(t, "first line\nsecond line", note.Notes)
	assert.Empty(t, note.Attachments)

	assert.NoError(t, g.Validate())
}

func TestDrop_OntoNodeAttachesEvidence(t *testing.T) {
	g := aggregates.NewGraph(nil)
	id, err := g.CreateNode(valueobjects.NodeTypePerson, valueobjects.NewPosition(0, 0))
	require.NoError(t, err)
	require.NoError(t, g.AddAttachment(id, entities.Attachment{Kind: valueobjects.AttachmentEmail, Value: "bob@example.com"}))
	svc := services.NewIngestionService(g, nil, zap.NewNop())

	result, err := svc.Drop(services.DropRequest{
		Target: id,
		Items: []string{
			"https://github.com/bob",
			"BOB@example.com",
			"just words",
			"10.1.1.1",
			"/evidence/bob.pdf",
		},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Equal(t, id, result.Target)
	assert.Equal(t, 2, result.Attachments)
	assert.Equal(t, []string{"just words", "10.1.1.1"}, result.Skipped)
	assert.Equal(t, 1, g.NodeCount())

	node, _ := g.Node(id)
	require.Len(t, node.Attachments, 3)
	assert.Equal(t, valueobjects.AttachmentLink, node.Attachments[1].Kind)
	assert.Equal(t, valueobjects.AttachmentFile, node.Attachments[2].Kind)
}

func TestDrop_Errors(t *testing.T) {
	svc := services.NewIngestionService(aggregates.NewGraph(nil), nil, zap.NewNop())

	_, err := svc.Drop(services.DropRequest{})
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = svc.Drop(services.DropRequest{Target: "n7", Items: []string{"https://example.com"}})
	assert.True(t, pkgerrors.IsNotFound(err))
}
