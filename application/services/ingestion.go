package services

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/entities"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
	"github.com/Steiynbrodt/Osint-Mindmap/pkg/utils"
)

// DropKind classifies one dropped item
type DropKind string

const (
	DropDomain DropKind = "domain"
	DropURL    DropKind = "url"
	DropIP     DropKind = "ip"
	DropEmail  DropKind = "email"
	DropFile   DropKind = "file"
	DropText   DropKind = "text"
)

// cascade offset between nodes created from one multi-item drop
const dropStagger = 24.0

// DroppedItem is a classified drop payload
type DroppedItem struct {
	Kind  DropKind
	Raw   string
	Label string
	// Value is the attachment value, empty when the item carries no attachment
	Value string
}

// ClassifyDrop decides what a dropped string is
func ClassifyDrop(raw string) DroppedItem {
	s := strings.TrimSpace(raw)
	item := DroppedItem{Kind: DropText, Raw: s, Label: firstLine(s)}

	if strings.HasPrefix(strings.ToLower(s), "file://") {
		if u, err := url.Parse(s); err == nil && u.Path != "" {
			item.Kind, item.Value, item.Label = DropFile, s, path.Base(u.Path)
			return item
		}
	}
	if isAbsolutePath(s) {
		item.Kind, item.Value, item.Label = DropFile, s, baseName(s)
		return item
	}
	if utils.Matches(s, "email") {
		item.Kind, item.Value, item.Label = DropEmail, strings.ToLower(s), s
		return item
	}
	if utils.Matches(s, "ip") {
		item.Kind, item.Label = DropIP, s
		return item
	}
	if u, ok := webURL(s); ok {
		item.Value = s
		if (u.Path == "" || u.Path == "/") && u.RawQuery == "" && u.Fragment == "" {
			item.Kind, item.Label = DropDomain, strings.ToLower(u.Hostname())
		} else {
			item.Kind, item.Label = DropURL, s
		}
		return item
	}
	return item
}

func webURL(s string) (*url.URL, bool) {
	if !utils.Matches(s, "url") {
		return nil, false
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return nil, false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u, true
	}
	return nil, false
}

func isAbsolutePath(s string) bool {
	if strings.ContainsAny(s, "\n\r") {
		return false
	}
	if filepath.IsAbs(s) {
		return true
	}
	// Windows drive paths arrive from browser drops on any host OS
	return len(s) > 2 && s[1] == ':' && (s[2] == '\\' || s[2] == '/') &&
		((s[0] >= 'a' && s[0] <= 'z') || (s[0] >= 'A' && s[0] <= 'Z'))
}

func baseName(s string) string {
	s = strings.ReplaceAll(s, "\\", "/")
	return path.Base(s)
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// nodeTypeFor maps a drop kind onto the node it creates
func nodeTypeFor(kind DropKind) valueobjects.NodeType {
	switch kind {
	case DropDomain:
		return valueobjects.NodeTypeDomain
	case DropURL:
		return valueobjects.NodeTypeURL
	case DropIP:
		return valueobjects.NodeTypeIP
	case DropEmail:
		return valueobjects.NodeTypePerson
	}
	return valueobjects.NodeTypeNote
}

func attachmentKindFor(kind DropKind) valueobjects.AttachmentKind {
	switch kind {
	case DropDomain, DropURL:
		return valueobjects.AttachmentLink
	case DropEmail:
		return valueobjects.AttachmentEmail
	case DropFile:
		return valueobjects.AttachmentFile
	}
	return ""
}

// DropRequest is one drag-and-drop gesture
type DropRequest struct {
	Items    []string              `json:"items" validate:"required,min=1,dive,required"`
	Position valueobjects.Position `json:"position"`
	Target   valueobjects.NodeID   `json:"target,omitempty"`
}

// DropResult lists what the drop produced
type DropResult struct {
	Created     []valueobjects.NodeID `json:"created"`
	Target      valueobjects.NodeID   `json:"target,omitempty"`
	Attachments int                   `json:"attachments"`
	Skipped     []string              `json:"skipped,omitempty"`
}

// IngestionService turns dropped text, URLs and files into graph content
type IngestionService struct {
	store    ports.GraphStore
	resolver *Resolver
	logger   *zap.Logger
}

// NewIngestionService creates the drop handler
func NewIngestionService(store ports.GraphStore, resolver *Resolver, logger *zap.Logger) *IngestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestionService{store: store, resolver: resolver, logger: logger}
}

// Drop ingests every item. Dropping onto an existing node only attaches
// evidence to it; dropping onto empty canvas creates one node per item.
// Resolution is scheduled for every touched node.
func (s *IngestionService) Drop(req DropRequest) (DropResult, error) {
	var result DropResult
	if len(req.Items) == 0 {
		return result, pkgerrors.NewValidationError("nothing was dropped")
	}
	if !req.Target.IsZero() {
		return s.dropOnNode(req)
	}

	for i, raw := range req.Items {
		item := ClassifyDrop(raw)
		if item.Raw == "" {
			result.Skipped = append(result.Skipped, raw)
			continue
		}
		pos := req.Position.Translate(float64(i)*dropStagger, float64(i)*dropStagger)
		label := item.Label
		patch := entities.NodePatch{Label: &label}
		if item.Kind == DropText && item.Label != item.Raw {
			notes := item.Raw
			patch.Notes = &notes
		}

		var atts []entities.Attachment
		if kind := attachmentKindFor(item.Kind); kind != "" {
			atts = append(atts, entities.Attachment{Kind: kind, Value: item.Value})
		}

		id, err := s.store.CreateNodeWith(nodeTypeFor(item.Kind), pos, patch, atts...)
		if err != nil {
			return result, err
		}
		result.Created = append(result.Created, id)
		result.Attachments += len(atts)
		s.logger.Debug("Node created from drop", zap.String("nodeID", id.String()), zap.String("kind", string(item.Kind)))

		if s.resolver != nil {
			s.resolver.ResolveAsync(id)
		}
	}
	return result, nil
}

func (s *IngestionService) dropOnNode(req DropRequest) (DropResult, error) {
	result := DropResult{Target: req.Target}
	if !s.store.HasNode(req.Target) {
		return result, pkgerrors.NewNotFoundError("node", req.Target.String())
	}

	for _, raw := range req.Items {
		item := ClassifyDrop(raw)
		kind := attachmentKindFor(item.Kind)
		if kind == "" {
			result.Skipped = append(result.Skipped, raw)
			continue
		}
		added, err := s.store.AddAttachmentIfAbsent(req.Target, entities.Attachment{Kind: kind, Value: item.Value})
		if err != nil {
			return result, err
		}
		if added {
			result.Attachments++
		}
	}

	if result.Attachments > 0 && s.resolver != nil {
		s.resolver.ResolveAsync(req.Target)
	}
	return result, nil
}
