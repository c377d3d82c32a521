package valueobjects

import "fmt"

// NodeType is the entity category of a node
type NodeType string

const (
	NodeTypeNPC      NodeType = "npc"
	NodeTypeLocation NodeType = "location"
	NodeTypeQuest    NodeType = "quest"
	NodeTypeItem     NodeType = "item"
	NodeTypeFaction  NodeType = "faction"
	NodeTypePerson   NodeType = "person"
	NodeTypeOrg      NodeType = "org"
	NodeTypeDomain   NodeType = "domain"
	NodeTypeIP       NodeType = "ip"
	NodeTypeURL      NodeType = "url"
	NodeTypeNote     NodeType = "note"
)

var nodeTypeNames = map[NodeType]string{
	NodeTypeNPC:      "NPC",
	NodeTypeLocation: "Location",
	NodeTypeQuest:    "Quest",
	NodeTypeItem:     "Item",
	NodeTypeFaction:  "Faction",
	NodeTypePerson:   "Person",
	NodeTypeOrg:      "Org",
	NodeTypeDomain:   "Domain",
	NodeTypeIP:       "IP",
	NodeTypeURL:      "URL",
	NodeTypeNote:     "Note",
}

// NodeTypes lists every node type in palette order
func NodeTypes() []NodeType {
	return []NodeType{
		NodeTypeNPC, NodeTypeLocation, NodeTypeQuest, NodeTypeItem, NodeTypeFaction,
		NodeTypePerson, NodeTypeOrg, NodeTypeDomain, NodeTypeIP, NodeTypeURL, NodeTypeNote,
	}
}

// IsValid reports whether t is a known node type
func (t NodeType) IsValid() bool {
	_, ok := nodeTypeNames[t]
	return ok
}

// DisplayName returns the palette label for the type
func (t NodeType) DisplayName() string {
	if name, ok := nodeTypeNames[t]; ok {
		return name
	}
	return string(t)
}

// ParseNodeType parses a serialized node type without coercion
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown node type %q", s)
	}
	return t, nil
}

// EdgeStyle is the stroke style of an edge
type EdgeStyle string

const (
	EdgeStyleSolid  EdgeStyle = "solid"
	EdgeStyleDashed EdgeStyle = "dashed"
	EdgeStyleDotted EdgeStyle = "dotted"
)

// IsValid reports whether s is a known edge style
func (s EdgeStyle) IsValid() bool {
	switch s {
	case EdgeStyleSolid, EdgeStyleDashed, EdgeStyleDotted:
		return true
	}
	return false
}

// ParseEdgeStyle parses a serialized edge style without coercion
func ParseEdgeStyle(s string) (EdgeStyle, error) {
	style := EdgeStyle(s)
	if !style.IsValid() {
		return "", fmt.Errorf("unknown edge style %q", s)
	}
	return style, nil
}

// AttachmentKind is the evidence category of an attachment
type AttachmentKind string

const (
	AttachmentLink  AttachmentKind = "link"
	AttachmentFile  AttachmentKind = "file"
	AttachmentEmail AttachmentKind = "email"
)

// IsValid reports whether k is a known attachment kind
func (k AttachmentKind) IsValid() bool {
	switch k {
	case AttachmentLink, AttachmentFile, AttachmentEmail:
		return true
	}
	return false
}

// Status values the inspector offers. Status itself is free text.
const (
	StatusUnknown   = "unknown"
	StatusConfirmed = "confirmed"
	StatusSuspected = "suspected"
	StatusFalse     = "false"
)

// Confidence bounds
const (
	MinConfidence     = 0
	MaxConfidence     = 100
	DefaultConfidence = 50
)

// ClampConfidence forces a confidence value into [0, 100]
func ClampConfidence(c int) int {
	if c < MinConfidence {
		return MinConfidence
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}
