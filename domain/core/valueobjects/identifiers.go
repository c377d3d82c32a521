package valueobjects

import (
	"strconv"
	"strings"
)

// NodeID identifies a node within a graph session
type NodeID string

// EdgeID identifies an edge within a graph session
type EdgeID string

const (
	nodeIDPrefix = "n"
	edgeIDPrefix = "e"
)

// String returns the string representation
func (id NodeID) String() string {
	return string(id)
}

// IsZero reports whether the id is empty
func (id NodeID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

// String returns the string representation
func (id EdgeID) String() string {
	return string(id)
}

// IsZero reports whether the id is empty
func (id EdgeID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

// NodeIDFromSequence formats the k-th generated node id
func NodeIDFromSequence(k uint64) NodeID {
	return NodeID(nodeIDPrefix + strconv.FormatUint(k, 10))
}

// EdgeIDFromSequence formats the k-th generated edge id
func EdgeIDFromSequence(k uint64) EdgeID {
	return EdgeID(edgeIDPrefix + strconv.FormatUint(k, 10))
}

// SequenceOf returns the counter value encoded in a generated id such as "n12".
// Foreign ids (UUIDs from older exports) report ok=false.
func SequenceOf(id string) (uint64, bool) {
	if len(id) < 2 {
		return 0, false
	}
	switch id[:1] {
	case nodeIDPrefix, edgeIDPrefix:
	default:
		return 0, false
	}
	k, err := strconv.ParseUint(id[1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return k, true
}
