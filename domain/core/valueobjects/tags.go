package valueobjects

import "strings"

// NormalizeTags trims tags, drops blanks and collapses duplicates.
// First-seen order is kept so output is deterministic.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// UnionTags appends the tags of extra that base does not already hold
func UnionTags(base, extra []string) []string {
	return NormalizeTags(append(append([]string{}, base...), extra...))
}

// SameTagSet compares two tag lists as sets
func SameTagSet(a, b []string) bool {
	na, nb := NormalizeTags(a), NormalizeTags(b)
	if len(na) != len(nb) {
		return false
	}
	set := make(map[string]struct{}, len(na))
	for _, t := range na {
		set[t] = struct{}{}
	}
	for _, t := range nb {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

// ParseTagList splits the inspector's comma separated tag field
func ParseTagList(s string) []string {
	return NormalizeTags(strings.Split(s, ","))
}
