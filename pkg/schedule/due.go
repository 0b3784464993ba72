package schedule

import (
	"slices"
	"strings"
	"time"
)

// dueLayouts are tried in order. Layouts without a zone are read as UTC.
var dueLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// ParseDue parses a Canvas due_at value into a UTC instant. ok is false for
// empty or unparseable input.
func ParseDue(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dueLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// SortAssignments returns a sorted copy of assignments: dated ones first in
// ascending due order, then undated ones. Ties keep their input order.
func SortAssignments(assignments []Assignment) []Assignment {
	sorted := slices.Clone(assignments)
	slices.SortStableFunc(sorted, compareDue)
	return sorted
}

func compareDue(a, b Assignment) int {
	switch {
	case a.HasDue && b.HasDue:
		return a.Due.Compare(b.Due)
	case a.HasDue:
		return -1
	case b.HasDue:
		return 1
	default:
		return 0
	}
}
