// ABOUTME: Display filters over feed items
// ABOUTME: Narrows by kind, related record type, and free-text query
package feed

import (
	"strings"

	"github.com/harperreed/crmdesk/models"
)

// Filter narrows a feed for display. Empty fields match everything.
type Filter struct {
	Kinds       []Kind
	RelatedType models.RelatedType
	Query       string
}

// Match reports whether it passes the filter. Query matches title, description,
// and related name case-insensitively.
func (f Filter) Match(it Item) bool {
	if len(f.Kinds) > 0 {
		found := false
		for _, k := range f.Kinds {
			if it.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.RelatedType != "" && it.RelatedType != f.RelatedType {
		return false
	}

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		haystack := strings.ToLower(it.Title + "\n" + it.Description + "\n" + it.RelatedTo)
		if !strings.Contains(haystack, q) {
			return false
		}
	}

	return true
}

// Apply returns the matching items in their original order.
func (f Filter) Apply(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	return out
}
