package langdocs

import (
	"sort"
	"strings"
)

// GuideDirectory lists the guides that declare a title, ordered by ascending
// sort. Guides sharing a sort value keep name order.
func GuideDirectory(meta map[string]ResourceMetadata) []GuideEntry {
	names := make([]string, 0, len(meta))
	for name, m := range meta {
		if strings.TrimSpace(m.Title) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	sort.SliceStable(names, func(i, j int) bool {
		return meta[names[i]].Sort < meta[names[j]].Sort
	})

	entries := make([]GuideEntry, 0, len(names))
	for _, name := range names {
		m := meta[name]
		resource := m.Resource
		if resource == "" {
			resource = "guides/" + name
		}
		entries = append(entries, GuideEntry{Resource: resource, Title: m.Title, Description: m.Description})
	}
	return entries
}
