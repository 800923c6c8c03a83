package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

// Filter returns the entries matching term, in input order.
//
// An entry matches if its name or its artifactId contains term. If
// includeSummary is set, a summary containing term is also a match.
// Comparison is a case-insensitive substring match under Unicode case folding.
// Entries without a name never match.
func Filter(entries []*Entry, term string, includeSummary bool) []*Entry {
	fold := cases.Fold()
	needle := fold.String(term)
	contains := func(s string) bool {
		return s != "" && strings.Contains(fold.String(s), needle)
	}

	var matches []*Entry
	for _, e := range entries {
		if e == nil || e.Name == "" {
			continue
		}
		if contains(e.Name) || contains(e.ArtifactID) || (includeSummary && contains(e.Summary)) {
			matches = append(matches, e)
		}
	}
	return matches
}
