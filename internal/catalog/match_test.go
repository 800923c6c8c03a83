package catalog

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testEntries() []*Entry {
	return []*Entry{
		{Name: "Grid Utils", ArtifactID: "gridutil", Summary: "Helpers for tables"},
		{Name: "Charts", ArtifactID: "vaadin-charts", Summary: "Beautiful GRID-less charts"},
		{Name: "Spreadsheet", Summary: "Excel-like grids"},
		{Name: "Tables", ArtifactID: "Tabular-GRID"},
		{Name: "", ArtifactID: "grid-nameless"},
		nil,
		{Name: "Straße"},
	}
}

func names(entries []*Entry) []string {
	var result []string
	for _, e := range entries {
		result = append(result, e.Name)
	}
	return result
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name           string
		term           string
		includeSummary bool
		want           []string
	}{
		{"name match is case-insensitive", "GRID", false, []string{"Grid Utils", "Tables"}},
		{"artifact match is case-insensitive", "tabular", false, []string{"Tables"}},
		{"summary ignored without full", "excel", false, nil},
		{"summary included with full", "excel", true, []string{"Spreadsheet"}},
		{"full keeps order", "grid", true, []string{"Grid Utils", "Charts", "Spreadsheet", "Tables"}},
		{"unicode folding", "STRASSE", false, []string{"Straße"}},
		{"no match", "calendar", true, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := names(Filter(testEntries(), tc.term, tc.includeSummary))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Filter(%q, %v) mismatch (-want +got):\n%s", tc.term, tc.includeSummary, diff)
			}
		})
	}
}

func TestFilterEmpty(t *testing.T) {
	if got := Filter(nil, "grid", true); len(got) != 0 {
		t.Errorf("Filter(nil) = %v, want empty", got)
	}
}

// Every entry returned without full matching must match on name or artifactId.
func TestFilterSoundness(t *testing.T) {
	for _, term := range []string{"g", "grid", "ta", "charts", "e", "-"} {
		for _, e := range Filter(testEntries(), term, false) {
			n, a, q := strings.ToLower(e.Name), strings.ToLower(e.ArtifactID), strings.ToLower(term)
			if !strings.Contains(n, q) && !strings.Contains(a, q) {
				t.Errorf("Filter(%q, false) returned %q which matches neither name nor artifactId", term, e.Name)
			}
		}
	}
}

// An entry matching only on summary is returned iff includeSummary is set.
func TestFilterSummaryOnly(t *testing.T) {
	entries := []*Entry{{Name: "Spreadsheet", ArtifactID: "sheet", Summary: "A calendar-aware sheet"}}
	if got := Filter(entries, "calendar", false); len(got) != 0 {
		t.Errorf("Filter(full=false) = %v, want empty", names(got))
	}
	if got := Filter(entries, "calendar", true); len(got) != 1 {
		t.Errorf("Filter(full=true) = %v, want [Spreadsheet]", names(got))
	}
}
