package merge

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dnswlt/dirsearch/internal/catalog"
	"github.com/dnswlt/dirsearch/internal/xmlpatch"
	"github.com/google/go-cmp/cmp"
)

const basePOM = `<project>
  <dependencies>
    <dependency>
      <groupId>org.vaadin.addons</groupId>
      <artifactId>grid-util</artifactId>
      <version>1.0.12</version>
    </dependency>
    <dependency>
      <groupId>com.vaadin</groupId>
      <artifactId>vaadin-server</artifactId>
      <version>${vaadin.version}</version>
    </dependency>
  </dependencies>
</project>
`

func entry(name, group, artifact, version string) *catalog.Entry {
	e := &catalog.Entry{Name: name, ArtifactID: artifact}
	if group != "" && artifact != "" {
		e.Coordinate = &catalog.Coordinate{Group: group, Artifact: artifact, Version: version}
	}
	return e
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		entry  *catalog.Entry
		insert bool
		want   Outcome
		// Fields of Result other than Entry and Outcome.
		wantExisting string
		wantUpdate   bool
		wantModified bool
	}{
		{
			name:  "no coordinate",
			doc:   basePOM,
			entry: entry("Loose", "", "loose", "1.0"),
			want:  NoCoordinate,
		},
		{
			name:   "no coordinate with insert",
			doc:    basePOM,
			entry:  entry("Loose", "", "", ""),
			insert: true,
			want:   NoCoordinate,
		},
		{
			name:         "present same version",
			doc:          basePOM,
			entry:        entry("Grid Util", "org.vaadin.addons", "grid-util", "1.0.12"),
			insert:       true,
			want:         Present,
			wantExisting: "1.0.12",
		},
		{
			name:         "present older version",
			doc:          basePOM,
			entry:        entry("Grid Util", "org.vaadin.addons", "grid-util", "1.1.0"),
			want:         Present,
			wantExisting: "1.0.12",
			wantUpdate:   true,
		},
		{
			name:         "present with property version",
			doc:          basePOM,
			entry:        entry("Server", "com.vaadin", "vaadin-server", "8.0.0"),
			want:         Present,
			wantExisting: "${vaadin.version}",
		},
		{
			name:  "absent",
			doc:   basePOM,
			entry: entry("Charts", "com.vaadin.addon", "charts", "3.0"),
			want:  Absent,
		},
		{
			name:         "added",
			doc:          basePOM,
			entry:        entry("Charts", "com.vaadin.addon", "charts", "3.0"),
			insert:       true,
			want:         Added,
			wantModified: true,
		},
		{
			name:   "container missing",
			doc:    "<project>\n  <build/>\n</project>\n",
			entry:  entry("Charts", "com.vaadin.addon", "charts", "3.0"),
			insert: true,
			want:   ContainerNotFound,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewCoordinator([]byte(tc.doc))
			if err != nil {
				t.Fatalf("NewCoordinator failed: %v", err)
			}
			got, err := c.Resolve(tc.entry, tc.insert)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if got.Outcome != tc.want {
				t.Errorf("Outcome = %v, want %v", got.Outcome, tc.want)
			}
			if got.Entry != tc.entry {
				t.Errorf("Entry = %v, want %v", got.Entry, tc.entry)
			}
			if got.Existing != tc.wantExisting {
				t.Errorf("Existing = %q, want %q", got.Existing, tc.wantExisting)
			}
			if got.UpdateAvailable != tc.wantUpdate {
				t.Errorf("UpdateAvailable = %v, want %v", got.UpdateAvailable, tc.wantUpdate)
			}
			if c.Modified() != tc.wantModified {
				t.Errorf("Modified() = %v, want %v", c.Modified(), tc.wantModified)
			}
			if !tc.wantModified && !bytes.Equal(c.Document(), []byte(tc.doc)) {
				t.Errorf("Document() changed without an insertion")
			}
		})
	}
}

func TestResolve_Added(t *testing.T) {
	c, err := NewCoordinator([]byte(basePOM))
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}
	if _, err := c.Resolve(entry("Charts", "com.vaadin.addon", "charts", "3.0"), true); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	want := strings.Replace(basePOM, "  </dependencies>", `    <dependency>
      <groupId>com.vaadin.addon</groupId>
      <artifactId>charts</artifactId>
      <version>3.0</version>
    </dependency>
  </dependencies>`, 1)
	if diff := cmp.Diff(want, string(c.Document())); diff != "" {
		t.Errorf("Document() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := c.Model().Find(catalog.Coordinate{Group: "com.vaadin.addon", Artifact: "charts"}); !ok {
		t.Errorf("Model() does not contain the added dependency")
	}
}

// Adding the same dependency twice yields Added, then Present,
// and the second run leaves the document byte-identical.
func TestResolve_Idempotent(t *testing.T) {
	e := entry("Charts", "com.vaadin.addon", "charts", "3.0")

	c1, err := NewCoordinator([]byte(basePOM))
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}
	r1, err := c1.Resolve(e, true)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if r1.Outcome != Added {
		t.Fatalf("first Outcome = %v, want Added", r1.Outcome)
	}
	once := c1.Document()

	c2, err := NewCoordinator(once)
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}
	r2, err := c2.Resolve(e, true)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if r2.Outcome != Present {
		t.Errorf("second Outcome = %v, want Present", r2.Outcome)
	}
	if !bytes.Equal(c2.Document(), once) {
		t.Errorf("second run changed the document:\n%s", c2.Document())
	}
	if c2.Modified() {
		t.Errorf("Modified() = true after second run")
	}
}

// Two entries sharing group and artifact are inserted at most once per run.
func TestResolve_DuplicateGuard(t *testing.T) {
	c, err := NewCoordinator([]byte(basePOM))
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}
	var outcomes []Outcome
	for _, e := range []*catalog.Entry{
		entry("Charts", "com.vaadin.addon", "charts", "3.0"),
		entry("Charts (legacy)", "com.vaadin.addon", "charts", "2.0"),
		entry("Charts again", "com.vaadin.addon", "charts", "3.0"),
	} {
		r, err := c.Resolve(e, true)
		if err != nil {
			t.Fatalf("Resolve(%s) failed: %v", e.Name, err)
		}
		outcomes = append(outcomes, r.Outcome)
	}
	if diff := cmp.Diff([]Outcome{Added, Present, Present}, outcomes); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
	if n := strings.Count(string(c.Document()), "<artifactId>charts</artifactId>"); n != 1 {
		t.Errorf("document contains %d charts dependencies, want 1", n)
	}
}

// The shadow set alone prevents duplicates even if the layout writes
// something the model does not pick up.
func TestResolve_ShadowSet(t *testing.T) {
	layout := func(c xmlpatch.Container, coord catalog.Coordinate, asciiOnly bool) string {
		return c.Inner + "<!-- " + coord.String() + " -->"
	}
	c, err := NewCoordinator([]byte(basePOM), WithLayout(layout))
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}
	e := entry("Charts", "com.vaadin.addon", "charts", "3.0")
	r1, _ := c.Resolve(e, true)
	r2, _ := c.Resolve(e, true)
	if r1.Outcome != Added || r2.Outcome != Present {
		t.Errorf("outcomes = %v, %v, want Added, Present", r1.Outcome, r2.Outcome)
	}
	if r2.Existing != "3.0" {
		t.Errorf("Existing = %q, want 3.0", r2.Existing)
	}
}

func TestResolve_CustomLocator(t *testing.T) {
	doc := `<project><dependencyManagement><dependencies/></dependencyManagement></project>`
	c, err := NewCoordinator([]byte(doc), WithLocator(xmlpatch.MustParseLocator("/project/dependencyManagement/dependencies")))
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}
	r, err := c.Resolve(entry("Charts", "g", "a", "1"), true)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if r.Outcome != Added {
		t.Errorf("Outcome = %v, want Added", r.Outcome)
	}
	want := `<project><dependencyManagement><dependencies><dependency><groupId>g</groupId><artifactId>a</artifactId><version>1</version></dependency></dependencies></dependencyManagement></project>`
	if diff := cmp.Diff(want, string(c.Document())); diff != "" {
		t.Errorf("Document() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_CustomLocatorRerun(t *testing.T) {
	managed := WithLocator(xmlpatch.MustParseLocator("/project/dependencyManagement/dependencies"))
	// The same dependency in /project/dependencies is not in the managed container.
	doc := `<project>
  <dependencyManagement>
    <dependencies>
    </dependencies>
  </dependencyManagement>
  <dependencies>
    <dependency><groupId>g</groupId><artifactId>a</artifactId><version>1</version></dependency>
  </dependencies>
</project>
`
	e := entry("Charts", "g", "a", "1")

	c1, err := NewCoordinator([]byte(doc), managed)
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}
	r1, err := c1.Resolve(e, true)
	if err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}

	c2, err := NewCoordinator(c1.Document(), managed)
	if err != nil {
		t.Fatalf("NewCoordinator on patched document failed: %v", err)
	}
	r2, err := c2.Resolve(e, true)
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}

	if r1.Outcome != Added || r2.Outcome != Present {
		t.Errorf("outcomes = %v, %v; want Added, Present", r1.Outcome, r2.Outcome)
	}
	if c2.Modified() || !bytes.Equal(c1.Document(), c2.Document()) {
		t.Errorf("second run changed the document:\n%s", c2.Document())
	}
	if n := strings.Count(string(c2.Document()), "<artifactId>a</artifactId>"); n != 2 {
		t.Errorf("document has %d dependencies on g:a, want 2 (one per container)", n)
	}
}

func TestResolve_PrefixedContainer(t *testing.T) {
	doc := `<p:project xmlns:p="http://maven.apache.org/POM/4.0.0"><p:dependencies/></p:project>`
	e := entry("Charts", "g", "a", "1")

	c, err := NewCoordinator([]byte(doc))
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}
	r, err := c.Resolve(e, true)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if r.Outcome != Added {
		t.Errorf("Outcome = %v, want Added", r.Outcome)
	}
	want := `<p:project xmlns:p="http://maven.apache.org/POM/4.0.0"><p:dependencies>` +
		`<p:dependency><p:groupId>g</p:groupId><p:artifactId>a</p:artifactId><p:version>1</p:version></p:dependency>` +
		`</p:dependencies></p:project>`
	if diff := cmp.Diff(want, string(c.Document())); diff != "" {
		t.Errorf("Document() mismatch (-want +got):\n%s", diff)
	}

	// The added element is in the container's namespace, so a rerun finds it.
	c2, err := NewCoordinator(c.Document())
	if err != nil {
		t.Fatalf("NewCoordinator on patched document failed: %v", err)
	}
	r2, err := c2.Resolve(e, true)
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if r2.Outcome != Present || c2.Modified() {
		t.Errorf("second run: Outcome = %v, Modified = %v; want Present, false", r2.Outcome, c2.Modified())
	}
}

func TestResolve_NonUTF8Descriptor(t *testing.T) {
	doc := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<project><dependencies/></project>")
	c, err := NewCoordinator(doc)
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}
	if _, err := c.Resolve(entry("Müller", "org.müller", "a", "1"), true); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !strings.Contains(string(c.Document()), "<groupId>org.m&#xFC;ller</groupId>") {
		t.Errorf("Document() = %s, want numeric character reference", c.Document())
	}
	if _, ok := c.Model().Find(catalog.Coordinate{Group: "org.müller", Artifact: "a"}); !ok {
		t.Errorf("Model() does not contain the added dependency")
	}
}

func TestNewCoordinator_Malformed(t *testing.T) {
	if _, err := NewCoordinator([]byte("<project><dependencies></project>")); err == nil {
		t.Errorf("NewCoordinator succeeded for malformed descriptor")
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		candidate, current string
		want               bool
	}{
		{"1.1.0", "1.0.12", true},
		{"1.0.12", "1.0.12", false},
		{"1.0", "1.0.1", false},
		{"2.0.0", "2.0.0-beta1", true},
		{"8.0.0", "${vaadin.version}", false},
		{"1.0.0.Final", "0.9", false},
		{"1.0", "", false},
	}
	for _, tc := range tests {
		if got := isNewer(tc.candidate, tc.current); got != tc.want {
			t.Errorf("isNewer(%q, %q) = %v, want %v", tc.candidate, tc.current, got, tc.want)
		}
	}
}
