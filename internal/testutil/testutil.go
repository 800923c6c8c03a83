package testutil

import (
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Dependencies returns the "group:artifact:version" strings of all
// dependency elements directly below /project/dependencies, in document order.
func Dependencies(doc []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	var (
		stack  []string
		fields map[string]string
		deps   []string
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			if strings.Join(stack, "/") == "project/dependencies/dependency" {
				fields = make(map[string]string)
			}
		case xml.CharData:
			if fields != nil && len(stack) == 4 {
				fields[stack[3]] += strings.TrimSpace(string(t))
			}
		case xml.EndElement:
			if strings.Join(stack, "/") == "project/dependencies/dependency" {
				deps = append(deps, fields["groupId"]+":"+fields["artifactId"]+":"+fields["version"])
				fields = nil
			}
			stack = stack[:len(stack)-1]
		}
	}
	return deps, nil
}

// WriteFile writes content to name below dir and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", p, err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", p, err)
	}
	return p
}
