// Package pom reads the dependencies of a Maven project descriptor and
// renders new dependency elements in the descriptor's own layout.
//
// The Model is a read-only projection of the descriptor text. It must be
// re-derived with Parse whenever the text changes.
package pom

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/dnswlt/dirsearch/internal/catalog"
	"github.com/dnswlt/dirsearch/internal/xmlpatch"
	"golang.org/x/net/html/charset"
)

// DependenciesLocator is the container of a project's own dependencies.
var DependenciesLocator = xmlpatch.MustParseLocator("/project/dependencies")

// Dependency is a <dependency> element of a dependencies container.
type Dependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
}

func (d *Dependency) String() string {
	return d.Coordinate().String()
}

// Coordinate returns the coordinate declared by d.
func (d *Dependency) Coordinate() catalog.Coordinate {
	return catalog.Coordinate{Group: d.GroupID, Artifact: d.ArtifactID, Version: d.Version}
}

type Model struct {
	// Encoding is the label declared in the XML declaration, "" if none.
	Encoding string
	// Dependencies are the <dependency> children of all containers
	// matching the locator passed to Parse, in document order.
	Dependencies []Dependency
}

// Parse decodes the dependencies declared in the containers of doc that
// match loc. Documents in encodings other than UTF-8 are transcoded
// according to their XML declaration. The whole document is read, so a
// malformed document is an error even if the containers come first.
func Parse(doc []byte, loc xmlpatch.Locator) (*Model, error) {
	dec := xml.NewDecoder(bytes.NewReader(bytes.TrimPrefix(doc, []byte("\xEF\xBB\xBF"))))
	dec.CharsetReader = charset.NewReaderLabel

	m := &Model{
		Encoding: xmlpatch.DeclaredEncoding(doc),
	}
	var (
		stack   []string
		sawRoot bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", xmlpatch.ErrDocumentParse, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			sawRoot = true
			if t.Name.Local == "dependency" && loc.Matches(stack) {
				var d Dependency
				if err := dec.DecodeElement(&d, &t); err != nil {
					return nil, fmt.Errorf("%w: %v", xmlpatch.ErrDocumentParse, err)
				}
				d.GroupID = strings.TrimSpace(d.GroupID)
				d.ArtifactID = strings.TrimSpace(d.ArtifactID)
				d.Version = strings.TrimSpace(d.Version)
				d.Scope = strings.TrimSpace(d.Scope)
				m.Dependencies = append(m.Dependencies, d)
				continue
			}
			stack = append(stack, t.Name.Local)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
	}
	if !sawRoot {
		return nil, fmt.Errorf("%w: no root element", xmlpatch.ErrDocumentParse)
	}
	return m, nil
}

// Find returns the first dependency that is the same dependency as c.
// Versions are not compared.
func (m *Model) Find(c catalog.Coordinate) (*Dependency, bool) {
	for i := range m.Dependencies {
		d := &m.Dependencies[i]
		if d.Coordinate().SameDependency(c) {
			return d, true
		}
	}
	return nil, false
}

// UTF8 reports whether the descriptor is encoded in UTF-8.
func (m *Model) UTF8() bool {
	return xmlpatch.IsUTF8(m.Encoding)
}
