package report

import (
	"io"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/dnswlt/dirsearch/internal/merge"
)

// OutcomeProperty is the component property holding the merge outcome.
const OutcomeProperty = "dirsearch:outcome"

// NewBOM returns a CycloneDX BOM with one library component per result.
func NewBOM(results []merge.Result, now time.Time) *cdx.BOM {
	bom := cdx.NewBOM()
	bom.Metadata = &cdx.Metadata{
		Timestamp: now.UTC().Format(time.RFC3339),
		Tools: &cdx.ToolsChoice{
			Components: &[]cdx.Component{
				{Type: cdx.ComponentTypeApplication, Name: "dirsearch"},
			},
		},
	}

	components := make([]cdx.Component, 0, len(results))
	for _, r := range results {
		components = append(components, component(r))
	}
	bom.Components = &components
	return bom
}

func component(r merge.Result) cdx.Component {
	e := r.Entry
	c := cdx.Component{
		Type:        cdx.ComponentTypeLibrary,
		Name:        e.Name,
		Description: PlainText(e.Summary),
	}
	if coord := e.Coordinate; coord != nil {
		c.BOMRef = coord.PackageURL()
		c.Group = coord.Group
		c.Name = coord.Artifact
		c.Version = coord.Version
		c.PackageURL = coord.PackageURL()
	}
	if len(e.Licenses) > 0 {
		licenses := make(cdx.Licenses, 0, len(e.Licenses))
		for _, l := range e.Licenses {
			licenses = append(licenses, cdx.LicenseChoice{
				License: &cdx.License{Name: l.Name, URL: l.URL},
			})
		}
		c.Licenses = &licenses
	}
	if e.LinkURL != "" {
		c.ExternalReferences = &[]cdx.ExternalReference{
			{Type: cdx.ERTypeWebsite, URL: e.LinkURL},
		}
	}
	props := []cdx.Property{
		{Name: OutcomeProperty, Value: r.Outcome.String()},
		{Name: "dirsearch:name", Value: e.Name},
	}
	if r.Existing != "" {
		props = append(props, cdx.Property{Name: "dirsearch:declaredVersion", Value: r.Existing})
	}
	c.Properties = &props
	return c
}

// WriteBOM encodes bom as indented JSON.
func WriteBOM(w io.Writer, bom *cdx.BOM) error {
	return cdx.NewBOMEncoder(w, cdx.BOMFileFormatJSON).SetPretty(true).Encode(bom)
}
