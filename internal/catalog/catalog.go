// Package catalog defines the model classes for add-on directory entries.
// See the api package for the types that are unmarshalled from the directory's JSON.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Coordinate identifies a Maven dependency.
type Coordinate struct {
	Group    string
	Artifact string
	// Version is informational: two coordinates with different versions
	// still denote the same dependency.
	Version string
}

// SameDependency reports whether c and other denote the same dependency,
// i.e. whether group and artifact are equal.
func (c Coordinate) SameDependency(other Coordinate) bool {
	return c.Group == other.Group && c.Artifact == other.Artifact
}

// Key returns "group:artifact", the identity of c for merge purposes.
func (c Coordinate) Key() string {
	return c.Group + ":" + c.Artifact
}

func (c Coordinate) String() string {
	if c.Version == "" {
		return c.Key()
	}
	return c.Key() + ":" + c.Version
}

// PackageURL returns the purl of c, e.g. pkg:maven/org.vaadin/grid-util@1.0.
func (c Coordinate) PackageURL() string {
	purl := fmt.Sprintf("pkg:maven/%s/%s", c.Group, c.Artifact)
	if c.Version != "" {
		purl += "@" + c.Version
	}
	return purl
}

type License struct {
	Name string
	// [optional]
	URL string
}

// Entry is an installable add-on listed in the directory.
type Entry struct {
	// The display name. Identity for search purposes.
	// [required]
	Name string
	// [optional]
	Summary string
	// The artifactId as listed, even if the groupId is missing.
	// [optional]
	ArtifactID string
	// The Maven coordinate, nil if the directory has no package information
	// (group or artifact absent). Identity for merge purposes.
	// [optional]
	Coordinate *Coordinate
	// Average rating as displayed by the directory.
	// [optional]
	Rating   string
	Maturity string
	LinkURL  string
	// Licenses in directory order. May be empty.
	Licenses      []License
	OldestRelease time.Time
	Released      time.Time
}

// RatingValue returns the rating as a number, or 0 if it is not numeric.
func (e *Entry) RatingValue() float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(e.Rating), 64)
	if err != nil {
		return 0
	}
	return v
}

// LicenseNames returns the names of e's licenses in order.
func (e *Entry) LicenseNames() []string {
	names := make([]string, 0, len(e.Licenses))
	for _, l := range e.Licenses {
		names = append(names, l.Name)
	}
	return names
}

func (e *Entry) String() string {
	if e.Coordinate == nil {
		return e.Name
	}
	return fmt.Sprintf("%s (%s)", e.Name, e.Coordinate)
}
