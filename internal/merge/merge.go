// Package merge decides, for each catalog entry, whether its dependency is
// already declared in a descriptor, and inserts it if requested.
package merge

import (
	"errors"
	"fmt"

	"github.com/dnswlt/dirsearch/internal/catalog"
	"github.com/dnswlt/dirsearch/internal/pom"
	"github.com/dnswlt/dirsearch/internal/xmlpatch"
	"golang.org/x/mod/semver"
)

// DefaultLocator is the container that new dependencies are appended to.
var DefaultLocator = pom.DependenciesLocator

type Outcome int

const (
	// Present means the descriptor already declares the dependency.
	Present Outcome = iota
	// Absent means the dependency is not declared and was not inserted.
	Absent
	// Added means the dependency was inserted into the descriptor.
	Added
	// NoCoordinate means the entry has no Maven coordinate.
	NoCoordinate
	// ContainerNotFound means insertion was requested but the descriptor
	// has no dependencies container.
	ContainerNotFound
)

func (o Outcome) String() string {
	switch o {
	case Present:
		return "Present"
	case Absent:
		return "Absent"
	case Added:
		return "Added"
	case NoCoordinate:
		return "NoCoordinate"
	case ContainerNotFound:
		return "ContainerNotFound"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Result is the decision for a single entry.
type Result struct {
	Entry   *catalog.Entry
	Outcome Outcome
	// Existing is the declared version for Present entries. It may be empty
	// or a property reference such as ${vaadin.version}.
	Existing string
	// UpdateAvailable is set for Present entries whose catalog version is a
	// newer semantic version than the declared one.
	UpdateAvailable bool
	// Occurrences is the number of dependency containers in the descriptor
	// when the entry was Added. Only the first one is patched.
	Occurrences int
}

// LayoutFunc renders the new content of the container with coord appended.
type LayoutFunc func(c xmlpatch.Container, coord catalog.Coordinate, asciiOnly bool) string

type Option func(*Coordinator)

func WithLocator(loc xmlpatch.Locator) Option {
	return func(c *Coordinator) {
		c.locator = loc
	}
}

func WithLayout(f LayoutFunc) Option {
	return func(c *Coordinator) {
		c.layout = f
	}
}

// Coordinator resolves entries against a single descriptor.
// It is not safe for concurrent use.
type Coordinator struct {
	doc      []byte
	model    *pom.Model
	locator  xmlpatch.Locator
	layout   LayoutFunc
	added    map[string]string // group:artifact -> version
	modified bool
}

// NewCoordinator parses doc and returns a Coordinator for it.
// Dependencies are looked up in, and inserted into, the containers
// matching the locator (DefaultLocator unless WithLocator is given).
// doc is not modified; patched versions are available from Document.
func NewCoordinator(doc []byte, opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		doc:     doc,
		locator: DefaultLocator,
		layout:  pom.AppendDependency,
		added:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	model, err := pom.Parse(doc, c.locator)
	if err != nil {
		return nil, fmt.Errorf("failed to parse descriptor: %w", err)
	}
	c.model = model
	return c, nil
}

// Resolve determines the Outcome for e. If insert is true and e's
// dependency is absent, it is appended to the descriptor.
func (c *Coordinator) Resolve(e *catalog.Entry, insert bool) (Result, error) {
	if e == nil {
		return Result{}, errors.New("nil entry")
	}
	res := Result{Entry: e}
	coord := e.Coordinate
	if coord == nil {
		res.Outcome = NoCoordinate
		return res, nil
	}

	if existing, ok := c.lookup(*coord); ok {
		res.Outcome = Present
		res.Existing = existing
		res.UpdateAvailable = isNewer(coord.Version, existing)
		return res, nil
	}
	if !insert {
		res.Outcome = Absent
		return res, nil
	}

	asciiOnly := !c.model.UTF8()
	patch, err := xmlpatch.PatchFunc(c.doc, c.locator, func(ct xmlpatch.Container) string {
		return c.layout(ct, *coord, asciiOnly)
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to insert %s: %w", coord, err)
	}
	if patch.Outcome == xmlpatch.ContainerNotFound {
		res.Outcome = ContainerNotFound
		return res, nil
	}

	model, err := pom.Parse(patch.Document, c.locator)
	if err != nil {
		return Result{}, fmt.Errorf("patched descriptor is invalid after inserting %s: %w", coord, err)
	}
	c.doc = patch.Document
	c.model = model
	c.added[coord.Key()] = coord.Version
	c.modified = true

	res.Outcome = Added
	res.Occurrences = patch.Occurrences
	return res, nil
}

// lookup returns the declared version of coord's dependency.
func (c *Coordinator) lookup(coord catalog.Coordinate) (string, bool) {
	if d, ok := c.model.Find(coord); ok {
		return d.Version, true
	}
	v, ok := c.added[coord.Key()]
	return v, ok
}

// Document returns the current descriptor text, including all insertions.
func (c *Coordinator) Document() []byte {
	return c.doc
}

// Modified reports whether any entry was Added.
func (c *Coordinator) Modified() bool {
	return c.modified
}

// Model returns the projection of the current descriptor text.
func (c *Coordinator) Model() *pom.Model {
	return c.model
}

// isNewer reports whether version candidate is newer than current.
// Versions that are not semantic versions are never newer.
func isNewer(candidate, current string) bool {
	a, b := "v"+candidate, "v"+current
	if !semver.IsValid(a) || !semver.IsValid(b) {
		return false
	}
	return semver.Compare(a, b) > 0
}
