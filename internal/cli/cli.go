// Package cli implements the search and add commands on top of the catalog
// client, the descriptor store and the merge coordinator.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dnswlt/dirsearch/internal/api"
	"github.com/dnswlt/dirsearch/internal/catalog"
	"github.com/dnswlt/dirsearch/internal/gitclient"
	"github.com/dnswlt/dirsearch/internal/merge"
	"github.com/dnswlt/dirsearch/internal/query"
	"github.com/dnswlt/dirsearch/internal/report"
	"github.com/dnswlt/dirsearch/internal/store"
	"github.com/dnswlt/dirsearch/internal/xmlpatch"
)

const (
	FormatText      = "text"
	FormatCycloneDX = "cyclonedx"

	DefaultDescriptor = "pom.xml"
)

var ErrMissingSearchTerm = errors.New("missing search term")

// DescriptorReadError is returned if the descriptor cannot be read.
type DescriptorReadError struct {
	Path string
	Err  error
}

func (e *DescriptorReadError) Error() string {
	return fmt.Sprintf("failed to read descriptor %s: %v", e.Path, e.Err)
}

func (e *DescriptorReadError) Unwrap() error {
	return e.Err
}

// DescriptorWriteError is returned if the patched descriptor cannot be written.
type DescriptorWriteError struct {
	Path string
	Err  error
}

func (e *DescriptorWriteError) Error() string {
	return fmt.Sprintf("failed to write descriptor %s: %v", e.Path, e.Err)
}

func (e *DescriptorWriteError) Unwrap() error {
	return e.Err
}

// Catalog lists the add-ons available for a framework version.
// *directory.Client implements it.
type Catalog interface {
	List(ctx context.Context, frameworkVersion string) (*api.Listing, error)
}

// locker is implemented by stores that can lock a file across processes.
type locker interface {
	Lock(ctx context.Context, path string) (*store.Lock, error)
}

// Options are the per-invocation parameters of Search and Add.
type Options struct {
	// Term is matched against add-on names and artifact ids. Required.
	Term string
	// Full also matches Term against summaries.
	Full bool
	// Where is an optional CEL expression that further narrows the matches.
	Where            string
	FrameworkVersion string
	// Descriptor is the store-relative path of the pom. Defaults to pom.xml.
	Descriptor string
	// Container is the locator of the dependencies element.
	// Defaults to /project/dependencies.
	Container string

	// Add only.

	// All inserts every absent match instead of only the first one.
	All bool
	// DryRun prints a diff of the descriptor instead of writing it.
	DryRun bool
	// RequireClean refuses to modify a descriptor with uncommitted changes.
	RequireClean bool
}

func (o *Options) descriptor() string {
	if o.Descriptor == "" {
		return DefaultDescriptor
	}
	return o.Descriptor
}

// Report summarizes a Search or Add run.
type Report struct {
	Descriptor string
	Results    []merge.Result
	Malformed  []*catalog.MalformedEntryError
	// Document is the descriptor after all insertions.
	Document []byte
	// Modified is set if at least one dependency was inserted.
	Modified bool
	// Written is set if the modified descriptor was written to the store.
	Written bool
}

// Count returns the number of results with outcome o.
func (r *Report) Count(o merge.Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Runner executes the search and add commands.
type Runner struct {
	Catalog Catalog
	Store   store.Store
	// Out receives the results in Format.
	Out    io.Writer
	Format string
	Color  bool
	// Diff receives the dry-run diff. If nil, Out is used.
	Diff io.Writer
	// Now is used for BOM timestamps. If nil, time.Now is used.
	Now func() time.Time
}

// Search prints the catalog entries matching opts and whether the
// descriptor already declares them. It never modifies the descriptor.
func (r *Runner) Search(ctx context.Context, opts Options) (*Report, error) {
	return r.run(ctx, opts, false)
}

// Add is like Search, but also inserts the first matching dependency that the
// descriptor does not declare yet (every such dependency if opts.All is set).
// The descriptor is locked for the whole operation and written at most once.
func (r *Runner) Add(ctx context.Context, opts Options) (*Report, error) {
	return r.run(ctx, opts, true)
}

func (r *Runner) run(ctx context.Context, opts Options, insert bool) (*Report, error) {
	path := opts.descriptor()

	// Preconditions. Nothing has been fetched or read yet.
	if strings.TrimSpace(opts.Term) == "" {
		return nil, ErrMissingSearchTerm
	}
	switch r.Format {
	case "", FormatText, FormatCycloneDX:
	default:
		return nil, fmt.Errorf("invalid output format %q", r.Format)
	}
	var pred *query.Predicate
	if opts.Where != "" {
		p, err := query.Compile(opts.Where)
		if err != nil {
			return nil, err
		}
		pred = p
	}
	loc := merge.DefaultLocator
	if opts.Container != "" {
		l, err := xmlpatch.ParseLocator(opts.Container)
		if err != nil {
			return nil, err
		}
		loc = l
	}
	if insert && !opts.DryRun && !store.Writable(r.Store) {
		return nil, &DescriptorWriteError{Path: path, Err: store.ErrReadOnly}
	}

	matches, malformed, err := r.match(ctx, opts, pred)
	if err != nil {
		return nil, err
	}

	if insert {
		if l, ok := r.Store.(locker); ok {
			lock, err := l.Lock(ctx, path)
			if err != nil {
				return nil, err
			}
			defer func() {
				if err := lock.Release(); err != nil {
					log.Warnf("Failed to release lock on %s: %v", path, err)
				}
			}()
		}
		if opts.RequireClean {
			if err := r.checkClean(path); err != nil {
				return nil, err
			}
		}
	}

	doc, err := r.Store.ReadFile(path)
	if err != nil {
		return nil, &DescriptorReadError{Path: path, Err: err}
	}
	coord, err := merge.NewCoordinator(doc, merge.WithLocator(loc))
	if err != nil {
		return nil, fmt.Errorf("invalid descriptor %s: %w", path, err)
	}

	rep := &Report{Descriptor: path, Malformed: malformed}
	pending := insert
	for _, e := range matches {
		res, err := coord.Resolve(e, pending)
		if err != nil {
			return nil, err
		}
		switch res.Outcome {
		case merge.Added:
			if res.Occurrences > 1 {
				log.Warnf("%s has %d %s elements; only the first one was modified", path, res.Occurrences, loc)
			}
			pending = opts.All
		case merge.ContainerNotFound:
			log.Warnf("%s has no %s element", path, loc)
		}
		rep.Results = append(rep.Results, res)
	}
	rep.Document = coord.Document()
	rep.Modified = coord.Modified()

	// The descriptor is written before anything is printed, so a failed
	// write never reports entries as added.
	if rep.Modified && !opts.DryRun {
		if err := r.Store.WriteFile(path, rep.Document); err != nil {
			return nil, &DescriptorWriteError{Path: path, Err: err}
		}
		rep.Written = true
		log.Infof("Added %d dependencies to %s", rep.Count(merge.Added), path)
	}

	if err := r.print(rep); err != nil {
		return nil, fmt.Errorf("failed to write results: %w", err)
	}
	if rep.Modified && opts.DryRun {
		w := r.Diff
		if w == nil {
			w = r.Out
		}
		if err := report.WriteDiff(w, path, doc, rep.Document, r.Color); err != nil {
			return nil, fmt.Errorf("failed to write diff: %w", err)
		}
	}
	return rep, nil
}

// match fetches the catalog and returns the entries matching opts.
func (r *Runner) match(ctx context.Context, opts Options, pred *query.Predicate) ([]*catalog.Entry, []*catalog.MalformedEntryError, error) {
	listing, err := r.Catalog.List(ctx, opts.FrameworkVersion)
	if err != nil {
		return nil, nil, err
	}
	entries, malformed := catalog.NewEntriesFromAPI(listing.Addon)
	for _, m := range malformed {
		log.Warnf("Skipping %v", m)
	}
	matches := catalog.Filter(entries, opts.Term, opts.Full)
	if pred != nil {
		log.Debugf("Filtering %d matches with %s", len(matches), pred)
		matches, err = pred.Filter(matches)
		if err != nil {
			return nil, nil, err
		}
	}
	log.Debugf("%d of %d catalog entries match %q", len(matches), len(entries), opts.Term)
	return matches, malformed, nil
}

// checkClean fails if path has uncommitted changes in its git worktree.
// Stores that are not on local disk are never modified, so they pass.
func (r *Runner) checkClean(path string) error {
	ds, ok := r.Store.(*store.DiskStore)
	if !ok {
		return nil
	}
	modified, err := gitclient.IsModified(ds.RootDir(), path)
	if err != nil {
		return err
	}
	if modified {
		return fmt.Errorf("%s has uncommitted changes", path)
	}
	return nil
}

func (r *Runner) print(rep *Report) error {
	if r.Format == FormatCycloneDX {
		now := time.Now
		if r.Now != nil {
			now = r.Now
		}
		return report.WriteBOM(r.Out, report.NewBOM(rep.Results, now()))
	}
	return report.NewPrinter(r.Out, rep.Descriptor, r.Color).Print(rep.Results)
}
