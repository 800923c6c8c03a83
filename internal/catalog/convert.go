package catalog

import (
	"fmt"
	"strings"

	"github.com/dnswlt/dirsearch/internal/api"
)

// MalformedEntryError reports a listing entry that cannot be turned into an Entry.
type MalformedEntryError struct {
	// Position of the entry in the listing.
	Index  int
	Reason string
	Addon  *api.Addon
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("malformed catalog entry #%d: %s", e.Index, e.Reason)
}

// NewEntryFromAPI converts a wire Addon into an Entry.
func NewEntryFromAPI(a *api.Addon) (*Entry, error) {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return nil, fmt.Errorf("missing name")
	}
	e := &Entry{
		Name:          name,
		Summary:       a.Summary,
		ArtifactID:    a.ArtifactID,
		Rating:        a.AvgRating,
		Maturity:      a.Maturity,
		LinkURL:       a.LinkURL,
		OldestRelease: a.OldestRelease.Time,
		Released:      a.Released.Time,
	}
	if a.HasCoordinates() {
		e.Coordinate = &Coordinate{
			Group:    a.GroupID,
			Artifact: a.ArtifactID,
			Version:  a.Version,
		}
	}
	for _, l := range a.Licenses {
		e.Licenses = append(e.Licenses, License{Name: l.Name, URL: l.URL})
	}
	return e, nil
}

// NewEntriesFromAPI converts all addons of a listing, preserving their order.
// Addons that cannot be converted are skipped and reported as
// MalformedEntryErrors; they never abort the conversion.
func NewEntriesFromAPI(addons []api.Addon) ([]*Entry, []*MalformedEntryError) {
	entries := make([]*Entry, 0, len(addons))
	var malformed []*MalformedEntryError
	for i := range addons {
		e, err := NewEntryFromAPI(&addons[i])
		if err != nil {
			malformed = append(malformed, &MalformedEntryError{
				Index:  i,
				Reason: err.Error(),
				Addon:  &addons[i],
			})
			continue
		}
		entries = append(entries, e)
	}
	return entries, malformed
}
