// This file contains the wire types of the add-on directory's JSON API.
// The directory serves a listing of the form {"addon": [...]} from its
// /resource/addon/all endpoint when queried with detailed=true.
package api

// Listing is the top-level document returned by the directory.
type Listing struct {
	Addon []Addon
}

// Addon is a single catalog entry as served by the directory.
type Addon struct {
	/* basic */

	// The display name of the add-on.
	// [required]
	Name string
	// A short description. May contain Markdown.
	// [optional]
	Summary string
	// Average user rating, rendered by the directory as a string or number.
	// [optional]
	AvgRating string
	// Link to the add-on's directory page.
	// [optional]
	LinkURL string
	// [optional]
	ProAccount string

	/* details */

	// Maven coordinates. An add-on without group or artifact cannot be
	// added to a build descriptor.
	// [optional]
	GroupID    string
	ArtifactID string
	Version    string
	// Licenses of the latest release. Decoded from either a single object
	// or an array.
	// [optional]
	Licenses []License
	// Maturity of the latest release, e.g. STABLE, BETA, EXPERIMENTAL.
	// [optional]
	Maturity      string
	OldestRelease Timestamp
	Released      Timestamp
}

// License of an add-on release.
type License struct {
	// [required]
	Name string `json:"name"`
	// [optional]
	URL string `json:"url,omitempty"`
	// [optional]
	Version string `json:"version,omitempty"`
}

// HasCoordinates reports whether both groupId and artifactId are set.
func (a *Addon) HasCoordinates() bool {
	return a.GroupID != "" && a.ArtifactID != ""
}
