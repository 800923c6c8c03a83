package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ErrDecode is returned (wrapped) for any listing that cannot be decoded.
var ErrDecode = errors.New("invalid catalog JSON")

// DecodeOptions control how tolerant a Decoder is.
type DecodeOptions struct {
	// AcceptSingleValueAsArray lets list-valued fields ("addon", "licenses")
	// be given as a single object instead of an array. The directory emits
	// a bare object for add-ons with exactly one license.
	AcceptSingleValueAsArray bool
	// DisallowUnknownFields rejects fields not known to the wire types.
	DisallowUnknownFields bool
}

// DefaultDecodeOptions is the policy used against the public directory.
var DefaultDecodeOptions = DecodeOptions{
	AcceptSingleValueAsArray: true,
}

// Decoder decodes directory listings according to its DecodeOptions.
// A Decoder holds no state besides its options and can be shared.
type Decoder struct {
	opts DecodeOptions
}

func NewDecoder(opts DecodeOptions) *Decoder {
	return &Decoder{opts: opts}
}

// addonJSON mirrors Addon, but keeps list-valued fields raw so that the
// decode policy can be applied to them.
type addonJSON struct {
	Name          string          `json:"name"`
	Summary       string          `json:"summary"`
	AvgRating     flexString      `json:"avgRating"`
	LinkURL       string          `json:"linkUrl"`
	ProAccount    flexString      `json:"proAccount"`
	GroupID       string          `json:"groupId"`
	ArtifactID    string          `json:"artifactId"`
	Version       string          `json:"version"`
	Licenses      json.RawMessage `json:"licenses"`
	Maturity      string          `json:"maturity"`
	OldestRelease Timestamp       `json:"oldestRelease"`
	Released      Timestamp       `json:"released"`
}

type listingJSON struct {
	Addon json.RawMessage `json:"addon"`
}

// Decode reads a complete listing from r.
func (d *Decoder) Decode(r io.Reader) (*Listing, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing: %w", err)
	}
	return d.DecodeBytes(data)
}

func (d *Decoder) DecodeBytes(data []byte) (*Listing, error) {
	var raw listingJSON
	if err := d.unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	items, err := decodeList[addonJSON](d, raw.Addon)
	if err != nil {
		return nil, fmt.Errorf("%w: field \"addon\": %v", ErrDecode, err)
	}

	listing := &Listing{Addon: make([]Addon, 0, len(items))}
	for i, it := range items {
		licenses, err := decodeList[License](d, it.Licenses)
		if err != nil {
			return nil, fmt.Errorf("%w: addon #%d (%q): field \"licenses\": %v", ErrDecode, i, it.Name, err)
		}
		listing.Addon = append(listing.Addon, Addon{
			Name:          it.Name,
			Summary:       it.Summary,
			AvgRating:     string(it.AvgRating),
			LinkURL:       it.LinkURL,
			ProAccount:    string(it.ProAccount),
			GroupID:       strings.TrimSpace(it.GroupID),
			ArtifactID:    strings.TrimSpace(it.ArtifactID),
			Version:       strings.TrimSpace(it.Version),
			Licenses:      licenses,
			Maturity:      it.Maturity,
			OldestRelease: it.OldestRelease,
			Released:      it.Released,
		})
	}
	return listing, nil
}

func (d *Decoder) unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if d.opts.DisallowUnknownFields {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after top-level value")
	}
	return nil
}

// decodeList decodes a JSON array of T. If the decoder accepts single values
// as arrays, a lone object is decoded as a one-element list.
// Absent and null values yield a nil slice.
func decodeList[T any](d *Decoder, raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var items []T
		if err := d.unmarshal(raw, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	if !d.opts.AcceptSingleValueAsArray {
		return nil, fmt.Errorf("expected array, got %s", jsonKind(raw[0]))
	}
	var item T
	if err := d.unmarshal(raw, &item); err != nil {
		return nil, err
	}
	return []T{item}, nil
}

func jsonKind(c byte) string {
	switch {
	case c == '{':
		return "object"
	case c == '"':
		return "string"
	case c == 't' || c == 'f':
		return "boolean"
	default:
		return "number"
	}
}

// flexString accepts JSON strings, numbers and booleans.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	if len(b) > 0 && (b[0] == '{' || b[0] == '[') {
		return fmt.Errorf("cannot use %s as string", jsonKind(b[0]))
	}
	*s = flexString(b)
	return nil
}

// Timestamp is a release date as served by the directory: either epoch
// milliseconds or a date string.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			t.Time = ts
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
}
