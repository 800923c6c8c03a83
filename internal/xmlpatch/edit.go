package xmlpatch

import (
	"bytes"
	"fmt"
	"slices"
)

// Mark is a byte offset in an original document, captured during a scan.
type Mark struct {
	offset int
}

func (m Mark) Offset() int {
	return m.offset
}

// Region is the half-open byte range [Start, End) between two Marks.
type Region struct {
	Start Mark
	End   Mark
}

func (r Region) Len() int {
	return r.End.offset - r.Start.offset
}

func (r Region) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start.offset, r.End.offset)
}

// Edit replaces the bytes of Region with Text.
type Edit struct {
	Region Region
	Text   string
}

// Apply returns a copy of doc with all edits applied in a single pass.
// Edits may be given in any order but must not overlap; two insertions at
// the same offset are applied in the order given. doc itself is never modified.
func Apply(doc []byte, edits ...Edit) ([]byte, error) {
	sorted := slices.Clone(edits)
	slices.SortStableFunc(sorted, func(a, b Edit) int {
		return a.Region.Start.offset - b.Region.Start.offset
	})

	size := len(doc)
	pos := 0
	for _, e := range sorted {
		start, end := e.Region.Start.offset, e.Region.End.offset
		if start < 0 || end < start || end > len(doc) {
			return nil, fmt.Errorf("edit region %s out of bounds for document of %d bytes", e.Region, len(doc))
		}
		if start < pos {
			return nil, fmt.Errorf("edit region %s overlaps a preceding edit", e.Region)
		}
		pos = end
		size += len(e.Text) - e.Region.Len()
	}

	var buf bytes.Buffer
	buf.Grow(size)
	pos = 0
	for _, e := range sorted {
		buf.Write(doc[pos:e.Region.Start.offset])
		buf.WriteString(e.Text)
		pos = e.Region.End.offset
	}
	buf.Write(doc[pos:])
	return buf.Bytes(), nil
}
