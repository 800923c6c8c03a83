// Package xmlpatch inserts content into an element of an XML document
// without re-serializing it.
//
// The document is scanned once as a stream of tokens. Byte offsets of the
// original text are captured around the target element (the container),
// and exactly one region is replaced. All bytes outside that region are
// left untouched, including whitespace, comments, attribute order and the
// character encoding.
//
// Only the first element matching a Locator is patched. Callers that need
// to know whether a document contains the container more than once can
// inspect Result.Occurrences.
package xmlpatch

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrDocumentParse is returned (wrapped) if a document is not well-formed.
var ErrDocumentParse = errors.New("document parse error")

// Outcome of a patch.
type Outcome int

const (
	// ContainerNotFound means no element matched the Locator. The document
	// is returned unmodified.
	ContainerNotFound Outcome = iota
	// Inserted means the container was found and patched.
	Inserted
)

func (o Outcome) String() string {
	switch o {
	case ContainerNotFound:
		return "ContainerNotFound"
	case Inserted:
		return "Inserted"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Container describes the located element to a layout function.
type Container struct {
	// Name is the element's tag name as written, including any prefix.
	Name string
	// Prefix is the namespace prefix of Name, e.g. "p" for <p:dependencies>.
	Prefix string
	// Inner is the original text between the start and end tag.
	// It is empty for self-closing elements.
	Inner string
	// Indent is the leading whitespace of the line the start tag is on.
	Indent string
	// Inline is set if the start tag is preceded by other content on its line.
	Inline bool
	// Depth is the number of ancestors of the container.
	Depth int
	// Newline is the line terminator used on the line before the start tag,
	// "\r\n" or "\n".
	Newline string
	// SelfClosing is set for elements written as <name/>.
	SelfClosing bool
}

// Result of a patch.
type Result struct {
	// Document is the patched document, or the input if Outcome is ContainerNotFound.
	Document []byte
	Outcome  Outcome
	// Region is the replaced region of the original document.
	// For self-closing containers it covers the whole tag.
	Region Region
	// Occurrences is the number of elements in the document matching the Locator.
	Occurrences int
}

// Patch appends fragment as the last content of the first element matching loc.
func Patch(doc []byte, loc Locator, fragment string) (*Result, error) {
	return PatchFunc(doc, loc, func(c Container) string {
		return c.Inner + fragment
	})
}

// PatchFunc replaces the content of the first element matching loc with the
// text returned by layout. layout is called at most once, after the whole
// document has been scanned successfully.
func PatchFunc(doc []byte, loc Locator, layout func(Container) string) (*Result, error) {
	if loc.IsZero() {
		return nil, fmt.Errorf("xmlpatch: empty locator")
	}
	sc, err := scan(doc, loc)
	if err != nil {
		return nil, err
	}
	if sc.state == searching {
		return &Result{Document: doc, Outcome: ContainerNotFound}, nil
	}

	c := sc.container(doc)
	c.Depth = len(loc.segments) - 1
	var edit Edit
	if c.SelfClosing {
		// <name attrs/> becomes <name attrs>...</name>.
		tag := string(doc[sc.tagStart:sc.tagEnd])
		open := strings.TrimRight(strings.TrimSuffix(tag, "/>"), " \t\r\n") + ">"
		edit = Edit{
			Region: Region{Start: Mark{sc.tagStart}, End: Mark{sc.tagEnd}},
			Text:   open + layout(c) + "</" + c.Name + ">",
		}
	} else {
		edit = Edit{
			Region: Region{Start: sc.open, End: sc.close},
			Text:   layout(c),
		}
	}

	patched, err := Apply(doc, edit)
	if err != nil {
		return nil, err
	}
	return &Result{
		Document:    patched,
		Outcome:     Inserted,
		Region:      edit.Region,
		Occurrences: sc.occurrences,
	}, nil
}

type scanState int

const (
	searching scanState = iota
	inside
	done
)

type scanner struct {
	stack       []string
	state       scanState
	open        Mark // after the container's start tag
	close       Mark // before the container's end tag
	tagStart    int  // container start tag, [tagStart, tagEnd)
	tagEnd      int
	occurrences int
	sawRoot     bool
}

// scan runs the SEARCHING -> INSIDE -> DONE state machine over the whole
// document. It always reads to the end, so that a document is rejected as
// malformed before any edit is computed.
func scan(doc []byte, loc Locator) (*scanner, error) {
	src, err := newSource(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentParse, err)
	}
	dec := xml.NewDecoder(bytes.NewReader(src.text))
	dec.Strict = true
	dec.CharsetReader = passthroughCharsetReader

	sc := &scanner{stack: make([]string, 0, 16)}
	for {
		start := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDocumentParse, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			sc.stack = append(sc.stack, t.Name.Local)
			sc.sawRoot = true
			if !loc.Matches(sc.stack) {
				continue
			}
			sc.occurrences++
			if sc.state == searching {
				sc.tagStart = src.originalOffset(start)
				sc.tagEnd = src.originalOffset(dec.InputOffset())
				sc.open = Mark{sc.tagEnd}
				sc.state = inside
			}
		case xml.EndElement:
			if sc.state == inside && loc.Matches(sc.stack) {
				sc.close = Mark{src.originalOffset(start)}
				sc.state = done
			}
			sc.stack = sc.stack[:len(sc.stack)-1]
		}
	}
	if len(sc.stack) != 0 {
		return nil, fmt.Errorf("%w: unexpected end of document inside <%s>", ErrDocumentParse, sc.stack[len(sc.stack)-1])
	}
	if !sc.sawRoot {
		return nil, fmt.Errorf("%w: no root element", ErrDocumentParse)
	}
	return sc, nil
}

// container computes the layout hints for the located element.
func (sc *scanner) container(doc []byte) Container {
	tag := doc[sc.tagStart:sc.tagEnd]
	name := tag[1:]
	if i := bytes.IndexAny(name, " \t\r\n/>"); i >= 0 {
		name = name[:i]
	}

	lineStart := bytes.LastIndexByte(doc[:sc.tagStart], '\n') + 1
	prefix := doc[lineStart:sc.tagStart]
	indentLen := len(prefix) - len(bytes.TrimLeft(prefix, " \t"))

	newline := "\n"
	if lineStart >= 2 && doc[lineStart-2] == '\r' {
		newline = "\r\n"
	}

	c := Container{
		Name:        string(name),
		Newline:     newline,
		Indent:      string(prefix[:indentLen]),
		Inline:      indentLen < len(prefix),
		SelfClosing: bytes.HasSuffix(tag, []byte("/>")),
	}
	if p, _, ok := strings.Cut(c.Name, ":"); ok {
		c.Prefix = p
	}
	if !c.SelfClosing {
		c.Inner = string(doc[sc.open.offset:sc.close.offset])
	}
	return c
}
