package pom

import (
	"encoding/xml"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dnswlt/dirsearch/internal/catalog"
	"github.com/dnswlt/dirsearch/internal/xmlpatch"
)

const defaultIndentUnit = "  "

// Format controls how a <dependency> element is rendered.
type Format struct {
	// Indent is the indentation of the <dependency> line. The first line
	// itself is not indented, the caller places it.
	Indent string
	// Unit is the additional indentation of nested elements.
	Unit    string
	Newline string
	// Inline renders the whole element on a single line.
	Inline bool
	// ASCIIOnly writes non-ASCII characters as numeric character references,
	// for descriptors that are not encoded in UTF-8.
	ASCIIOnly bool
	// Prefix qualifies all element names, e.g. "p" renders <p:dependency>.
	Prefix string
}

// DependencyFragment renders c as a <dependency> element.
// The <version> element is omitted if c has no version.
func DependencyFragment(c catalog.Coordinate, f Format) string {
	type field struct{ name, value string }
	fields := []field{
		{"groupId", c.Group},
		{"artifactId", c.Artifact},
	}
	if c.Version != "" {
		fields = append(fields, field{"version", c.Version})
	}

	qname := func(local string) string {
		if f.Prefix == "" {
			return local
		}
		return f.Prefix + ":" + local
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<%s>", qname("dependency"))
	for _, fl := range fields {
		if !f.Inline {
			sb.WriteString(f.Newline)
			sb.WriteString(f.Indent)
			sb.WriteString(f.Unit)
		}
		name := qname(fl.name)
		fmt.Fprintf(&sb, "<%s>%s</%s>", name, escape(fl.value, f.ASCIIOnly), name)
	}
	if !f.Inline {
		sb.WriteString(f.Newline)
		sb.WriteString(f.Indent)
	}
	fmt.Fprintf(&sb, "</%s>", qname("dependency"))
	return sb.String()
}

func escape(s string, asciiOnly bool) string {
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(s))
	if !asciiOnly {
		return sb.String()
	}
	escaped := sb.String()
	sb.Reset()
	for _, r := range escaped {
		if r < utf8.RuneSelf {
			sb.WriteRune(r)
			continue
		}
		fmt.Fprintf(&sb, "&#x%X;", r)
	}
	return sb.String()
}

// AppendDependency returns the new content of the dependencies container c
// with coord appended as its last child. The existing content is kept
// byte-for-byte; the new element follows the indentation of the existing
// children, or of the container if it has none. The new elements carry
// the container's namespace prefix.
func AppendDependency(c xmlpatch.Container, coord catalog.Coordinate, asciiOnly bool) string {
	f := Format{Newline: c.Newline, ASCIIOnly: asciiOnly, Prefix: c.Prefix}
	if f.Newline == "" {
		f.Newline = "\n"
	}
	if strings.Contains(c.Inner, "\r\n") {
		f.Newline = "\r\n"
	}

	nl := strings.LastIndexByte(c.Inner, '\n')
	if nl < 0 {
		if c.Inline {
			// <project><dependencies>...</dependencies></project>
			f.Inline = true
			return c.Inner + DependencyFragment(coord, f)
		}
		unit := guessUnit(c.Indent, c.Depth)
		f.Indent = c.Indent + unit
		f.Unit = unit
		return c.Inner + f.Newline + f.Indent + DependencyFragment(coord, f) + f.Newline + c.Indent
	}

	childIndent, ok := firstChildIndent(c.Inner)
	if !ok {
		childIndent = c.Indent + guessUnit(c.Indent, c.Depth)
	}
	f.Indent = childIndent
	f.Unit = guessUnit(c.Indent, c.Depth)
	if u, ok := strings.CutPrefix(childIndent, c.Indent); ok && u != "" {
		f.Unit = u
	}

	tail := c.Inner[nl+1:]
	if strings.TrimLeft(tail, " \t") == "" {
		// The end tag is on its own line: insert before that line's indentation.
		return c.Inner[:nl+1] + childIndent + DependencyFragment(coord, f) + f.Newline + tail
	}
	return c.Inner + f.Newline + childIndent + DependencyFragment(coord, f) + f.Newline + c.Indent
}

// firstChildIndent returns the indentation of the first line in inner that
// starts with markup. Text on the start tag's own line does not count.
func firstChildIndent(inner string) (string, bool) {
	first := true
	for _, line := range strings.Split(inner, "\n") {
		if first {
			first = false
			continue
		}
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "<") {
			return line[:len(line)-len(trimmed)], true
		}
	}
	return "", false
}

// guessUnit derives one level of indentation from the indentation of an
// element at the given depth.
func guessUnit(indent string, depth int) string {
	if indent == "" || depth <= 0 {
		return defaultIndentUnit
	}
	if strings.Contains(indent, "\t") {
		return "\t"
	}
	if len(indent)%depth == 0 {
		return indent[:len(indent)/depth]
	}
	return defaultIndentUnit
}
