// Package report renders search and add results.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dnswlt/dirsearch/internal/merge"
	"github.com/fatih/color"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Printer writes results in the human-readable listing format:
//
//	Grid Util - Utilities for Grid
//		License: Apache 2
//		Rating: 4.5 / 5
//		Maven: org.vaadin.gridutil:gridutil:1.0.12 (in pom.xml)
type Printer struct {
	w io.Writer
	// Name of the descriptor as shown in outcome tags.
	descriptor string

	name    *color.Color
	present *color.Color
	update  *color.Color
	added   *color.Color
	absent  *color.Color
	missing *color.Color
}

// NewPrinter returns a Printer writing to w. If useColor is false, no
// escape sequences are written; otherwise colors are used if w is a terminal.
func NewPrinter(w io.Writer, descriptor string, useColor bool) *Printer {
	if descriptor == "" {
		descriptor = "pom.xml"
	}
	p := &Printer{
		w:          w,
		descriptor: descriptor,
		name:       color.New(color.Bold),
		present:    color.New(color.FgCyan),
		update:     color.New(color.FgYellow),
		added:      color.New(color.FgGreen, color.Bold),
		absent:     color.New(color.Faint),
		missing:    color.New(color.FgRed),
	}
	if !useColor {
		for _, c := range []*color.Color{p.name, p.present, p.update, p.added, p.absent, p.missing} {
			c.DisableColor()
		}
	}
	return p
}

// Print writes all results in order.
func (p *Printer) Print(results []merge.Result) error {
	var buf bytes.Buffer
	for _, r := range results {
		p.writeResult(&buf, r)
	}
	_, err := p.w.Write(buf.Bytes())
	return err
}

func (p *Printer) writeResult(w io.Writer, r merge.Result) {
	e := r.Entry
	fmt.Fprintf(w, "%s - %s\n", p.name.Sprint(e.Name), PlainText(e.Summary))
	for _, l := range e.Licenses {
		fmt.Fprintf(w, "\tLicense: %s\n", l.Name)
	}
	rating := e.Rating
	if rating == "" {
		rating = "-"
	}
	fmt.Fprintf(w, "\tRating: %s / 5\n", rating)
	if e.Coordinate == nil {
		fmt.Fprintf(w, "\tMaven: n/a\n")
		return
	}
	fmt.Fprintf(w, "\tMaven: %s%s\n", e.Coordinate, p.tag(r))
}

func (p *Printer) tag(r merge.Result) string {
	switch r.Outcome {
	case merge.Present:
		if r.UpdateAvailable {
			return " " + p.update.Sprintf("(in %s: %s, update available)", p.descriptor, r.Existing)
		}
		return " " + p.present.Sprintf("(in %s)", p.descriptor)
	case merge.Added:
		return " " + p.added.Sprint("(ADDED)")
	case merge.Absent:
		return " " + p.absent.Sprint("(not present)")
	case merge.ContainerNotFound:
		return " " + p.missing.Sprint("(no dependencies section)")
	}
	return ""
}

// PlainText renders a Markdown summary as a single line of plain text.
func PlainText(markdown string) string {
	src := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var sb strings.Builder
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				sb.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Text:
			sb.Write(n.Segment.Value(src))
			if n.SoftLineBreak() || n.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(n.Value)
		case *ast.AutoLink:
			sb.Write(n.Label(src))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}
