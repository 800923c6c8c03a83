package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

const diffContext = 3

// WriteDiff writes a line diff between before and after, showing up to
// three unchanged lines around each change. Nothing is written if the
// documents are equal.
func WriteDiff(w io.Writer, name string, before, after []byte, useColor bool) error {
	if string(before) == string(after) {
		return nil
	}
	del := color.New(color.FgRed)
	ins := color.New(color.FgGreen)
	hdr := color.New(color.Bold)
	if !useColor {
		del.DisableColor()
		ins.DisableColor()
		hdr.DisableColor()
	}

	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	sb.WriteString(hdr.Sprintf("--- %s", name) + "\n")
	sb.WriteString(hdr.Sprintf("+++ %s", name) + "\n")
	for i, d := range diffs {
		ls := splitLines(d.Text)
		switch d.Type {
		case diffpatch.DiffDelete:
			for _, l := range ls {
				sb.WriteString(del.Sprint("-"+l) + "\n")
			}
		case diffpatch.DiffInsert:
			for _, l := range ls {
				sb.WriteString(ins.Sprint("+"+l) + "\n")
			}
		case diffpatch.DiffEqual:
			writeContext(&sb, ls, i == 0, i == len(diffs)-1)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// writeContext writes the unchanged lines ls, eliding all but the lines
// adjacent to a change.
func writeContext(sb *strings.Builder, ls []string, first, last bool) {
	head, tail := diffContext, diffContext
	if first {
		head = 0
	}
	if last {
		tail = 0
	}
	if len(ls) <= head+tail {
		for _, l := range ls {
			fmt.Fprintf(sb, " %s\n", l)
		}
		return
	}
	for _, l := range ls[:head] {
		fmt.Fprintf(sb, " %s\n", l)
	}
	sb.WriteString("@@\n")
	for _, l := range ls[len(ls)-tail:] {
		fmt.Fprintf(sb, " %s\n", l)
	}
}

// splitLines splits s into lines without their terminators.
func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{""}
	}
	ls := strings.Split(s, "\n")
	for i, l := range ls {
		ls[i] = strings.TrimSuffix(l, "\r")
	}
	return ls
}
