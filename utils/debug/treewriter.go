// Package debug has helpers producing human readable dumps for debug reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// TreeWriter accumulates indented lines, two spaces per level.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

func (tw TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

// Node writes token and, for elements, its whole subtree. Every element is
// a line with full tag and attributes, text is quoted, whitespace only text
// is omitted.
func (tw TreeWriter) Node(depth int, t etree.Token) {
	switch v := t.(type) {
	case *etree.Element:
		var attrs strings.Builder
		for _, a := range v.Attr {
			fmt.Fprintf(&attrs, " %s=%q", a.FullKey(), a.Value)
		}
		tw.Line(depth, "<%s>%s", v.FullTag(), attrs.String())
		for _, c := range v.Child {
			tw.Node(depth+1, c)
		}
	case *etree.CharData:
		if len(strings.TrimSpace(v.Data)) == 0 {
			return
		}
		label := "Text"
		if v.IsCData() {
			label = "CDATA"
		}
		tw.TextBlock(depth, label, v.Data)
	case *etree.Comment:
		tw.TextBlock(depth, "Comment", v.Data)
	case *etree.Directive:
		tw.TextBlock(depth, "Directive", v.Data)
	case *etree.ProcInst:
		tw.TextBlock(depth, "ProcInst", v.Target+" "+v.Inst)
	}
}

func (tw TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
