package table

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"x2c/markup"
)

// Render serializes every child of fragment root followed by line break.
// Whitespace only text between top level nodes is dropped. Tree itself is
// not modified, indentation is applied to copies.
func (c *Converter) Render(f *markup.Fragment) (string, error) {
	if err := f.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStructure, err)
	}

	ws := &etree.WriteSettings{
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}

	var b strings.Builder
	for _, t := range f.Root.Child {
		if markup.IsBlankText(t) {
			continue
		}
		if el, ok := t.(*etree.Element); ok && c.indent >= 0 {
			el = el.Copy()
			stripBlankText(el)
			is := etree.NewIndentSettings()
			is.Spaces = c.indent
			el.IndentWithSettings(is)
			t = el
		}
		t.WriteTo(&b, ws)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// stripBlankText removes whitespace only text from the whole subtree so
// indentation starts from clean state.
func stripBlankText(el *etree.Element) {
	for i := 0; i < len(el.Child); {
		switch t := el.Child[i].(type) {
		case *etree.CharData:
			if markup.IsBlankText(t) {
				el.RemoveChildAt(i)
				continue
			}
		case *etree.Element:
			stripBlankText(t)
		}
		i++
	}
}
