package table

import (
	"github.com/beevik/etree"

	"x2c/markup"
)

// convertToTable replaces block element with table and returns the table.
// Every child except whitespace only text ends up in its own cell. When
// parent of the block is marked with display="flex" all cells share a single
// row, otherwise each cell gets a row of its own.
func (c *Converter) convertToTable(el *etree.Element) *etree.Element {
	parent := el.Parent()
	flex := parent != nil && markup.Attr(parent, "display") == "flex"

	table := etree.NewElement("table")

	var row *etree.Element
	if flex {
		row = etree.NewElement("tr")
	}
	for _, t := range el.Child {
		if markup.IsBlankText(t) {
			continue
		}

		td := etree.NewElement("td")
		td.AddChild(markup.Clone(t))

		if !flex {
			row = etree.NewElement("tr")
		}
		row.AddChild(td)

		if src, ok := t.(*etree.Element); ok {
			c.inheritAttrs(td, src)
			c.mark(td, src)
		}
		if !flex {
			table.AddChild(row)
		}
	}
	if flex {
		table.AddChild(row)
	}

	for _, a := range tableAttrs {
		table.CreateAttr(a.key, a.value)
	}
	c.mark(table, el)

	markup.ReplaceAt(parent, el.Index(), table)
	return table
}

// inheritAttrs copies attributes of the cell content onto the cell. Style is
// lifted from block content only, class, href and src are never lifted.
func (c *Converter) inheritAttrs(td, src *etree.Element) {
	block := c.isBlock(src)
	for _, a := range src.Attr {
		key := a.FullKey()
		switch key {
		case "style":
			if !block {
				continue
			}
		case "class", "href", "src":
			continue
		}
		td.CreateAttr(key, a.Value)
	}
}
