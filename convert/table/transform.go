package table

import (
	"github.com/beevik/etree"

	"x2c/markup"
)

// Transform rewrites authored children of el depth first. Block elements
// become tables, other authored elements are renamed to their plain tag.
// Replacement always lands at the position of the replaced child, so walking
// by index visits every original position once and descends into the
// replacement. Elements without namespace marker are not touched but are
// still descended into, which makes second pass over converted tree a no-op.
func (c *Converter) Transform(el *etree.Element) {
	for i := 0; i < len(el.Child); i++ {
		child, ok := el.Child[i].(*etree.Element)
		if !ok {
			continue
		}

		next := child
		if c.ns.Owns(child) {
			if c.isBlock(child) {
				next = c.convertToTable(child)
			} else {
				next = c.rename(child)
			}
		}
		if markup.HasChildElements(next) {
			c.Transform(next)
		}
	}
}

// rename replaces authored element with plain one carrying the same
// attributes and copies of all children.
func (c *Converter) rename(el *etree.Element) *etree.Element {
	renamed := etree.NewElement(c.ns.LocalTag(el.FullTag()))
	for _, a := range el.Attr {
		renamed.CreateAttr(a.FullKey(), a.Value)
	}
	for _, t := range el.Child {
		renamed.AddChild(markup.Clone(t))
	}
	c.mark(renamed, el)

	markup.ReplaceAt(el.Parent(), el.Index(), renamed)
	return renamed
}

func (c *Converter) isBlock(el *etree.Element) bool {
	return c.ns.Owns(el) && blockTags[c.ns.LocalTag(el.FullTag())]
}
