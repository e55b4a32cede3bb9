package table

import (
	"github.com/beevik/etree"

	"x2c/markup"
)

// mark sets traceability attribute of target pointing back to authored src.
func (c *Converter) mark(target, src *etree.Element) {
	target.CreateAttr(c.marker, c.markerValue(src))
}

// markerValue is "#id" when src has id, ".class" when it has class and bare
// authored tag name otherwise.
func (c *Converter) markerValue(src *etree.Element) string {
	if id := markup.Attr(src, "id"); len(id) > 0 {
		return "#" + id
	}
	if class := markup.Attr(src, "class"); len(class) > 0 {
		return "." + class
	}
	return c.ns.LocalTag(src.FullTag())
}
