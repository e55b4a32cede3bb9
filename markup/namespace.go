// Package markup holds namespaced tree primitives shared by conversion
// stages: namespace marker handling, token cloning, positional replacement
// and parsing of wrapped fragments.
package markup

import (
	"strings"

	"github.com/beevik/etree"
)

// Namespace describes marker used on authored elements which are subject to
// conversion. Elements without this marker are never touched.
type Namespace struct {
	Prefix string
	URI    string
}

// DefaultNamespace is used when configuration does not say otherwise.
var DefaultNamespace = Namespace{
	Prefix: "x2",
	URI:    "https://ucscode.me/x2client",
}

// Owns reports whether element carries namespace marker.
func (ns Namespace) Owns(el *etree.Element) bool {
	return el != nil && el.Space == ns.Prefix
}

// Qualify returns tag name with namespace marker attached.
func (ns Namespace) Qualify(tag string) string {
	return ns.Prefix + ":" + tag
}

// LocalTag returns authored tag name with namespace marker removed. Names
// belonging to other namespaces are returned as is.
func (ns Namespace) LocalTag(name string) string {
	return strings.TrimPrefix(name, ns.Prefix+":")
}

// StripSelector removes all occurrences of namespace marker (ignoring case)
// from selector text.
func (ns Namespace) StripSelector(sel string) string {
	marker := ns.Prefix + ":"
	if len(ns.Prefix) == 0 || len(sel) < len(marker) {
		return sel
	}

	var b strings.Builder
	b.Grow(len(sel))
	for i := 0; i < len(sel); {
		if i+len(marker) <= len(sel) && strings.EqualFold(sel[i:i+len(marker)], marker) {
			i += len(marker)
			continue
		}
		b.WriteByte(sel[i])
		i++
	}
	return b.String()
}

// Declaration returns namespace binding attribute for the wrapping root.
func (ns Namespace) Declaration() etree.Attr {
	return etree.Attr{Space: "xmlns", Key: ns.Prefix, Value: ns.URI}
}
