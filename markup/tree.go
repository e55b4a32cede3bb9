package markup

import (
	"strings"
	"unicode"

	"github.com/beevik/etree"
)

// Clone returns deep, unparented copy of any tree token.
func Clone(t etree.Token) etree.Token {
	switch v := t.(type) {
	case *etree.Element:
		return v.Copy()
	case *etree.CharData:
		if v.IsCData() {
			return etree.NewCData(v.Data)
		}
		return etree.NewText(v.Data)
	case *etree.Comment:
		return etree.NewComment(v.Data)
	case *etree.Directive:
		return etree.NewDirective(v.Data)
	case *etree.ProcInst:
		return etree.NewProcInst(v.Target, v.Inst)
	}
	return nil
}

// ReplaceAt puts token in place of parent child at index. Number and order of
// remaining children stay the same.
func ReplaceAt(parent *etree.Element, index int, t etree.Token) {
	parent.RemoveChildAt(index)
	parent.InsertChildAt(index, t)
}

// IsBlank reports whether text consists of whitespace only.
func IsBlank(text string) bool {
	return strings.IndexFunc(text, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}

// IsBlankText reports whether token is character data with whitespace only.
// CDATA sections are never considered blank.
func IsBlankText(t etree.Token) bool {
	cd, ok := t.(*etree.CharData)
	return ok && !cd.IsCData() && IsBlank(cd.Data)
}

// HasChildElements reports whether element has at least one element child.
func HasChildElements(el *etree.Element) bool {
	for _, c := range el.Child {
		if _, ok := c.(*etree.Element); ok {
			return true
		}
	}
	return false
}

// Attr returns trimmed value of attribute or empty string.
func Attr(el *etree.Element, key string) string {
	return strings.TrimSpace(el.SelectAttrValue(key, ""))
}
