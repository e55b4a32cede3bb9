// Package sanitize repairs common authoring mistakes which would otherwise
// make markup unparsable as XML.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// VoidTags lists elements which never have content and may be written
// without closing slash in HTML.
var VoidTags = []string{
	"area", "base", "br", "col", "embed", "hr", "img",
	"input", "link", "meta", "param", "source", "track", "wbr",
}

// xml predefined entities, never replaced
var predefined = map[string]bool{"amp": true, "lt": true, "gt": true, "quot": true, "apos": true}

var (
	reNamedEntity = regexp.MustCompile(`&([A-Za-z][A-Za-z0-9]*);`)
	reCSSComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// Options selects repair steps.
type Options struct {
	EscapeAmpersands bool
	CloseVoidTags    bool
	NumericEntities  bool
	StripCSSComments bool
}

// Sanitizer applies requested repairs to markup text in fixed order:
// stray ampersands, void tags, named entities, CSS comments.
type Sanitizer struct {
	opts   Options
	prefix string
	reVoid *regexp.Regexp
	log    *zap.Logger
}

// New creates sanitizer for markup using namespace prefix.
func New(opts Options, prefix string, log *zap.Logger) *Sanitizer {
	if log == nil {
		log = zap.NewNop()
	}
	names := strings.Join(VoidTags, "|")
	return &Sanitizer{
		opts:   opts,
		prefix: prefix,
		reVoid: regexp.MustCompile(fmt.Sprintf(`<((?:%s:)?(?:%s))(\s[^<>]*)?>`, regexp.QuoteMeta(prefix), names)),
		log:    log.Named("sanitize"),
	}
}

// Apply returns repaired markup.
func (s *Sanitizer) Apply(src string) string {
	if s.opts.EscapeAmpersands {
		src = EscapeAmpersands(src)
	}
	if s.opts.CloseVoidTags {
		src = s.closeVoidTags(src)
	}
	if s.opts.NumericEntities {
		src = NumericEntities(src)
	}
	if s.opts.StripCSSComments {
		src = StripCSSComments(src)
	}
	return src
}

// EscapeAmpersands replaces '&' which does not start entity reference with
// "&amp;". Reference is either 2 to 7 word characters or '#' followed by 1 to
// 4 digits, terminated by ';'.
func EscapeAmpersands(src string) string {
	if !strings.Contains(src, "&") {
		return src
	}
	var b strings.Builder
	b.Grow(len(src) + 16)
	for i := 0; i < len(src); i++ {
		if src[i] == '&' && !startsReference(src[i+1:]) {
			b.WriteString("&amp;")
			continue
		}
		b.WriteByte(src[i])
	}
	return b.String()
}

func startsReference(s string) bool {
	if strings.HasPrefix(s, "#") {
		n := 0
		for n < len(s)-1 && n < 4 && s[1+n] >= '0' && s[1+n] <= '9' {
			n++
		}
		return n > 0 && 1+n < len(s) && s[1+n] == ';'
	}
	n := 0
	for n < len(s) && n < 7 && isWordByte(s[n]) {
		n++
	}
	return n >= 2 && n < len(s) && s[n] == ';'
}

func isWordByte(c byte) bool {
	return c == '_' || c == '\n' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// closeVoidTags adds closing slash to void elements (plain or namespaced)
// written without it.
func (s *Sanitizer) closeVoidTags(src string) string {
	return s.reVoid.ReplaceAllStringFunc(src, func(tag string) string {
		inner := strings.TrimSuffix(tag[1:], ">")
		if strings.HasSuffix(inner, "/") {
			return tag
		}
		s.log.Debug("Closing void tag", zap.String("tag", tag))
		return "<" + strings.TrimRightFunc(inner, unicode.IsSpace) + "/>"
	})
}

// NumericEntities replaces HTML named character references, which XML does
// not know, with numeric ones. Unknown names are left alone.
func NumericEntities(src string) string {
	return reNamedEntity.ReplaceAllStringFunc(src, func(ref string) string {
		if predefined[ref[1:len(ref)-1]] {
			return ref
		}
		decoded := html.UnescapeString(ref)
		if decoded == ref {
			return ref
		}
		var b strings.Builder
		for _, r := range decoded {
			fmt.Fprintf(&b, "&#%d;", r)
		}
		return b.String()
	})
}

// StripCSSComments removes "/* ... */" comments.
func StripCSSComments(src string) string {
	return reCSSComment.ReplaceAllString(src, "")
}
