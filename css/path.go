package css

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/beevik/etree"
)

// Path returns query path equivalent of the selector group. Path follows
// etree path syntax with two additions: alternatives are joined with " | "
// and "[@attr~='token']" matches whitespace separated token of attribute
// value (that is how class selectors are expressed).
//
//	div#card > .title  ->  //div[@id='card']/*[@class~='title']
func (g Group) Path() string {
	alts := make([]string, 0, len(g))
	for _, cx := range g {
		var b strings.Builder
		for _, c := range cx {
			if c.Combinator == CombinatorChild {
				b.WriteString("/")
			} else {
				b.WriteString("//")
			}
			if len(c.Tag) == 0 {
				b.WriteString("*")
			} else {
				b.WriteString(c.Tag)
			}
			if len(c.ID) > 0 {
				writeFilter(&b, "id", "=", c.ID)
			}
			for _, cl := range c.Classes {
				writeFilter(&b, "class", "~=", cl)
			}
			for _, a := range c.Attrs {
				switch a.Match {
				case AttrPresent:
					b.WriteString("[@" + a.Name + "]")
				case AttrEquals:
					writeFilter(&b, a.Name, "=", a.Value)
				case AttrIncludes:
					writeFilter(&b, a.Name, "~=", a.Value)
				}
			}
		}
		alts = append(alts, b.String())
	}
	return strings.Join(alts, " | ")
}

func writeFilter(b *strings.Builder, name, op, value string) {
	quote := "'"
	if strings.Contains(value, "'") {
		quote = `"`
	}
	b.WriteString("[@" + name + op + quote + value + quote + "]")
}

// Translate converts selector text into query path. Selectors using syntax
// which cannot be expressed result in error.
func Translate(selector string) (string, error) {
	g, err := ParseSelector(selector)
	if err != nil {
		return "", err
	}
	return g.Path(), nil
}

// Qualify prefixes every bare tag step of the path with namespace marker, so
// query would only match namespaced elements. Universal steps get namespace
// filter instead.
func Qualify(path, prefix string) string {
	var (
		b     strings.Builder
		quote byte
		depth int
	)
	b.Grow(len(path) + 8*len(prefix))
	for i := 0; i < len(path); {
		ch := path[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '[':
			depth++
		case ch == ']':
			depth--
		case ch == '/' && depth == 0:
			for i < len(path) && path[i] == '/' {
				b.WriteByte('/')
				i++
			}
			end := i
			for end < len(path) && !strings.ContainsRune("[/| ", rune(path[end])) {
				end++
			}
			name := path[i:end]
			switch {
			case name == "*":
				b.WriteString("*[namespace-prefix()='" + prefix + "']")
			case len(name) > 0 && name != "." && name != ".." && !strings.Contains(name, ":"):
				b.WriteString(prefix + ":" + name)
			default:
				b.WriteString(name)
			}
			i = end
			continue
		}
		b.WriteByte(ch)
		i++
	}
	return b.String()
}

// includeFilter is the token matching addition to etree path syntax.
type includeFilter struct {
	attr, token string
}

type step struct {
	path     etree.Path
	includes []includeFilter
}

func (s *step) matches(el *etree.Element) bool {
	for _, f := range s.includes {
		if !slices.Contains(strings.Fields(el.SelectAttrValue(f.attr, "")), f.token) {
			return false
		}
	}
	return true
}

// Query is compiled query path ready to be executed against tree.
type Query struct {
	alts [][]step
}

// Compile compiles query path (see Group.Path).
func Compile(path string) (*Query, error) {
	q := &Query{}
	for _, alt := range splitTopLevel(path, '|') {
		alt = strings.TrimSpace(alt)
		steps, err := compileSteps(alt)
		if err != nil {
			return nil, fmt.Errorf("unable to compile query path %q: %w", alt, err)
		}
		q.alts = append(q.alts, steps)
	}
	if len(q.alts) == 0 {
		return nil, errors.New("empty query path")
	}
	return q, nil
}

// Select executes query against scope element and returns distinct matching
// descendants of scope.
func (q *Query) Select(scope *etree.Element) []*etree.Element {
	var (
		result []*etree.Element
		seen   = make(map[*etree.Element]struct{})
	)
	for _, steps := range q.alts {
		for _, el := range selectSteps(scope, steps) {
			if _, ok := seen[el]; ok {
				continue
			}
			seen[el] = struct{}{}
			result = append(result, el)
		}
	}
	return result
}

// Select compiles query path and executes it against scope element.
func Select(path string, scope *etree.Element) ([]*etree.Element, error) {
	q, err := Compile(path)
	if err != nil {
		return nil, err
	}
	return q.Select(scope), nil
}

func selectSteps(scope *etree.Element, steps []step) []*etree.Element {
	current := []*etree.Element{scope}
	for _, s := range steps {
		var (
			next []*etree.Element
			seen = make(map[*etree.Element]struct{})
		)
		for _, ctx := range current {
			for el := range ctx.FindElementsPathSeq(s.path) {
				if _, ok := seen[el]; ok || !s.matches(el) {
					continue
				}
				seen[el] = struct{}{}
				next = append(next, el)
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

func compileSteps(alt string) ([]step, error) {
	if !strings.HasPrefix(alt, "/") {
		return nil, errors.New("path must start with '/'")
	}

	// splitting "//a/b" yields "", "", "a", "b" - empty piece marks
	// descendant axis of the following step
	var (
		steps      []step
		descendant bool
		pieces     = splitTopLevel(alt, '/')[1:]
	)
	for _, piece := range pieces {
		if len(piece) == 0 {
			if descendant {
				return nil, errors.New("too many slashes")
			}
			descendant = true
			continue
		}
		s, err := compileStep(piece, descendant)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
		descendant = false
	}
	if descendant || len(steps) == 0 {
		return nil, errors.New("path has no trailing step")
	}
	return steps, nil
}

func compileStep(piece string, descendant bool) (step, error) {
	var (
		s    step
		test = piece
		rest string
	)
	if i := strings.IndexByte(piece, '['); i >= 0 {
		test, rest = piece[:i], piece[i:]
	}

	var b strings.Builder
	if descendant {
		b.WriteString(".//")
	} else {
		b.WriteString("./")
	}
	b.WriteString(test)

	filters, err := splitFilters(rest)
	if err != nil {
		return s, err
	}
	for _, f := range filters {
		if attr, token, ok := parseIncludeFilter(f); ok {
			s.includes = append(s.includes, includeFilter{attr: attr, token: token})
			continue
		}
		b.WriteString("[" + f + "]")
	}

	p, err := etree.CompilePath(b.String())
	if err != nil {
		return s, err
	}
	s.path = p
	return s, nil
}

// parseIncludeFilter recognizes "@attr~='token'" filter body.
func parseIncludeFilter(f string) (string, string, bool) {
	if !strings.HasPrefix(f, "@") {
		return "", "", false
	}
	attr, value, found := strings.Cut(f[1:], "~=")
	if !found || strings.ContainsAny(attr, `'"`) {
		return "", "", false
	}
	return attr, unquote(value), true
}

// splitFilters returns bodies of consecutive [..] groups, brackets inside
// quotes are respected.
func splitFilters(s string) ([]string, error) {
	var (
		filters []string
		quote   byte
		start   = -1
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case start < 0:
			if ch != '[' {
				return nil, fmt.Errorf("unexpected %q outside of filter", ch)
			}
			start = i + 1
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == ']':
			filters = append(filters, s[start:i])
			start = -1
		}
	}
	if quote != 0 || start >= 0 {
		return nil, errors.New("unterminated filter")
	}
	return filters, nil
}

// splitTopLevel splits s on sep which is outside of quotes and brackets.
func splitTopLevel(s string, sep byte) []string {
	var (
		parts []string
		quote byte
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '[':
			depth++
		case ch == ']':
			depth--
		case ch == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
