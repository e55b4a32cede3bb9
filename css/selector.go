package css

import (
	"errors"
	"fmt"
	"io"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Combinator joins compound selectors.
type Combinator int

const (
	CombinatorNone       Combinator = iota // first compound
	CombinatorDescendant                   // "a b"
	CombinatorChild                        // "a > b"
)

// AttrMatch is kind of attribute condition.
type AttrMatch int

const (
	AttrPresent AttrMatch = iota // [attr]
	AttrEquals                   // [attr=value]
	AttrIncludes                 // [attr~=value]
)

// AttrCondition is a single attribute condition of a compound selector.
type AttrCondition struct {
	Name  string
	Match AttrMatch
	Value string
}

// Compound is a sequence of simple selectors without combinators.
type Compound struct {
	Combinator Combinator // relation to previous compound
	Tag        string     // empty or "*" matches any element
	ID         string
	Classes    []string
	Attrs      []AttrCondition
}

func (c *Compound) empty() bool {
	return len(c.Tag) == 0 && len(c.ID) == 0 && len(c.Classes) == 0 && len(c.Attrs) == 0
}

// Complex is a chain of compounds, last one is the subject of the selector.
type Complex []Compound

// Group is comma separated list of complex selectors.
type Group []Complex

// ErrUnsupportedSelector is returned for selector syntax which has no query
// path equivalent (pseudo classes, sibling combinators and alike).
var ErrUnsupportedSelector = errors.New("unsupported selector")

type selectorParser struct {
	lex   *css.Lexer
	group Group
	cur   Complex
	comp  Compound
	space bool // whitespace seen after last compound part
}

// ParseSelector parses selector text into selector group. Only type,
// universal, id, class and attribute selectors joined with descendant or child
// combinators are understood.
func ParseSelector(text string) (Group, error) {
	p := &selectorParser{lex: css.NewLexer(parse.NewInputString(text))}
	if err := p.run(); err != nil {
		return nil, fmt.Errorf("selector %q: %w", text, err)
	}
	return p.group, nil
}

func (p *selectorParser) run() error {
	for {
		tt, data := p.lex.Next()
		switch tt {
		case css.ErrorToken:
			if err := p.lex.Err(); err != nil && err != io.EOF {
				return err
			}
			return p.endComplex()
		case css.WhitespaceToken, css.CommentToken:
			p.space = true
		case css.CommaToken:
			if err := p.endComplex(); err != nil {
				return err
			}
		case css.IdentToken:
			if !p.comp.empty() && !p.space {
				return fmt.Errorf("%w: unexpected name %q", ErrUnsupportedSelector, data)
			}
			p.startPart()
			p.comp.Tag = string(data)
		case css.HashToken:
			p.startPart()
			if len(p.comp.ID) > 0 {
				return fmt.Errorf("%w: several ids in compound", ErrUnsupportedSelector)
			}
			p.comp.ID = string(data[1:])
		case css.LeftBracketToken:
			p.startPart()
			cond, err := p.attribute()
			if err != nil {
				return err
			}
			p.comp.Attrs = append(p.comp.Attrs, cond)
		case css.DelimToken:
			if err := p.delim(string(data)); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unexpected %s %q", ErrUnsupportedSelector, tt, data)
		}
	}
}

func (p *selectorParser) delim(d string) error {
	switch d {
	case ".":
		tt, data := p.lex.Next()
		if tt != css.IdentToken {
			return fmt.Errorf("%w: class name expected", ErrUnsupportedSelector)
		}
		p.startPart()
		p.comp.Classes = append(p.comp.Classes, string(data))
	case "*":
		if !p.comp.empty() && !p.space {
			return fmt.Errorf("%w: misplaced universal selector", ErrUnsupportedSelector)
		}
		p.startPart()
		p.comp.Tag = "*"
	case ">":
		if p.comp.empty() {
			return fmt.Errorf("%w: dangling child combinator", ErrUnsupportedSelector)
		}
		p.cur = append(p.cur, p.comp)
		p.comp = Compound{Combinator: CombinatorChild}
		p.space = false
	default:
		return fmt.Errorf("%w: unexpected %q", ErrUnsupportedSelector, d)
	}
	return nil
}

// startPart is called before simple selector is added. Whitespace between
// two compounds means descendant combinator.
func (p *selectorParser) startPart() {
	if p.space && !p.comp.empty() {
		p.cur = append(p.cur, p.comp)
		p.comp = Compound{Combinator: CombinatorDescendant}
	}
	p.space = false
}

func (p *selectorParser) endComplex() error {
	if p.comp.empty() {
		if p.comp.Combinator == CombinatorChild {
			return fmt.Errorf("%w: dangling child combinator", ErrUnsupportedSelector)
		}
		if len(p.cur) == 0 {
			return errors.New("empty selector")
		}
	} else {
		p.cur = append(p.cur, p.comp)
	}
	p.group = append(p.group, p.cur)
	p.cur, p.comp, p.space = nil, Compound{}, false
	return nil
}

func (p *selectorParser) next() (css.TokenType, []byte) {
	for {
		tt, data := p.lex.Next()
		if tt != css.WhitespaceToken {
			return tt, data
		}
	}
}

func (p *selectorParser) attribute() (AttrCondition, error) {
	var cond AttrCondition

	tt, data := p.next()
	if tt != css.IdentToken {
		return cond, fmt.Errorf("%w: attribute name expected", ErrUnsupportedSelector)
	}
	cond.Name = string(data)

	tt, data = p.next()
	switch {
	case tt == css.RightBracketToken:
		cond.Match = AttrPresent
		return cond, nil
	case tt == css.DelimToken && string(data) == "=":
		cond.Match = AttrEquals
	case tt == css.IncludeMatchToken:
		cond.Match = AttrIncludes
	default:
		return cond, fmt.Errorf("%w: attribute operator %q", ErrUnsupportedSelector, data)
	}

	tt, data = p.next()
	switch tt {
	case css.StringToken:
		cond.Value = unquote(string(data))
	case css.IdentToken, css.NumberToken:
		cond.Value = string(data)
	default:
		return cond, fmt.Errorf("%w: attribute value expected", ErrUnsupportedSelector)
	}

	if tt, _ = p.next(); tt != css.RightBracketToken {
		return cond, fmt.Errorf("%w: unterminated attribute selector", ErrUnsupportedSelector)
	}
	return cond, nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
