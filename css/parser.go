package css

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DeclarationError describes declaration fragment which could not be split
// into property and value. It is never fatal.
type DeclarationError struct {
	Fragment string
}

func (e *DeclarationError) Error() string {
	return fmt.Sprintf("malformed declaration %q", e.Fragment)
}

// Parser splits style text into rule blocks and declarations.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// SplitBlocks splits style text on '}' into blocks and every block on the
// first '{' into selector and declaration text. Blocks without non-empty
// selector or declaration text are skipped.
func (p *Parser) SplitBlocks(text string) []Block {
	var blocks []Block
	for chunk := range strings.SplitSeq(text, "}") {
		if len(strings.TrimSpace(chunk)) == 0 {
			continue
		}
		sel, decls, found := strings.Cut(chunk, "{")
		sel, decls = CollapseSpace(sel), strings.TrimSpace(decls)
		if !found || len(sel) == 0 || len(decls) == 0 {
			p.log.Debug("Skipping incomplete style block", zap.String("block", strings.TrimSpace(chunk)))
			continue
		}
		blocks = append(blocks, Block{Selector: sel, Declarations: decls})
	}
	return blocks
}

// ParseDeclarations splits declaration text on ';' and every fragment on
// the first ':'. Fragments which do not produce both property and value are
// skipped and reported in returned error (may hold several).
func (p *Parser) ParseDeclarations(text string) (*Declarations, error) {
	var errs error

	decls := NewDeclarations()
	for frag := range strings.SplitSeq(text, ";") {
		frag = strings.TrimSpace(frag)
		if len(frag) == 0 {
			continue
		}
		prop, value, found := strings.Cut(frag, ":")
		prop, value = strings.TrimSpace(prop), strings.TrimSpace(value)
		if !found || len(prop) == 0 || len(value) == 0 {
			p.log.Debug("Skipping malformed declaration", zap.String("declaration", frag))
			errs = multierr.Append(errs, &DeclarationError{Fragment: frag})
			continue
		}
		decls.Set(prop, value)
	}
	return decls, errs
}

// IsAtRule reports whether selector text starts at-rule.
func IsAtRule(sel string) bool {
	return strings.HasPrefix(sel, "@")
}

// CollapseSpace replaces every run of whitespace with single space and trims
// result.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
