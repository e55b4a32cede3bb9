// Package table rewrites namespaced block markup into nested table layout
// which email clients render reliably. Conversion runs in three passes over
// a single parsed fragment: style rules are inlined, authored elements are
// converted or renamed, and the result is serialized.
package table

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"x2c/css"
	"x2c/markup"
)

// ErrStructure is returned when fragment could not be parsed into tree and
// therefore must not be rendered.
var ErrStructure = errors.New("structural parse failure")

// DefaultMarkerAttr is the name of traceability attribute put on generated
// and renamed elements.
const DefaultMarkerAttr = "data-marker"

// tags converted to tables, everything else is renamed
var blockTags = map[string]bool{
	"div": true,
	"p":   true,
}

// presentation attributes of every generated table, in output order
var tableAttrs = []struct{ key, value string }{
	{"width", "100%"},
	{"align", "left"},
	{"border", "0"},
	{"cellspacing", "0"},
	{"cellpadding", "0"},
	{"style", "max-width:100%; table-layout:fixed; word-break:break-word;"},
}

// Options configure Converter.
type Options struct {
	Namespace  markup.Namespace
	MarkerAttr string
	// Indent is number of spaces used to indent rendered markup, negative
	// value produces markup without added whitespace.
	Indent int
}

// Converter turns parsed fragments into table layout. It keeps no tree state
// between conversions and may be reused sequentially.
type Converter struct {
	ns     markup.Namespace
	marker string
	indent int
	parser *css.Parser
	log    *zap.Logger
}

// New creates converter, zero options fields are replaced with defaults.
func New(opts Options, log *zap.Logger) *Converter {
	if log == nil {
		log = zap.NewNop()
	}
	if len(opts.Namespace.Prefix) == 0 {
		opts.Namespace = markup.DefaultNamespace
	}
	if len(opts.MarkerAttr) == 0 {
		opts.MarkerAttr = DefaultMarkerAttr
	}
	return &Converter{
		ns:     opts.Namespace,
		marker: opts.MarkerAttr,
		indent: opts.Indent,
		parser: css.NewParser(log),
		log:    log.Named("convert"),
	}
}

// Result is outcome of a single conversion.
type Result struct {
	Markup string
	// Rules holds resolved style rules in order of first appearance.
	Rules *css.RuleTable
	// Warnings accumulates non-fatal anomalies found in style text, use
	// multierr.Errors to get individual errors.
	Warnings error
}

// Convert resolves styles, transforms and renders fragment. Fragment tree is
// modified in place.
func (c *Converter) Convert(f *markup.Fragment) (*Result, error) {
	if err := f.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStructure, err)
	}

	res := &Result{}
	res.Rules, res.Warnings = c.ResolveStyles(f.Root)
	if res.Warnings != nil {
		c.log.Debug("Style resolution finished with warnings", zap.Error(res.Warnings))
	}

	c.Transform(f.Root)

	out, err := c.Render(f)
	if err != nil {
		return nil, err
	}
	res.Markup = out
	return res, nil
}
