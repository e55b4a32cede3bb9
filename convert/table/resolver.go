package table

import (
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"x2c/css"
)

// ResolveStyles finds namespaced style elements under scope and inlines
// their rules: every element matched by rule selector gets "style" attribute
// set to all declarations accumulated for that selector so far, replacing
// whatever was there. Returned error is never fatal, it lists malformed
// declarations which were skipped.
func (c *Converter) ResolveStyles(scope *etree.Element) (*css.RuleTable, error) {
	var warnings error

	rules := css.NewRuleTable()
	styles := scope.FindElementsPath(etree.MustCompilePath(".//" + c.ns.Qualify("style")))

	for _, style := range styles {
		for _, block := range c.parser.SplitBlocks(styleText(style)) {
			sel := css.CollapseSpace(c.ns.StripSelector(block.Selector))
			if len(sel) == 0 {
				continue
			}
			if css.IsAtRule(sel) {
				c.log.Debug("Skipping at-rule", zap.String("selector", sel))
				continue
			}

			decls, err := c.parser.ParseDeclarations(block.Declarations)
			if err != nil {
				warnings = multierr.Append(warnings, err)
			}
			merged := rules.Merge(sel, decls)

			matches, err := c.match(sel, scope)
			if err != nil {
				c.log.Debug("Rule has no effect", zap.String("selector", sel), zap.Error(err))
				continue
			}
			if len(matches) == 0 {
				c.log.Debug("Rule matched nothing", zap.String("selector", sel))
				continue
			}

			value := merged.String()
			for _, el := range matches {
				el.CreateAttr("style", value)
			}
		}
	}
	return rules, warnings
}

// match translates normalized selector and runs it against scope restricting
// tag steps to authored elements.
func (c *Converter) match(sel string, scope *etree.Element) ([]*etree.Element, error) {
	path, err := css.Translate(sel)
	if err != nil {
		return nil, err
	}
	q, err := css.Compile(css.Qualify(path, c.ns.Prefix))
	if err != nil {
		return nil, err
	}
	return q.Select(scope), nil
}

// styleText concatenates all character data of the style element.
func styleText(el *etree.Element) string {
	var b strings.Builder
	for _, t := range el.Child {
		if cd, ok := t.(*etree.CharData); ok {
			b.WriteString(cd.Data)
		}
	}
	return b.String()
}
