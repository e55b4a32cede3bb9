package table

import (
	"slices"
	"sort"

	"github.com/maruel/natural"
	"go.uber.org/multierr"

	"x2c/markup"
	"x2c/utils/debug"
)

// Dump returns readable view of converted fragment and resolved rules.
// It exists solely for debug reports.
func Dump(f *markup.Fragment, res *Result) string {
	tw := debug.NewTreeWriter()

	if f == nil || f.Root == nil {
		tw.Line(0, "<nil Fragment>")
		if err := f.Err(); err != nil {
			tw.TextBlock(1, "Error", err.Error())
		}
		return tw.String()
	}

	if res != nil && res.Rules.Len() > 0 {
		tw.Line(0, "Rules (%d entries)", res.Rules.Len())
		sels := slices.Collect(res.Rules.Selectors())
		sort.Sort(natural.StringSlice(sels))
		for _, sel := range sels {
			decls, _ := res.Rules.Lookup(sel)
			tw.Line(1, "Selector=%q declarations=%d", sel, decls.Len())
			for prop, value := range decls.All() {
				tw.Line(2, "%s: %s", prop, value)
			}
		}
	}
	if res != nil && res.Warnings != nil {
		errs := multierr.Errors(res.Warnings)
		tw.Line(0, "Warnings (%d entries)", len(errs))
		for _, err := range errs {
			tw.TextBlock(1, "Warning", err.Error())
		}
	}

	tw.Line(0, "Tree")
	tw.Node(1, f.Root)
	return tw.String()
}
