package css

import (
	"iter"
	"strings"

	"github.com/elliotchance/orderedmap/v3"
)

// Declarations is an ordered property -> value mapping. Properties keep
// position of their first appearance, later values replace earlier ones.
type Declarations struct {
	m *orderedmap.OrderedMap[string, string]
}

// NewDeclarations creates empty declaration set.
func NewDeclarations() *Declarations {
	return &Declarations{m: orderedmap.NewOrderedMap[string, string]()}
}

// Set adds property or replaces value of existing one in place.
func (d *Declarations) Set(property, value string) {
	d.m.Set(property, value)
}

func (d *Declarations) Get(property string) (string, bool) {
	return d.m.Get(property)
}

func (d *Declarations) Len() int {
	if d == nil {
		return 0
	}
	return d.m.Len()
}

// All iterates over declarations in order.
func (d *Declarations) All() iter.Seq2[string, string] {
	return d.m.AllFromFront()
}

// Merge folds other declarations into d: values of known properties are
// overwritten, new properties are appended.
func (d *Declarations) Merge(other *Declarations) {
	if other == nil {
		return
	}
	for k, v := range other.All() {
		d.Set(k, v)
	}
}

// String serializes declarations as "prop: value; prop2: value2".
func (d *Declarations) String() string {
	if d.Len() == 0 {
		return ""
	}
	parts := make([]string, 0, d.Len())
	for k, v := range d.All() {
		parts = append(parts, k+": "+v)
	}
	return strings.Join(parts, "; ")
}

// Block is a raw style rule block as found in style text: selector before the
// first '{' and declaration text after it.
type Block struct {
	Selector     string // normalized selector text
	Declarations string // raw declaration text
}

// RuleTable accumulates declarations per normalized selector in order of
// first appearance. It lives for a single resolution pass.
type RuleTable struct {
	rules *orderedmap.OrderedMap[string, *Declarations]
}

// NewRuleTable creates empty rule table.
func NewRuleTable() *RuleTable {
	return &RuleTable{rules: orderedmap.NewOrderedMap[string, *Declarations]()}
}

// Merge folds declarations into selector entry and returns the cumulative
// declaration set for the selector.
func (t *RuleTable) Merge(selector string, decls *Declarations) *Declarations {
	cur, ok := t.rules.Get(selector)
	if !ok {
		cur = NewDeclarations()
		t.rules.Set(selector, cur)
	}
	cur.Merge(decls)
	return cur
}

// Lookup returns cumulative declarations for selector.
func (t *RuleTable) Lookup(selector string) (*Declarations, bool) {
	return t.rules.Get(selector)
}

func (t *RuleTable) Len() int {
	if t == nil {
		return 0
	}
	return t.rules.Len()
}

// Selectors iterates over selectors in order of first appearance.
func (t *RuleTable) Selectors() iter.Seq[string] {
	return t.rules.Keys()
}

// All iterates over selectors and their declarations in order of first
// appearance.
func (t *RuleTable) All() iter.Seq2[string, *Declarations] {
	return t.rules.AllFromFront()
}
