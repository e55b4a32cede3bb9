package table

import (
	"errors"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"x2c/css"
	"x2c/markup"
)

const tableOpen = `<table width="100%" align="left" border="0" cellspacing="0" cellpadding="0" style="max-width:100%; table-layout:fixed; word-break:break-word;"`

func parse(t *testing.T, src string) *markup.Fragment {
	t.Helper()
	f, err := markup.Parse(src, markup.DefaultNamespace)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if f.Err() != nil {
		t.Fatalf("Parse() structural error = %v", f.Err())
	}
	return f
}

func newConverter() *Converter {
	return New(Options{Indent: -1}, zap.NewNop())
}

func convert(t *testing.T, src string) *Result {
	t.Helper()
	res, err := newConverter().Convert(parse(t, src))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	return res
}

// elements returns all elements of subtree in document order, el included.
func elements(el *etree.Element) []*etree.Element {
	out := []*etree.Element{el}
	for _, c := range el.ChildElements() {
		out = append(out, elements(c)...)
	}
	return out
}

func TestConvert_VerticalLayout(t *testing.T) {
	res := convert(t, `<x2:div id="card"><x2:p>Hello</x2:p><x2:span class="x">World</x2:span></x2:div>`)

	want := tableOpen + ` data-marker="#card">` +
		`<tr><td data-marker="p">` + tableOpen + ` data-marker="p"><tr><td>Hello</td></tr></table></td></tr>` +
		`<tr><td data-marker=".x"><span class="x" data-marker=".x">World</span></td></tr>` +
		"</table>\n"
	if res.Markup != want {
		t.Errorf("Markup:\ngot:\n%s\nwant:\n%s", res.Markup, want)
	}
}

func TestConvert_FlexLayout(t *testing.T) {
	res := convert(t, `<x2:section display="flex"><x2:div id="card"><x2:p>Hello</x2:p><x2:span class="x">World</x2:span></x2:div></x2:section>`)

	want := `<section display="flex" data-marker="section">` +
		tableOpen + ` data-marker="#card"><tr>` +
		`<td data-marker="p">` + tableOpen + ` data-marker="p"><tr><td>Hello</td></tr></table></td>` +
		`<td data-marker=".x"><span class="x" data-marker=".x">World</span></td>` +
		"</tr></table></section>\n"
	if res.Markup != want {
		t.Errorf("Markup:\ngot:\n%s\nwant:\n%s", res.Markup, want)
	}
}

func TestConvert_StyleOverwrite(t *testing.T) {
	f := parse(t, `<x2:style>x2:p { color: red; } x2:p { color: blue; font-size: 12px; }</x2:style>`+
		`<x2:div><x2:p style="margin: 0">Hi</x2:p></x2:div>`)

	c := newConverter()
	rules, err := c.ResolveStyles(f.Root)
	if err != nil {
		t.Fatalf("ResolveStyles() error = %v", err)
	}
	decls, ok := rules.Lookup("p")
	if !ok || decls.String() != "color: blue; font-size: 12px" {
		t.Fatalf("rule p = %v", decls)
	}

	p := f.Root.FindElement(".//x2:p")
	if got := p.SelectAttrValue("style", ""); got != "color: blue; font-size: 12px" {
		t.Errorf("inline style = %q", got)
	}

	// block content lifts its style onto the cell
	c.Transform(f.Root)
	td := f.Root.FindElement(".//td[@data-marker='p']")
	if td == nil {
		t.Fatal("cell generated from p not found")
	}
	if got := td.SelectAttrValue("style", ""); got != "color: blue; font-size: 12px" {
		t.Errorf("cell style = %q", got)
	}
}

func TestConvert_StructuralError(t *testing.T) {
	f, err := markup.Parse(`<x2:div><x2:p>unclosed</x2:div>`, markup.DefaultNamespace)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	c := newConverter()
	res, err := c.Convert(f)
	if !errors.Is(err, ErrStructure) {
		t.Fatalf("Convert() error = %v, want ErrStructure", err)
	}
	if res != nil {
		t.Error("Convert() returned result for broken fragment")
	}
	if _, err := c.Render(f); !errors.Is(err, ErrStructure) {
		t.Errorf("Render() error = %v, want ErrStructure", err)
	}
}

func TestConvert_Warnings(t *testing.T) {
	res := convert(t, `<x2:style>
		@media print { x2:p { color: red } }
		x2:span { color: green; oops; : none }
		x2:a:hover { color: red }
		x2:table { border: 0 }
	</x2:style><x2:span>A</x2:span>`)

	errs := multierr.Errors(res.Warnings)
	if len(errs) != 2 {
		t.Fatalf("got %d warnings, want 2: %v", len(errs), res.Warnings)
	}
	var de *css.DeclarationError
	if !errors.As(errs[0], &de) || de.Fragment != "oops" {
		t.Errorf("first warning = %v", errs[0])
	}

	// unresolvable and unmatched rules are still kept
	for _, sel := range []string{"span", "a:hover", "table"} {
		if _, ok := res.Rules.Lookup(sel); !ok {
			t.Errorf("rule %q missing", sel)
		}
	}
	if _, ok := res.Rules.Lookup("@media print"); ok {
		t.Error("at-rule must be skipped")
	}
	if !strings.Contains(res.Markup, `<span style="color: green" data-marker="span">A</span>`) {
		t.Errorf("Markup = %q", res.Markup)
	}
}

func TestTransform_StructuralCount(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		rows, cell int
	}{
		{"vertical", `<x2:div id="t">
			<x2:p>a</x2:p>
			text
			<x2:b>c</x2:b>
		</x2:div>`, 3, 1},
		{"flex", `<x2:div><x2:div id="t" display="flex">
			<x2:p>a</x2:p>
			text
			<x2:b>c</x2:b>
		</x2:div></x2:div>`, 1, 3},
		{"flex without children", `<x2:div><x2:div id="t" display="flex">  </x2:div></x2:div>`, 1, 0},
		{"vertical without children", `<x2:div id="t">

		</x2:div>`, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := parse(t, tt.src)
			newConverter().Transform(f.Root)

			table := f.Root.FindElement(".//table[@data-marker='#t']")
			if table == nil {
				t.Fatal("no table generated")
			}
			rows := table.SelectElements("tr")
			if len(rows) != tt.rows {
				t.Fatalf("got %d rows, want %d", len(rows), tt.rows)
			}
			for i, tr := range rows {
				if n := len(tr.SelectElements("td")); n != tt.cell {
					t.Errorf("row %d has %d cells, want %d", i, n, tt.cell)
				}
			}
		})
	}
}

func TestTransform_CellAttributes(t *testing.T) {
	f := parse(t, `<x2:div>`+
		`<x2:a href="#x" class="link" style="color: red" title="t">a</x2:a>`+
		`<x2:img src="i.png" class="pic" alt="pic"/>`+
		`<x2:p class="para" style="margin: 0" lang="en">p</x2:p>`+
		`<x2:div id="inner" style="padding: 1px">d</x2:div>`+
		`</x2:div>`)
	newConverter().Transform(f.Root)

	outer := f.Root.ChildElements()[0]
	var cells []*etree.Element
	for _, tr := range outer.SelectElements("tr") {
		cells = append(cells, tr.SelectElements("td")...)
	}
	if len(cells) != 4 {
		t.Fatalf("got %d cells, want 4", len(cells))
	}

	tests := []struct {
		marker, style string
		keep          []string
	}{
		{".link", "", []string{"title"}},
		{".pic", "", []string{"alt"}},
		{".para", "margin: 0", []string{"lang"}},
		{"#inner", "padding: 1px", []string{"id"}},
	}
	for i, tt := range tests {
		td := cells[i]
		for _, drop := range []string{"class", "href", "src"} {
			if td.SelectAttr(drop) != nil {
				t.Errorf("cell %d carries %q", i, drop)
			}
		}
		if got := td.SelectAttrValue("style", ""); got != tt.style {
			t.Errorf("cell %d style = %q, want %q", i, got, tt.style)
		}
		if got := td.SelectAttrValue(DefaultMarkerAttr, ""); got != tt.marker {
			t.Errorf("cell %d marker = %q, want %q", i, got, tt.marker)
		}
		for _, k := range tt.keep {
			if td.SelectAttr(k) == nil {
				t.Errorf("cell %d lost %q", i, k)
			}
		}
	}
}

func TestTransform_Markers(t *testing.T) {
	f := parse(t, `<x2:div id=" main " class="c"><x2:p class=" lead  big ">x</x2:p><x2:span>y</x2:span><x2:b data-marker="old" id="">z</x2:b></x2:div>`)
	newConverter().Transform(f.Root)

	want := map[string]bool{}
	for _, el := range elements(f.Root)[1:] {
		if el.Space != "" {
			t.Errorf("namespaced element %s left after transform", el.FullTag())
		}
		n := 0
		for _, a := range el.Attr {
			if a.Key == DefaultMarkerAttr {
				n++
			}
		}
		if n > 1 {
			t.Errorf("%s carries %d markers", el.Tag, n)
		}
		if el.Tag == "tr" {
			continue
		}
		if v := el.SelectAttrValue(DefaultMarkerAttr, ""); v != "" {
			want[el.Tag+" "+v] = true
		}
	}
	for _, m := range []string{"table #main", "td .lead  big", "table .lead  big", "td span", "span span", "td b", "b b"} {
		if !want[m] {
			t.Errorf("marker %q not found in %v", m, want)
		}
	}
}

func TestTransform_Idempotent(t *testing.T) {
	f := parse(t, `<x2:div display="flex"><x2:p id="a">Hello <x2:b>bold</x2:b></x2:p><x2:ul><x2:li>1</x2:li></x2:ul></x2:div>`)
	c := newConverter()
	c.Transform(f.Root)

	first, err := c.Render(f)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	c.Transform(f.Root)
	second, err := c.Render(f)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if first != second {
		t.Errorf("second transform changed tree:\n%s\n%s", first, second)
	}
}

func TestTransform_KeepsForeignElements(t *testing.T) {
	res := convert(t, `<x2:div><font color="red"><x2:i>x</x2:i></font><!--c--></x2:div>`)

	want := tableOpen + ` data-marker="div">` +
		`<tr><td color="red" data-marker="font"><font color="red"><i data-marker="i">x</i></font></td></tr>` +
		`<tr><td><!--c--></td></tr>` +
		"</table>\n"
	if res.Markup != want {
		t.Errorf("Markup:\ngot:\n%s\nwant:\n%s", res.Markup, want)
	}
}

func TestRender(t *testing.T) {
	f := parse(t, `
		<x2:b>bold</x2:b>
		tail &amp; more
		<x2:br/>
	`)
	c := New(Options{Indent: 2}, nil)
	res, err := c.Convert(f)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	want := "<b data-marker=\"b\">bold</b>\n" +
		"\n\t\ttail &amp; more\n\t\t\n" +
		"<br data-marker=\"br\"/>\n"
	if res.Markup != want {
		t.Errorf("Markup = %q, want %q", res.Markup, want)
	}

	f = parse(t, `<x2:div><x2:span>a</x2:span></x2:div>`)
	res, err = c.Convert(f)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	want = tableOpen + " data-marker=\"div\">\n" +
		"  <tr>\n" +
		"    <td data-marker=\"span\">\n" +
		"      <span data-marker=\"span\">a</span>\n" +
		"    </td>\n" +
		"  </tr>\n" +
		"</table>\n"
	if res.Markup != want {
		t.Errorf("indented Markup:\ngot:\n%s\nwant:\n%s", res.Markup, want)
	}
}

func TestDump(t *testing.T) {
	f := parse(t, `<x2:style>x2:p10 { a: 1 } x2:p9 { b: 2 }</x2:style><x2:p9>x</x2:p9>`)
	res, err := newConverter().Convert(f)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	out := Dump(f, res)
	if i, j := strings.Index(out, `"p9"`), strings.Index(out, `"p10"`); i < 0 || j < 0 || i > j {
		t.Errorf("rules are not in natural order:\n%s", out)
	}
	if !strings.Contains(out, `<p9> style="b: 2" data-marker="p9"`) {
		t.Errorf("tree dump missing converted element:\n%s", out)
	}
	if got := Dump(nil, nil); !strings.HasPrefix(got, "<nil Fragment>") {
		t.Errorf("Dump(nil) = %q", got)
	}
}
