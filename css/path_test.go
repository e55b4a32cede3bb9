package css

import (
	"errors"
	"testing"

	"github.com/beevik/etree"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		sel  string
		want string
	}{
		{"div", "//div"},
		{"#card", "//*[@id='card']"},
		{".title", "//*[@class~='title']"},
		{"div.a.b", "//div[@class~='a'][@class~='b']"},
		{"div#card > span", "//div[@id='card']/span"},
		{"div  p", "//div//p"},
		{"div>p", "//div/p"},
		{"a[href]", "//a[@href]"},
		{`a[title="it's"]`, `//a[@title="it's"]`},
		{"td[data-x=1]", "//td[@data-x='1']"},
		{"p[class~=x]", "//p[@class~='x']"},
		{"*", "//*"},
		{"h1, h2", "//h1 | //h2"},
	}
	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			got, err := Translate(tt.sel)
			if err != nil {
				t.Fatalf("Translate(%q) error = %v", tt.sel, err)
			}
			if got != tt.want {
				t.Errorf("Translate(%q) = %q, want %q", tt.sel, got, tt.want)
			}
		})
	}
}

func TestTranslate_Unsupported(t *testing.T) {
	for _, sel := range []string{
		"a:hover",
		"p::first-line",
		"h1 + p",
		"h1 ~ p",
		"div >",
		"a[href^=http]",
		"",
		"a,,b",
	} {
		t.Run(sel, func(t *testing.T) {
			if _, err := Translate(sel); err == nil {
				t.Errorf("Translate(%q) expected error", sel)
			}
		})
	}

	_, err := Translate("a:hover")
	if !errors.Is(err, ErrUnsupportedSelector) {
		t.Errorf("error %v is not ErrUnsupportedSelector", err)
	}
}

func TestQualify(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"//div", "//x2:div"},
		{"//div[@id='a/b']/span", "//x2:div[@id='a/b']/x2:span"},
		{"//*[@class~='t']", "//*[namespace-prefix()='x2'][@class~='t']"},
		{"//h1 | //h2", "//x2:h1 | //x2:h2"},
		{"//x2:p", "//x2:p"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Qualify(tt.path, "x2"); got != tt.want {
				t.Errorf("Qualify(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

const queryDoc = `<x2:root xmlns:x2="urn:x">
	<x2:div id="card" class="box wide">
		<x2:span class="title main">A</x2:span>
		<x2:p><x2:span class="title">B</x2:span></x2:p>
	</x2:div>
	<x2:div class="boxed">
		<x2:span class="subtitle">C</x2:span>
	</x2:div>
	<span class="title">plain</span>
</x2:root>`

func parseQueryDoc(t *testing.T) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(queryDoc); err != nil {
		t.Fatalf("ReadFromString() error = %v", err)
	}
	return doc.Root()
}

func texts(els []*etree.Element) []string {
	out := make([]string, 0, len(els))
	for _, el := range els {
		if txt := el.Text(); txt != "" {
			out = append(out, txt)
		} else {
			out = append(out, el.SelectAttrValue("id", el.SelectAttrValue("class", el.Tag)))
		}
	}
	return out
}

func TestSelect(t *testing.T) {
	root := parseQueryDoc(t)

	tests := []struct {
		sel  string
		want int
	}{
		{"span", 3},
		{".title", 2},
		{"div .title", 2},
		{"div > .title", 1},
		{"#card span", 2},
		{".box", 1},
		{".wide.box", 1},
		{"div.boxed span", 1},
		{"p span, div > span", 3},
		{"span.title, .main", 2},
		{"[class~=main]", 1},
		{"div[class='boxed']", 1},
		{"table", 0},
	}
	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			path, err := Translate(tt.sel)
			if err != nil {
				t.Fatalf("Translate() error = %v", err)
			}
			got, err := Select(Qualify(path, "x2"), root)
			if err != nil {
				t.Fatalf("Select(%q) error = %v", path, err)
			}
			if len(got) != tt.want {
				t.Errorf("Select(%q) matched %d %v, want %d", path, len(got), texts(got), tt.want)
			}
			for _, el := range got {
				if el.Space != "x2" {
					t.Errorf("Select(%q) matched element outside namespace: %s", path, el.FullTag())
				}
			}
		})
	}
}

func TestSelect_ClassTokenNotSubstring(t *testing.T) {
	root := parseQueryDoc(t)
	got, err := Select(Qualify("//*[@class~='box']", "x2"), root)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(got) != 1 || got[0].SelectAttrValue("id", "") != "card" {
		t.Errorf("class token match returned %v", texts(got))
	}
}

func TestCompile_Errors(t *testing.T) {
	for _, p := range []string{"div", "///div", "//div/", "//div[@a='x]"} {
		if _, err := Compile(p); err == nil {
			t.Errorf("Compile(%q) expected error", p)
		}
	}
}
