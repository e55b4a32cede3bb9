package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/beevik/etree"
	sprig "github.com/go-task/slim-sprig/v3"

	"x2c/config"
	"x2c/content"
	"x2c/markup"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context    string
	SourceFile string
	Title      string
	Prefix     string
	URI        string
	Styles     int
	Blocks     int
}

// buildTitle returns text of the first namespaced title element, if any.
func buildTitle(f *markup.Fragment) string {
	if f == nil || f.Root == nil {
		return ""
	}
	el := f.Root.FindElementPath(etree.MustCompilePath(".//" + f.Namespace.Qualify("title")))
	if el == nil {
		return ""
	}
	return strings.Join(strings.Fields(el.Text()), " ")
}

// countElements counts namespaced descendants with one of the local names.
func countElements(f *markup.Fragment, names ...string) int {
	if f == nil || f.Root == nil {
		return 0
	}
	count := 0
	for _, name := range names {
		count += len(f.Root.FindElementsPath(etree.MustCompilePath(".//" + f.Namespace.Qualify(name))))
	}
	return count
}

func expandTemplate(c *content.Content, name config.TemplateFieldName, field string) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values := Values{
		Context:    string(name),
		SourceFile: strings.TrimSuffix(filepath.Base(c.SrcName), filepath.Ext(c.SrcName)),
		Title:      buildTitle(c.Fragment),
		Styles:     countElements(c.Fragment, "style"),
		Blocks:     countElements(c.Fragment, "div", "p"),
	}
	if c.Fragment != nil {
		values.Prefix, values.URI = c.Fragment.Namespace.Prefix, c.Fragment.Namespace.URI
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
