package markup

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
)

// Fragment is parsed markup wrapped into uniquely named namespaced root.
// Everything authored is found under Root.
type Fragment struct {
	Doc       *etree.Document
	Root      *etree.Element
	Namespace Namespace

	err error
}

// Err returns structural error recorded while parsing, nil when tree is usable.
func (f *Fragment) Err() error {
	if f == nil {
		return errors.New("no fragment")
	}
	return f.err
}

// RootTag generates unique local name for wrapping root.
func RootTag() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("unable to generate root name: %w", err)
	}
	return "_" + strings.ReplaceAll(id.String(), "-", ""), nil
}

// Wrap puts markup inside namespaced root declaring namespace binding.
func Wrap(src, tag string, ns Namespace) string {
	var b strings.Builder
	b.Grow(len(src) + 2*len(tag) + len(ns.URI) + 32)
	fmt.Fprintf(&b, `<%s xmlns:%s="%s">`, ns.Qualify(tag), ns.Prefix, ns.URI)
	b.WriteString(src)
	fmt.Fprintf(&b, `</%s>`, ns.Qualify(tag))
	return b.String()
}

// Parse wraps and parses markup. Structural problems do not fail the call,
// they are recorded on the returned fragment and may be examined with Err.
func Parse(src string, ns Namespace) (*Fragment, error) {
	tag, err := RootTag()
	if err != nil {
		return nil, err
	}

	f := &Fragment{Doc: etree.NewDocument(), Namespace: ns}
	f.Doc.ReadSettings = etree.ReadSettings{
		Permissive:    false,
		PreserveCData: true,
		ValidateInput: false,
	}
	f.Doc.WriteSettings = etree.WriteSettings{
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}

	if err := f.Doc.ReadFromString(Wrap(src, tag, ns)); err != nil {
		f.err = fmt.Errorf("unable to parse markup: %w", err)
		return f, nil
	}

	f.Root = f.Doc.Root()
	if f.Root == nil || !ns.Owns(f.Root) || f.Root.Tag != tag {
		f.err = errors.New("unable to parse markup: wrapping root is missing")
	}
	return f, nil
}
