// Package content prepares a single template for conversion: input is
// repaired, wrapped into namespaced root and parsed.
package content

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"x2c/markup"
	"x2c/misc"
	"x2c/sanitize"
	"x2c/state"
)

// Content is parsed template. Structural problems found by parser do not
// prevent Content from being created, they are available from Err and
// conversion must refuse to render such content.
type Content struct {
	SrcName  string
	Source   string // markup after repairs, as it was parsed
	Fragment *markup.Fragment
	// WorkDir keeps debug artifacts, only set when debug report is requested.
	WorkDir string
}

// Err returns structural parse error if any.
func (c *Content) Err() error {
	return c.Fragment.Err()
}

// Prepare reads, repairs and parses template markup. Reader must provide
// UTF-8 text.
func Prepare(ctx context.Context, r io.Reader, srcName string, log *zap.Logger) (*Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env := state.EnvFromContext(ctx)
	doc := &env.Cfg.Document

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read template: %w", err)
	}

	ns := doc.NamespaceMarker()
	src := sanitize.New(doc.SanitizeOptions(), ns.Prefix, log).Apply(string(data))

	f, err := markup.Parse(src, ns)
	if err != nil {
		return nil, fmt.Errorf("unable to prepare template: %w", err)
	}
	if err := f.Err(); err != nil {
		log.Warn("Template is not well formed", zap.String("file", srcName), zap.Error(err))
	}

	c := &Content{
		SrcName:  srcName,
		Source:   src,
		Fragment: f,
	}

	if env.Rpt != nil {
		tmpDir, err := os.MkdirTemp("", misc.GetAppName()+"-")
		if err != nil {
			return nil, fmt.Errorf("unable to create temporary directory: %w", err)
		}
		env.Rpt.Store(filepath.Base(tmpDir), tmpDir)
		c.WorkDir = tmpDir

		if err := c.SaveDebug("_sanitized", []byte(src)); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// SaveDebug writes debug artifact next to the others for this template,
// named after source file with suffix attached. Does nothing when no debug
// report was requested.
func (c *Content) SaveDebug(suffix string, data []byte) error {
	if len(c.WorkDir) == 0 {
		return nil
	}
	name := filepath.Join(c.WorkDir, filepath.Base(c.SrcName)+suffix)
	if err := os.WriteFile(name, data, 0644); err != nil {
		return fmt.Errorf("unable to write %s for debugging: %w", suffix, err)
	}
	return nil
}
