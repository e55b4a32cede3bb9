// Package config loads program configuration and prepares logging and
// debug reporting.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"x2c/markup"
	"x2c/sanitize"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	NamespaceConfig struct {
		Prefix string `yaml:"prefix" validate:"required,alphanum"`
		URI    string `yaml:"uri" validate:"required,uri"`
	}

	SanitizeConfig struct {
		EscapeAmpersands bool `yaml:"escape_ampersands"`
		CloseVoidTags    bool `yaml:"close_void_tags"`
		NumericEntities  bool `yaml:"numeric_entities"`
		StripCSSComments bool `yaml:"strip_css_comments"`
	}

	DocumentConfig struct {
		Namespace             NamespaceConfig `yaml:"namespace"`
		MarkerAttribute       string          `yaml:"marker_attribute" validate:"required"`
		Indent                int             `yaml:"indent" validate:"gte=-1,lte=8"`
		Sanitize              SanitizeConfig  `yaml:"sanitize"`
		Extensions            []string        `yaml:"extensions" validate:"min=1,dive,required,startswith=."`
		OutputNameTemplate    string          `yaml:"output_name_template"`
		FileNameTransliterate bool            `yaml:"file_name_transliterate"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Document  DocumentConfig `yaml:"document"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

// NOTE: must match yaml field name above
const OutputNameTemplateFieldName TemplateFieldName = "output_name_template"

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

// NamespaceMarker returns namespace authored elements are marked with.
func (conf *DocumentConfig) NamespaceMarker() markup.Namespace {
	return markup.Namespace{Prefix: conf.Namespace.Prefix, URI: conf.Namespace.URI}
}

// SanitizeOptions converts repair switches for sanitizer.
func (conf *DocumentConfig) SanitizeOptions() sanitize.Options {
	return sanitize.Options{
		EscapeAmpersands: conf.Sanitize.EscapeAmpersands,
		CloseVoidTags:    conf.Sanitize.CloseVoidTags,
		NumericEntities:  conf.Sanitize.NumericEntities,
		StripCSSComments: conf.Sanitize.StripCSSComments,
	}
}

// IsTemplateFile reports whether file name has one of configured extensions.
func (conf *DocumentConfig) IsTemplateFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range conf.Extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// only fields we defined are allowed, so no yaml.Unmarshal here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("configuration sanitization failed: %w", err)
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to
// provide sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
