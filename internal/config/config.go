// Package config loads and validates the tmpl2pdf service configuration
// from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sunacchi/go-tmpl2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrNoBrowserPath  = errors.New("browser.path is required")
	ErrInvalidMargin  = errors.New("invalid margin value")
)

// Config holds all file-backed configuration for the rendering service.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Dirs    DirsConfig    `yaml:"dirs"`
	Staging StagingConfig `yaml:"staging"`
	Page    PageConfig    `yaml:"page"`
	Libs    []string      `yaml:"libs"`
	Merge   MergeConfig   `yaml:"merge"`
	Logging LoggingConfig `yaml:"logging"`
}

// BrowserConfig identifies the browser executable driving the renders.
type BrowserConfig struct {
	Path string `yaml:"path"` // executable path (required)
	Kind string `yaml:"kind"` // product name (default "chrome")
}

// DirsConfig defines the working directories.
type DirsConfig struct {
	Files     string `yaml:"files"`     // staging dir for generated HTML
	PDF       string `yaml:"pdf"`       // output dir for persisted PDFs
	Templates string `yaml:"templates"` // template source dir
}

// StagingConfig addresses the self-served staging files. When BaseURL is
// empty the browser loads staging files via file:// paths.
type StagingConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Port    int    `yaml:"port"`
}

// PageConfig defines print geometry defaults.
type PageConfig struct {
	Format            string `yaml:"format"`            // default "Letter"
	MarginTop         string `yaml:"marginTop"`         // default "2.54cm"
	MarginBottom      string `yaml:"marginBottom"`      //
	MarginLeft        string `yaml:"marginLeft"`        //
	MarginRight       string `yaml:"marginRight"`       //
	Height            string `yaml:"height"`            // overrides format
	Width             string `yaml:"width"`             // overrides format
	PreferCSSPageSize bool   `yaml:"preferCssPageSize"` //
}

// MergeConfig toggles the pdfcpu-backed merger.
type MergeConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig selects the log output profile.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default info)
}

// marginUnits are the accepted CSS length suffixes for margins.
var marginUnits = []string{"cm", "mm", "in", "px"}

// Validate checks required fields and margin syntax.
func (c *Config) Validate() error {
	if c.Browser.Path == "" {
		return ErrNoBrowserPath
	}
	for name, v := range map[string]string{
		"page.marginTop":    c.Page.MarginTop,
		"page.marginBottom": c.Page.MarginBottom,
		"page.marginLeft":   c.Page.MarginLeft,
		"page.marginRight":  c.Page.MarginRight,
	} {
		if v == "" {
			continue
		}
		if !validMargin(v) {
			return fmt.Errorf("%w: %s=%q", ErrInvalidMargin, name, v)
		}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: invalid value %q", c.Logging.Level)
	}
	return nil
}

// validMargin accepts values like "2.54cm", "13mm", "1in", "96px".
func validMargin(v string) bool {
	for _, unit := range marginUnits {
		if strings.HasSuffix(v, unit) {
			return true
		}
	}
	return false
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
