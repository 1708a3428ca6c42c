package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tmpl2pdf.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
browser:
  path: /usr/bin/chromium
  kind: chrome
dirs:
  files: /tmp/files
  pdf: /tmp/pdf
  templates: /tmp/templates
staging:
  baseUrl: http://localhost
  port: 3000
page:
  format: A4
  marginTop: 2cm
libs:
  - https://cdn.jsdelivr.net/npm/vue@3
merge:
  enabled: true
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Browser.Path != "/usr/bin/chromium" {
		t.Errorf("Browser.Path = %q", cfg.Browser.Path)
	}
	if cfg.Staging.Port != 3000 {
		t.Errorf("Staging.Port = %d", cfg.Staging.Port)
	}
	if cfg.Page.Format != "A4" {
		t.Errorf("Page.Format = %q", cfg.Page.Format)
	}
	if !cfg.Merge.Enabled {
		t.Error("Merge.Enabled = false, want true")
	}
	if len(cfg.Libs) != 1 {
		t.Errorf("Libs = %v", cfg.Libs)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("error = %v, want ErrConfigNotFound", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "browser: [not a map")
	if _, err := Load(path); !errors.Is(err, ErrConfigParse) {
		t.Errorf("error = %v, want ErrConfigParse", err)
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeConfig(t, `
browser:
  path: /usr/bin/chromium
browzer:
  path: /oops
`)
	if _, err := Load(path); !errors.Is(err, ErrConfigParse) {
		t.Errorf("error = %v, want ErrConfigParse for unknown key", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "minimal valid",
			cfg:  Config{Browser: BrowserConfig{Path: "/usr/bin/chromium"}},
		},
		{
			name:    "missing browser path",
			cfg:     Config{},
			wantErr: ErrNoBrowserPath,
		},
		{
			name: "margin without unit",
			cfg: Config{
				Browser: BrowserConfig{Path: "/usr/bin/chromium"},
				Page:    PageConfig{MarginTop: "2.54"},
			},
			wantErr: ErrInvalidMargin,
		},
		{
			name: "all margin units accepted",
			cfg: Config{
				Browser: BrowserConfig{Path: "/usr/bin/chromium"},
				Page: PageConfig{
					MarginTop:    "2.54cm",
					MarginBottom: "13mm",
					MarginLeft:   "1in",
					MarginRight:  "96px",
				},
			},
		},
		{
			name: "valid log level",
			cfg: Config{
				Browser: BrowserConfig{Path: "/usr/bin/chromium"},
				Logging: LoggingConfig{Level: "warn"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := Config{
		Browser: BrowserConfig{Path: "/usr/bin/chromium"},
		Logging: LoggingConfig{Level: "verbose"},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for unknown log level")
	}
}
