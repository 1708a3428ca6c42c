package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	tmpl2pdf "github.com/sunacchi/go-tmpl2pdf"
	"github.com/sunacchi/go-tmpl2pdf/internal/config"
)

// Environment variable overriding the configured browser executable.
const envBrowserPath = "TMPL2PDF_BROWSER"

// cliOptions are the parsed command-line arguments.
type cliOptions struct {
	configPath  string
	template    string
	paramsJSON  string
	outDir      string
	orientation string
	ranges      []string
	preview     bool
	previewHTML bool
	showParams  bool
}

// run parses arguments and drives one render.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return exitSuccess
		}
		fmt.Fprintln(stderr, err)
		return exitError
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	if bin := os.Getenv(envBrowserPath); bin != "" {
		cfg.Browser.Path = bin
	}

	logger, err := buildLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	defer func() { _ = logger.Sync() }()

	svc := newService(cfg, logger)
	defer func() {
		if err := svc.Dispose(); err != nil {
			logger.Warn("disposing service", zap.Error(err))
		}
	}()

	if opts.showParams {
		return printParameters(svc, opts.template, stdout, stderr)
	}

	req, err := buildRequest(opts)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	result, err := svc.ProcessTemplate(context.Background(), req)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	return writeResult(result, opts.outDir, stdout, stderr)
}

// buildLogger constructs a production logger at the configured level.
func buildLogger(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("parsing log level: %w", err)
		}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// parseFlags builds the option set from CLI arguments.
func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	fs := flag.NewFlagSet("tmpl2pdf", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &cliOptions{}
	fs.StringVarP(&opts.configPath, "config", "c", "tmpl2pdf.yaml", "config file path")
	fs.StringVarP(&opts.template, "template", "t", "", "template name (required)")
	fs.StringVarP(&opts.paramsJSON, "params", "p", "{}", "template parameters as JSON, or @file")
	fs.StringVarP(&opts.outDir, "out", "o", ".", "output directory")
	fs.StringVar(&opts.orientation, "orientation", "", "horizontal or vertical")
	fs.StringSliceVar(&opts.ranges, "ranges", nil, "custom header/footer range ids, e.g. first,2-last")
	fs.BoolVar(&opts.preview, "preview", false, "do not persist PDFs, return bytes only")
	fs.BoolVar(&opts.previewHTML, "preview-html", false, "return the assembled HTML instead of a PDF")
	fs.BoolVar(&opts.showParams, "show-params", false, "print the template's parameter tree and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.template == "" {
		return nil, fmt.Errorf("--template is required")
	}
	return opts, nil
}

// buildRequest translates CLI options to a template request.
func buildRequest(opts *cliOptions) (*tmpl2pdf.Request, error) {
	raw := opts.paramsJSON
	if strings.HasPrefix(raw, "@") {
		data, err := os.ReadFile(raw[1:]) // #nosec G304 -- params path is user-provided
		if err != nil {
			return nil, fmt.Errorf("reading params file: %w", err)
		}
		raw = string(data)
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("parsing params JSON: %w", err)
	}

	return tmpl2pdf.NamedRequest(opts.template, params, tmpl2pdf.ExtraParams{
		Orientation: opts.orientation,
		Preview:     opts.preview,
		PreviewHTML: opts.previewHTML,
		CustomPages: opts.ranges,
	}), nil
}

// newService wires the library service from the loaded config.
func newService(cfg *config.Config, logger *zap.Logger) *tmpl2pdf.Service {
	libs := make([]tmpl2pdf.ScriptInclude, len(cfg.Libs))
	for i, url := range cfg.Libs {
		libs[i] = tmpl2pdf.ScriptInclude{URL: url}
	}

	svcOpts := []tmpl2pdf.Option{tmpl2pdf.WithLogger(logger)}
	if cfg.Merge.Enabled {
		svcOpts = append(svcOpts, tmpl2pdf.WithMerger(tmpl2pdf.NewPdfcpuMerger()))
	}

	return tmpl2pdf.New(&tmpl2pdf.Config{
		BrowserPath:       cfg.Browser.Path,
		BrowserKind:       cfg.Browser.Kind,
		FileDir:           cfg.Dirs.Files,
		PDFDir:            cfg.Dirs.PDF,
		TemplateDir:       cfg.Dirs.Templates,
		BaseURL:           cfg.Staging.BaseURL,
		Port:              cfg.Staging.Port,
		MarginTop:         cfg.Page.MarginTop,
		MarginBottom:      cfg.Page.MarginBottom,
		MarginLeft:        cfg.Page.MarginLeft,
		MarginRight:       cfg.Page.MarginRight,
		Libs:              libs,
		PaperFormat:       cfg.Page.Format,
		Height:            cfg.Page.Height,
		Width:             cfg.Page.Width,
		PreferCSSPageSize: cfg.Page.PreferCSSPageSize,
	}, svcOpts...)
}

// printParameters prints the template's discovered parameter tree.
func printParameters(svc *tmpl2pdf.Service, template string, stdout, stderr io.Writer) int {
	tree, err := svc.TemplateParameters(template)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	out, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	fmt.Fprintln(stdout, string(out))
	return exitSuccess
}

// writeResult persists the returned buffers under the output directory.
func writeResult(result *tmpl2pdf.Result, outDir string, stdout, stderr io.Writer) int {
	write := func(name string, data []byte) error {
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 -- rendered output is world-readable by design
			return err
		}
		fmt.Fprintf(stdout, "Created %s\n", path)
		return nil
	}

	switch result.ContentType {
	case tmpl2pdf.ContentTypePDFArray:
		base := strings.TrimSuffix(result.FileName, ".pdf")
		for i, buf := range result.Buffers {
			if err := write(fmt.Sprintf("%s_%d.pdf", base, i+1), buf); err != nil {
				fmt.Fprintln(stderr, err)
				return exitError
			}
		}
	default:
		if err := write(result.FileName, result.Buffer); err != nil {
			fmt.Fprintln(stderr, err)
			return exitError
		}
	}
	return exitSuccess
}
