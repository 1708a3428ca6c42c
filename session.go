package tmpl2pdf

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/sunacchi/go-tmpl2pdf/internal/fileutil"
)

// renderPage is one browser tab bound to a single request.
type renderPage interface {
	Navigate(url string) error
	HTML() (string, error)
	CapturePDF(opts *captureOptions) ([]byte, error)
	SelectorOuterHTML(selector string) (*selectorSnippet, error)
	SetTotalPages(total int) error
	AddPageStyle(css string) error
	Close() error
}

// renderSession owns the long-lived browser process and opens per-request
// pages against it.
type renderSession interface {
	OpenPage(requestID string) (renderPage, error)
	Dispose() error
}

// selectorSnippet is the outer markup of a header/footer element plus its
// data-margin attributes (empty when absent).
type selectorSnippet struct {
	outerHTML    string
	marginTop    string
	marginBottom string
}

// captureOptions is the print configuration for one PDF capture.
type captureOptions struct {
	path              string // empty: do not persist, return bytes only
	format            string
	landscape         bool
	marginTop         string
	marginBottom      string
	marginLeft        string
	marginRight       string
	headerHTML        string
	footerHTML        string
	pageRanges        string
	preferCSSPageSize bool
	height            string
	width             string
}

// Compile-time interface checks.
var (
	_ renderSession = (*rodSession)(nil)
	_ renderPage    = (*rodPage)(nil)
)

// launchAttempts caps browser launch retries before surfacing the last
// error.
const launchAttempts = 3

// rodSession implements renderSession with go-rod. The browser is
// launched lazily on first use; the launch is guarded so concurrent
// first-use callers observe a single in-flight launch.
type rodSession struct {
	cfg    *Config
	logger *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

func newRodSession(cfg *Config, logger *zap.Logger) *rodSession {
	return &rodSession{cfg: cfg, logger: logger}
}

// ensureBrowser launches and connects the browser once. Launch failures
// are retried up to launchAttempts times.
func (s *rodSession) ensureBrowser() (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		return s.browser, nil
	}
	if s.cfg.BrowserPath == "" {
		return nil, ErrNoRendererConfigured
	}

	var lastErr error
	for attempt := 1; attempt <= launchAttempts; attempt++ {
		browser, err := s.launch()
		if err == nil {
			s.browser = browser
			return browser, nil
		}
		lastErr = err
		s.logger.Error("browser launch failed",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return nil, lastErr
}

// launch starts one browser process and connects to it.
func (s *rodSession) launch() (*rod.Browser, error) {
	s.logger.Info("launching browser",
		zap.String("path", s.cfg.BrowserPath),
		zap.String("kind", s.cfg.BrowserKind))

	l := launcher.New().Bin(s.cfg.BrowserPath)

	// NoSandbox required for CI and containerized environments.
	if os.Getenv("CI") == "true" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return browser, nil
}

// OpenPage creates a new tab and forwards its console, error and network
// events to the logger. Event delivery stops when the page closes.
func (s *rodSession) OpenPage(requestID string) (renderPage, error) {
	browser, err := s.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	logger := s.logger.With(zap.String("request_id", requestID))
	p := &rodPage{page: page, logger: logger, cfg: s.cfg}
	p.bindEvents()
	return p, nil
}

// Dispose closes all open pages and the browser process. Idempotent.
func (s *rodSession) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return nil
	}
	s.logger.Info("closing browser")

	if pages, err := s.browser.Pages(); err == nil {
		for _, page := range pages {
			if err := page.Close(); err != nil {
				s.logger.Warn("closing page", zap.Error(err))
			}
		}
	}

	err := s.browser.Close()
	s.browser = nil
	return err
}

// rodPage implements renderPage on a rod tab.
type rodPage struct {
	page   *rod.Page
	logger *zap.Logger
	cfg    *Config
}

// bindEvents forwards page diagnostics to the logger. EachEvent stops on
// its own when the page closes, which also unbinds the listeners.
func (p *rodPage) bindEvents() {
	go p.page.EachEvent(
		func(e *proto.RuntimeConsoleAPICalled) {
			p.logger.Info("page console",
				zap.String("type", string(e.Type)),
				zap.String("message", consoleMessage(e.Args)))
		},
		func(e *proto.RuntimeExceptionThrown) {
			p.logger.Error("page error",
				zap.String("message", e.ExceptionDetails.Text))
		},
		func(e *proto.NetworkResponseReceived) {
			url := e.Response.URL
			if strings.Contains(url, ";base64,") {
				return
			}
			p.logger.Debug("page response",
				zap.Int("status", e.Response.Status),
				zap.String("url", url))
		},
		func(e *proto.NetworkLoadingFailed) {
			p.logger.Error("page request failed",
				zap.String("error", e.ErrorText),
				zap.String("request_id", string(e.RequestID)))
		},
	)()
}

// consoleMessage flattens console call arguments into one line.
func consoleMessage(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == nil {
			continue
		}
		if arg.Value.Val() != nil {
			parts = append(parts, arg.Value.String())
			continue
		}
		if arg.Description != "" {
			parts = append(parts, arg.Description)
		}
	}
	return strings.Join(parts, " ")
}

// Navigate loads the URL and waits for the window load event. The same
// readiness signal is used for the probe capture and every range capture,
// keeping page-count measurement consistent within a request.
func (p *rodPage) Navigate(url string) error {
	p.logger.Info("loading document", zap.String("url", url))
	if err := p.page.Navigate(url); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := p.page.WaitLoad(); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	return nil
}

// HTML returns the live DOM serialized as HTML.
func (p *rodPage) HTML() (string, error) {
	return p.page.HTML()
}

// CapturePDF prints the current document with the given options. When a
// path is set the bytes are also persisted; persist failures are logged,
// not fatal, since the in-memory buffer is the deliverable.
func (p *rodPage) CapturePDF(opts *captureOptions) ([]byte, error) {
	stream, err := p.page.PDF(p.printOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFCapture, err)
	}
	buf, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFCapture, err)
	}

	if opts.path != "" {
		if err := fileutil.WriteFile(opts.path, buf); err != nil {
			p.logger.Error("persisting PDF", zap.String("path", opts.path), zap.Error(err))
		}
	}
	return buf, nil
}

// printOptions translates captureOptions to the DevTools print call.
func (p *rodPage) printOptions(opts *captureOptions) *proto.PagePrintToPDF {
	width, height := paperSize(opts.format)
	if opts.width != "" {
		width = p.lengthInches(opts.width)
	}
	if opts.height != "" {
		height = p.lengthInches(opts.height)
	}

	print := &proto.PagePrintToPDF{
		Landscape:           opts.landscape,
		PrintBackground:     true,
		DisplayHeaderFooter: true,
		HeaderTemplate:      opts.headerHTML,
		FooterTemplate:      opts.footerHTML,
		PreferCSSPageSize:   opts.preferCSSPageSize,
		PaperWidth:          floatPtr(width),
		PaperHeight:         floatPtr(height),
		MarginTop:           floatPtr(p.lengthInches(opts.marginTop)),
		MarginBottom:        floatPtr(p.lengthInches(opts.marginBottom)),
		MarginLeft:          floatPtr(p.lengthInches(opts.marginLeft)),
		MarginRight:         floatPtr(p.lengthInches(opts.marginRight)),
	}
	if opts.pageRanges != "" {
		print.PageRanges = opts.pageRanges
	}
	return print
}

// SelectorOuterHTML reads the outer markup and data-margin attributes of
// the first element matching selector, then hides the element so it does
// not also appear in the page body.
func (p *rodPage) SelectorOuterHTML(selector string) (*selectorSnippet, error) {
	el, err := p.page.Sleeper(rod.NotFoundSleeper).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSelectorNotFound, selector)
	}

	outer, err := el.HTML()
	if err != nil {
		return nil, fmt.Errorf("reading %s markup: %w", selector, err)
	}

	snippet := &selectorSnippet{outerHTML: outer}
	if v, err := el.Attribute("data-margin-top"); err == nil && v != nil {
		snippet.marginTop = *v
	}
	if v, err := el.Attribute("data-margin-bottom"); err == nil && v != nil {
		snippet.marginBottom = *v
	}

	if _, err := el.Eval(`() => { this.style.display = "none"; }`); err != nil {
		p.logger.Warn("hiding element", zap.String("selector", selector), zap.Error(err))
	}
	return snippet, nil
}

// SetTotalPages publishes the measured page count into the live reactive
// data bag so subsequent captures render the correct "page X of N" text.
func (p *rodPage) SetTotalPages(total int) error {
	_, err := p.page.Eval(`(total) => { reactiveInstance.extraParams["totalPages"] = total; }`, total)
	if err != nil {
		return fmt.Errorf("injecting total pages: %w", err)
	}
	return nil
}

// AddPageStyle injects a style tag into the live document.
func (p *rodPage) AddPageStyle(css string) error {
	return p.page.AddStyleTag("", css)
}

// Close closes the tab, which also stops event forwarding.
func (p *rodPage) Close() error {
	return p.page.Close()
}

// lengthInches parses a CSS length into inches, logging and falling back
// to the 2.54cm default when the value is unparseable.
func (p *rodPage) lengthInches(length string) float64 {
	v, err := cssLengthInches(length)
	if err != nil {
		p.logger.Warn("invalid CSS length", zap.String("value", length), zap.Error(err))
		return 1.0
	}
	return v
}

// Paper sizes in inches.
var paperSizes = map[string][2]float64{
	"letter":  {8.5, 11},
	"legal":   {8.5, 14},
	"tabloid": {11, 17},
	"a3":      {11.69, 16.54},
	"a4":      {8.27, 11.69},
	"a5":      {5.83, 8.27},
}

// paperSize resolves a named paper format to width and height in inches,
// defaulting to Letter.
func paperSize(format string) (width, height float64) {
	if size, ok := paperSizes[strings.ToLower(format)]; ok {
		return size[0], size[1]
	}
	return paperSizes["letter"][0], paperSizes["letter"][1]
}

// cssLengthInches converts a CSS length (cm, mm, in, px, or a bare
// number treated as inches) into inches.
func cssLengthInches(length string) (float64, error) {
	s := strings.TrimSpace(strings.ToLower(length))
	if s == "" {
		return 0, fmt.Errorf("empty length")
	}

	factor := 1.0
	switch {
	case strings.HasSuffix(s, "cm"):
		s, factor = strings.TrimSuffix(s, "cm"), 1.0/2.54
	case strings.HasSuffix(s, "mm"):
		s, factor = strings.TrimSuffix(s, "mm"), 1.0/25.4
	case strings.HasSuffix(s, "px"):
		s, factor = strings.TrimSuffix(s, "px"), 1.0/96.0
	case strings.HasSuffix(s, "in"):
		s = strings.TrimSuffix(s, "in")
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing length %q: %w", length, err)
	}
	return v * factor, nil
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
