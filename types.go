package tmpl2pdf

import (
	"fmt"
	"path/filepath"
)

// Request kinds.
const (
	KindRawHTML RequestKind = iota
	KindExternalURL
	KindNamed
)

// RequestKind discriminates the three template request shapes.
type RequestKind int

// Orientation values accepted in ExtraParams.
const (
	OrientationHorizontal = "horizontal"
	OrientationVertical   = "vertical"
)

// Content types returned in Result.ContentType.
const (
	ContentTypePDF      = "application/pdf"
	ContentTypePDFArray = "array/pdf"
	ContentTypeHTML     = "text/html"
)

// Request describes one template rendering job.
// Exactly one of the three shapes applies, selected by Kind:
// a raw HTML document, an external URL loaded directly by the browser,
// or a named template resolved from the configured template directory.
type Request struct {
	Kind RequestKind

	// HTML is the document body for KindRawHTML.
	HTML string

	// URL is the remote document for KindExternalURL.
	URL string

	// Name is the template name for KindNamed. For KindExternalURL it is
	// an optional logical name used in the generated file name.
	Name string

	// Parameters are caller-supplied substitution values, merged over the
	// placeholders discovered in the template. Caller values win.
	Parameters map[string]any

	// Extra carries print configuration and passthrough template data.
	Extra ExtraParams

	// ParamsOnly requests structural parameter discovery only; the raw
	// template text is returned unmodified and nothing is rendered.
	ParamsOnly bool
}

// RawHTMLRequest builds a request that renders the given HTML verbatim.
func RawHTMLRequest(html string) *Request {
	return &Request{Kind: KindRawHTML, HTML: html}
}

// ExternalRequest builds a request that renders a remote document.
// The name is optional; it defaults to "external_template".
func ExternalRequest(url, name string) *Request {
	return &Request{Kind: KindExternalURL, URL: url, Name: name}
}

// NamedRequest builds a request for a template in the template directory.
func NamedRequest(name string, parameters map[string]any, extra ExtraParams) *Request {
	return &Request{Kind: KindNamed, Name: name, Parameters: parameters, Extra: extra}
}

// ExtraParams carries per-request print configuration plus arbitrary
// passthrough values forwarded into the client-side data bag.
// The totalPages key is reserved: it is always force-set to 0 at assembly
// time and resolved during rendering.
type ExtraParams struct {
	// Orientation is "horizontal" or "vertical" (default).
	Orientation string

	// Preview disables writing any PDF to disk; bytes are still returned.
	Preview bool

	// PreviewHTML returns the rendered document's HTML instead of a PDF.
	PreviewHTML bool

	// CustomPages lists header/footer variant ids. Each id doubles as a
	// page-range template where first, penult and last are substituted
	// with concrete page numbers (e.g. "2-last" with 5 pages -> "2-5").
	CustomPages []string

	// Data holds passthrough keys forwarded verbatim to the template.
	Data map[string]any
}

// Result is the outcome of ProcessTemplate.
type Result struct {
	// FileName is the logical output name, e.g. "invoice_1712345678901.pdf".
	FileName string

	// TotalPages is the measured page count, or 0 when no merger is
	// configured and no measurement pass ran.
	TotalPages int

	// Buffer holds the document bytes for ContentTypePDF and
	// ContentTypeHTML results.
	Buffer []byte

	// Buffers holds one PDF per captured range for ContentTypePDFArray
	// results (custom ranges requested without a merger).
	Buffers [][]byte

	ContentType string
}

// ScriptInclude is one <script> entry injected into the assembled document:
// either a URL reference or inline source.
type ScriptInclude struct {
	URL    string
	Source string
}

// Config holds the recognized service configuration surface.
type Config struct {
	// BrowserPath is the browser executable. Required before the first
	// render unless rod's managed browser download is acceptable.
	BrowserPath string

	// BrowserKind is the browser product name (default "chrome").
	BrowserKind string

	// FileDir is the staging directory for generated HTML documents.
	FileDir string

	// PDFDir is the output directory for persisted PDFs.
	PDFDir string

	// TemplateDir is the template source directory.
	TemplateDir string

	// BaseURL addresses the self-served staging files, e.g.
	// "http://localhost". Empty means staging files are loaded with
	// file:// URLs directly.
	BaseURL string

	// Port is appended to BaseURL when non-zero.
	Port int

	// Print margins (CSS lengths). Default 2.54cm each.
	MarginTop    string
	MarginBottom string
	MarginLeft   string
	MarginRight  string

	// Libs are extra script includes appended to every assembled document.
	Libs []ScriptInclude

	// PaperFormat is the page format (default "Letter").
	PaperFormat string

	// Height and Width override the paper format when set.
	Height string
	Width  string

	// PreferCSSPageSize gives @page CSS precedence over PaperFormat.
	PreferCSSPageSize bool
}

// Default configuration values.
const (
	DefaultBrowserKind = "chrome"
	DefaultMargin      = "2.54cm"
	DefaultPaperFormat = "Letter"
)

// withDefaults fills unset fields with default values.
func (c *Config) withDefaults() *Config {
	out := *c
	if out.BrowserKind == "" {
		out.BrowserKind = DefaultBrowserKind
	}
	if out.MarginTop == "" {
		out.MarginTop = DefaultMargin
	}
	if out.MarginBottom == "" {
		out.MarginBottom = DefaultMargin
	}
	if out.MarginLeft == "" {
		out.MarginLeft = DefaultMargin
	}
	if out.MarginRight == "" {
		out.MarginRight = DefaultMargin
	}
	if out.PaperFormat == "" {
		out.PaperFormat = DefaultPaperFormat
	}
	return &out
}

// stagingURL resolves the URL the browser should load for a staged file.
// Without a base URL the staging directory is addressed directly via
// file://, which requires an absolute path.
func (c *Config) stagingURL(fileName string) string {
	if c.BaseURL == "" {
		dir := c.FileDir
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		return "file://" + dir + "/" + fileName + ".html"
	}
	base := c.BaseURL
	if c.Port != 0 {
		base = fmt.Sprintf("%s:%d", base, c.Port)
	}
	return base + "/" + fileName + ".html"
}
