package tmpl2pdf

import "errors"

// Sentinel errors for library operations.
var (
	// Request validation errors.
	ErrRequestRequired      = errors.New("template request cannot be nil")
	ErrTemplateNameRequired = errors.New("template name required")

	// Template loading errors.
	ErrTemplateNotFound = errors.New("template not found")

	// Renderer session errors.
	ErrNoRendererConfigured = errors.New("no browser executable configured")
	ErrBrowserLaunch        = errors.New("failed to launch browser")
	ErrBrowserConnect       = errors.New("failed to connect to browser")
	ErrPageCreate           = errors.New("failed to create browser page")
	ErrPageLoad             = errors.New("failed to load page")
	ErrSelectorNotFound     = errors.New("selector not found in document")

	// Capture and merge errors.
	ErrPDFCapture  = errors.New("PDF capture failed")
	ErrMergeFailed = errors.New("PDF merge failed")
)
