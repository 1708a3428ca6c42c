package tmpl2pdf

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sunacchi/go-tmpl2pdf/internal/fileutil"
)

// Built-in header/footer snippets used when the document declares none.
const (
	defaultHeaderHTML = "<span></span>"

	defaultFooterHTML = `<div style="margin: 0 13mm; display: flex; align-items: center; width: 100%; justify-content: flex-end;">` +
		`<p style="font-size: 8px; text-align: right; align-self: flex-end;">` +
		`[<span class="pageNumber"></span>/<span class="totalPages"></span>]` +
		`</p></div>`
)

// Header/footer DOM selectors. A custom range id derives its own pair.
const (
	headerSelector      = "#page-header"
	footerSelector      = "#page-footer"
	headerRangeSelector = "#header-page-"
	footerRangeSelector = "#footer-page-"
	landscapePageStyle  = "@page { size: A4 landscape; }"
)

// headerFooter is a resolved header/footer pair with its print margins.
type headerFooter struct {
	headerHTML   string
	footerHTML   string
	marginTop    string
	marginBottom string
}

// generator drives the two-pass page-range assembly protocol: render the
// document, measure total pages when a merger is configured, capture the
// declared header/footer ranges, and merge.
type generator struct {
	cfg     *Config
	session renderSession
	merger  PageMerger
	logger  *zap.Logger
}

// run executes the protocol for one prepared template. The page opened
// for the request is closed and the staging HTML deleted on every path.
func (g *generator) run(ctx context.Context, tmpl *renderedTemplate, requestID string) (*Result, error) {
	logger := g.logger.With(
		zap.String("request_id", requestID),
		zap.String("template", tmpl.name))

	if tmpl.externalURL == "" {
		defer g.deleteStagingFile(tmpl, logger)
	}

	page, err := g.session.OpenPage(requestID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Warn("closing page", zap.Error(err))
		}
	}()

	url := tmpl.externalURL
	if url == "" {
		url = g.cfg.stagingURL(tmpl.fileName)
	}
	if err := page.Navigate(url); err != nil {
		return nil, err
	}

	if tmpl.previewHTML {
		html, err := page.HTML()
		if err != nil {
			return nil, err
		}
		return &Result{
			FileName:    tmpl.fileName + ".html",
			Buffer:      []byte(html),
			ContentType: ContentTypeHTML,
		}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("creating PDF")
	opts := g.captureOptions(page, tmpl, logger)

	buffer, totalPages, err := g.measureTotalPages(ctx, page, opts)
	if err != nil {
		return nil, err
	}

	if len(tmpl.customPages) > 0 {
		return g.captureRanges(ctx, page, tmpl, opts, totalPages, logger)
	}

	return &Result{
		FileName:    tmpl.fileName + ".pdf",
		TotalPages:  totalPages,
		Buffer:      buffer,
		ContentType: ContentTypePDF,
	}, nil
}

// captureOptions builds the default whole-document print configuration,
// resolving the document's own header/footer elements.
func (g *generator) captureOptions(page renderPage, tmpl *renderedTemplate, logger *zap.Logger) *captureOptions {
	hf := g.resolveHeaderFooter(page, "", logger)

	opts := &captureOptions{
		path:              filepath.Join(g.cfg.PDFDir, tmpl.fileName+".pdf"),
		format:            g.cfg.PaperFormat,
		marginTop:         hf.marginTop,
		marginBottom:      hf.marginBottom,
		marginLeft:        g.cfg.MarginLeft,
		marginRight:       g.cfg.MarginRight,
		headerHTML:        hf.headerHTML,
		footerHTML:        hf.footerHTML,
		preferCSSPageSize: g.cfg.PreferCSSPageSize,
		height:            g.cfg.Height,
		width:             g.cfg.Width,
	}

	if tmpl.orientation == OrientationHorizontal {
		opts.landscape = true
		// Belt and suspenders: Chrome's landscape flag and CSS page sizing
		// can disagree, so the page size is forced from both sides.
		if err := page.AddPageStyle(landscapePageStyle); err != nil {
			logger.Warn("injecting landscape style", zap.Error(err))
		}
		logger.Info("setting PDF orientation", zap.String("orientation", tmpl.orientation))
	}

	if tmpl.preview {
		opts.path = ""
		logger.Info("preview requested, PDF will not be persisted")
	}
	return opts
}

// measureTotalPages runs the first pass. With a merger configured it
// captures a throwaway probe, asks the merger for its page count, injects
// the count into the live document and re-captures so pagination text is
// correct. Without a merger a single capture is taken and the browser's
// native pagination tokens are trusted.
func (g *generator) measureTotalPages(ctx context.Context, page renderPage, opts *captureOptions) ([]byte, int, error) {
	if g.merger == nil {
		buffer, err := page.CapturePDF(opts)
		return buffer, 0, err
	}

	probe, err := page.CapturePDF(opts)
	if err != nil {
		return nil, 0, err
	}
	// The probe exists only to count pages; its on-disk copy is not the
	// deliverable.
	if opts.path != "" {
		if err := fileutil.Remove(opts.path); err != nil {
			g.logger.Warn("deleting probe PDF", zap.String("path", opts.path), zap.Error(err))
		}
	}

	totalPages, err := g.merger.PageCount(probe)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: counting pages: %v", ErrMergeFailed, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if err := page.SetTotalPages(totalPages); err != nil {
		return nil, 0, err
	}

	buffer, err := page.CapturePDF(opts)
	return buffer, totalPages, err
}

// captureRanges captures one PDF per declared header/footer id, in
// declaration order. A single range's failure is logged and that range
// omitted; it does not abort the rest.
func (g *generator) captureRanges(ctx context.Context, page renderPage, tmpl *renderedTemplate, opts *captureOptions, totalPages int, logger *zap.Logger) (*Result, error) {
	buffers := make([][]byte, 0, len(tmpl.customPages))

	for _, id := range tmpl.customPages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		hf := g.resolveHeaderFooter(page, id, logger)
		rangeOpts := *opts
		rangeOpts.headerHTML = hf.headerHTML
		rangeOpts.footerHTML = hf.footerHTML
		rangeOpts.marginTop = hf.marginTop
		rangeOpts.marginBottom = hf.marginBottom
		rangeOpts.pageRanges = substituteRangeTokens(id, totalPages)

		buf, err := page.CapturePDF(&rangeOpts)
		if err != nil {
			logger.Error("range capture failed", zap.String("range", id), zap.Error(err))
			continue
		}
		buffers = append(buffers, buf)
	}

	// The full-document capture on disk is superseded by the ranges.
	if opts.path != "" {
		if err := fileutil.Remove(opts.path); err != nil {
			logger.Warn("deleting superseded PDF", zap.String("path", opts.path), zap.Error(err))
		}
	}

	if g.merger == nil {
		return &Result{
			FileName:    tmpl.fileName + ".pdf",
			TotalPages:  totalPages,
			Buffers:     buffers,
			ContentType: ContentTypePDFArray,
		}, nil
	}

	merged, err := g.merger.Merge(buffers, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMergeFailed, err)
	}
	if opts.path != "" {
		if err := fileutil.WriteFile(opts.path, merged); err != nil {
			logger.Error("persisting merged PDF", zap.String("path", opts.path), zap.Error(err))
		}
	}

	return &Result{
		FileName:    tmpl.fileName + ".pdf",
		TotalPages:  totalPages,
		Buffer:      merged,
		ContentType: ContentTypePDF,
	}, nil
}

// resolveHeaderFooter reads the document's header/footer elements for the
// given range id ("" for the whole-document pair). A missing selector is
// never an error: a warning is logged and the built-in snippet with the
// configured margin is used instead.
func (g *generator) resolveHeaderFooter(page renderPage, rangeID string, logger *zap.Logger) headerFooter {
	headerSel, footerSel := headerSelector, footerSelector
	if rangeID != "" {
		headerSel = headerRangeSelector + rangeID
		footerSel = footerRangeSelector + rangeID
	}

	hf := headerFooter{
		headerHTML:   defaultHeaderHTML,
		footerHTML:   defaultFooterHTML,
		marginTop:    g.cfg.MarginTop,
		marginBottom: g.cfg.MarginBottom,
	}

	if snippet, err := page.SelectorOuterHTML(headerSel); err != nil {
		logger.Warn("no header template found", zap.String("selector", headerSel), zap.Error(err))
	} else {
		hf.headerHTML = snippet.outerHTML
		if snippet.marginTop != "" {
			hf.marginTop = snippet.marginTop
		}
	}

	if snippet, err := page.SelectorOuterHTML(footerSel); err != nil {
		logger.Warn("no footer template found", zap.String("selector", footerSel), zap.Error(err))
	} else {
		hf.footerHTML = snippet.outerHTML
		if snippet.marginBottom != "" {
			hf.marginBottom = snippet.marginBottom
		}
	}

	return hf
}

// deleteStagingFile removes the assembled HTML document. Failures are
// logged only; the rendered bytes are already in memory.
func (g *generator) deleteStagingFile(tmpl *renderedTemplate, logger *zap.Logger) {
	path := tmpl.stagingPath(g.cfg)
	logger.Info("deleting staging file", zap.String("path", path))
	if err := fileutil.Remove(path); err != nil {
		logger.Error("deleting staging file", zap.String("path", path), zap.Error(err))
	}
}

// substituteRangeTokens resolves the symbolic tokens in a range id into a
// concrete pageRanges string: first -> 1, penult -> totalPages-1,
// last -> totalPages. The id "2-last" with 5 total pages becomes "2-5".
func substituteRangeTokens(id string, totalPages int) string {
	r := strings.NewReplacer(
		"first", "1",
		"penult", strconv.Itoa(totalPages-1),
		"last", strconv.Itoa(totalPages),
	)
	return r.Replace(id)
}
