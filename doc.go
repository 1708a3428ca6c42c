// Package tmpl2pdf renders parameterized HTML templates to PDF using a
// headless browser, with optional per-page-range header/footer variants
// stitched into a single document.
//
// # Quick Start
//
// Create a service, process a template, and dispose when done:
//
//	svc := tmpl2pdf.New(&tmpl2pdf.Config{
//	    BrowserPath: "/usr/bin/chromium",
//	    FileDir:     "/tmp/staging",
//	    PDFDir:      "/tmp/pdf",
//	    TemplateDir: "./templates",
//	}, tmpl2pdf.WithMerger(tmpl2pdf.NewPdfcpuMerger()))
//	defer svc.Dispose()
//
//	result, err := svc.ProcessTemplate(ctx, tmpl2pdf.NamedRequest(
//	    "invoice",
//	    map[string]any{"customer": "Acme"},
//	    tmpl2pdf.ExtraParams{},
//	))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile(result.FileName, result.Buffer, 0644)
//
// # Rendering Pipeline
//
// Each request flows through these stages:
//
//  1. Parameter extraction: the template is scanned for {{placeholders}},
//     dotted paths and repeated-row (v-for) bindings.
//  2. Assembly: caller values are merged over the discovered parameters,
//     script includes and a reactive boot script are appended, and the
//     document is staged as a self-contained HTML file.
//  3. Rendering: the document is loaded in headless Chrome. With a merger
//     configured, a probe capture measures the total page count, which is
//     injected back into the live document before the final captures.
//  4. Range assembly: declared header/footer range ids (e.g. "first",
//     "2-last") each produce a capture restricted to that page range; the
//     merger stitches them into one PDF.
//
// Templates declare their print chrome inline: #page-header and
// #page-footer elements (or #header-page-<id>/#footer-page-<id> per
// range) are lifted out of the document and handed to the browser's
// header/footer slots, with data-margin-top/data-margin-bottom attributes
// overriding the configured margins.
package tmpl2pdf
