package tmpl2pdf_test

import (
	"context"
	"fmt"
	"log"
	"os"

	tmpl2pdf "github.com/sunacchi/go-tmpl2pdf"
)

// Render a named template to a single PDF with page-count measurement.
func Example() {
	svc := tmpl2pdf.New(&tmpl2pdf.Config{
		BrowserPath: "/usr/bin/chromium",
		FileDir:     "/tmp/tmpl2pdf/staging",
		PDFDir:      "/tmp/tmpl2pdf/pdf",
		TemplateDir: "./templates",
	}, tmpl2pdf.WithMerger(tmpl2pdf.NewPdfcpuMerger()))
	defer svc.Dispose()

	result, err := svc.ProcessTemplate(context.Background(), tmpl2pdf.NamedRequest(
		"invoice",
		map[string]any{"customer": "Acme Corp"},
		tmpl2pdf.ExtraParams{},
	))
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(result.FileName, result.Buffer, 0o644); err != nil {
		log.Fatal(err)
	}
	fmt.Println(result.TotalPages)
}

// Discover the parameters a template expects without rendering it.
func ExampleService_TemplateParameters() {
	svc := tmpl2pdf.New(&tmpl2pdf.Config{TemplateDir: "./templates"})
	defer svc.Dispose()

	params, err := svc.TemplateParameters("invoice")
	if err != nil {
		log.Fatal(err)
	}
	for name := range params {
		fmt.Println(name)
	}
}

// Render per-range header/footer variants merged into one document.
func ExampleService_ProcessTemplate_customRanges() {
	svc := tmpl2pdf.New(&tmpl2pdf.Config{
		BrowserPath: "/usr/bin/chromium",
		FileDir:     "/tmp/tmpl2pdf/staging",
		PDFDir:      "/tmp/tmpl2pdf/pdf",
		TemplateDir: "./templates",
	}, tmpl2pdf.WithMerger(tmpl2pdf.NewPdfcpuMerger()))
	defer svc.Dispose()

	result, err := svc.ProcessTemplate(context.Background(), tmpl2pdf.NamedRequest(
		"report", nil, tmpl2pdf.ExtraParams{
			CustomPages: []string{"first", "2-penult", "last"},
		},
	))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(result.ContentType)
}
