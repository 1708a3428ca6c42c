package tmpl2pdf

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageMerger combines PDF buffers into one document and reports a
// buffer's page count. A nil merger disables the measurement pass:
// totalPages is reported as 0 and range captures are returned unmerged.
type PageMerger interface {
	PageCount(pdf []byte) (int, error)
	Merge(pdfs [][]byte, meta *DocumentMetadata) ([]byte, error)
}

// DocumentMetadata is stamped into a merged document's properties.
type DocumentMetadata struct {
	Title    string
	Author   string
	Summary  string
	Keywords []string
}

// Fixed producer/creator strings stamped alongside caller metadata.
const (
	metadataProducer = "go-tmpl2pdf"
	metadataCreator  = "tmpl2pdf"
)

// Compile-time interface check.
var _ PageMerger = (*PdfcpuMerger)(nil)

// PdfcpuMerger implements PageMerger with pdfcpu.
type PdfcpuMerger struct {
	conf *model.Configuration
}

// NewPdfcpuMerger creates a merger with pdfcpu's default (relaxed)
// validation configuration.
func NewPdfcpuMerger() *PdfcpuMerger {
	return &PdfcpuMerger{conf: model.NewDefaultConfiguration()}
}

// PageCount returns the number of pages in the PDF buffer.
func (m *PdfcpuMerger) PageCount(pdf []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(pdf), m.conf)
	if err != nil {
		return 0, fmt.Errorf("counting pages: %w", err)
	}
	return count, nil
}

// Merge concatenates the buffers in order into a single PDF. The fixed
// producer and creator strings are stamped into the merged document's
// properties on every merge, together with any caller metadata; creation
// and modification timestamps are refreshed by pdfcpu on write.
func (m *PdfcpuMerger) Merge(pdfs [][]byte, meta *DocumentMetadata) ([]byte, error) {
	if len(pdfs) == 0 {
		return nil, fmt.Errorf("no PDF buffers to merge")
	}

	readers := make([]io.ReadSeeker, len(pdfs))
	for i, pdf := range pdfs {
		readers[i] = bytes.NewReader(pdf)
	}

	var merged bytes.Buffer
	if err := api.MergeRaw(readers, &merged, false, m.conf); err != nil {
		return nil, fmt.Errorf("merging PDFs: %w", err)
	}

	var stamped bytes.Buffer
	if err := api.AddProperties(bytes.NewReader(merged.Bytes()), &stamped, meta.properties(), m.conf); err != nil {
		return nil, fmt.Errorf("stamping metadata: %w", err)
	}
	return stamped.Bytes(), nil
}

// properties flattens the metadata into pdfcpu property key/values.
// A nil receiver yields the fixed producer/creator strings alone, so
// merges without caller metadata are still stamped.
func (d *DocumentMetadata) properties() map[string]string {
	props := map[string]string{
		"Producer": metadataProducer,
		"Creator":  metadataCreator,
	}
	if d == nil {
		return props
	}
	if d.Title != "" {
		props["Title"] = d.Title
	}
	if d.Author != "" {
		props["Author"] = d.Author
	}
	if d.Summary != "" {
		props["Subject"] = d.Summary
	}
	if len(d.Keywords) > 0 {
		props["Keywords"] = strings.Join(d.Keywords, ", ")
	}
	return props
}
