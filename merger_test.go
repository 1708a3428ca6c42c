package tmpl2pdf

import (
	"reflect"
	"testing"
)

func TestDocumentMetadata_Properties(t *testing.T) {
	tests := []struct {
		name string
		meta *DocumentMetadata
		want map[string]string
	}{
		{
			name: "nil metadata still stamps fixed strings",
			meta: nil,
			want: map[string]string{
				"Producer": "go-tmpl2pdf",
				"Creator":  "tmpl2pdf",
			},
		},
		{
			name: "empty metadata keeps fixed strings only",
			meta: &DocumentMetadata{},
			want: map[string]string{
				"Producer": "go-tmpl2pdf",
				"Creator":  "tmpl2pdf",
			},
		},
		{
			name: "full metadata",
			meta: &DocumentMetadata{
				Title:    "Q3 Invoice",
				Author:   "billing",
				Summary:  "Quarterly invoice run",
				Keywords: []string{"invoice", "q3"},
			},
			want: map[string]string{
				"Producer": "go-tmpl2pdf",
				"Creator":  "tmpl2pdf",
				"Title":    "Q3 Invoice",
				"Author":   "billing",
				"Subject":  "Quarterly invoice run",
				"Keywords": "invoice, q3",
			},
		},
		{
			name: "partial metadata skips empty fields",
			meta: &DocumentMetadata{Title: "Report"},
			want: map[string]string{
				"Producer": "go-tmpl2pdf",
				"Creator":  "tmpl2pdf",
				"Title":    "Report",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.meta.properties(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("properties() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPdfcpuMerger_MergeRejectsEmptyInput(t *testing.T) {
	m := NewPdfcpuMerger()
	if _, err := m.Merge(nil, nil); err == nil {
		t.Error("Merge(nil) expected error")
	}
}
