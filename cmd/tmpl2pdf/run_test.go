package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tmpl2pdf "github.com/sunacchi/go-tmpl2pdf"
)

func TestParseFlags(t *testing.T) {
	var stderr bytes.Buffer
	opts, err := parseFlags([]string{
		"-t", "invoice",
		"-c", "custom.yaml",
		"-p", `{"title":"T"}`,
		"--orientation", "horizontal",
		"--ranges", "first,2-last",
		"--preview",
	}, &stderr)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}

	if opts.template != "invoice" {
		t.Errorf("template = %q", opts.template)
	}
	if opts.configPath != "custom.yaml" {
		t.Errorf("configPath = %q", opts.configPath)
	}
	if opts.orientation != "horizontal" {
		t.Errorf("orientation = %q", opts.orientation)
	}
	if len(opts.ranges) != 2 || opts.ranges[0] != "first" || opts.ranges[1] != "2-last" {
		t.Errorf("ranges = %v", opts.ranges)
	}
	if !opts.preview {
		t.Error("preview not set")
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	var stderr bytes.Buffer
	opts, err := parseFlags([]string{"-t", "invoice"}, &stderr)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.configPath != "tmpl2pdf.yaml" {
		t.Errorf("configPath = %q, want default", opts.configPath)
	}
	if opts.paramsJSON != "{}" {
		t.Errorf("paramsJSON = %q, want {}", opts.paramsJSON)
	}
	if opts.outDir != "." {
		t.Errorf("outDir = %q, want .", opts.outDir)
	}
}

func TestParseFlags_TemplateRequired(t *testing.T) {
	var stderr bytes.Buffer
	if _, err := parseFlags(nil, &stderr); err == nil {
		t.Error("expected error without --template")
	}
}

func TestBuildRequest(t *testing.T) {
	req, err := buildRequest(&cliOptions{
		template:    "invoice",
		paramsJSON:  `{"title":"Hello"}`,
		orientation: "horizontal",
		ranges:      []string{"first"},
	})
	if err != nil {
		t.Fatalf("buildRequest() error = %v", err)
	}

	if req.Kind != tmpl2pdf.KindNamed {
		t.Errorf("Kind = %v", req.Kind)
	}
	if req.Name != "invoice" {
		t.Errorf("Name = %q", req.Name)
	}
	if req.Parameters["title"] != "Hello" {
		t.Errorf("Parameters = %v", req.Parameters)
	}
	if req.Extra.Orientation != "horizontal" {
		t.Errorf("Orientation = %q", req.Extra.Orientation)
	}
	if len(req.Extra.CustomPages) != 1 {
		t.Errorf("CustomPages = %v", req.Extra.CustomPages)
	}
}

func TestBuildRequest_ParamsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	if err := os.WriteFile(path, []byte(`{"amount":42}`), 0o644); err != nil {
		t.Fatal(err)
	}

	req, err := buildRequest(&cliOptions{template: "invoice", paramsJSON: "@" + path})
	if err != nil {
		t.Fatalf("buildRequest() error = %v", err)
	}
	if req.Parameters["amount"] != float64(42) {
		t.Errorf("Parameters = %v", req.Parameters)
	}
}

func TestBuildRequest_BadJSON(t *testing.T) {
	if _, err := buildRequest(&cliOptions{template: "x", paramsJSON: "{not json"}); err == nil {
		t.Error("expected error for malformed params JSON")
	}
}

func TestWriteResult_SinglePDF(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	code := writeResult(&tmpl2pdf.Result{
		FileName:    "invoice_1.pdf",
		Buffer:      []byte("pdf"),
		ContentType: tmpl2pdf.ContentTypePDF,
	}, dir, &stdout, &stderr)

	if code != exitSuccess {
		t.Fatalf("writeResult() = %d, stderr: %s", code, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "invoice_1.pdf")); err != nil {
		t.Errorf("output file missing: %v", err)
	}
	if !strings.Contains(stdout.String(), "invoice_1.pdf") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestWriteResult_BufferArray(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	code := writeResult(&tmpl2pdf.Result{
		FileName:    "invoice_1.pdf",
		Buffers:     [][]byte{[]byte("a"), []byte("b")},
		ContentType: tmpl2pdf.ContentTypePDFArray,
	}, dir, &stdout, &stderr)

	if code != exitSuccess {
		t.Fatalf("writeResult() = %d, stderr: %s", code, stderr.String())
	}
	for _, name := range []string{"invoice_1_1.pdf", "invoice_1_2.pdf"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
}

func TestBuildLogger(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "error"} {
		if _, err := buildLogger(level); err != nil {
			t.Errorf("buildLogger(%q) error = %v", level, err)
		}
	}
	if _, err := buildLogger("verbose"); err == nil {
		t.Error("buildLogger expected error for unknown level")
	}
}
