package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConversionError_WrapsAndFormats(t *testing.T) {
	cause := errors.New("exit status 64")
	err := &ConversionError{Path: "/tmp/draft.docx", Err: cause}

	if !strings.Contains(err.Error(), "draft.docx") || !strings.Contains(err.Error(), "exit status 64") {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatalf("ConversionError must unwrap to its cause")
	}
	var ce *ConversionError
	if !errors.As(error(err), &ce) {
		t.Fatalf("errors.As failed")
	}
}

// Uses /bin/sh as a stand-in binary so the test runs without pandoc.
func TestPandocConverter_CapturesStdout(t *testing.T) {
	script := filepath.Join(t.TempDir(), "fake-pandoc")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho '<p>out</p>'\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	p := &PandocConverter{Binary: script}
	html, err := p.ToHTML(context.Background(), "in.docx")
	if err != nil {
		t.Fatalf("ToHTML: %v", err)
	}
	if strings.TrimSpace(html) != "<p>out</p>" {
		t.Fatalf("html = %q", html)
	}
}

func TestPandocConverter_FailureIncludesStderr(t *testing.T) {
	script := filepath.Join(t.TempDir(), "fake-pandoc")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho 'bad docx' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	p := &PandocConverter{Binary: script}
	_, err := p.ToHTML(context.Background(), "in.docx")
	if err == nil {
		t.Fatalf("expected failure")
	}
	var ce *ConversionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConversionError, got %T", err)
	}
	if !strings.Contains(err.Error(), "bad docx") {
		t.Fatalf("stderr detail missing: %v", err)
	}
}

func TestPandocConverter_MissingBinary(t *testing.T) {
	p := &PandocConverter{Binary: filepath.Join(t.TempDir(), "does-not-exist")}
	_, err := p.ToHTML(context.Background(), "in.docx")
	var ce *ConversionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConversionError, got %v", err)
	}
}
