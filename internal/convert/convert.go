// Package convert turns uploaded documents into HTML. Conversion is delegated
// to an external converter; the default implementation shells out to pandoc,
// which must be installed on the host.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Converter produces HTML from a document on disk.
type Converter interface {
	// ToHTML converts the file at path and returns the HTML body.
	ToHTML(ctx context.Context, path string) (string, error)
}

// ConversionError wraps a converter failure so the HTTP layer can map it to a
// distinct 500 with the converter's diagnostics attached.
type ConversionError struct {
	Path string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s: %v", e.Path, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// PandocConverter converts DOCX files by invoking the pandoc binary.
type PandocConverter struct {
	// Binary is the pandoc executable; "pandoc" when empty.
	Binary string
	// MediaDir receives extracted embedded media; skipped when empty.
	MediaDir string
}

// ToHTML runs pandoc with unwrapped output, matching how clause documents
// were converted historically so stored HTML stays diffable.
func (p *PandocConverter) ToHTML(ctx context.Context, path string) (string, error) {
	bin := p.Binary
	if bin == "" {
		bin = "pandoc"
	}
	args := []string{"--from=docx", "--to=html", "--wrap=none"}
	if p.MediaDir != "" {
		args = append(args, "--extract-media="+p.MediaDir)
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return "", &ConversionError{Path: path, Err: err}
	}
	return stdout.String(), nil
}
