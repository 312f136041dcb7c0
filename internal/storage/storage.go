// Package storage abstracts where uploaded blobs live. The only backing
// implementation is the local filesystem: one directory tree for clause
// uploads (partitioned by committee) and one flat directory for chat
// attachments.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a stored blob does not exist.
var ErrNotFound = errors.New("storage: file not found")

// FileStore stores and serves uploaded files under a root directory.
type FileStore struct {
	root string
}

// NewFileStore creates the root directory if needed and returns a store.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{root: root}, nil
}

// Root returns the store's base directory.
func (s *FileStore) Root() string { return s.root }

// Save writes r to subdir/name under the root and returns the path relative
// to the root. The stored name is sanitized and prefixed with a short unique
// ID so two uploads with the same client-side name never collide.
func (s *FileStore) Save(subdir, name string, r io.Reader) (string, int64, error) {
	clean := SanitizeFilename(name)
	if clean == "" {
		return "", 0, errors.New("storage: empty filename")
	}
	dir := s.root
	if subdir != "" {
		dir = filepath.Join(s.root, subdir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", 0, err
		}
	}

	stored := fmt.Sprintf("%s_%s", uuid.NewString()[:8], clean)
	dst := filepath.Join(dir, stored)
	f, err := os.Create(dst)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return "", 0, err
	}

	rel, err := filepath.Rel(s.root, dst)
	if err != nil {
		return "", 0, err
	}
	return filepath.ToSlash(rel), n, nil
}

// Open returns a reader for the blob at the store-relative path. The path is
// validated to stay inside the root.
func (s *FileStore) Open(rel string) (io.ReadCloser, error) {
	abs, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// ReadAll returns the full contents of the blob at the store-relative path.
func (s *FileStore) ReadAll(rel string) ([]byte, error) {
	f, err := s.Open(rel)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Exists reports whether a blob is present at the store-relative path.
func (s *FileStore) Exists(rel string) bool {
	abs, err := s.resolve(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// Abs resolves a store-relative path to an absolute one, rejecting traversal
// outside the root.
func (s *FileStore) Abs(rel string) (string, error) { return s.resolve(rel) }

func (s *FileStore) resolve(rel string) (string, error) {
	abs := filepath.Join(s.root, filepath.FromSlash(rel))
	rootAbs, err := filepath.Abs(s.root)
	if err != nil {
		return "", err
	}
	fullAbs, err := filepath.Abs(abs)
	if err != nil {
		return "", err
	}
	if fullAbs != rootAbs && !strings.HasPrefix(fullAbs, rootAbs+string(os.PathSeparator)) {
		return "", errors.New("storage: path escapes store root")
	}
	return fullAbs, nil
}

// SanitizeFilename strips directory components and any character outside a
// conservative allowlist, the equivalent of werkzeug's secure_filename.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "." || out == ".." {
		return ""
	}
	return out
}
