// Package sink persists extracted files.
package sink

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrEscapesRoot is returned for names that resolve outside the output root
var ErrEscapesRoot = errors.New("path escapes output directory")

// ErrEmptyName is returned for names with no file component
var ErrEmptyName = errors.New("empty file name")

// Sink receives extracted files. Implementations must be safe for
// concurrent use; data must not be modified or retained after return.
type Sink interface {
	WriteEntry(name string, data []byte) error
}

// WriteError reports a failure to persist one file.
type WriteError struct {
	Name string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("writing %q: %v", e.Name, e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }

// FileSink writes files below Root on an afero filesystem, creating parent
// directories as needed.
type FileSink struct {
	fs   afero.Fs
	root string
}

// NewFileSink returns a FileSink rooted at root
func NewFileSink(fs afero.Fs, root string) *FileSink {
	return &FileSink{fs: fs, root: root}
}

// NewOsSink returns a FileSink on the host filesystem
func NewOsSink(root string) *FileSink {
	return NewFileSink(afero.NewOsFs(), root)
}

// Root returns the output directory
func (s *FileSink) Root() string { return s.root }

// Path maps an archive name to its destination. Leading slashes are
// dropped, so "/app.json" lands at <root>/app.json. Both '/' and '\'
// separate directories.
func (s *FileSink) Path(name string) (string, error) {
	if !within(name) {
		return "", ErrEscapesRoot
	}
	rel := strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(name, "\\", "/")), "/")
	if rel == "" {
		return "", ErrEmptyName
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

// within reports whether name stays inside the root when ".." segments are
// applied in order.
func within(name string) bool {
	depth := 0
	for _, seg := range strings.FieldsFunc(name, func(c rune) bool { return c == '/' || c == '\\' }) {
		switch seg {
		case ".":
		case "..":
			depth--
			if depth < 0 {
				return false
			}
		default:
			depth++
		}
	}
	return true
}

// WriteEntry writes data to the path for name, replacing any existing file.
func (s *FileSink) WriteEntry(name string, data []byte) error {
	dst, err := s.Path(name)
	if err != nil {
		return &WriteError{Name: name, Err: err}
	}

	if err := s.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return &WriteError{Name: name, Err: err}
	}
	if err := afero.WriteFile(s.fs, dst, data, 0o644); err != nil {
		return &WriteError{Name: name, Err: err}
	}

	return nil
}

// Clean removes the output directory and everything in it.
// A missing directory is not an error.
func (s *FileSink) Clean() error {
	if err := s.fs.RemoveAll(s.root); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clean output directory %s: %w", s.root, err)
	}
	return nil
}

// Discard is a Sink that drops everything. Used for dry runs.
type Discard struct{}

func (Discard) WriteEntry(string, []byte) error { return nil }
