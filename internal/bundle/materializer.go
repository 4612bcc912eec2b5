package bundle

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	pb "github.com/cheggaaa/pb/v3"
)

var ErrDestinationExists = errors.New("destination already exists and is not empty")

// WriteError wraps a filesystem failure with the path being written.
type WriteError struct {
	Path  string
	Cause error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("cannot write %s: %s", e.Path, e.Cause)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}

type Materializer struct {
	progressOut io.Writer
	quiet       bool
}

type Option func(*Materializer) *Materializer

// WithProgressOut redirects the progress bar (default: stderr).
func WithProgressOut(w io.Writer) Option {
	return func(m *Materializer) *Materializer {
		m.progressOut = w
		return m
	}
}

// WithQuiet suppresses the progress bar.
func WithQuiet(quiet bool) Option {
	return func(m *Materializer) *Materializer {
		m.quiet = quiet
		return m
	}
}

func New(opt ...Option) *Materializer {
	m := &Materializer{
		progressOut: os.Stderr,
	}
	for _, o := range opt {
		m = o(m)
	}
	return m
}

// Materialize renders files against req and writes the tree under
// req.Dest(), creating parent directories as needed.
//
// It refuses to write into an existing non-empty destination
// (ErrDestinationExists). On a write failure it stops at once and
// returns a WriteError; files already written stay on disk, and their
// relative paths are returned along with the error. There is no
// rollback.
func (m *Materializer) Materialize(l *log.Logger, req Request, files []File) ([]string, error) {
	dest := req.Dest()

	if s, err := os.Stat(dest); err == nil {
		if !s.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrDestinationExists, dest)
		}
		entries, err := os.ReadDir(dest)
		if err != nil {
			return nil, &WriteError{Path: dest, Cause: err}
		}
		if 0 < len(entries) {
			return nil, fmt.Errorf("%w: %s", ErrDestinationExists, dest)
		}
	}

	var bar *pb.ProgressBar
	if !m.quiet {
		bar = pb.New(len(files))
		bar.SetWriter(m.progressOut)
		bar.Start()
		defer bar.Finish()
	}

	written := []string{}
	for _, f := range files {
		content, err := f.Render(req)
		if err != nil {
			return written, fmt.Errorf("cannot render %s: %w", f.Path, err)
		}

		abspath := filepath.Join(dest, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(abspath), os.FileMode(0755)); err != nil {
			return written, &WriteError{Path: abspath, Cause: err}
		}
		if err := os.WriteFile(abspath, content, os.FileMode(0644)); err != nil {
			return written, &WriteError{Path: abspath, Cause: err}
		}

		written = append(written, f.Path)
		if bar != nil {
			bar.Increment()
		}
	}

	l.Printf("generated %d files under %s", len(written), dest)
	return written, nil
}
