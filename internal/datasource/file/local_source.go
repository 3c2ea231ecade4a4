// Package file implements the local filesystem source of raw dataset files.
package file

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// Local opens one file from the local disk.
type Local struct{ path string }

// NewLocal returns a Local data source bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// String describes the source for logs.
func (l *Local) String() string { return "file:" + l.path }

// Open opens the configured path for reading.
//
// A canceled context short-circuits before the filesystem is touched.
// Filesystem errors keep their identity for errors.Is (os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.path == "" {
		return nil, eris.New("file: path must not be empty")
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, eris.Wrapf(err, "file: open %s", l.path)
	}
	return f, nil
}
