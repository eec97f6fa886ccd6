// Package file is the local filesystem source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local opens one file path. It is safe for concurrent use.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path reports the bound path.
func (l *Local) Path() string { return l.path }

// Open returns ctx.Err() without touching the filesystem when ctx is already
// done. Errors wrap the *os.PathError so errors.Is(err, os.ErrNotExist)
// works.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	adviseSequential(f)
	return f, nil
}
