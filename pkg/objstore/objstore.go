package objstore

import (
	"bytes"
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no object exists at the requested path.
	ErrNotFound = errors.New("objstore: object not found")
	// ErrConflict is returned by Put when the object exists and overwrite is false.
	ErrConflict = errors.New("objstore: object already exists")
)

// Store defines object storage operations used by the pipeline. Paths are
// slash-separated keys under a bucket configured at construction time.
type Store interface {
	Exists(ctx context.Context, path string) (bool, error)
	Put(ctx context.Context, path string, data []byte, overwrite bool) error
	Get(ctx context.Context, path string) ([]byte, error)
	GetLine(ctx context.Context, path string) ([]byte, error)
	Close() error
}

// firstLine extracts the first newline-delimited record of an object body.
func firstLine(data []byte) []byte {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return data[:i]
	}
	return data
}
