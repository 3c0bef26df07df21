package archive

import (
	"context"
	"errors"
)

var (
	// ErrExists is returned by Put when overwrite is false and the object exists.
	ErrExists = errors.New("archive object already exists")
	// ErrNotFound is returned by Get for a missing object.
	ErrNotFound = errors.New("archive object not found")
	// ErrNoParent is returned by Put when parent directories are missing and
	// creation was not requested.
	ErrNoParent = errors.New("archive parent directory does not exist")
)

type PutOptions struct {
	Overwrite         bool
	CreateDirectories bool
}

// BlobStore persists archive documents by path. With Overwrite=false, Put
// must be first-writer-wins for concurrent writers of one path; with
// Overwrite=true the last writer wins.
type BlobStore interface {
	Put(ctx context.Context, path string, data []byte, opts PutOptions) error
	Get(ctx context.Context, path string) ([]byte, error)
	// Delete removes the object at path. A missing object is not an error.
	Delete(ctx context.Context, path string) error
	// Walk calls fn for every stored path. Returning an error from fn stops the walk.
	Walk(ctx context.Context, fn func(path string) error) error
	Location(path string) string
}
