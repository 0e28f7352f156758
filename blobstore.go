package incbench

import (
	"context"
	"io"
)

// OpenOptions configure a single BlobStore operation
type OpenOptions struct {
	Anonymous bool // perform the operation without credentials
}

// BlobStore is a generic object store. Paths passed to a BlobStore have already had their scheme
// prefix removed, so remote paths are "bucket/key" and local paths are filesystem paths.
// Implementations report missing objects with errors.NotFoundError and permission problems with
// errors.AccessError.
type BlobStore interface {
	Exists(ctx context.Context, path string) (bool, error)
	Open(ctx context.Context, path string, opts OpenOptions) (io.ReadCloser, error)
	Create(ctx context.Context, path string, opts OpenOptions) (io.WriteCloser, error) // the object is committed on Close
	Glob(ctx context.Context, pattern string, opts OpenOptions) ([]string, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, paths ...string) error
}

// CredentialChecker is implemented by stores which can refuse an operation from their
// configuration alone, without contacting the backing service
type CredentialChecker interface {
	CheckCredentials(path string, op string, opts OpenOptions) error
}
