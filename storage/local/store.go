// Package local provides a BlobStore over a filesystem, used for file:// objects
package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-sif/incbench"
	"github.com/go-sif/incbench/errors"
	"github.com/spf13/afero"
)

// Store is a filesystem-backed BlobStore
type Store struct {
	fs afero.Fs
}

// New creates a Store over fs. A nil fs selects the operating system's filesystem.
func New(fs afero.Fs) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{fs: fs}
}

// Fs returns the filesystem backing this Store
func (s *Store) Fs() afero.Fs {
	return s.fs
}

func mapError(err error, p string, op string) error {
	switch {
	case os.IsNotExist(err):
		return errors.NotFoundError{Path: p}
	case os.IsPermission(err):
		return errors.AccessError{Path: p, Op: op, Reason: err.Error()}
	default:
		return err
	}
}

// Exists returns true iff a file exists at p
func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	return afero.Exists(s.fs, p)
}

// Open opens the file at p. Anonymous reads are permitted.
func (s *Store) Open(ctx context.Context, p string, opts incbench.OpenOptions) (io.ReadCloser, error) {
	f, err := s.fs.Open(p)
	if err != nil {
		return nil, mapError(err, p, "read")
	}
	info, err := f.Stat()
	if err == nil && info.IsDir() {
		f.Close()
		return nil, errors.NotFoundError{Path: p}
	}
	return f, nil
}

// Create truncates or creates the file at p, creating parent directories as needed
func (s *Store) Create(ctx context.Context, p string, opts incbench.OpenOptions) (io.WriteCloser, error) {
	if opts.Anonymous {
		return nil, errors.AccessError{Path: p, Op: "write", Reason: "anonymous writes are not permitted"}
	}
	if err := s.fs.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return nil, mapError(err, p, "write")
	}
	f, err := s.fs.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, mapError(err, p, "write")
	}
	return f, nil
}

// Glob returns the sorted file paths matching pattern
func (s *Store) Glob(ctx context.Context, pattern string, opts incbench.OpenOptions) ([]string, error) {
	matches, err := afero.Glob(s.fs, pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// List returns the sorted paths of regular files beginning with prefix
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	root := prefix
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		root = filepath.Dir(prefix)
	}
	var out []string
	err := afero.Walk(s.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() && strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// Delete removes the given files. Missing files are ignored.
func (s *Store) Delete(ctx context.Context, paths ...string) error {
	for _, p := range paths {
		if err := s.fs.Remove(p); err != nil && !os.IsNotExist(err) {
			return mapError(err, p, "delete")
		}
	}
	return nil
}
