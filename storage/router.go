// Package storage routes object references to the BlobStore responsible for their scheme.
// Backends live in the memory, local and s3 subpackages; the cache tier lives in cache.
package storage

import (
	"context"
	"fmt"

	"github.com/go-sif/incbench"
)

// Router dispatches ObjectRefs to a BlobStore by scheme
type Router struct {
	Remote incbench.BlobStore // serves s3:// and bare bucket/key paths
	Local  incbench.BlobStore // serves file:// paths
}

// For returns the store responsible for ref
func (r *Router) For(ref incbench.ObjectRef) (incbench.BlobStore, error) {
	var store incbench.BlobStore
	switch ref.Scheme {
	case incbench.Local:
		store = r.Local
	default:
		store = r.Remote
	}
	if store == nil {
		return nil, fmt.Errorf("no %s store configured for %s", ref.Scheme, ref.Path)
	}
	return store, nil
}

// Glob expands pattern into refs, keeping the pattern's scheme prefix on every result
func (r *Router) Glob(ctx context.Context, pattern string, anonymous bool) ([]incbench.ObjectRef, error) {
	patternRef := incbench.ParseObjectRef(pattern)
	store, err := r.For(patternRef)
	if err != nil {
		return nil, err
	}
	matches, err := store.Glob(ctx, patternRef.Key(), incbench.OpenOptions{Anonymous: anonymous})
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	prefix := incbench.SchemePrefix(pattern)
	refs := make([]incbench.ObjectRef, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, incbench.ParseObjectRef(prefix+m))
	}
	return refs, nil
}

// Clear deletes every object under location, returning the number of objects removed
func (r *Router) Clear(ctx context.Context, location string) (int, error) {
	ref := incbench.ParseObjectRef(location)
	store, err := r.For(ref)
	if err != nil {
		return 0, err
	}
	prefix := ref.Key()
	if prefix != "" && prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	paths, err := store.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	if err := store.Delete(ctx, paths...); err != nil {
		return 0, err
	}
	return len(paths), nil
}
