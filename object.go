package incbench

import (
	"path"
	"strings"
)

// Scheme describes where an object lives
type Scheme int

const (
	// Remote objects live in the remote object store (s3:// or bare bucket/key paths)
	Remote Scheme = iota
	// Local objects live on a local filesystem (file://)
	Local
)

const (
	// RemotePrefix is the scheme prefix for objects in the remote store
	RemotePrefix = "s3://"
	// LocalPrefix is the scheme prefix for objects on a local filesystem
	LocalPrefix = "file://"
	// CompressedSuffix marks gzip-compressed objects
	CompressedSuffix = ".gz"
)

// String returns a textual representation of this Scheme
func (s Scheme) String() string {
	if s == Local {
		return "local"
	}
	return "remote"
}

// ObjectRef is a located blob. It is a value: every derived ref is a new ObjectRef.
type ObjectRef struct {
	Path       string // scheme-qualified path, as supplied
	Scheme     Scheme
	Compressed bool // whether the name carries the compressed suffix
	Anonymous  bool // read without credentials; only ever set on the first read of a chain
}

// ParseObjectRef builds an ObjectRef, deriving its scheme and compression tag once
func ParseObjectRef(p string) ObjectRef {
	scheme := Remote
	if strings.HasPrefix(p, LocalPrefix) {
		scheme = Local
	}
	return ObjectRef{
		Path:       p,
		Scheme:     scheme,
		Compressed: IsCompressedName(p),
	}
}

// WithAnonymous returns a copy of this ref with its anonymity flag set
func (r ObjectRef) WithAnonymous(anon bool) ObjectRef {
	r.Anonymous = anon
	return r
}

// Key returns the path with its scheme prefix removed
func (r ObjectRef) Key() string {
	return TrimScheme(r.Path)
}

// Base returns the final element of the ref's path
func (r ObjectRef) Base() string {
	return path.Base(r.Key())
}

// String returns the scheme-qualified path of this ref
func (r ObjectRef) String() string {
	return r.Path
}

// IsCompressedName reports whether name ends in the compressed suffix (case-sensitive)
func IsCompressedName(name string) bool {
	return len(name) >= len(CompressedSuffix) && name[len(name)-len(CompressedSuffix):] == CompressedSuffix
}

// TrimScheme removes a known scheme prefix from p
func TrimScheme(p string) string {
	if strings.HasPrefix(p, RemotePrefix) {
		return p[len(RemotePrefix):]
	}
	if strings.HasPrefix(p, LocalPrefix) {
		return p[len(LocalPrefix):]
	}
	return p
}

// SchemePrefix returns the scheme prefix carried by p, if any
func SchemePrefix(p string) string {
	if strings.HasPrefix(p, RemotePrefix) {
		return RemotePrefix
	}
	if strings.HasPrefix(p, LocalPrefix) {
		return LocalPrefix
	}
	return ""
}

// CachePolicy describes how an I/O operation uses the local cache tier
type CachePolicy struct {
	Enabled    bool
	StorageDir string // fixed directory backing the cache tier
	Compress   bool   // iff true, cached payloads are lz4-framed
}

// DefaultCacheDir is the storage directory used when a CachePolicy does not name one
const DefaultCacheDir = "/dev/shm"
