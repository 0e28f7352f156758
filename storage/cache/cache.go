// Package cache implements the local cache tier: a fixed directory (by default a tmpfs such as
// /dev/shm) holding copies of objects keyed by the hash of their path. Access to a single key is
// serialised; distinct keys proceed in parallel.
package cache

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/docker/docker/pkg/locker"
	uuid "github.com/gofrs/uuid"
	"github.com/pierrec/lz4"
	"github.com/spf13/afero"
)

const filePrefix = "incbench-"

// Config configures a Tier
type Config struct {
	Dir      string   // storage directory, created if missing
	Compress bool     // lz4-frame cached payloads
	Fs       afero.Fs // defaults to the operating system's filesystem
}

// Tier is a directory-backed object cache
type Tier struct {
	id       string
	dir      string
	compress bool
	fs       afero.Fs
	locks    *locker.Locker
	hits     int64
	misses   int64
}

// New creates a Tier, creating its storage directory if necessary
func New(conf *Config) (*Tier, error) {
	if conf.Dir == "" {
		return nil, fmt.Errorf("cache tier requires a storage directory")
	}
	fs := conf.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(conf.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", conf.Dir, err)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	return &Tier{
		id:       id.String(),
		dir:      conf.Dir,
		compress: conf.Compress,
		fs:       fs,
		locks:    locker.New(),
	}, nil
}

// ID returns a unique identifier for this Tier
func (t *Tier) ID() string {
	return t.id
}

// Dir returns the storage directory of this Tier
func (t *Tier) Dir() string {
	return t.dir
}

// FileFor returns the cache file used for an object path
func (t *Tier) FileFor(objectPath string) string {
	return filepath.Join(t.dir, fmt.Sprintf("%s%016x", filePrefix, xxhash.Sum64String(objectPath)))
}

// Get returns the cached payload for objectPath. ok is false on a miss.
func (t *Tier) Get(objectPath string) (data []byte, ok bool, err error) {
	t.locks.Lock(objectPath)
	defer t.locks.Unlock(objectPath)
	f, err := t.fs.Open(t.FileFor(objectPath))
	if os.IsNotExist(err) {
		atomic.AddInt64(&t.misses, 1)
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	defer f.Close()
	var r io.Reader = f
	if t.compress {
		r = lz4.NewReader(f)
	}
	data, err = io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("read cached %s: %w", objectPath, err)
	}
	atomic.AddInt64(&t.hits, 1)
	return data, true, nil
}

// Put caches data for objectPath. The file is written under a temporary name and renamed into
// place, so readers never observe a partial payload.
func (t *Tier) Put(objectPath string, data []byte) error {
	t.locks.Lock(objectPath)
	defer t.locks.Unlock(objectPath)
	payload := data
	if t.compress {
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("compress cached %s: %w", objectPath, err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compress cached %s: %w", objectPath, err)
		}
		payload = buf.Bytes()
	}
	tmpID, err := uuid.NewV4()
	if err != nil {
		return err
	}
	tmp := filepath.Join(t.dir, ".tmp-"+tmpID.String())
	if err := afero.WriteFile(t.fs, tmp, payload, 0644); err != nil {
		return fmt.Errorf("write cached %s: %w", objectPath, err)
	}
	if err := t.fs.Rename(tmp, t.FileFor(objectPath)); err != nil {
		t.fs.Remove(tmp)
		return fmt.Errorf("write cached %s: %w", objectPath, err)
	}
	return nil
}

// Evict removes the cached payload for objectPath, if any
func (t *Tier) Evict(objectPath string) error {
	t.locks.Lock(objectPath)
	defer t.locks.Unlock(objectPath)
	if err := t.fs.Remove(t.FileFor(objectPath)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Clear removes every cached payload from the storage directory
func (t *Tier) Clear() error {
	entries, err := afero.ReadDir(t.fs, t.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), filePrefix) {
			if err := t.fs.Remove(filepath.Join(t.dir, e.Name())); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}
	return nil
}

// Stats returns the number of cache hits and misses so far
func (t *Tier) Stats() (hits int64, misses int64) {
	return atomic.LoadInt64(&t.hits), atomic.LoadInt64(&t.misses)
}
