// Package memory provides an in-memory BlobStore. It models credentials and public objects, so
// it can stand in for the remote object store in tests and dry runs.
package memory

import (
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-sif/incbench"
	"github.com/go-sif/incbench/errors"
)

// Config configures a Store
type Config struct {
	Authenticated bool // whether the store holds credentials for authenticated operations
}

type object struct {
	data   []byte
	public bool
}

// Store is an in-memory BlobStore
type Store struct {
	conf     Config
	lock     sync.RWMutex
	objects  map[string]*object
	opens    int64
	creates  int64
	failNext map[string]error
}

// New creates an empty Store
func New(conf *Config) *Store {
	if conf == nil {
		conf = &Config{Authenticated: true}
	}
	return &Store{
		conf:     *conf,
		objects:  make(map[string]*object),
		failNext: make(map[string]error),
	}
}

// Put stores data under p directly, bypassing access checks
func (s *Store) Put(p string, data []byte, public bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.objects[p] = &object{data: append([]byte(nil), data...), public: public}
}

// Get returns a copy of the data stored under p, bypassing access checks
func (s *Store) Get(p string) ([]byte, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	o, ok := s.objects[p]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), o.data...), true
}

// FailNext makes the next Open or Create of p fail with err
func (s *Store) FailNext(p string, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failNext[p] = err
}

// Opens returns the number of successful Open calls so far
func (s *Store) Opens() int64 {
	return atomic.LoadInt64(&s.opens)
}

// Creates returns the number of committed Create calls so far
func (s *Store) Creates() int64 {
	return atomic.LoadInt64(&s.creates)
}

func (s *Store) takeFailure(p string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	err, ok := s.failNext[p]
	if ok {
		delete(s.failNext, p)
	}
	return err
}

// Exists returns true iff an object is stored under p
func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	_, ok := s.objects[p]
	return ok, nil
}

// Open returns a reader for the object stored under p
func (s *Store) Open(ctx context.Context, p string, opts incbench.OpenOptions) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.takeFailure(p); err != nil {
		return nil, err
	}
	if err := s.CheckCredentials(p, "read", opts); err != nil {
		return nil, err
	}
	s.lock.RLock()
	o, ok := s.objects[p]
	s.lock.RUnlock()
	if !ok {
		return nil, errors.NotFoundError{Path: p}
	}
	if opts.Anonymous && !o.public {
		return nil, errors.AccessError{Path: p, Op: "read", Reason: "object is not public"}
	}
	atomic.AddInt64(&s.opens, 1)
	return io.NopCloser(bytes.NewReader(o.data)), nil
}

// Create returns a writer which stores its contents under p when closed
func (s *Store) Create(ctx context.Context, p string, opts incbench.OpenOptions) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.takeFailure(p); err != nil {
		return nil, err
	}
	if err := s.CheckCredentials(p, "write", opts); err != nil {
		return nil, err
	}
	return &writer{store: s, path: p}, nil
}

// CheckCredentials refuses anonymous writes, and authenticated operations on a store without
// credentials
func (s *Store) CheckCredentials(p string, op string, opts incbench.OpenOptions) error {
	if opts.Anonymous {
		if op == "write" {
			return errors.AccessError{Path: p, Op: op, Reason: "anonymous writes are not permitted"}
		}
		return nil
	}
	if !s.conf.Authenticated {
		return errors.AccessError{Path: p, Op: op, Reason: "no credentials configured"}
	}
	return nil
}

type writer struct {
	store  *Store
	path   string
	buf    bytes.Buffer
	closed bool
}

func (w *writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.store.Put(w.path, w.buf.Bytes(), false)
	atomic.AddInt64(&w.store.creates, 1)
	return nil
}

// Glob returns the sorted paths matching pattern. Anonymous globs only see public objects.
func (s *Store) Glob(ctx context.Context, pattern string, opts incbench.OpenOptions) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	var matches []string
	for p, o := range s.objects {
		if opts.Anonymous && !o.public {
			continue
		}
		if ok, _ := path.Match(pattern, p); ok {
			matches = append(matches, p)
		}
	}
	sort.Strings(matches)
	return matches, nil
}

// List returns the sorted paths beginning with prefix
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	var matches []string
	for p := range s.objects {
		if strings.HasPrefix(p, prefix) {
			matches = append(matches, p)
		}
	}
	sort.Strings(matches)
	return matches, nil
}

// Delete removes the given paths. Missing paths are ignored.
func (s *Store) Delete(ctx context.Context, paths ...string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, p := range paths {
		delete(s.objects, p)
	}
	return nil
}
