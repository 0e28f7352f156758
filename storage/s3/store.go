// Package s3 provides a BlobStore over S3-compatible object storage, using minio-go.
// Paths are "bucket/key". Anonymous operations use an unsigned client.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-sif/incbench"
	"github.com/go-sif/incbench/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store is an S3-backed BlobStore
type Store struct {
	client        *minio.Client // signed with the configured credentials, if any
	anon          *minio.Client // unsigned
	authenticated bool
}

// New creates a Store for cfg
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	anon, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.New(&credentials.Static{Value: credentials.Value{SignerType: credentials.SignatureAnonymous}}),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, err
	}
	s := &Store{anon: anon, client: anon}
	if cfg.HasCredentials() {
		s.client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure:    cfg.UseSSL,
			Region:    cfg.Region,
			Transport: newTransport(),
		})
		if err != nil {
			return nil, err
		}
		s.authenticated = true
	}
	return s, nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// splitPath splits "bucket/key" into its parts
func splitPath(p string) (bucket string, key string) {
	p = strings.TrimPrefix(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i], p[i+1:]
	}
	return p, ""
}

// clientFor picks the client for an operation, refusing authenticated operations without credentials
func (s *Store) clientFor(p string, op string, opts incbench.OpenOptions) (*minio.Client, error) {
	if opts.Anonymous {
		return s.anon, nil
	}
	if !s.authenticated {
		return nil, errors.AccessError{Path: p, Op: op, Reason: "no credentials configured"}
	}
	return s.client, nil
}

// CheckCredentials refuses authenticated operations when no credentials are configured
func (s *Store) CheckCredentials(p string, op string, opts incbench.OpenOptions) error {
	if op == "write" && opts.Anonymous {
		return errors.AccessError{Path: p, Op: op, Reason: "anonymous writes are not permitted"}
	}
	_, err := s.clientFor(p, op, opts)
	return err
}

// mapError translates S3 error codes into incbench errors
func mapError(err error, p string, op string) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return errors.NotFoundError{Path: p}
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "AllAccessDisabled":
		return errors.AccessError{Path: p, Op: op, Reason: resp.Message}
	}
	if resp.StatusCode == http.StatusNotFound {
		return errors.NotFoundError{Path: p}
	}
	if resp.StatusCode == http.StatusForbidden {
		return errors.AccessError{Path: p, Op: op, Reason: resp.Message}
	}
	return fmt.Errorf("%s %s: %w", op, p, err)
}

// Exists returns true iff an object exists at p
func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	bucket, key := splitPath(p)
	_, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	mapped := mapError(err, p, "stat")
	if errors.IsNotFound(mapped) {
		return false, nil
	}
	return false, mapped
}

// Open returns a reader for the object at p
func (s *Store) Open(ctx context.Context, p string, opts incbench.OpenOptions) (io.ReadCloser, error) {
	client, err := s.clientFor(p, "read", opts)
	if err != nil {
		return nil, err
	}
	bucket, key := splitPath(p)
	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, p, "read")
	}
	// GetObject is lazy; Stat surfaces missing objects and denied access before the first Read
	if _, err = obj.Stat(); err != nil {
		obj.Close()
		return nil, mapError(err, p, "read")
	}
	return obj, nil
}

// Create returns a writer which uploads its contents to p when closed
func (s *Store) Create(ctx context.Context, p string, opts incbench.OpenOptions) (io.WriteCloser, error) {
	if opts.Anonymous {
		return nil, errors.AccessError{Path: p, Op: "write", Reason: "anonymous writes are not permitted"}
	}
	client, err := s.clientFor(p, "write", opts)
	if err != nil {
		return nil, err
	}
	return &uploader{ctx: ctx, client: client, path: p}, nil
}

type uploader struct {
	ctx    context.Context
	client *minio.Client
	path   string
	buf    bytes.Buffer
	closed bool
}

func (u *uploader) Write(p []byte) (int, error) {
	return u.buf.Write(p)
}

func (u *uploader) Close() error {
	if u.closed {
		return nil
	}
	u.closed = true
	bucket, key := splitPath(u.path)
	_, err := u.client.PutObject(u.ctx, bucket, key, bytes.NewReader(u.buf.Bytes()), int64(u.buf.Len()), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return mapError(err, u.path, "write")
}

// literalPrefix returns the part of pattern before its first wildcard
func literalPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, "*?[\\"); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

func (s *Store) list(ctx context.Context, client *minio.Client, prefix string) ([]string, error) {
	bucket, keyPrefix := splitPath(prefix)
	var out []string
	for info := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: keyPrefix, Recursive: true}) {
		if info.Err != nil {
			return nil, mapError(info.Err, prefix, "list")
		}
		out = append(out, bucket+"/"+info.Key)
	}
	sort.Strings(out)
	return out, nil
}

// Glob returns the sorted paths matching pattern, listing from the pattern's literal prefix
func (s *Store) Glob(ctx context.Context, pattern string, opts incbench.OpenOptions) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	client, err := s.clientFor(pattern, "list", opts)
	if err != nil {
		return nil, err
	}
	candidates, err := s.list(ctx, client, literalPrefix(pattern))
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, c := range candidates {
		if ok, _ := path.Match(pattern, c); ok {
			matches = append(matches, c)
		}
	}
	return matches, nil
}

// List returns the sorted paths beginning with prefix
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	client, err := s.clientFor(prefix, "list", incbench.OpenOptions{})
	if err != nil {
		return nil, err
	}
	return s.list(ctx, client, prefix)
}

// Delete removes the given objects, attempting every path before reporting failures
func (s *Store) Delete(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	client, err := s.clientFor(paths[0], "delete", incbench.OpenOptions{})
	if err != nil {
		return err
	}
	var multierr *multierror.Error
	for _, p := range paths {
		bucket, key := splitPath(p)
		if err := client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
			if mapped := mapError(err, p, "delete"); !errors.IsNotFound(mapped) {
				multierr = multierror.Append(multierr, mapped)
			}
		}
	}
	return multierr.ErrorOrNil()
}
