// Package codec adapts compression to the pipeline: a gzip Codec, and an Adapter which applies a
// Codec only to objects whose names carry the compressed suffix.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/go-sif/incbench/errors"
	"github.com/klauspost/compress/gzip"
)

const (
	// MinLevel is the lowest accepted compression level
	MinLevel = 0
	// MaxLevel is the highest accepted compression level
	MaxLevel = 9
	// DefaultLevel is the compression level used when none is configured
	DefaultLevel = 6
)

// ValidateLevel returns a ConfigError if level is outside [MinLevel, MaxLevel]
func ValidateLevel(level int) error {
	if level < MinLevel || level > MaxLevel {
		return errors.ConfigError{
			Option: "compression level",
			Reason: fmt.Sprintf("%d is outside [%d,%d]", level, MinLevel, MaxLevel),
		}
	}
	return nil
}

// Gzip is a gzip Codec. Output carries a fixed modification time, so compressing the same
// payload at the same level is reproducible.
type Gzip struct {
	ModTime time.Time // zero means no modification time is recorded
}

// Compress gzips data at level
func (g Gzip) Compress(data []byte, level int) ([]byte, error) {
	if err := ValidateLevel(level); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	w.ModTime = g.ModTime
	if _, err = w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress gunzips data
func (g Gzip) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip decompress: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip decompress: %w", err)
	}
	return out, nil
}
