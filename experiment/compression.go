package experiment

import (
	"context"
	"path/filepath"

	"github.com/go-sif/incbench"
	"github.com/go-sif/incbench/codec"
	"github.com/go-sif/incbench/errors"
	"github.com/go-sif/incbench/instrument"
	"github.com/go-sif/incbench/logging"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// CompressionOptions configures MeasureCompression
type CompressionOptions struct {
	File        string // a gzip file. Names without the compressed suffix are timed unchanged.
	Repetitions int    // defaults to 5
	Level       int
	Recorder    *instrument.Recorder
	Fs          afero.Fs // defaults to the operating system's
	DropCaches  bool
	Dropper     func(ctx context.Context) error // defaults to DropCaches
	Logger      *zap.Logger
}

// RecompressedName returns the name MeasureCompression writes file's recompressed copy to
func RecompressedName(file string) string {
	return filepath.Join(filepath.Dir(file), "rgzip-"+filepath.Base(file))
}

// MeasureCompression repeatedly decompresses File and recompresses it at Level, recording the
// decompress and compress stages. The recompressed copy carries File's modification time, so
// its bytes are reproducible, and is removed after every repetition.
func MeasureCompression(ctx context.Context, opts *CompressionOptions) error {
	if err := codec.ValidateLevel(opts.Level); err != nil {
		return err
	}
	if opts.Repetitions < 0 {
		return errors.ConfigError{Option: "repetitions", Reason: "must not be negative"}
	}
	reps := opts.Repetitions
	if reps == 0 {
		reps = 5
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	dropper := opts.Dropper
	if dropper == nil {
		dropper = DropCaches
	}
	logger := logging.OrNop(opts.Logger)

	info, err := fs.Stat(opts.File)
	if err != nil {
		return err
	}
	mtime := info.ModTime()
	adapter := codec.NewAdapter(codec.Gzip{ModTime: mtime})
	out := RecompressedName(opts.File)

	for i := 0; i < reps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if opts.DropCaches {
			if err := dropper(ctx); err != nil {
				logger.Warn("unable to drop caches", zap.Error(err))
			}
		}
		raw, err := afero.ReadFile(fs, opts.File)
		if err != nil {
			return err
		}
		var data []byte
		err = opts.Recorder.Time(incbench.DecompressStage, opts.File, func() error {
			var err error
			data, err = adapter.MaybeDecompress(raw, opts.File)
			return err
		})
		if err != nil {
			return err
		}
		var packed []byte
		err = opts.Recorder.Time(incbench.CompressStage, out, func() error {
			var err error
			packed, err = adapter.MaybeCompress(data, out, opts.Level)
			return err
		})
		if err != nil {
			return err
		}
		if err := afero.WriteFile(fs, out, packed, 0644); err != nil {
			return err
		}
		if err := fs.Chtimes(out, mtime, mtime); err != nil {
			return err
		}
		logger.Info("compressed output file", zap.String("path", out), zap.Int("bytes", len(packed)))
		if err := fs.Remove(out); err != nil {
			return err
		}
	}
	return nil
}
