// Package pipeline runs chains of read, transform and write iterations over a batch of
// source objects, either one stage at a time (Immediate) or as a lazily built graph of
// dependent nodes evaluated concurrently (Deferred).
package pipeline

import (
	"context"
	"fmt"

	"github.com/go-sif/incbench"
	"github.com/go-sif/incbench/codec"
	"github.com/go-sif/incbench/instrument"
	"github.com/go-sif/incbench/internal/util"
	"github.com/go-sif/incbench/lineage"
	"github.com/go-sif/incbench/logging"
	"github.com/go-sif/incbench/objectio"
	"go.uber.org/zap"
)

// Dependencies are the capabilities an Engine runs with
type Dependencies struct {
	IO        *objectio.IO
	Transform incbench.Transform
	Codec     incbench.Codec // defaults to gzip
	Recorder  *instrument.Recorder
	Logger    *zap.Logger
}

// Engine executes batches of chains
type Engine struct {
	conf      *Config
	io        *objectio.IO
	codec     *codec.Adapter
	transform incbench.Transform
	recorder  *instrument.Recorder
	logger    *zap.Logger
}

// NewEngine validates conf and creates an Engine
func NewEngine(conf *Config, deps *Dependencies) (*Engine, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if deps == nil || deps.IO == nil || deps.Transform == nil {
		return nil, fmt.Errorf("pipeline engine requires an object IO and a transform")
	}
	c := *conf
	ensureDefaultConfigValues(&c)
	return &Engine{
		conf:      &c,
		io:        deps.IO,
		codec:     codec.NewAdapter(deps.Codec),
		transform: util.SafeTransform(deps.Transform),
		recorder:  deps.Recorder,
		logger:    logging.OrNop(deps.Logger),
	}, nil
}

// Config returns the effective configuration, defaults applied
func (e *Engine) Config() Config {
	return *e.conf
}

// read fetches in and decompresses it when its name says so
func (e *Engine) read(ctx context.Context, in incbench.ObjectRef) ([]byte, error) {
	var data []byte
	err := e.recorder.Time(incbench.ReadStage, in.Path, func() error {
		raw, err := e.io.ReadObject(ctx, in, e.conf.Cache)
		if err != nil {
			return err
		}
		if !in.Compressed {
			data = raw
			return nil
		}
		return e.recorder.Time(incbench.DecompressStage, in.Path, func() error {
			var err error
			data, err = e.codec.Decompress(raw, in)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", in.Path, err)
	}
	return data, nil
}

func (e *Engine) apply(in incbench.ObjectRef, data []byte) ([]byte, error) {
	var out []byte
	err := e.recorder.Time(incbench.TransformStage, in.Path, func() error {
		var err error
		out, err = e.transform.Apply(data)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", in.Path, err)
	}
	return out, nil
}

// write stores data as the artifact of iteration i of a chain whose current input is in
func (e *Engine) write(ctx context.Context, in incbench.ObjectRef, i int, data []byte) (incbench.ObjectRef, error) {
	var out incbench.ObjectRef
	err := e.recorder.Time(incbench.WriteStage, in.Path, func() error {
		name, err := lineage.NextName(e.conf.Bucket, in.Path, i)
		if err != nil {
			return err
		}
		out = incbench.ParseObjectRef(name)
		payload := data
		if out.Compressed {
			err = e.recorder.Time(incbench.CompressStage, in.Path, func() error {
				var err error
				payload, err = e.codec.Compress(data, out, e.conf.CompressionLevel)
				return err
			})
			if err != nil {
				return err
			}
		}
		return e.io.WriteObject(ctx, out, payload, e.conf.Cache)
	})
	if err != nil {
		return incbench.ObjectRef{}, fmt.Errorf("write %s: %w", in.Path, err)
	}
	return out, nil
}

// Run executes one chain per source with the configured strategy
func (e *Engine) Run(ctx context.Context, sources []incbench.ObjectRef) *Result {
	chains := make([]*Chain, len(sources))
	for i, src := range sources {
		chains[i] = NewChain(i, src.WithAnonymous(e.conf.Anonymous), e.conf.Iterations, e.conf.Bucket)
	}
	if e.conf.Iterations == 0 {
		e.logger.Info("zero iterations requested, nothing to run", zap.Int("sources", len(sources)))
		return newResult(chains)
	}
	e.logger.Debug("running batch",
		zap.Stringer("strategy", e.conf.Strategy),
		zap.Int("chains", len(chains)),
		zap.Int("iterations", e.conf.Iterations),
		zap.Bool("cache", e.conf.Cache.Enabled),
	)
	switch e.conf.Strategy {
	case incbench.Deferred:
		g := e.Defer(chains)
		NewEvaluator(e, e.conf.Workers).Evaluate(ctx, g)
	default:
		e.runImmediate(ctx, chains)
	}
	res := newResult(chains)
	for _, c := range res.Failed() {
		e.logger.Warn("chain failed",
			zap.String("source", c.Source().Path),
			zap.Int("iteration", c.Iteration()),
			zap.Stringer("state", c.FailedAt()),
			zap.Error(c.Err()),
		)
	}
	return res
}
