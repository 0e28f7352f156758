// Package driver runs one benchmark end to end: it selects inputs, executes the batch and
// writes the benchmark and makespan logs.
package driver

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sif/incbench"
	"github.com/go-sif/incbench/errors"
	"github.com/go-sif/incbench/instrument"
	"github.com/go-sif/incbench/internal/stats"
	"github.com/go-sif/incbench/logging"
	"github.com/go-sif/incbench/objectio"
	"github.com/go-sif/incbench/pipeline"
	"github.com/go-sif/incbench/storage"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Options configures a benchmark run
type Options struct {
	InputPattern     string
	Output           string
	Iterations       int
	NFiles           int // number of matched inputs to process, in match order
	Cache            incbench.CachePolicy
	CompressionLevel int
	BenchFile        string // empty writes events to Stdout
	Anonymous        bool
	Strategy         incbench.Strategy
	Workers          int
	Router           *storage.Router
	Transform        incbench.Transform
	CacheFs          afero.Fs
	Stdout           io.Writer // defaults to os.Stdout
	Logger           *zap.Logger
}

// Summary describes a finished run
type Summary struct {
	Inputs    []incbench.ObjectRef
	Artifacts []incbench.ObjectRef
	Result    *pipeline.Result
	Stats     *stats.RunStatistics
	Start     time.Time
	End       time.Time
}

func (o *Options) pipelineConfig() *pipeline.Config {
	return &pipeline.Config{
		Bucket:           o.Output,
		Iterations:       o.Iterations,
		Cache:            o.Cache,
		CompressionLevel: o.CompressionLevel,
		Strategy:         o.Strategy,
		Workers:          o.Workers,
		Anonymous:        o.Anonymous,
	}
}

// Validate returns a ConfigError describing the first invalid option, if any
func (o *Options) Validate() error {
	if err := o.pipelineConfig().Validate(); err != nil {
		return err
	}
	if o.InputPattern == "" {
		return errors.ConfigError{Option: "input pattern", Reason: "must not be empty"}
	}
	if o.NFiles < 0 {
		return errors.ConfigError{Option: "n-files", Reason: fmt.Sprintf("%d is negative", o.NFiles)}
	}
	if o.Router == nil || o.Transform == nil {
		return errors.ConfigError{Option: "driver", Reason: "a storage router and a transform are required"}
	}
	return nil
}

// Run executes one benchmark. Errors returned happen before the batch starts; chain failures
// are reported in Summary.Result and do not fail the run.
func Run(ctx context.Context, opts *Options) (*Summary, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := logging.OrNop(opts.Logger)
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	summary := &Summary{Start: time.Now(), Stats: &stats.RunStatistics{}}
	summary.Stats.Start()

	recorder := instrument.SetupLog(&instrument.Config{Path: opts.BenchFile, Console: stdout, Logger: logger})
	recorder.Observe(summary.Stats.Observe)

	matches, err := opts.Router.Glob(ctx, opts.InputPattern, opts.Anonymous)
	if err != nil {
		return nil, err
	}
	if opts.NFiles < len(matches) {
		matches = matches[:opts.NFiles]
	}
	summary.Inputs = matches
	logger.Info("selected inputs", zap.String("pattern", opts.InputPattern), zap.Int("files", len(matches)))

	engine, err := pipeline.NewEngine(opts.pipelineConfig(), &pipeline.Dependencies{
		IO: objectio.New(&objectio.Config{
			Router:   opts.Router,
			Recorder: recorder,
			CacheFs:  opts.CacheFs,
			Logger:   logger,
		}),
		Transform: opts.Transform,
		Recorder:  recorder,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	res := engine.Run(ctx, matches)
	summary.Result = res
	summary.Artifacts = res.Artifacts
	for _, c := range res.Chains {
		if c.Iterations() > 0 {
			summary.Stats.EndChain(c.State() == incbench.Done)
		}
	}

	paths := make([]string, len(res.Artifacts))
	for i, a := range res.Artifacts {
		paths[i] = a.Path
	}
	fmt.Fprintln(stdout, strings.Join(paths, ", "))

	summary.End = time.Now()
	summary.Stats.Finish()
	if opts.BenchFile != "" {
		dir, name := filepath.Split(opts.BenchFile)
		if err := instrument.AppendMakespan(dir, name, summary.Start, summary.End); err != nil {
			logger.Warn("unable to append makespan", zap.String("dir", dir), zap.Error(err))
		}
	}
	logStatistics(logger, summary)
	return summary, nil
}

func logStatistics(logger *zap.Logger, s *Summary) {
	fields := []zap.Field{
		zap.Duration("makespan", s.End.Sub(s.Start)),
		zap.Int64("chainsCompleted", s.Stats.GetNumChainsCompleted()),
		zap.Int64("chainsFailed", s.Stats.GetNumChainsFailed()),
	}
	for _, stage := range []incbench.StageName{
		incbench.ReadStage, incbench.TransformStage, incbench.WriteStage,
		incbench.FetchStage, incbench.StoreStage, incbench.DecompressStage, incbench.CompressStage,
	} {
		if n := s.Stats.GetStageCount(stage); n > 0 {
			fields = append(fields, zap.Duration(string(stage)+"Mean", s.Stats.GetStageMean(stage)))
		}
	}
	logger.Info("benchmark finished", fields...)
	if s.Result != nil && s.Result.Err != nil {
		logger.Warn("some chains failed", zap.Error(s.Result.Err))
	}
}
