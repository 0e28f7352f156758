package experiment

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/go-sif/incbench/errors"
	"github.com/go-sif/incbench/internal/util"
	"github.com/go-sif/incbench/logging"
	"github.com/go-sif/incbench/storage"
	"github.com/go-sif/incbench/storage/cache"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// CommandRunner executes one experiment
type CommandRunner interface {
	RunExperiment(ctx context.Context, exp Experiment) error
}

// ExecRunner runs experiments as child processes of Executable's "run" subcommand
type ExecRunner struct {
	Executable string   // defaults to the running binary
	ExtraArgs  []string // appended to every command, e.g. "--store", "local"
	Logger     *zap.Logger
}

// RunExperiment runs exp to completion, logging its output
func (r *ExecRunner) RunExperiment(ctx context.Context, exp Experiment) error {
	exe := r.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return err
		}
	}
	logger := logging.OrNop(r.Logger)
	args := append(exp.Args(), r.ExtraArgs...)
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	logger.Info("launching command", zap.String("exe", exe), zap.Strings("args", args))
	err := cmd.Run()
	logger.Info("command completed",
		zap.String("stdout", stdout.String()),
		zap.String("stderr", stderr.String()),
		zap.Error(err),
	)
	if err != nil {
		return fmt.Errorf("experiment %s: %w", exp.BenchFile, err)
	}
	return nil
}

// LauncherConfig configures a Launcher
type LauncherConfig struct {
	Conditions  *Conditions
	ResultsDir  string
	Repetitions int   // defaults to 5
	Seed        int64 // shuffle seed, defaults to the current time
	DropCaches  bool
	Runner      CommandRunner
	Router      *storage.Router // clears the output bucket after each run
	CacheTier   *cache.Tier     // emptied after each cached run, so no run starts warm
	Fs          afero.Fs        // for results folders, defaults to the operating system's
	Dropper     func(ctx context.Context) error
	Logger      *zap.Logger
}

// LaunchSummary reports a completed campaign
type LaunchSummary struct {
	Runs     int
	Failures int
	Folders  []string // one results folder per repetition
}

// Launcher runs every experiment of a condition file, once per repetition, in random order
type Launcher struct {
	conf   *LauncherConfig
	rng    *rand.Rand
	logger *zap.Logger
}

func ensureDefaultLauncherValues(conf *LauncherConfig) {
	if conf.Repetitions == 0 {
		conf.Repetitions = 5
	}
	if conf.Seed == 0 {
		conf.Seed = time.Now().UnixNano()
	}
	if conf.Fs == nil {
		conf.Fs = afero.NewOsFs()
	}
	if conf.Dropper == nil {
		conf.Dropper = DropCaches
	}
}

// NewLauncher creates a Launcher
func NewLauncher(conf *LauncherConfig) (*Launcher, error) {
	if conf.Conditions == nil {
		return nil, errors.ConfigError{Option: "conditions", Reason: "missing"}
	}
	if conf.Runner == nil || conf.Router == nil {
		return nil, errors.ConfigError{Option: "launcher", Reason: "a command runner and a storage router are required"}
	}
	if conf.Repetitions < 0 {
		return nil, errors.ConfigError{Option: "repetitions", Reason: fmt.Sprintf("%d is negative", conf.Repetitions)}
	}
	c := *conf
	ensureDefaultLauncherValues(&c)
	return &Launcher{conf: &c, rng: rand.New(rand.NewSource(c.Seed)), logger: logging.OrNop(c.Logger)}, nil
}

// Run executes the campaign. A failed experiment is logged and the campaign continues; all
// failures are returned together.
func (l *Launcher) Run(ctx context.Context) (*LaunchSummary, error) {
	exps := l.conf.Conditions.Expand()
	root := filepath.Join(l.conf.ResultsDir, l.conf.Conditions.Name)
	summary := &LaunchSummary{}
	var merr *multierror.Error
	for r := 0; r < l.conf.Repetitions; r++ {
		l.rng.Shuffle(len(exps), func(i, j int) { exps[i], exps[j] = exps[j], exps[i] })
		repDir := filepath.Join(root, fmt.Sprintf("rep-%d", r))
		if err := l.conf.Fs.RemoveAll(repDir); err != nil {
			return summary, err
		}
		if err := l.conf.Fs.MkdirAll(repDir, 0755); err != nil {
			return summary, err
		}
		summary.Folders = append(summary.Folders, repDir)
		for _, exp := range exps {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			exp.BenchFile = filepath.Join(repDir, filepath.Base(exp.BenchFile))
			if l.conf.DropCaches {
				if err := l.conf.Dropper(ctx); err != nil {
					l.logger.Warn("unable to drop caches", zap.Error(err))
				}
			}
			summary.Runs++
			err := util.SafeRun("Experiment", func() error {
				return l.conf.Runner.RunExperiment(ctx, exp)
			})
			if err != nil {
				summary.Failures++
				l.logger.Error("experiment failed", zap.String("bench", exp.BenchFile), zap.Error(err))
				merr = multierror.Append(merr, err)
			}
			if exp.Cache && l.conf.CacheTier != nil {
				if err := l.conf.CacheTier.Clear(); err != nil {
					merr = multierror.Append(merr, fmt.Errorf("clear cache %s: %w", l.conf.CacheTier.Dir(), err))
				}
			}
			n, err := l.conf.Router.Clear(ctx, exp.Output)
			if err != nil {
				merr = multierror.Append(merr, fmt.Errorf("clear %s: %w", exp.Output, err))
				continue
			}
			l.logger.Debug("cleared output bucket", zap.String("bucket", exp.Output), zap.Int("objects", n))
		}
	}
	if merr != nil {
		merr.ErrorFormat = util.FormatMultiError
	}
	return summary, merr.ErrorOrNil()
}
