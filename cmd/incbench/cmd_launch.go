package main

import (
	"os"

	"github.com/go-sif/incbench"
	"github.com/go-sif/incbench/experiment"
	"github.com/go-sif/incbench/storage/cache"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	launchSeed        int64
	launchRepetitions int
	launchDropCaches  bool
)

var launchCmd = &cobra.Command{
	Use:   "launch <condition-json> <results-dir>",
	Short: "Run every experiment of a condition file in random order",
	Long: `Expands the condition file into one run per combination of iterations, file count,
cache and strategy, then runs the whole matrix --repetitions times in shuffled order. Each
repetition writes its benchmark logs to <results-dir>/<condition-name>/rep-<r>. The output
bucket is cleared after every run, and the cache directory after every cached run.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs := afero.NewOsFs()
		conditions, err := experiment.LoadConditions(fs, args[0])
		if err != nil {
			return err
		}
		router, err := createRouter()
		if err != nil {
			return err
		}
		var tier *cache.Tier
		if conditions.UsesCache() {
			if tier, err = cache.New(&cache.Config{Dir: incbench.DefaultCacheDir}); err != nil {
				return err
			}
		}
		exe, err := os.Executable()
		if err != nil {
			return err
		}
		launcher, err := experiment.NewLauncher(&experiment.LauncherConfig{
			Conditions:  conditions,
			ResultsDir:  args[1],
			Repetitions: launchRepetitions,
			Seed:        launchSeed,
			DropCaches:  launchDropCaches,
			Runner: &experiment.ExecRunner{
				Executable: exe,
				ExtraArgs:  []string{"--store", storeKind, "--log-level", logLevel},
				Logger:     logger,
			},
			Router:    router,
			CacheTier: tier,
			Fs:        fs,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		summary, err := launcher.Run(cmd.Context())
		if summary != nil {
			logger.Info("campaign finished", zap.Int("runs", summary.Runs), zap.Int("failures", summary.Failures))
		}
		return err
	},
}

func init() {
	f := launchCmd.Flags()
	f.Int64Var(&launchSeed, "seed", 0, "shuffle seed, defaults to the current time")
	f.IntVar(&launchRepetitions, "repetitions", 5, "number of repetitions to run")
	f.BoolVar(&launchDropCaches, "drop-caches", true, "drop the OS page cache before every run (requires sudo)")
}
