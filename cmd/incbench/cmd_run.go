package main

import (
	"github.com/go-sif/incbench"
	"github.com/go-sif/incbench/codec"
	"github.com/go-sif/incbench/driver"
	"github.com/go-sif/incbench/transform/nifti"
	"github.com/spf13/cobra"
)

var (
	runIterations int
	runCache      bool
	runCacheDir   string
	runCacheLz4   bool
	runNFiles     int
	runLevel      int
	runBenchFile  string
	runAnonymous  bool
	runStrategy   string
	runWorkers    int
)

var runCmd = &cobra.Command{
	Use:   "run <input-pattern> <output-location>",
	Short: "Run one benchmark over the objects matching a pattern",
	Long: `Globs the input pattern, takes the first --n-files matches in listing order, and runs
--it chained iterations of read, increment and write over each of them. Output names follow
the lineage rule inc_<i>_<name>. The produced artifacts are printed joined by ", ".`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, err := incbench.ParseStrategy(runStrategy)
		if err != nil {
			return err
		}
		router, err := createRouter()
		if err != nil {
			return err
		}
		_, err = driver.Run(cmd.Context(), &driver.Options{
			InputPattern:     args[0],
			Output:           args[1],
			Iterations:       runIterations,
			NFiles:           runNFiles,
			Cache:            incbench.CachePolicy{Enabled: runCache, StorageDir: runCacheDir, Compress: runCacheLz4},
			CompressionLevel: runLevel,
			BenchFile:        runBenchFile,
			Anonymous:        runAnonymous,
			Strategy:         strategy,
			Workers:          runWorkers,
			Router:           router,
			Transform:        nifti.Transform{},
			Stdout:           cmd.OutOrStdout(),
			Logger:           logger,
		})
		return err
	},
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runIterations, "it", 1, "number of iterations per file")
	f.BoolVar(&runCache, "cache", false, "enable the local file cache")
	f.StringVar(&runCacheDir, "cache-dir", incbench.DefaultCacheDir, "cache storage directory")
	f.BoolVar(&runCacheLz4, "cache-lz4", false, "lz4-frame cached payloads")
	f.IntVar(&runNFiles, "n-files", 1, "number of files to process")
	f.IntVar(&runLevel, "compression-level", codec.DefaultLevel, "gzip compression level (0-9)")
	f.StringVar(&runBenchFile, "bench-file", "", "file to output benchmark results to, stdout otherwise")
	f.BoolVar(&runAnonymous, "anon", false, "read inputs from a publicly available dataset without credentials")
	f.StringVar(&runStrategy, "strategy", "immediate", "execution strategy (immediate, deferred)")
	f.IntVar(&runWorkers, "workers", 0, "concurrent chains under the deferred strategy, defaults to the number of CPUs")
}
