package main

import (
	"fmt"
	"os"

	"github.com/go-sif/incbench/logging"
	"github.com/go-sif/incbench/storage"
	"github.com/go-sif/incbench/storage/local"
	"github.com/go-sif/incbench/storage/memory"
	"github.com/go-sif/incbench/storage/s3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logLevel    string
	development bool
	storeKind   string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "incbench",
	Short: "Benchmark chained read/increment/write pipelines over object storage",
	Long: `incbench measures the cost of repeatedly reading NIfTI images from object storage,
incrementing every voxel, and writing the result back, optionally through a local
cache and with gzip compression. Every stage is timed into a CSV benchmark log.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		level := logging.ParseLevel(logLevel)
		logger, err = logging.NewLogger(level, development)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Debug("logger initialized", zap.String("level", logging.LogLevelToString(level)))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&development, "dev", false, "human-readable development logging")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "s3", "object store backing s3:// paths (s3, memory, local)")

	rootCmd.AddCommand(runCmd, launchCmd, compressCmd)
}

// createRouter builds the storage router for the selected store. file:// paths always use the
// local filesystem.
func createRouter() (*storage.Router, error) {
	fs := local.New(nil)
	switch storeKind {
	case "s3":
		cfg, err := s3.ConfigFromEnv()
		if err != nil {
			return nil, err
		}
		remote, err := s3.New(cfg)
		if err != nil {
			return nil, err
		}
		return &storage.Router{Remote: remote, Local: fs}, nil
	case "memory":
		return &storage.Router{Remote: memory.New(nil), Local: fs}, nil
	case "local":
		return &storage.Router{Remote: fs, Local: fs}, nil
	default:
		return nil, fmt.Errorf("unknown store %q", storeKind)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
