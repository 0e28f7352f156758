package main

import (
	"github.com/go-sif/incbench/codec"
	"github.com/go-sif/incbench/experiment"
	"github.com/go-sif/incbench/instrument"
	"github.com/spf13/cobra"
)

var (
	compressRepetitions int
	compressLevel       int
	compressBenchFile   string
	compressDropCaches  bool
)

var compressCmd = &cobra.Command{
	Use:   "compress <file>",
	Short: "Measure gzip decompression and recompression of a local file",
	Long: `Repeatedly reads a local gzip file, decompresses it, and recompresses it at
--compression-level to rgzip-<name> next to it, timing both stages. The recompressed
copy keeps the source's modification time and is removed after every repetition.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := codec.ValidateLevel(compressLevel); err != nil {
			return err
		}
		return experiment.MeasureCompression(cmd.Context(), &experiment.CompressionOptions{
			File:        args[0],
			Repetitions: compressRepetitions,
			Level:       compressLevel,
			Recorder: instrument.SetupLog(&instrument.Config{
				Path:    compressBenchFile,
				Console: cmd.OutOrStdout(),
				Logger:  logger,
			}),
			DropCaches: compressDropCaches,
			Logger:     logger,
		})
	},
}

func init() {
	f := compressCmd.Flags()
	f.IntVar(&compressRepetitions, "repetitions", 5, "number of repetitions")
	f.IntVar(&compressLevel, "compression-level", codec.DefaultLevel, "gzip compression level (0-9)")
	f.StringVar(&compressBenchFile, "bench-file", "gzip-benchmarks.csv", "file to store benchmarks to")
	f.BoolVar(&compressDropCaches, "drop-caches", true, "drop the OS page cache before every repetition (requires sudo)")
}
